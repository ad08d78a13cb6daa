package model

import (
	"fmt"

	"trading-academy-platform/internal/domain"
)

type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "monthly"
	BillingCycleQuarterly BillingCycle = "quarterly"
	BillingCycleAnnual    BillingCycle = "annual"
)

// Months returns the length of one billing period.
func (c BillingCycle) Months() int {
	switch c {
	case BillingCycleQuarterly:
		return 3
	case BillingCycleAnnual:
		return 12
	default:
		return 1
	}
}

func (c BillingCycle) Valid() bool {
	switch c {
	case BillingCycleMonthly, BillingCycleQuarterly, BillingCycleAnnual:
		return true
	}
	return false
}

// Plan is a purchasable recurring offering: a service with a billing cycle
// and a fixed, precomputed price.
type Plan struct {
	ID          string
	ServiceName string
	Cycle       BillingCycle
	PriceINR    int64
}

// NewPlan validates and constructs a plan. The ID encodes service + cycle
// so a provider event can be mapped back without a join.
func NewPlan(serviceName string, cycle BillingCycle, priceINR int64) (*Plan, error) {
	if serviceName == "" || !cycle.Valid() || priceINR <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Plan{
		ID:          fmt.Sprintf("%s-%s", serviceName, cycle),
		ServiceName: serviceName,
		Cycle:       cycle,
		PriceINR:    priceINR,
	}, nil
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// Catalog is the fixed set of offerings sold by the site. One-time courses
// are keyed by service name; recurring plans by plan ID.
var (
	CoursePrices = map[string]int64{
		"foundation": 41500,
		"growth":     83200,
		"mastery":    124800,
	}

	SubscriptionPlans = func() map[string]*Plan {
		out := make(map[string]*Plan)
		add := func(service string, cycle BillingCycle, price int64) {
			p, _ := NewPlan(service, cycle, price)
			out[p.ID] = p
		}
		add("mentorship", BillingCycleMonthly, 4999)
		add("mentorship", BillingCycleQuarterly, 13499)
		add("mentorship", BillingCycleAnnual, 47999)
		add("signals", BillingCycleMonthly, 2999)
		add("signals", BillingCycleQuarterly, 7999)
		add("signals", BillingCycleAnnual, 28999)
		return out
	}()
)

// CoursePrice resolves the list price of a one-time offering.
func CoursePrice(serviceName string) (int64, error) {
	p, ok := CoursePrices[serviceName]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

// PlanByID resolves a recurring plan.
func PlanByID(id string) (*Plan, error) {
	p, ok := SubscriptionPlans[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}
