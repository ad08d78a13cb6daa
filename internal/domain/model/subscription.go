package model

import (
	"time"

	"trading-academy-platform/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCancelled  SubscriptionStatus = "cancelled"
	SubscriptionStatusSuperseded SubscriptionStatus = "superseded" // replaced by a newer activation for the same service
)

// Subscription is a recurring purchase record. It is entirely webhook-owned:
// rows are created on provider activation events and updated on renewal or
// cancellation events, never by client-facing code.
type Subscription struct {
	ID                 string // UUID
	UserID             string // UUID
	PlanID             string // encodes service + billing cycle, e.g. "mentorship-monthly"
	ProviderSubID      string // provider-side subscription identifier (idempotency key)
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	LastBillingAt      *time.Time
	NextBillingAt      *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewSubscription constructs an active subscription for the plan's first
// billing period.
func NewSubscription(id, userID string, plan *Plan, providerSubID string) (*Subscription, error) {
	if id == "" || userID == "" || plan == nil || providerSubID == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	periodEnd := now.AddDate(0, plan.Cycle.Months(), 0)
	return &Subscription{
		ID:                 id,
		UserID:             userID,
		PlanID:             plan.ID,
		ProviderSubID:      providerSubID,
		Status:             SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   periodEnd,
		LastBillingAt:      &now,
		NextBillingAt:      &periodEnd,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

// Renew advances the billing period after a successful renewal charge.
func (s *Subscription) Renew(plan *Plan, paidAt time.Time) {
	s.CurrentPeriodStart = paidAt
	next := paidAt.AddDate(0, plan.Cycle.Months(), 0)
	s.CurrentPeriodEnd = next
	s.LastBillingAt = &paidAt
	s.NextBillingAt = &next
	s.Status = SubscriptionStatusActive
	s.UpdatedAt = time.Now()
}

func (s *Subscription) IsZero() bool { return s == nil || s.ID == "" }
