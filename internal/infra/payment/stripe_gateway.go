package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*StripeGateway)(nil)

// StripeGateway creates PaymentIntents consumed by Stripe Elements on the
// client. The order id travels in PaymentIntent metadata so the webhook can
// correlate the settlement back to our enrollment row.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) Name() string { return "stripe" }

func (g *StripeGateway) CreateOrderSession(ctx context.Context, e *model.Enrollment) (*adapter.Session, error) {
	params := &stripe.PaymentIntentParams{
		Amount:       stripe.Int64(e.AmountInPaise()),
		Currency:     stripe.String(string(stripe.CurrencyINR)),
		ReceiptEmail: stripe.String(e.Email),
		Description:  stripe.String(e.ServiceName),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("order_id", e.OrderID)
	params.AddMetadata("service_name", e.ServiceName)

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe create payment intent: %w", err)
	}
	return &adapter.Session{
		Provider:    g.Name(),
		OrderID:     e.OrderID,
		ClientToken: pi.ClientSecret,
	}, nil
}

// CreateSubscriptionSession creates a default_incomplete subscription whose
// first invoice's PaymentIntent secret is handed to Elements. Products are
// pre-created on the Stripe dashboard with ids equal to our plan ids. The
// billed amount comes from the enrollment, so promo discounts carry over.
func (g *StripeGateway) CreateSubscriptionSession(ctx context.Context, plan *model.Plan, e *model.Enrollment) (*adapter.Session, error) {
	custParams := &stripe.CustomerParams{Email: stripe.String(e.Email)}
	custParams.Context = ctx
	cust, err := g.api.Customers.New(custParams)
	if err != nil {
		return nil, fmt.Errorf("stripe create customer: %w", err)
	}

	interval := stripe.PriceRecurringIntervalMonth
	subParams := &stripe.SubscriptionParams{
		Customer: stripe.String(cust.ID),
		Items: []*stripe.SubscriptionItemsParams{{
			PriceData: &stripe.SubscriptionItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyINR)),
				Product:    stripe.String(plan.ID),
				UnitAmount: stripe.Int64(e.AmountInPaise()),
				Recurring: &stripe.SubscriptionItemPriceDataRecurringParams{
					Interval:      stripe.String(string(interval)),
					IntervalCount: stripe.Int64(int64(plan.Cycle.Months())),
				},
			},
		}},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	subParams.Context = ctx
	subParams.AddMetadata("order_id", e.OrderID)
	subParams.AddMetadata("plan_id", plan.ID)
	subParams.AddExpand("latest_invoice.payment_intent")

	sub, err := g.api.Subscriptions.New(subParams)
	if err != nil {
		return nil, fmt.Errorf("stripe create subscription: %w", err)
	}
	if sub.LatestInvoice == nil || sub.LatestInvoice.PaymentIntent == nil {
		return nil, fmt.Errorf("stripe subscription %s has no payable invoice", sub.ID)
	}
	return &adapter.Session{
		Provider:    g.Name(),
		OrderID:     e.OrderID,
		ClientToken: sub.LatestInvoice.PaymentIntent.ClientSecret,
	}, nil
}

// VerifyOrder asks Stripe for the PaymentIntent carrying our order id. Used
// only by the reconciler worker when a webhook never arrived.
func (g *StripeGateway) VerifyOrder(ctx context.Context, orderID string) (adapter.OrderState, string, error) {
	params := &stripe.PaymentIntentSearchParams{
		SearchParams: stripe.SearchParams{
			Query:   fmt.Sprintf("metadata['order_id']:'%s'", orderID),
			Context: ctx,
		},
	}
	iter := g.api.PaymentIntents.Search(params)
	for iter.Next() {
		pi := iter.PaymentIntent()
		switch pi.Status {
		case stripe.PaymentIntentStatusSucceeded:
			return adapter.OrderStatePaid, pi.ID, nil
		case stripe.PaymentIntentStatusCanceled:
			return adapter.OrderStateFailed, pi.ID, nil
		default:
			return adapter.OrderStatePending, pi.ID, nil
		}
	}
	if err := iter.Err(); err != nil {
		return adapter.OrderStatePending, "", fmt.Errorf("stripe search payment intent: %w", err)
	}
	return adapter.OrderStatePending, "", nil
}
