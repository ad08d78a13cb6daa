package adapter

import (
	"context"

	"trading-academy-platform/internal/domain/model"
)

// Session is what the browser needs to render the provider's hosted
// payment UI. Exactly one of the token fields is meaningful per provider:
// Stripe hands back a PaymentIntent client secret, Cashfree a
// payment_session_id consumed by its checkout widget.
type Session struct {
	Provider    string
	OrderID     string
	ClientToken string
}

// OrderState is the provider-side view of an order used by the reconciler
// worker when no webhook arrived.
type OrderState string

const (
	OrderStatePending OrderState = "pending"
	OrderStatePaid    OrderState = "paid"
	OrderStateFailed  OrderState = "failed"
)

// PaymentGateway creates provider sessions and answers status queries.
// The enrollment row must already exist before a session is created so an
// out-of-order webhook can always find its order. Subscription sessions
// bill the enrollment's final amount, not the plan list price, so an
// applied promo reaches the provider.
type PaymentGateway interface {
	Name() string
	CreateOrderSession(ctx context.Context, e *model.Enrollment) (*Session, error)
	CreateSubscriptionSession(ctx context.Context, plan *model.Plan, e *model.Enrollment) (*Session, error)
	VerifyOrder(ctx context.Context, orderID string) (OrderState, string, error)
}
