package repository

import (
	"context"
	"time"

	"trading-academy-platform/internal/domain/model"
)

// SubscriptionRepository persists recurring purchase records.
type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByProviderSubID(ctx context.Context, tx Tx, providerSubID string) (*model.Subscription, error)
	FindActiveByUserAndService(ctx context.Context, tx Tx, userID, serviceName string) (*model.Subscription, error)

	// SupersedeActive marks any active subscription for (user, service) as
	// superseded, enforcing the at-most-one-active invariant before a new
	// activation is inserted. Returns how many rows were touched.
	SupersedeActive(ctx context.Context, tx Tx, userID, serviceName string) (int, error)

	UpdateStatus(ctx context.Context, tx Tx, id string, status model.SubscriptionStatus) error
	UpdatePeriod(ctx context.Context, tx Tx, id string, periodStart, periodEnd time.Time, lastBilling, nextBilling *time.Time) error
}
