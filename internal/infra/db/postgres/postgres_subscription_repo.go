package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
)

var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct{ pool *pgxpool.Pool }

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, plan_id, provider_sub_id, status, current_period_start, current_period_end, last_billing_at, next_billing_at, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subscriptionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id) DO UPDATE SET
  status=$5, current_period_start=$6, current_period_end=$7, last_billing_at=$8, next_billing_at=$9, updated_at=$11;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.PlanID, s.ProviderSubID, s.Status,
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.LastBillingAt, s.NextBillingAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) FindByProviderSubID(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE provider_sub_id=$1 LIMIT 1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, providerSubID)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	if err := scanSubscription(row, s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) FindActiveByUserAndService(ctx context.Context, tx repository.Tx, userID, serviceName string) (*model.Subscription, error) {
	// plan_id is "<service>-<cycle>", so a prefix match selects every cycle
	// of the same service.
	const q = `SELECT ` + subscriptionColumns + ` FROM subscriptions
 WHERE user_id=$1 AND status='active' AND plan_id LIKE $2 || '-%' LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, serviceName)
	if err != nil {
		return nil, err
	}
	s := &model.Subscription{}
	if err := scanSubscription(row, s); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *subscriptionRepo) SupersedeActive(ctx context.Context, tx repository.Tx, userID, serviceName string) (int, error) {
	const q = `UPDATE subscriptions SET status='superseded', updated_at=NOW()
 WHERE user_id=$1 AND status='active' AND plan_id LIKE $2 || '-%';`
	cmd, err := execSQL(ctx, r.pool, tx, q, userID, serviceName)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

func (r *subscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus) error {
	const q = `UPDATE subscriptions SET status=$2, updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *subscriptionRepo) UpdatePeriod(ctx context.Context, tx repository.Tx, id string, periodStart, periodEnd time.Time, lastBilling, nextBilling *time.Time) error {
	const q = `UPDATE subscriptions
   SET current_period_start=$2, current_period_end=$3,
       last_billing_at=COALESCE($4, last_billing_at),
       next_billing_at=COALESCE($5, next_billing_at),
       status='active', updated_at=NOW()
 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, periodStart, periodEnd, lastBilling, nextBilling)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func scanSubscription(row pgx.Row, s *model.Subscription) error {
	return row.Scan(&s.ID, &s.UserID, &s.PlanID, &s.ProviderSubID, &s.Status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.LastBillingAt, &s.NextBillingAt,
		&s.CreatedAt, &s.UpdatedAt)
}
