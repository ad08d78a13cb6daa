package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
)

var _ repository.WebhookEventRepository = (*webhookEventRepo)(nil)

type webhookEventRepo struct{ pool *pgxpool.Pool }

func NewWebhookEventRepo(pool *pgxpool.Pool) *webhookEventRepo {
	return &webhookEventRepo{pool: pool}
}

func (r *webhookEventRepo) RecordIfAbsent(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) (bool, error) {
	const q = `
INSERT INTO webhook_events (provider, event_id, event_type, processed_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (provider, event_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, e.Provider, e.EventID, e.EventType, e.ProcessedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
