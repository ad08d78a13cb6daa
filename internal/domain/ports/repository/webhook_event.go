package repository

import (
	"context"

	"trading-academy-platform/internal/domain/model"
)

// WebhookEventRepository records processed provider deliveries.
type WebhookEventRepository interface {
	// RecordIfAbsent inserts the event unless the (provider, event id) pair
	// was already recorded. Returns false for a duplicate delivery.
	RecordIfAbsent(ctx context.Context, tx Tx, e *model.WebhookEvent) (bool, error)
}
