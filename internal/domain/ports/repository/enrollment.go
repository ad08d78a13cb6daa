package repository

import (
	"context"
	"time"

	"trading-academy-platform/internal/domain/model"
)

// EnrollmentRepository persists one-time purchase records. The order id is
// unique; Save of an existing order id upserts the row.
type EnrollmentRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Enrollment) error
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.Enrollment, error)

	// CompleteIfPending atomically marks the order completed and records the
	// provider transaction id, but only while the row is still pending.
	// Returns false when nothing was updated (already finalized or unknown),
	// which is how duplicate webhook deliveries become no-ops.
	CompleteIfPending(ctx context.Context, tx Tx, orderID, providerTxnID string) (bool, error)

	// MarkIfPending applies a terminal failed/cancelled status under the same
	// pending guard.
	MarkIfPending(ctx context.Context, tx Tx, orderID string, status model.EnrollmentStatus) (bool, error)

	// ListPendingOlderThan feeds the payment reconciler worker.
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Enrollment, error)
}
