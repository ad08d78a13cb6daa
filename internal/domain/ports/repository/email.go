package repository

import (
	"context"
	"time"

	"trading-academy-platform/internal/domain/model"
)

// EmailTemplateRepository reads transactional templates. Templates are
// seeded out of band; there is no write path here.
type EmailTemplateRepository interface {
	// FindActiveByKey returns domain.ErrTemplateNotFound for unknown or
	// inactive keys.
	FindActiveByKey(ctx context.Context, tx Tx, key string) (*model.EmailTemplate, error)
}

// EmailLogRepository appends dispatch audit rows. Append-only by contract.
type EmailLogRepository interface {
	Append(ctx context.Context, tx Tx, l *model.EmailLog) error
}

// EmailJobRepository is the durable delayed-notification queue.
type EmailJobRepository interface {
	Enqueue(ctx context.Context, tx Tx, j *model.EmailJob) error
	// ListDue returns queued jobs whose RunAt has passed, oldest first.
	ListDue(ctx context.Context, tx Tx, now time.Time, limit int) ([]*model.EmailJob, error)
	MarkSent(ctx context.Context, tx Tx, id string) error
	// MarkAttemptFailed bumps the attempt counter; the job flips to failed
	// once attempts reach the cap, otherwise it stays queued for retry.
	MarkAttemptFailed(ctx context.Context, tx Tx, id string, attempt int, lastError string) error
}
