package repository

import (
	"context"

	"trading-academy-platform/internal/domain/model"
)

type LeadRepository interface {
	Save(ctx context.Context, tx Tx, l *model.Lead) error
}
