package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
)

var _ repository.LeadRepository = (*leadRepo)(nil)

type leadRepo struct{ pool *pgxpool.Pool }

func NewLeadRepo(pool *pgxpool.Pool) *leadRepo {
	return &leadRepo{pool: pool}
}

func (r *leadRepo) Save(ctx context.Context, tx repository.Tx, l *model.Lead) error {
	const q = `
INSERT INTO leads (id, full_name, email, phone, source, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`
	_, err := execSQL(ctx, r.pool, tx, q, l.ID, l.FullName, l.Email, l.Phone, l.Source, l.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
