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

var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

const enrollmentColumns = `order_id, full_name, email, phone, service_name, list_price, discount, final_amount, payment_method, provider, provider_txn_id, status, created_at, updated_at`

func (r *enrollmentRepo) Save(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	const q = `
INSERT INTO enrollments (` + enrollmentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (order_id) DO UPDATE SET
  full_name=$2, email=$3, phone=$4, service_name=$5, list_price=$6, discount=$7,
  final_amount=$8, payment_method=$9, provider=$10, provider_txn_id=$11, status=$12, updated_at=$14;`

	_, err := execSQL(ctx, r.pool, tx, q,
		e.OrderID, e.FullName, e.Email, e.Phone, e.ServiceName, e.ListPrice, e.Discount,
		e.FinalAmount, e.PaymentMethod, e.Provider, e.ProviderTxnID, e.Status, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *enrollmentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Enrollment, error) {
	q := `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE order_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}

	e := &model.Enrollment{}
	if err := scanEnrollment(row, e); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

// CompleteIfPending is the idempotency anchor for payment-succeeded
// webhooks: the status guard makes a duplicate delivery update zero rows.
func (r *enrollmentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, orderID, providerTxnID string) (bool, error) {
	const q = `
UPDATE enrollments
   SET status='completed', provider_txn_id=$2, updated_at=NOW()
 WHERE order_id=$1 AND status='pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, providerTxnID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *enrollmentRepo) MarkIfPending(ctx context.Context, tx repository.Tx, orderID string, status model.EnrollmentStatus) (bool, error) {
	const q = `UPDATE enrollments SET status=$2, updated_at=NOW() WHERE order_id=$1 AND status='pending';`
	cmd, err := execSQL(ctx, r.pool, tx, q, orderID, status)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *enrollmentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Enrollment, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e := new(model.Enrollment)
		if err := scanEnrollment(rows, e); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}

func scanEnrollment(row pgx.Row, e *model.Enrollment) error {
	return row.Scan(&e.OrderID, &e.FullName, &e.Email, &e.Phone, &e.ServiceName,
		&e.ListPrice, &e.Discount, &e.FinalAmount, &e.PaymentMethod, &e.Provider,
		&e.ProviderTxnID, &e.Status, &e.CreatedAt, &e.UpdatedAt)
}
