package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
)

var (
	_ repository.EmailTemplateRepository = (*emailTemplateRepo)(nil)
	_ repository.EmailLogRepository      = (*emailLogRepo)(nil)
	_ repository.EmailJobRepository      = (*emailJobRepo)(nil)
)

// ---- templates ----

type emailTemplateRepo struct{ pool *pgxpool.Pool }

func NewEmailTemplateRepo(pool *pgxpool.Pool) *emailTemplateRepo {
	return &emailTemplateRepo{pool: pool}
}

func (r *emailTemplateRepo) FindActiveByKey(ctx context.Context, tx repository.Tx, key string) (*model.EmailTemplate, error) {
	const q = `SELECT key, subject, body_html, body_text, active FROM email_templates WHERE key=$1 AND active=TRUE LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, key)
	if err != nil {
		return nil, err
	}
	t := &model.EmailTemplate{}
	if err := row.Scan(&t.Key, &t.Subject, &t.BodyHTML, &t.BodyText, &t.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTemplateNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return t, nil
}

// ---- logs ----

type emailLogRepo struct{ pool *pgxpool.Pool }

func NewEmailLogRepo(pool *pgxpool.Pool) *emailLogRepo {
	return &emailLogRepo{pool: pool}
}

func (r *emailLogRepo) Append(ctx context.Context, tx repository.Tx, l *model.EmailLog) error {
	meta, err := json.Marshal(l.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO email_logs (id, recipient, template_key, subject, status, message_id, error, metadata, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9);`
	_, err = execSQL(ctx, r.pool, tx, q,
		l.ID, l.Recipient, l.TemplateKey, l.Subject, l.Status, l.MessageID, l.Error, meta, l.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

// ---- jobs ----

type emailJobRepo struct{ pool *pgxpool.Pool }

func NewEmailJobRepo(pool *pgxpool.Pool) *emailJobRepo {
	return &emailJobRepo{pool: pool}
}

func (r *emailJobRepo) Enqueue(ctx context.Context, tx repository.Tx, j *model.EmailJob) error {
	vars, err := json.Marshal(j.Variables)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO email_jobs (id, template_key, recipient, variables, run_at, status, attempts, last_error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10);`
	_, err = execSQL(ctx, r.pool, tx, q,
		j.ID, j.TemplateKey, j.Recipient, vars, j.RunAt, j.Status, j.Attempts, j.LastError, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *emailJobRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.EmailJob, error) {
	if limit <= 0 {
		limit = 50
	}
	// FOR UPDATE SKIP LOCKED keeps concurrent worker ticks off each other's
	// jobs; without a tx it degrades to a plain read.
	q := `SELECT id, template_key, recipient, variables, run_at, status, attempts, last_error, created_at, updated_at
 FROM email_jobs WHERE status='queued' AND run_at <= $1 ORDER BY run_at ASC LIMIT $2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE SKIP LOCKED"
	}
	rows, err := queryRows(ctx, r.pool, tx, q, now, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.EmailJob
	for rows.Next() {
		j := new(model.EmailJob)
		var vars []byte
		if err := rows.Scan(&j.ID, &j.TemplateKey, &j.Recipient, &vars, &j.RunAt, &j.Status, &j.Attempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		if len(vars) > 0 {
			if err := json.Unmarshal(vars, &j.Variables); err != nil {
				return nil, domain.ErrReadDatabaseRow
			}
		}
		out = append(out, j)
	}
	return out, nil
}

func (r *emailJobRepo) MarkSent(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE email_jobs SET status='sent', updated_at=NOW() WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *emailJobRepo) MarkAttemptFailed(ctx context.Context, tx repository.Tx, id string, attempt int, lastError string) error {
	// The job flips to failed only once the attempt cap is reached;
	// otherwise it stays queued and the next tick retries it.
	const q = `
UPDATE email_jobs
   SET attempts=$2, last_error=$3,
       status=CASE WHEN $2 >= $4 THEN 'failed' ELSE 'queued' END,
       updated_at=NOW()
 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, attempt, lastError, model.MaxEmailJobAttempts)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}
