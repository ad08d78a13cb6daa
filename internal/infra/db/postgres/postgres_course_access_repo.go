package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
)

var _ repository.CourseAccessRepository = (*courseAccessRepo)(nil)

type courseAccessRepo struct{ pool *pgxpool.Pool }

func NewCourseAccessRepo(pool *pgxpool.Pool) *courseAccessRepo {
	return &courseAccessRepo{pool: pool}
}

func (r *courseAccessRepo) GrantIfAbsent(ctx context.Context, tx repository.Tx, a *model.CourseAccess) (bool, error) {
	// user_courses has a unique constraint on (user_id, course_name); the
	// conflict clause turns a repeat grant into a zero-row insert.
	const q = `
INSERT INTO user_courses (user_id, course_name, enrollment_id, access_granted, granted_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (user_id, course_name) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q, a.UserID, a.CourseName, a.EnrollmentID, a.Granted, a.GrantedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}
