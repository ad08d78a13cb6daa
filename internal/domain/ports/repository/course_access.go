package repository

import (
	"context"

	"trading-academy-platform/internal/domain/model"
)

// CourseAccessRepository persists user↔course grants.
type CourseAccessRepository interface {
	// GrantIfAbsent inserts the grant unless one already exists for the same
	// (user, course). Returns false when the grant was already present.
	GrantIfAbsent(ctx context.Context, tx Tx, a *model.CourseAccess) (bool, error)
}
