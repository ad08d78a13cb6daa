package repository

import (
	"context"

	"trading-academy-platform/internal/domain/flow"
)

// FlowStateRepository stores per-session checkout wizard state. Backed by
// Redis with a TTL: an abandoned wizard simply evaporates.
type FlowStateRepository interface {
	Set(ctx context.Context, sessionID string, state *flow.State) error
	Get(ctx context.Context, sessionID string) (*flow.State, error)
	Clear(ctx context.Context, sessionID string) error
}
