package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/flow"
	"trading-academy-platform/internal/domain/ports/repository"
)

var _ repository.FlowStateRepository = (*FlowStateRepo)(nil)

// FlowStateRepo keeps per-session checkout wizard state in Redis. Each
// browser session owns exactly one flow instance, so the session id is the
// whole key. The TTL gives users a bounded window to finish checking out;
// an abandoned wizard disappears on its own.
type FlowStateRepo struct {
	client RedisClient
	ttl    time.Duration
}

func NewFlowStateRepo(client RedisClient, ttl time.Duration) *FlowStateRepo {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &FlowStateRepo{client: client, ttl: ttl}
}

func (s *FlowStateRepo) stateKey(sessionID string) string {
	return fmt.Sprintf("checkout_state:%s", sessionID)
}

func (s *FlowStateRepo) Set(ctx context.Context, sessionID string, state *flow.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.stateKey(sessionID), data, s.ttl)
}

func (s *FlowStateRepo) Get(ctx context.Context, sessionID string) (*flow.State, error) {
	data, err := s.client.Get(ctx, s.stateKey(sessionID))
	if err != nil {
		if IsNil(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	var state flow.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *FlowStateRepo) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.stateKey(sessionID))
}
