package model

import (
	"time"

	"trading-academy-platform/internal/domain"
)

// WebhookEvent records a processed provider delivery for audit and
// duplicate detection. The (provider, event id) pair is unique; a second
// insert of the same delivery is rejected by the store.
type WebhookEvent struct {
	Provider    string
	EventID     string
	EventType   string
	ProcessedAt time.Time
}

func NewWebhookEvent(provider, eventID, eventType string) (*WebhookEvent, error) {
	if provider == "" || eventID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &WebhookEvent{
		Provider:    provider,
		EventID:     eventID,
		EventType:   eventType,
		ProcessedAt: time.Now(),
	}, nil
}
