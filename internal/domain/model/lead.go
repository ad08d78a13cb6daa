package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"trading-academy-platform/internal/domain"
)

// Lead is a marketing-site contact capture (webinar signups, brochure
// downloads). Append-only; sales tooling reads it elsewhere.
type Lead struct {
	ID        string // UUID
	FullName  string
	Email     string
	Phone     string
	Source    string // page or campaign identifier
	CreatedAt time.Time
}

func NewLead(fullName, email, phone, source string) (*Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" && phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &Lead{
		ID:        uuid.NewString(),
		FullName:  strings.TrimSpace(fullName),
		Email:     email,
		Phone:     phone,
		Source:    source,
		CreatedAt: time.Now(),
	}, nil
}
