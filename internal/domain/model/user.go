package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"trading-academy-platform/internal/domain"
)

// User is a student account. Accounts are created either during checkout
// registration or lazily by the webhook reconciler when a payment settles
// for an email we have not seen before.
type User struct {
	ID        string // UUID
	Email     string
	FullName  string
	Phone     string
	CreatedAt time.Time
}

func NewUser(id, email, fullName, phone string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &User{
		ID:        id,
		Email:     email,
		FullName:  strings.TrimSpace(fullName),
		Phone:     phone,
		CreatedAt: time.Now(),
	}, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }
