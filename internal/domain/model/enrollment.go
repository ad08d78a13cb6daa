package model

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"trading-academy-platform/internal/domain"
)

type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"   // row created before the provider session exists
	EnrollmentStatusCompleted EnrollmentStatus = "completed" // settled, confirmed by a verified webhook
	EnrollmentStatusFailed    EnrollmentStatus = "failed"    // provider reported a terminal failure
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled" // user dropped out of the hosted checkout
)

// Enrollment is a one-time purchase record. The order ID doubles as the
// idempotency key for webhook processing, so it must exist in the database
// before the payment session is created on the provider side.
type Enrollment struct {
	OrderID       string // ULID, public identifier carried in provider metadata
	FullName      string
	Email         string
	Phone         string
	ServiceName   string
	ListPrice     int64 // INR, integer rupees to avoid float errors
	Discount      int64
	FinalAmount   int64
	PaymentMethod string // "card" | "upi" | "netbanking"
	Provider      string // "stripe" | "cashfree"
	ProviderTxnID *string
	Status        EnrollmentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewOrderID returns a lexically sortable order identifier.
func NewOrderID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// NewEnrollment validates inputs and constructs a pending enrollment.
// FinalAmount is clamped at zero: a discount larger than the list price
// never produces a negative charge.
func NewEnrollment(orderID, fullName, email, phone, serviceName string, listPrice, discount int64, paymentMethod, provider string) (*Enrollment, error) {
	if orderID == "" {
		orderID = NewOrderID()
	}
	if fullName == "" || email == "" || serviceName == "" {
		return nil, domain.ErrInvalidArgument
	}
	if listPrice <= 0 || discount < 0 {
		return nil, domain.ErrInvalidArgument
	}
	final := listPrice - discount
	if final < 0 {
		final = 0
	}
	now := time.Now()
	return &Enrollment{
		OrderID:       orderID,
		FullName:      strings.TrimSpace(fullName),
		Email:         strings.ToLower(strings.TrimSpace(email)),
		Phone:         phone,
		ServiceName:   serviceName,
		ListPrice:     listPrice,
		Discount:      discount,
		FinalAmount:   final,
		PaymentMethod: paymentMethod,
		Provider:      provider,
		Status:        EnrollmentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (e *Enrollment) IsZero() bool { return e == nil || e.OrderID == "" }

// AmountInPaise converts the rupee amount to minor units for providers
// that bill in paise (Stripe, Cashfree).
func (e *Enrollment) AmountInPaise() int64 { return e.FinalAmount * 100 }
