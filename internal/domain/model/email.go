package model

import (
	"regexp"
	"time"

	"github.com/google/uuid"

	"trading-academy-platform/internal/domain"
)

// EmailTemplate is a named transactional template with {{variable}}
// placeholders in subject and bodies. Inactive templates resolve as not
// found so a key can be retired without deleting its history.
type EmailTemplate struct {
	Key      string
	Subject  string
	BodyHTML string
	BodyText string
	Active   bool
}

// Template keys used by the reconciler. The rows themselves live in the
// email_templates table.
const (
	TemplatePaymentConfirmation = "payment_confirmation"
	TemplateAccessCredentials   = "access_credentials"
	TemplateWelcomeGuide        = "welcome_guide"
	TemplateSubscriptionWelcome = "subscription_welcome"
	TemplatePaymentFailed       = "payment_failed"
	TemplateSubscriptionClosed  = "subscription_cancelled"
)

var placeholderRx = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render substitutes {{name}} placeholders from vars. Unknown placeholders
// are left untouched so a missing variable is visible in the sent mail
// rather than silently blanked.
func (t *EmailTemplate) Render(vars map[string]string) (subject, html, text string) {
	sub := func(s string) string {
		return placeholderRx.ReplaceAllStringFunc(s, func(m string) string {
			name := placeholderRx.FindStringSubmatch(m)[1]
			if v, ok := vars[name]; ok {
				return v
			}
			return m
		})
	}
	return sub(t.Subject), sub(t.BodyHTML), sub(t.BodyText)
}

type EmailStatus string

const (
	EmailStatusSent   EmailStatus = "sent"
	EmailStatusFailed EmailStatus = "failed"
)

// EmailLog is an append-only audit record: one row per dispatch attempt,
// written regardless of send outcome.
type EmailLog struct {
	ID          string // UUID
	Recipient   string
	TemplateKey string
	Subject     string
	Status      EmailStatus
	MessageID   string // provider message id when sent
	Error       string // provider error text when failed
	Metadata    map[string]string
	CreatedAt   time.Time
}

type EmailJobStatus string

const (
	EmailJobStatusQueued EmailJobStatus = "queued"
	EmailJobStatusSent   EmailJobStatus = "sent"
	EmailJobStatusFailed EmailJobStatus = "failed"
)

// EmailJob is a persisted, schedulable notification. Delayed mails (access
// credentials, welcome guide) are queue rows with a future RunAt instead of
// in-process timers, so they survive restarts and deliver at least once.
type EmailJob struct {
	ID          string // UUID
	TemplateKey string
	Recipient   string
	Variables   map[string]string
	RunAt       time.Time
	Status      EmailJobStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MaxEmailJobAttempts caps redelivery of a failing job.
const MaxEmailJobAttempts = 5

func NewEmailJob(templateKey, recipient string, vars map[string]string, runAt time.Time) (*EmailJob, error) {
	if templateKey == "" || recipient == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	if runAt.IsZero() {
		runAt = now
	}
	return &EmailJob{
		ID:          uuid.NewString(),
		TemplateKey: templateKey,
		Recipient:   recipient,
		Variables:   vars,
		RunAt:       runAt,
		Status:      EmailJobStatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
