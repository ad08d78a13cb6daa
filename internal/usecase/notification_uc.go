package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/adapter"
	"trading-academy-platform/internal/domain/ports/repository"
	"trading-academy-platform/internal/infra/metrics"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

// NotificationDefaults are environment-derived template variables merged
// beneath caller-supplied ones on every dispatch.
type NotificationDefaults struct {
	FromAddress  string
	SupportEmail string
	SupportPhone string
	SiteURL      string
}

type NotificationUseCase interface {
	// Dispatch renders the named template and sends one email, writing one
	// EmailLog row regardless of outcome. Returns the provider message id.
	Dispatch(ctx context.Context, templateKey, to string, vars map[string]string) (string, error)
	// Enqueue persists a scheduled notification for the job worker; a zero
	// delay means "next worker tick".
	Enqueue(ctx context.Context, tx repository.Tx, templateKey, to string, vars map[string]string, delay time.Duration) error
}

type notificationUC struct {
	templates repository.EmailTemplateRepository
	logs      repository.EmailLogRepository
	jobs      repository.EmailJobRepository
	mailer    adapter.Mailer
	defaults  NotificationDefaults
	log       *zerolog.Logger
}

func NewNotificationUseCase(
	templates repository.EmailTemplateRepository,
	logs repository.EmailLogRepository,
	jobs repository.EmailJobRepository,
	mailer adapter.Mailer,
	defaults NotificationDefaults,
	logger *zerolog.Logger,
) *notificationUC {
	l := logger.With().Str("component", "NotificationUC").Logger()
	return &notificationUC{templates: templates, logs: logs, jobs: jobs, mailer: mailer, defaults: defaults, log: &l}
}

func (n *notificationUC) Dispatch(ctx context.Context, templateKey, to string, vars map[string]string) (string, error) {
	tpl, err := n.templates.FindActiveByKey(ctx, repository.NoTX, templateKey)
	if err != nil {
		return "", err
	}

	merged := map[string]string{
		"support_email": n.defaults.SupportEmail,
		"support_phone": n.defaults.SupportPhone,
		"site_url":      n.defaults.SiteURL,
	}
	for k, v := range vars {
		merged[k] = v
	}
	subject, html, text := tpl.Render(merged)

	msgID, sendErr := n.mailer.Send(ctx, adapter.OutboundEmail{
		From:    n.defaults.FromAddress,
		To:      to,
		Subject: subject,
		HTML:    html,
		Text:    text,
	})

	// One audit row per attempt, success or not. A failed log write is
	// logged but does not mask the send outcome.
	entry := &model.EmailLog{
		ID:          uuid.NewString(),
		Recipient:   to,
		TemplateKey: templateKey,
		Subject:     subject,
		Status:      model.EmailStatusSent,
		MessageID:   msgID,
		Metadata:    merged,
		CreatedAt:   time.Now(),
	}
	if sendErr != nil {
		entry.Status = model.EmailStatusFailed
		entry.Error = sendErr.Error()
	}
	if logErr := n.logs.Append(ctx, repository.NoTX, entry); logErr != nil {
		n.log.Error().Err(logErr).Str("template", templateKey).Msg("email log append failed")
	}

	if sendErr != nil {
		metrics.IncEmailDispatched(templateKey, "failed")
		return "", sendErr
	}
	metrics.IncEmailDispatched(templateKey, "sent")
	return msgID, nil
}

func (n *notificationUC) Enqueue(ctx context.Context, tx repository.Tx, templateKey, to string, vars map[string]string, delay time.Duration) error {
	job, err := model.NewEmailJob(templateKey, to, vars, time.Now().Add(delay))
	if err != nil {
		return err
	}
	return n.jobs.Enqueue(ctx, tx, job)
}
