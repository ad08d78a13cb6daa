package usecase

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/repository"
	"trading-academy-platform/internal/infra/logging"
	"trading-academy-platform/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// Notification offsets after a settled payment. Jobs are persisted queue
// rows, so the offsets survive process restarts.
const (
	accessCredentialsDelay = 2 * time.Minute
	welcomeGuideDelay      = 5 * time.Minute
)

// ReconcileUseCase applies verified provider events to persisted state.
// It is the single authority for finalizing orders and subscriptions.
// Every handler tolerates at-least-once delivery: duplicates are absorbed
// by the webhook-event ledger and by status-guarded conditional updates,
// and a missing order is logged and swallowed so the provider stops
// redelivering an event we can never apply. Any other error propagates so
// the HTTP layer answers 5xx and the provider retries.
type ReconcileUseCase interface {
	PaymentSucceeded(ctx context.Context, provider, eventID, orderID, providerTxnID string) error
	PaymentFailed(ctx context.Context, provider, eventID, orderID string, userDropped bool) error
	SubscriptionActivated(ctx context.Context, provider, eventID, providerSubID, planID, email, fullName string) error
	RenewalSucceeded(ctx context.Context, provider, eventID, providerSubID string, paidAt time.Time) error
	RenewalFailed(ctx context.Context, provider, eventID, providerSubID string) error
	SubscriptionCancelled(ctx context.Context, provider, eventID, providerSubID string) error
}

type reconcileUC struct {
	enrollments repository.EnrollmentRepository
	subs        repository.SubscriptionRepository
	courses     repository.CourseAccessRepository
	users       repository.UserRepository
	events      repository.WebhookEventRepository
	notif       NotificationUseCase
	tm          repository.TransactionManager
	log         *zerolog.Logger
}

func NewReconcileUseCase(
	enrollments repository.EnrollmentRepository,
	subs repository.SubscriptionRepository,
	courses repository.CourseAccessRepository,
	users repository.UserRepository,
	events repository.WebhookEventRepository,
	notif NotificationUseCase,
	tm repository.TransactionManager,
	logger *zerolog.Logger,
) *reconcileUC {
	l := logger.With().Str("component", "ReconcileUC").Logger()
	return &reconcileUC{
		enrollments: enrollments,
		subs:        subs,
		courses:     courses,
		users:       users,
		events:      events,
		notif:       notif,
		tm:          tm,
		log:         &l,
	}
}

func (u *reconcileUC) PaymentSucceeded(ctx context.Context, provider, eventID, orderID, providerTxnID string) error {
	ctx = logging.WithOrderID(ctx, orderID)
	var settled *model.Enrollment
	var settledUserID string
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.recordEvent(ctx, tx, provider, eventID, "payment.succeeded")
		if err != nil || !fresh {
			return err
		}

		ok, err := u.enrollments.CompleteIfPending(ctx, tx, orderID, providerTxnID)
		if err != nil {
			return err
		}
		if !ok {
			// Either the order never existed (log and absorb: redelivery can
			// never succeed) or it is already finalized (replay no-op).
			if _, err := u.enrollments.FindByOrderID(ctx, tx, orderID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					logging.With(ctx, u.log).Warn().Str("provider", provider).Msg("payment succeeded for unknown order")
					return nil
				}
				return err
			}
			logging.With(ctx, u.log).Info().Msg("order already finalized, duplicate settlement ignored")
			return nil
		}

		e, err := u.enrollments.FindByOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		user, err := u.resolveUser(ctx, tx, e.Email, e.FullName, e.Phone)
		if err != nil {
			return err
		}
		settledUserID = user.ID
		access, err := model.NewCourseAccess(user.ID, e.ServiceName, e.OrderID)
		if err != nil {
			return err
		}
		if _, err := u.courses.GrantIfAbsent(ctx, tx, access); err != nil {
			return err
		}

		vars := map[string]string{
			"student_name": e.FullName,
			"service_name": e.ServiceName,
			"order_id":     e.OrderID,
			"amount":       strconv.FormatInt(e.FinalAmount, 10),
		}
		if err := u.notif.Enqueue(ctx, tx, model.TemplatePaymentConfirmation, e.Email, vars, 0); err != nil {
			return err
		}
		if err := u.notif.Enqueue(ctx, tx, model.TemplateAccessCredentials, e.Email, vars, accessCredentialsDelay); err != nil {
			return err
		}
		if err := u.notif.Enqueue(ctx, tx, model.TemplateWelcomeGuide, e.Email, vars, welcomeGuideDelay); err != nil {
			return err
		}
		settled = e
		return nil
	})
	if err != nil {
		return err
	}
	if settled != nil {
		metrics.IncEnrollment(string(model.EnrollmentStatusCompleted), provider)
		metrics.AddEnrollmentRevenue(settled.ServiceName, settled.FinalAmount)
		ctx = logging.WithUserID(ctx, settledUserID)
		logging.With(ctx, u.log).Info().Str("service", settled.ServiceName).Int64("amount", settled.FinalAmount).Msg("order settled")
	}
	return nil
}

func (u *reconcileUC) PaymentFailed(ctx context.Context, provider, eventID, orderID string, userDropped bool) error {
	status := model.EnrollmentStatusFailed
	eventType := "payment.failed"
	if userDropped {
		status = model.EnrollmentStatusCancelled
		eventType = "payment.dropped"
	}
	var marked bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.recordEvent(ctx, tx, provider, eventID, eventType)
		if err != nil || !fresh {
			return err
		}
		ok, err := u.enrollments.MarkIfPending(ctx, tx, orderID, status)
		if err != nil {
			return err
		}
		if !ok {
			// unknown or already finalized: both are graceful no-ops
			u.log.Warn().Str("order_id", orderID).Str("provider", provider).Msg("failure event for unknown or finalized order")
			return nil
		}
		marked = true
		return nil
	})
	if err != nil {
		return err
	}
	if marked {
		metrics.IncEnrollment(string(status), provider)
	}
	return nil
}

func (u *reconcileUC) SubscriptionActivated(ctx context.Context, provider, eventID, providerSubID, planID, email, fullName string) error {
	plan, err := model.PlanByID(planID)
	if err != nil {
		u.log.Warn().Str("plan_id", planID).Str("provider", provider).Msg("activation event for unknown plan")
		return nil
	}
	var activated bool
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.recordEvent(ctx, tx, provider, eventID, "subscription.activated")
		if err != nil || !fresh {
			return err
		}
		if existing, err := u.subs.FindByProviderSubID(ctx, tx, providerSubID); err == nil && !existing.IsZero() {
			u.log.Info().Str("provider_sub_id", providerSubID).Msg("subscription already recorded, duplicate activation ignored")
			return nil
		} else if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		user, err := u.resolveUser(ctx, tx, email, fullName, "")
		if err != nil {
			return err
		}
		// at most one active subscription per (user, service)
		if prev, err := u.subs.FindActiveByUserAndService(ctx, tx, user.ID, plan.ServiceName); err == nil {
			u.log.Info().Str("subscription_id", prev.ID).Str("plan_id", prev.PlanID).Msg("superseding active subscription")
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if _, err := u.subs.SupersedeActive(ctx, tx, user.ID, plan.ServiceName); err != nil {
			return err
		}
		sub, err := model.NewSubscription(uuid.NewString(), user.ID, plan, providerSubID)
		if err != nil {
			return err
		}
		if err := u.subs.Save(ctx, tx, sub); err != nil {
			return err
		}
		access, err := model.NewCourseAccess(user.ID, plan.ServiceName, sub.ID)
		if err != nil {
			return err
		}
		if _, err := u.courses.GrantIfAbsent(ctx, tx, access); err != nil {
			return err
		}

		vars := map[string]string{
			"student_name": fullName,
			"plan_name":    plan.ID,
			"service_name": plan.ServiceName,
			"cycle":        string(plan.Cycle),
			"amount":       strconv.FormatInt(plan.PriceINR, 10),
		}
		if err := u.notif.Enqueue(ctx, tx, model.TemplateSubscriptionWelcome, email, vars, 0); err != nil {
			return err
		}
		activated = true
		return nil
	})
	if err != nil {
		return err
	}
	if activated {
		metrics.IncSubscriptionEvent("activated")
		u.log.Info().Str("provider_sub_id", providerSubID).Str("plan_id", planID).Msg("subscription activated")
	}
	return nil
}

func (u *reconcileUC) RenewalSucceeded(ctx context.Context, provider, eventID, providerSubID string, paidAt time.Time) error {
	var renewed bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.recordEvent(ctx, tx, provider, eventID, "subscription.renewed")
		if err != nil || !fresh {
			return err
		}
		sub, err := u.findSub(ctx, tx, providerSubID, provider)
		if err != nil || sub == nil {
			return err
		}
		plan, err := model.PlanByID(sub.PlanID)
		if err != nil {
			return err
		}
		sub.Renew(plan, paidAt)
		if err := u.subs.UpdatePeriod(ctx, tx, sub.ID, sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.LastBillingAt, sub.NextBillingAt); err != nil {
			return err
		}
		user, err := u.users.FindByID(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		vars := map[string]string{
			"student_name": user.FullName,
			"service_name": plan.ServiceName,
			"amount":       strconv.FormatInt(plan.PriceINR, 10),
			"order_id":     sub.ID,
		}
		if err := u.notif.Enqueue(ctx, tx, model.TemplatePaymentConfirmation, user.Email, vars, 0); err != nil {
			return err
		}
		renewed = true
		return nil
	})
	if err != nil {
		return err
	}
	if renewed {
		metrics.IncSubscriptionEvent("renewed")
	}
	return nil
}

func (u *reconcileUC) RenewalFailed(ctx context.Context, provider, eventID, providerSubID string) error {
	var pastDue bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.recordEvent(ctx, tx, provider, eventID, "subscription.renewal_failed")
		if err != nil || !fresh {
			return err
		}
		sub, err := u.findSub(ctx, tx, providerSubID, provider)
		if err != nil || sub == nil {
			return err
		}
		if err := u.subs.UpdateStatus(ctx, tx, sub.ID, model.SubscriptionStatusPastDue); err != nil {
			return err
		}
		user, err := u.users.FindByID(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		plan, _ := model.PlanByID(sub.PlanID)
		vars := map[string]string{"student_name": user.FullName, "service_name": serviceOf(plan, sub)}
		if err := u.notif.Enqueue(ctx, tx, model.TemplatePaymentFailed, user.Email, vars, 0); err != nil {
			return err
		}
		pastDue = true
		return nil
	})
	if err != nil {
		return err
	}
	if pastDue {
		metrics.IncSubscriptionEvent("past_due")
	}
	return nil
}

func (u *reconcileUC) SubscriptionCancelled(ctx context.Context, provider, eventID, providerSubID string) error {
	var cancelled bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		fresh, err := u.recordEvent(ctx, tx, provider, eventID, "subscription.cancelled")
		if err != nil || !fresh {
			return err
		}
		sub, err := u.findSub(ctx, tx, providerSubID, provider)
		if err != nil || sub == nil {
			return err
		}
		if err := u.subs.UpdateStatus(ctx, tx, sub.ID, model.SubscriptionStatusCancelled); err != nil {
			return err
		}
		user, err := u.users.FindByID(ctx, tx, sub.UserID)
		if err != nil {
			return err
		}
		plan, _ := model.PlanByID(sub.PlanID)
		vars := map[string]string{"student_name": user.FullName, "service_name": serviceOf(plan, sub)}
		if err := u.notif.Enqueue(ctx, tx, model.TemplateSubscriptionClosed, user.Email, vars, 0); err != nil {
			return err
		}
		cancelled = true
		return nil
	})
	if err != nil {
		return err
	}
	if cancelled {
		metrics.IncSubscriptionEvent("cancelled")
	}
	return nil
}

// recordEvent writes the delivery to the webhook-event ledger. A false
// return means this exact delivery was already processed.
func (u *reconcileUC) recordEvent(ctx context.Context, tx repository.Tx, provider, eventID, eventType string) (bool, error) {
	evt, err := model.NewWebhookEvent(provider, eventID, eventType)
	if err != nil {
		return false, err
	}
	fresh, err := u.events.RecordIfAbsent(ctx, tx, evt)
	if err != nil {
		return false, err
	}
	if !fresh {
		u.log.Info().Str("provider", provider).Str("event_id", eventID).Msg("duplicate webhook delivery ignored")
	}
	return fresh, nil
}

// findSub resolves a provider subscription id, logging and absorbing the
// unknown case.
func (u *reconcileUC) findSub(ctx context.Context, tx repository.Tx, providerSubID, provider string) (*model.Subscription, error) {
	sub, err := u.subs.FindByProviderSubID(ctx, tx, providerSubID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			u.log.Warn().Str("provider_sub_id", providerSubID).Str("provider", provider).Msg("event for unknown subscription")
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

func (u *reconcileUC) resolveUser(ctx context.Context, tx repository.Tx, email, fullName, phone string) (*model.User, error) {
	user, err := u.users.FindByEmail(ctx, tx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	user, err = model.NewUser("", email, fullName, phone)
	if err != nil {
		return nil, err
	}
	if err := u.users.Save(ctx, tx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func serviceOf(plan *model.Plan, sub *model.Subscription) string {
	if plan != nil {
		return plan.ServiceName
	}
	return sub.PlanID
}
