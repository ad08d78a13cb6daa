//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/usecase"
)

// reconcileDeps bundles fresh mocks for each reconcile test run.
type reconcileDeps struct {
	enrollments *MockEnrollmentRepo
	subs        *MockSubscriptionRepo
	courses     *MockCourseAccessRepo
	users       *MockUserRepo
	events      *MockWebhookEventRepo
	templates   *MockEmailTemplateRepo
	logs        *MockEmailLogRepo
	jobs        *MockEmailJobRepo
	mailer      *MockMailer
	uc          usecase.ReconcileUseCase
}

func newReconcileDeps() *reconcileDeps {
	d := &reconcileDeps{
		enrollments: NewMockEnrollmentRepo(),
		subs:        NewMockSubscriptionRepo(),
		courses:     NewMockCourseAccessRepo(),
		users:       NewMockUserRepo(),
		events:      NewMockWebhookEventRepo(),
		templates:   NewMockEmailTemplateRepo(),
		logs:        NewMockEmailLogRepo(),
		jobs:        NewMockEmailJobRepo(),
		mailer:      NewMockMailer(),
	}
	notifUC := usecase.NewNotificationUseCase(d.templates, d.logs, d.jobs, d.mailer,
		usecase.NotificationDefaults{FromAddress: "noreply@example.in"}, newTestLogger())
	d.uc = usecase.NewReconcileUseCase(d.enrollments, d.subs, d.courses, d.users, d.events,
		notifUC, NewMockTxManager(), newTestLogger())
	return d
}

func seedPendingOrder(t *testing.T, d *reconcileDeps, service string, listPrice int64) *model.Enrollment {
	t.Helper()
	e, err := model.NewEnrollment("", "Asha Verma", "asha@example.in", "9876543210",
		service, listPrice, 0, "card", "cashfree")
	if err != nil {
		t.Fatalf("NewEnrollment: %v", err)
	}
	if err := d.enrollments.Save(context.Background(), nil, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	return e
}

func TestReconcile_PaymentSucceeded(t *testing.T) {
	ctx := context.Background()

	t.Run("completes a pending order and queues the onboarding emails", func(t *testing.T) {
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "foundation", 41500)

		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-1", e.OrderID, "pay-901"); err != nil {
			t.Fatalf("PaymentSucceeded: %v", err)
		}

		got, err := d.enrollments.FindByOrderID(ctx, nil, e.OrderID)
		if err != nil {
			t.Fatalf("FindByOrderID: %v", err)
		}
		if got.Status != model.EnrollmentStatusCompleted {
			t.Fatalf("status = %s, want completed", got.Status)
		}
		if got.ProviderTxnID == nil || *got.ProviderTxnID != "pay-901" {
			t.Fatalf("provider txn id not recorded")
		}
		if got.FinalAmount != 41500 {
			t.Fatalf("final amount = %d, want 41500", got.FinalAmount)
		}

		if d.users.Count() != 1 {
			t.Fatalf("users = %d, want 1", d.users.Count())
		}
		if d.courses.Count() != 1 {
			t.Fatalf("course grants = %d, want 1", d.courses.Count())
		}
		for _, key := range []string{
			model.TemplatePaymentConfirmation,
			model.TemplateAccessCredentials,
			model.TemplateWelcomeGuide,
		} {
			if n := d.jobs.CountByTemplate(key); n != 1 {
				t.Errorf("jobs for %s = %d, want 1", key, n)
			}
		}

		// delayed jobs must carry a future RunAt
		for _, j := range d.jobs.All() {
			if j.TemplateKey == model.TemplateWelcomeGuide && !j.RunAt.After(time.Now()) {
				t.Errorf("welcome guide job should be scheduled in the future")
			}
		}
	})

	t.Run("duplicate delivery is a no-op", func(t *testing.T) {
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "growth", 83200)

		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-1", e.OrderID, "pay-1"); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-1", e.OrderID, "pay-1"); err != nil {
			t.Fatalf("second delivery: %v", err)
		}

		if d.courses.Count() != 1 {
			t.Fatalf("course grants = %d, want 1 after duplicate", d.courses.Count())
		}
		if n := d.jobs.CountByTemplate(model.TemplatePaymentConfirmation); n != 1 {
			t.Fatalf("confirmation jobs = %d, want 1 after duplicate", n)
		}
	})

	t.Run("redelivery under a fresh event id still cannot complete twice", func(t *testing.T) {
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "growth", 83200)

		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-1", e.OrderID, "pay-1"); err != nil {
			t.Fatalf("first delivery: %v", err)
		}
		if err := d.uc.PaymentSucceeded(ctx, "stripe", "evt-2", e.OrderID, "pay-2"); err != nil {
			t.Fatalf("cross-provider replay: %v", err)
		}

		got, _ := d.enrollments.FindByOrderID(ctx, nil, e.OrderID)
		if *got.ProviderTxnID != "pay-1" {
			t.Fatalf("txn id overwritten by replay")
		}
		if d.courses.Count() != 1 {
			t.Fatalf("course grants = %d, want 1", d.courses.Count())
		}
	})

	t.Run("unknown order is logged and swallowed", func(t *testing.T) {
		d := newReconcileDeps()
		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-9", "no-such-order", "pay-9"); err != nil {
			t.Fatalf("expected nil error for unknown order, got %v", err)
		}
		if d.courses.Count() != 0 || d.users.Count() != 0 {
			t.Fatalf("unknown order must not create state")
		}
	})

	t.Run("existing user is reused, not duplicated", func(t *testing.T) {
		d := newReconcileDeps()
		u, _ := model.NewUser("", "asha@example.in", "Asha Verma", "9876543210")
		d.users.Save(ctx, nil, u)
		e := seedPendingOrder(t, d, "foundation", 41500)

		if err := d.uc.PaymentSucceeded(ctx, "stripe", "evt-3", e.OrderID, "pi_1"); err != nil {
			t.Fatalf("PaymentSucceeded: %v", err)
		}
		if d.users.Count() != 1 {
			t.Fatalf("users = %d, want 1", d.users.Count())
		}
	})
}

func TestReconcile_PaymentFailed(t *testing.T) {
	ctx := context.Background()

	t.Run("marks a pending order failed", func(t *testing.T) {
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "foundation", 41500)

		if err := d.uc.PaymentFailed(ctx, "cashfree", "evt-1", e.OrderID, false); err != nil {
			t.Fatalf("PaymentFailed: %v", err)
		}
		got, _ := d.enrollments.FindByOrderID(ctx, nil, e.OrderID)
		if got.Status != model.EnrollmentStatusFailed {
			t.Fatalf("status = %s, want failed", got.Status)
		}
	})

	t.Run("user dropped marks the order cancelled", func(t *testing.T) {
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "foundation", 41500)

		if err := d.uc.PaymentFailed(ctx, "cashfree", "evt-1", e.OrderID, true); err != nil {
			t.Fatalf("PaymentFailed: %v", err)
		}
		got, _ := d.enrollments.FindByOrderID(ctx, nil, e.OrderID)
		if got.Status != model.EnrollmentStatusCancelled {
			t.Fatalf("status = %s, want cancelled", got.Status)
		}
	})

	t.Run("failure event for an unknown order is swallowed", func(t *testing.T) {
		d := newReconcileDeps()
		if err := d.uc.PaymentFailed(ctx, "cashfree", "evt-1", "no-such-order", false); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})

	t.Run("failure after completion does not downgrade the order", func(t *testing.T) {
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "foundation", 41500)

		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-1", e.OrderID, "pay-1"); err != nil {
			t.Fatalf("PaymentSucceeded: %v", err)
		}
		if err := d.uc.PaymentFailed(ctx, "cashfree", "evt-2", e.OrderID, false); err != nil {
			t.Fatalf("PaymentFailed: %v", err)
		}
		got, _ := d.enrollments.FindByOrderID(ctx, nil, e.OrderID)
		if got.Status != model.EnrollmentStatusCompleted {
			t.Fatalf("status = %s, want completed untouched", got.Status)
		}
	})
}

func TestReconcile_SubscriptionActivated(t *testing.T) {
	ctx := context.Background()

	t.Run("records the subscription and grants access", func(t *testing.T) {
		d := newReconcileDeps()

		err := d.uc.SubscriptionActivated(ctx, "cashfree", "evt-1", "sub-100",
			"mentorship-monthly", "ravi@example.in", "Ravi Nair")
		if err != nil {
			t.Fatalf("SubscriptionActivated: %v", err)
		}

		sub, err := d.subs.FindByProviderSubID(ctx, nil, "sub-100")
		if err != nil {
			t.Fatalf("FindByProviderSubID: %v", err)
		}
		if sub.Status != model.SubscriptionStatusActive {
			t.Fatalf("status = %s, want active", sub.Status)
		}
		if d.courses.Count() != 1 {
			t.Fatalf("course grants = %d, want 1", d.courses.Count())
		}
		if n := d.jobs.CountByTemplate(model.TemplateSubscriptionWelcome); n != 1 {
			t.Fatalf("welcome jobs = %d, want 1", n)
		}
	})

	t.Run("activation settles the pending subscription order", func(t *testing.T) {
		// A subscription checkout stores a pending enrollment whose order id
		// doubles as the provider subscription id. The activation delivery
		// must finalize that row too, or the wizard polls "processing"
		// forever.
		d := newReconcileDeps()
		e := seedPendingOrder(t, d, "mentorship", 4999)

		if err := d.uc.PaymentSucceeded(ctx, "cashfree", "evt-act:order", e.OrderID, e.OrderID); err != nil {
			t.Fatalf("PaymentSucceeded: %v", err)
		}
		err := d.uc.SubscriptionActivated(ctx, "cashfree", "evt-act:sub", e.OrderID,
			"mentorship-monthly", "asha@example.in", "Asha Verma")
		if err != nil {
			t.Fatalf("SubscriptionActivated: %v", err)
		}

		got, err := d.enrollments.FindByOrderID(ctx, nil, e.OrderID)
		if err != nil {
			t.Fatalf("FindByOrderID: %v", err)
		}
		if got.Status != model.EnrollmentStatusCompleted {
			t.Fatalf("order status = %s, want completed", got.Status)
		}
		sub, err := d.subs.FindByProviderSubID(ctx, nil, e.OrderID)
		if err != nil {
			t.Fatalf("FindByProviderSubID: %v", err)
		}
		if sub.Status != model.SubscriptionStatusActive {
			t.Fatalf("subscription status = %s, want active", sub.Status)
		}
	})

	t.Run("duplicate activation is a no-op", func(t *testing.T) {
		d := newReconcileDeps()

		for i, evt := range []string{"evt-1", "evt-2"} {
			err := d.uc.SubscriptionActivated(ctx, "cashfree", evt, "sub-100",
				"mentorship-monthly", "ravi@example.in", "Ravi Nair")
			if err != nil {
				t.Fatalf("delivery %d: %v", i, err)
			}
		}
		if n := d.jobs.CountByTemplate(model.TemplateSubscriptionWelcome); n != 1 {
			t.Fatalf("welcome jobs = %d, want 1", n)
		}
	})

	t.Run("new activation supersedes the previous active subscription", func(t *testing.T) {
		d := newReconcileDeps()

		if err := d.uc.SubscriptionActivated(ctx, "cashfree", "evt-1", "sub-100",
			"mentorship-monthly", "ravi@example.in", "Ravi Nair"); err != nil {
			t.Fatalf("first activation: %v", err)
		}
		if err := d.uc.SubscriptionActivated(ctx, "cashfree", "evt-2", "sub-200",
			"mentorship-annual", "ravi@example.in", "Ravi Nair"); err != nil {
			t.Fatalf("second activation: %v", err)
		}

		old, _ := d.subs.FindByProviderSubID(ctx, nil, "sub-100")
		if old.Status != model.SubscriptionStatusSuperseded {
			t.Fatalf("old status = %s, want superseded", old.Status)
		}
		cur, _ := d.subs.FindByProviderSubID(ctx, nil, "sub-200")
		if cur.Status != model.SubscriptionStatusActive {
			t.Fatalf("new status = %s, want active", cur.Status)
		}
	})

	t.Run("unknown plan is swallowed", func(t *testing.T) {
		d := newReconcileDeps()
		err := d.uc.SubscriptionActivated(ctx, "cashfree", "evt-1", "sub-1",
			"no-such-plan", "ravi@example.in", "Ravi Nair")
		if err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})
}

func TestReconcile_Renewals(t *testing.T) {
	ctx := context.Background()

	activate := func(t *testing.T, d *reconcileDeps) *model.Subscription {
		t.Helper()
		err := d.uc.SubscriptionActivated(ctx, "cashfree", "evt-act", "sub-100",
			"signals-monthly", "ravi@example.in", "Ravi Nair")
		if err != nil {
			t.Fatalf("activate: %v", err)
		}
		sub, err := d.subs.FindByProviderSubID(ctx, nil, "sub-100")
		if err != nil {
			t.Fatalf("find: %v", err)
		}
		return sub
	}

	t.Run("renewal success advances the billing period", func(t *testing.T) {
		d := newReconcileDeps()
		before := activate(t, d)

		paidAt := time.Now().AddDate(0, 1, 0)
		if err := d.uc.RenewalSucceeded(ctx, "cashfree", "evt-renew", "sub-100", paidAt); err != nil {
			t.Fatalf("RenewalSucceeded: %v", err)
		}

		after, _ := d.subs.FindByProviderSubID(ctx, nil, "sub-100")
		if !after.CurrentPeriodEnd.After(before.CurrentPeriodEnd) {
			t.Fatalf("period end did not advance")
		}
		if after.Status != model.SubscriptionStatusActive {
			t.Fatalf("status = %s, want active", after.Status)
		}
	})

	t.Run("renewal failure marks past_due with exactly one failure email", func(t *testing.T) {
		d := newReconcileDeps()
		activate(t, d)

		if err := d.uc.RenewalFailed(ctx, "cashfree", "evt-fail", "sub-100"); err != nil {
			t.Fatalf("RenewalFailed: %v", err)
		}
		// provider redelivers the same event
		if err := d.uc.RenewalFailed(ctx, "cashfree", "evt-fail", "sub-100"); err != nil {
			t.Fatalf("redelivery: %v", err)
		}

		sub, _ := d.subs.FindByProviderSubID(ctx, nil, "sub-100")
		if sub.Status != model.SubscriptionStatusPastDue {
			t.Fatalf("status = %s, want past_due", sub.Status)
		}
		if n := d.jobs.CountByTemplate(model.TemplatePaymentFailed); n != 1 {
			t.Fatalf("payment_failed jobs = %d, want exactly 1", n)
		}
	})

	t.Run("renewal for an unknown subscription is swallowed", func(t *testing.T) {
		d := newReconcileDeps()
		if err := d.uc.RenewalSucceeded(ctx, "cashfree", "evt-1", "sub-x", time.Now()); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
		if err := d.uc.RenewalFailed(ctx, "cashfree", "evt-2", "sub-x"); err != nil {
			t.Fatalf("expected nil error, got %v", err)
		}
	})

	t.Run("cancellation closes the subscription and notifies", func(t *testing.T) {
		d := newReconcileDeps()
		activate(t, d)

		if err := d.uc.SubscriptionCancelled(ctx, "cashfree", "evt-cancel", "sub-100"); err != nil {
			t.Fatalf("SubscriptionCancelled: %v", err)
		}
		sub, _ := d.subs.FindByProviderSubID(ctx, nil, "sub-100")
		if sub.Status != model.SubscriptionStatusCancelled {
			t.Fatalf("status = %s, want cancelled", sub.Status)
		}
		if n := d.jobs.CountByTemplate(model.TemplateSubscriptionClosed); n != 1 {
			t.Fatalf("closed jobs = %d, want 1", n)
		}
	})
}
