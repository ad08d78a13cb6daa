//go:build !integration

package web_test

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/flow"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/adapter"
	"trading-academy-platform/internal/domain/ports/repository"
	"trading-academy-platform/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// MockCheckoutUC stubs the checkout use case with overridable funcs.
type MockCheckoutUC struct {
	StartEnrollmentFunc   func(ctx context.Context, sessionID, serviceName string) (*flow.State, error)
	StartSubscriptionFunc func(ctx context.Context, sessionID, serviceName string, authenticated bool, contact *model.RegistrationForm) (*flow.State, error)
	ApplyFunc             func(ctx context.Context, sessionID string, ev flow.Event) (*flow.State, error)
	PayFunc               func(ctx context.Context, sessionID, provider, paymentMethod string) (*flow.State, *adapter.Session, error)
	SyncProcessingFunc    func(ctx context.Context, sessionID string) (*flow.State, error)
	OrderStatusFunc       func(ctx context.Context, orderID string) (*model.Enrollment, error)
}

var _ usecase.CheckoutUseCase = (*MockCheckoutUC)(nil)

func (m *MockCheckoutUC) StartEnrollment(ctx context.Context, sessionID, serviceName string) (*flow.State, error) {
	if m.StartEnrollmentFunc != nil {
		return m.StartEnrollmentFunc(ctx, sessionID, serviceName)
	}
	return flow.NewEnrollment(serviceName, 41500, 0), nil
}

func (m *MockCheckoutUC) StartSubscription(ctx context.Context, sessionID, serviceName string, authenticated bool, contact *model.RegistrationForm) (*flow.State, error) {
	if m.StartSubscriptionFunc != nil {
		return m.StartSubscriptionFunc(ctx, sessionID, serviceName, authenticated, contact)
	}
	return flow.NewSubscription(serviceName, authenticated, contact), nil
}

func (m *MockCheckoutUC) Apply(ctx context.Context, sessionID string, ev flow.Event) (*flow.State, error) {
	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, sessionID, ev)
	}
	return nil, domain.ErrNotFound
}

func (m *MockCheckoutUC) Pay(ctx context.Context, sessionID, provider, paymentMethod string) (*flow.State, *adapter.Session, error) {
	if m.PayFunc != nil {
		return m.PayFunc(ctx, sessionID, provider, paymentMethod)
	}
	return nil, nil, domain.ErrNotFound
}

func (m *MockCheckoutUC) SyncProcessing(ctx context.Context, sessionID string) (*flow.State, error) {
	if m.SyncProcessingFunc != nil {
		return m.SyncProcessingFunc(ctx, sessionID)
	}
	return nil, domain.ErrNotFound
}

func (m *MockCheckoutUC) OrderStatus(ctx context.Context, orderID string) (*model.Enrollment, error) {
	if m.OrderStatusFunc != nil {
		return m.OrderStatusFunc(ctx, orderID)
	}
	return nil, domain.ErrNotFound
}

// MockReconcileUC records which handlers fired.
type MockReconcileUC struct {
	PaymentSucceededFunc func(ctx context.Context, provider, eventID, orderID, providerTxnID string) error
	Calls                []string
}

var _ usecase.ReconcileUseCase = (*MockReconcileUC)(nil)

func (m *MockReconcileUC) PaymentSucceeded(ctx context.Context, provider, eventID, orderID, providerTxnID string) error {
	m.Calls = append(m.Calls, "payment_succeeded:"+orderID)
	if m.PaymentSucceededFunc != nil {
		return m.PaymentSucceededFunc(ctx, provider, eventID, orderID, providerTxnID)
	}
	return nil
}

func (m *MockReconcileUC) PaymentFailed(ctx context.Context, provider, eventID, orderID string, userDropped bool) error {
	m.Calls = append(m.Calls, "payment_failed:"+orderID)
	return nil
}

func (m *MockReconcileUC) SubscriptionActivated(ctx context.Context, provider, eventID, providerSubID, planID, email, fullName string) error {
	m.Calls = append(m.Calls, "subscription_activated:"+providerSubID)
	return nil
}

func (m *MockReconcileUC) RenewalSucceeded(ctx context.Context, provider, eventID, providerSubID string, paidAt time.Time) error {
	m.Calls = append(m.Calls, "renewal_succeeded:"+providerSubID)
	return nil
}

func (m *MockReconcileUC) RenewalFailed(ctx context.Context, provider, eventID, providerSubID string) error {
	m.Calls = append(m.Calls, "renewal_failed:"+providerSubID)
	return nil
}

func (m *MockReconcileUC) SubscriptionCancelled(ctx context.Context, provider, eventID, providerSubID string) error {
	m.Calls = append(m.Calls, "subscription_cancelled:"+providerSubID)
	return nil
}

// MockNotificationUC stubs the dispatcher.
type MockNotificationUC struct {
	DispatchFunc func(ctx context.Context, templateKey, to string, vars map[string]string) (string, error)
}

var _ usecase.NotificationUseCase = (*MockNotificationUC)(nil)

func (m *MockNotificationUC) Dispatch(ctx context.Context, templateKey, to string, vars map[string]string) (string, error) {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, templateKey, to, vars)
	}
	return "msg-1", nil
}

func (m *MockNotificationUC) Enqueue(ctx context.Context, tx repository.Tx, templateKey, to string, vars map[string]string, delay time.Duration) error {
	return nil
}

// MockLeadUC stubs lead capture.
type MockLeadUC struct {
	CaptureFunc func(ctx context.Context, fullName, email, phone, source string) (*model.Lead, error)
}

var _ usecase.LeadUseCase = (*MockLeadUC)(nil)

func (m *MockLeadUC) Capture(ctx context.Context, fullName, email, phone, source string) (*model.Lead, error) {
	if m.CaptureFunc != nil {
		return m.CaptureFunc(ctx, fullName, email, phone, source)
	}
	return model.NewLead(fullName, email, phone, source)
}
