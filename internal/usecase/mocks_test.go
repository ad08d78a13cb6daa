//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/flow"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/adapter"
	"trading-academy-platform/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

// -----------------------------
// Transaction manager
// -----------------------------

type MockTxManager struct {
	WithTxFunc func(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

// WithTx runs fn immediately with NoTX unless a test overrides WithTxFunc.
func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	if m.WithTxFunc != nil {
		return m.WithTxFunc(ctx, txOpt, fn)
	}
	return fn(ctx, repository.NoTX)
}

// -----------------------------
// Enrollments
// -----------------------------

type MockEnrollmentRepo struct {
	mu      sync.RWMutex
	store   map[string]*model.Enrollment
	SaveErr error
}

func NewMockEnrollmentRepo() *MockEnrollmentRepo {
	return &MockEnrollmentRepo{store: make(map[string]*model.Enrollment)}
}

var _ repository.EnrollmentRepository = (*MockEnrollmentRepo)(nil)

func (m *MockEnrollmentRepo) Save(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.store[e.OrderID] = &cp
	return nil
}

func (m *MockEnrollmentRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.store[orderID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MockEnrollmentRepo) CompleteIfPending(ctx context.Context, tx repository.Tx, orderID, providerTxnID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[orderID]
	if !ok || e.Status != model.EnrollmentStatusPending {
		return false, nil
	}
	e.Status = model.EnrollmentStatusCompleted
	e.ProviderTxnID = &providerTxnID
	e.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockEnrollmentRepo) MarkIfPending(ctx context.Context, tx repository.Tx, orderID string, status model.EnrollmentStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.store[orderID]
	if !ok || e.Status != model.EnrollmentStatusPending {
		return false, nil
	}
	e.Status = status
	e.UpdatedAt = time.Now()
	return true, nil
}

func (m *MockEnrollmentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Enrollment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*model.Enrollment
	for _, e := range m.store {
		if e.Status == model.EnrollmentStatusPending && e.CreatedAt.Before(olderThan) {
			cp := *e
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// -----------------------------
// Subscriptions
// -----------------------------

type MockSubscriptionRepo struct {
	mu    sync.RWMutex
	store map[string]*model.Subscription // by ID
}

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{store: make(map[string]*model.Subscription)}
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func (m *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.store[s.ID] = &cp
	return nil
}

func (m *MockSubscriptionRepo) FindByProviderSubID(ctx context.Context, tx repository.Tx, providerSubID string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.ProviderSubID == providerSubID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) FindActiveByUserAndService(ctx context.Context, tx repository.Tx, userID, serviceName string) (*model.Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive && planService(s.PlanID) == serviceName {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockSubscriptionRepo) SupersedeActive(ctx context.Context, tx repository.Tx, userID, serviceName string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.store {
		if s.UserID == userID && s.Status == model.SubscriptionStatusActive && planService(s.PlanID) == serviceName {
			s.Status = model.SubscriptionStatusSuperseded
			n++
		}
	}
	return n, nil
}

func (m *MockSubscriptionRepo) UpdateStatus(ctx context.Context, tx repository.Tx, id string, status model.SubscriptionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.Status = status
	return nil
}

func (m *MockSubscriptionRepo) UpdatePeriod(ctx context.Context, tx repository.Tx, id string, periodStart, periodEnd time.Time, lastBilling, nextBilling *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.store[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.CurrentPeriodStart = periodStart
	s.CurrentPeriodEnd = periodEnd
	s.LastBillingAt = lastBilling
	s.NextBillingAt = nextBilling
	s.Status = model.SubscriptionStatusActive
	return nil
}

func planService(planID string) string {
	if p, err := model.PlanByID(planID); err == nil {
		return p.ServiceName
	}
	return planID
}

// -----------------------------
// Course access
// -----------------------------

type MockCourseAccessRepo struct {
	mu     sync.RWMutex
	grants map[string]*model.CourseAccess // key userID+"/"+courseName
}

func NewMockCourseAccessRepo() *MockCourseAccessRepo {
	return &MockCourseAccessRepo{grants: make(map[string]*model.CourseAccess)}
}

var _ repository.CourseAccessRepository = (*MockCourseAccessRepo)(nil)

func (m *MockCourseAccessRepo) GrantIfAbsent(ctx context.Context, tx repository.Tx, a *model.CourseAccess) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := a.UserID + "/" + a.CourseName
	if _, exists := m.grants[key]; exists {
		return false, nil
	}
	cp := *a
	m.grants[key] = &cp
	return true, nil
}

func (m *MockCourseAccessRepo) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.grants)
}

// -----------------------------
// Users
// -----------------------------

type MockUserRepo struct {
	mu    sync.RWMutex
	store map[string]*model.User // by ID
}

func NewMockUserRepo() *MockUserRepo {
	return &MockUserRepo{store: make(map[string]*model.User)}
}

var _ repository.UserRepository = (*MockUserRepo)(nil)

func (m *MockUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.store[u.ID] = &cp
	return nil
}

func (m *MockUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.store[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MockUserRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.store {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockUserRepo) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// -----------------------------
// Webhook events
// -----------------------------

type MockWebhookEventRepo struct {
	mu   sync.Mutex
	seen map[string]bool // key provider+"/"+eventID
}

func NewMockWebhookEventRepo() *MockWebhookEventRepo {
	return &MockWebhookEventRepo{seen: make(map[string]bool)}
}

var _ repository.WebhookEventRepository = (*MockWebhookEventRepo)(nil)

func (m *MockWebhookEventRepo) RecordIfAbsent(ctx context.Context, tx repository.Tx, e *model.WebhookEvent) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := e.Provider + "/" + e.EventID
	if m.seen[key] {
		return false, nil
	}
	m.seen[key] = true
	return true, nil
}

// -----------------------------
// Email templates / logs / jobs
// -----------------------------

type MockEmailTemplateRepo struct {
	mu    sync.RWMutex
	store map[string]*model.EmailTemplate
}

func NewMockEmailTemplateRepo() *MockEmailTemplateRepo {
	return &MockEmailTemplateRepo{store: make(map[string]*model.EmailTemplate)}
}

var _ repository.EmailTemplateRepository = (*MockEmailTemplateRepo)(nil)

func (m *MockEmailTemplateRepo) Put(t *model.EmailTemplate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store[t.Key] = t
}

func (m *MockEmailTemplateRepo) FindActiveByKey(ctx context.Context, tx repository.Tx, key string) (*model.EmailTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.store[key]
	if !ok || !t.Active {
		return nil, domain.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

type MockEmailLogRepo struct {
	mu   sync.Mutex
	rows []*model.EmailLog
}

func NewMockEmailLogRepo() *MockEmailLogRepo { return &MockEmailLogRepo{} }

var _ repository.EmailLogRepository = (*MockEmailLogRepo)(nil)

func (m *MockEmailLogRepo) Append(ctx context.Context, tx repository.Tx, l *model.EmailLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *MockEmailLogRepo) Rows() []*model.EmailLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.EmailLog, len(m.rows))
	copy(out, m.rows)
	return out
}

type MockEmailJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.EmailJob
}

func NewMockEmailJobRepo() *MockEmailJobRepo {
	return &MockEmailJobRepo{jobs: make(map[string]*model.EmailJob)}
}

var _ repository.EmailJobRepository = (*MockEmailJobRepo)(nil)

func (m *MockEmailJobRepo) Enqueue(ctx context.Context, tx repository.Tx, j *model.EmailJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *j
	m.jobs[j.ID] = &cp
	return nil
}

func (m *MockEmailJobRepo) ListDue(ctx context.Context, tx repository.Tx, now time.Time, limit int) ([]*model.EmailJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.EmailJob
	for _, j := range m.jobs {
		if j.Status == model.EmailJobStatusQueued && !j.RunAt.After(now) {
			cp := *j
			out = append(out, &cp)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (m *MockEmailJobRepo) MarkSent(ctx context.Context, tx repository.Tx, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = model.EmailJobStatusSent
	return nil
}

func (m *MockEmailJobRepo) MarkAttemptFailed(ctx context.Context, tx repository.Tx, id string, attempt int, lastError string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Attempts = attempt
	j.LastError = lastError
	if attempt >= model.MaxEmailJobAttempts {
		j.Status = model.EmailJobStatusFailed
	}
	return nil
}

func (m *MockEmailJobRepo) All() []*model.EmailJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.EmailJob, 0, len(m.jobs))
	for _, j := range m.jobs {
		cp := *j
		out = append(out, &cp)
	}
	return out
}

func (m *MockEmailJobRepo) CountByTemplate(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.TemplateKey == key {
			n++
		}
	}
	return n
}

// -----------------------------
// Flow state (in-memory stand-in for the Redis repo)
// -----------------------------

type MockFlowStateRepo struct {
	mu    sync.RWMutex
	store map[string]*flow.State
}

func NewMockFlowStateRepo() *MockFlowStateRepo {
	return &MockFlowStateRepo{store: make(map[string]*flow.State)}
}

var _ repository.FlowStateRepository = (*MockFlowStateRepo)(nil)

func (m *MockFlowStateRepo) Set(ctx context.Context, sessionID string, state *flow.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *state
	m.store[sessionID] = &cp
	return nil
}

func (m *MockFlowStateRepo) Get(ctx context.Context, sessionID string) (*flow.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.store[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *st
	return &cp, nil
}

func (m *MockFlowStateRepo) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.store, sessionID)
	return nil
}

// -----------------------------
// Payment gateway
// -----------------------------

type MockPaymentGateway struct {
	NameValue         string
	CreateOrderFunc   func(ctx context.Context, e *model.Enrollment) (*adapter.Session, error)
	CreateSubFunc     func(ctx context.Context, plan *model.Plan, e *model.Enrollment) (*adapter.Session, error)
	VerifyOrderFunc   func(ctx context.Context, orderID string) (adapter.OrderState, string, error)
	CreateOrderCalled int
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string {
	if m.NameValue == "" {
		return "mockpay"
	}
	return m.NameValue
}

func (m *MockPaymentGateway) CreateOrderSession(ctx context.Context, e *model.Enrollment) (*adapter.Session, error) {
	m.CreateOrderCalled++
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, e)
	}
	return &adapter.Session{Provider: m.Name(), OrderID: e.OrderID, ClientToken: "tok_" + e.OrderID}, nil
}

func (m *MockPaymentGateway) CreateSubscriptionSession(ctx context.Context, plan *model.Plan, e *model.Enrollment) (*adapter.Session, error) {
	if m.CreateSubFunc != nil {
		return m.CreateSubFunc(ctx, plan, e)
	}
	return &adapter.Session{Provider: m.Name(), OrderID: e.OrderID, ClientToken: "subtok_" + e.OrderID}, nil
}

func (m *MockPaymentGateway) VerifyOrder(ctx context.Context, orderID string) (adapter.OrderState, string, error) {
	if m.VerifyOrderFunc != nil {
		return m.VerifyOrderFunc(ctx, orderID)
	}
	return adapter.OrderStatePending, "", nil
}

// -----------------------------
// Mailer
// -----------------------------

type MockMailer struct {
	mu      sync.Mutex
	sent    []adapter.OutboundEmail
	SendErr error
}

func NewMockMailer() *MockMailer { return &MockMailer{} }

var _ adapter.Mailer = (*MockMailer)(nil)

func (m *MockMailer) Send(ctx context.Context, msg adapter.OutboundEmail) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return "", m.SendErr
	}
	m.sent = append(m.sent, msg)
	return "msg-id-1", nil
}

func (m *MockMailer) Sent() []adapter.OutboundEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]adapter.OutboundEmail, len(m.sent))
	copy(out, m.sent)
	return out
}

// -----------------------------
// Leads
// -----------------------------

type MockLeadRepo struct {
	mu   sync.Mutex
	rows []*model.Lead
}

func NewMockLeadRepo() *MockLeadRepo { return &MockLeadRepo{} }

var _ repository.LeadRepository = (*MockLeadRepo)(nil)

func (m *MockLeadRepo) Save(ctx context.Context, tx repository.Tx, l *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.rows = append(m.rows, &cp)
	return nil
}
