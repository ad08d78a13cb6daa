package usecase

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/flow"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/adapter"
	"trading-academy-platform/internal/domain/ports/repository"
)

// Compile-time check
var _ CheckoutUseCase = (*checkoutUC)(nil)

// CheckoutUseCase drives the enrollment and subscription wizards. Each
// browser session owns one flow instance, keyed by session id in Redis;
// every step is a load → reduce → store round-trip. The only authority on
// a payment's outcome is the webhook reconciler: SyncProcessing merely
// reads what the reconciler wrote.
type CheckoutUseCase interface {
	StartEnrollment(ctx context.Context, sessionID, serviceName string) (*flow.State, error)
	// StartSubscription begins a recurring-purchase wizard. An authenticated
	// caller passes its stored profile as contact so the payment step has an
	// identity without re-running registration.
	StartSubscription(ctx context.Context, sessionID, serviceName string, authenticated bool, contact *model.RegistrationForm) (*flow.State, error)
	// Apply advances the wizard with a side-effect-free event (confirm, back,
	// registration, platform/plan selection, promo apply/remove).
	Apply(ctx context.Context, sessionID string, ev flow.Event) (*flow.State, error)
	// Pay creates the pending enrollment row, then the provider session, then
	// moves the wizard to processing. The row MUST exist before the provider
	// session so an out-of-order webhook always finds its order.
	Pay(ctx context.Context, sessionID, provider, paymentMethod string) (*flow.State, *adapter.Session, error)
	// SyncProcessing folds the authoritative order status back into a wizard
	// stuck on the processing step. It never advances on absence of a signal.
	SyncProcessing(ctx context.Context, sessionID string) (*flow.State, error)
	// OrderStatus is the polling read for the order confirmation view.
	OrderStatus(ctx context.Context, orderID string) (*model.Enrollment, error)
}

type checkoutUC struct {
	states      repository.FlowStateRepository
	enrollments repository.EnrollmentRepository
	gateways    map[string]adapter.PaymentGateway
	log         *zerolog.Logger
}

func NewCheckoutUseCase(states repository.FlowStateRepository, enrollments repository.EnrollmentRepository, gateways map[string]adapter.PaymentGateway, logger *zerolog.Logger) *checkoutUC {
	l := logger.With().Str("component", "CheckoutUC").Logger()
	return &checkoutUC{states: states, enrollments: enrollments, gateways: gateways, log: &l}
}

func (u *checkoutUC) StartEnrollment(ctx context.Context, sessionID, serviceName string) (*flow.State, error) {
	price, err := model.CoursePrice(serviceName)
	if err != nil {
		return nil, err
	}
	st := flow.NewEnrollment(serviceName, price, 0)
	if err := u.states.Set(ctx, sessionID, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (u *checkoutUC) StartSubscription(ctx context.Context, sessionID, serviceName string, authenticated bool, contact *model.RegistrationForm) (*flow.State, error) {
	st := flow.NewSubscription(serviceName, authenticated, contact)
	if err := u.states.Set(ctx, sessionID, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (u *checkoutUC) Apply(ctx context.Context, sessionID string, ev flow.Event) (*flow.State, error) {
	st, err := u.states.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	next, rerr := flow.Reduce(*st, ev)
	// Validation outcomes (field errors, unknown promo) still mutate the
	// stored state so the client sees them on the next read.
	if serr := u.states.Set(ctx, sessionID, &next); serr != nil {
		return nil, serr
	}
	return &next, rerr
}

func (u *checkoutUC) Pay(ctx context.Context, sessionID, provider, paymentMethod string) (*flow.State, *adapter.Session, error) {
	st, err := u.states.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if st.Step != flow.StepPayment {
		return st, nil, domain.ErrInvalidTransition
	}
	gw, ok := u.gateways[provider]
	if !ok {
		return st, nil, domain.ErrInvalidArgument
	}

	reg := st.Registration
	if reg == nil {
		return st, nil, domain.ErrInvalidTransition
	}

	var session *adapter.Session
	switch st.Kind {
	case flow.KindEnrollment:
		e, err := model.NewEnrollment("", reg.FullName, reg.Email, reg.Phone, st.ServiceName,
			st.BasePrice, st.TotalDiscount(), paymentMethod, gw.Name())
		if err != nil {
			return st, nil, err
		}
		// pending row first, provider session second
		if err := u.enrollments.Save(ctx, repository.NoTX, e); err != nil {
			return st, nil, err
		}
		session, err = gw.CreateOrderSession(ctx, e)
		if err != nil {
			u.log.Error().Err(err).Str("order_id", e.OrderID).Msg("provider session creation failed")
			return st, nil, err
		}
	case flow.KindSubscription:
		plan, err := model.PlanByID(st.PlanID)
		if err != nil {
			return st, nil, err
		}
		e, err := model.NewEnrollment("", reg.FullName, reg.Email, reg.Phone, plan.ServiceName,
			plan.PriceINR, st.PromoDiscount, paymentMethod, gw.Name())
		if err != nil {
			return st, nil, err
		}
		if err := u.enrollments.Save(ctx, repository.NoTX, e); err != nil {
			return st, nil, err
		}
		session, err = gw.CreateSubscriptionSession(ctx, plan, e)
		if err != nil {
			u.log.Error().Err(err).Str("order_id", e.OrderID).Msg("provider subscription session failed")
			return st, nil, err
		}
	default:
		return st, nil, domain.ErrInvalidArgument
	}

	next, err := flow.Reduce(*st, flow.SubmitPayment{OrderID: session.OrderID})
	if err != nil {
		return st, nil, err
	}
	if err := u.states.Set(ctx, sessionID, &next); err != nil {
		return nil, nil, err
	}
	u.log.Info().Str("order_id", session.OrderID).Str("provider", provider).Msg("payment session created")
	return &next, session, nil
}

func (u *checkoutUC) SyncProcessing(ctx context.Context, sessionID string) (*flow.State, error) {
	st, err := u.states.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if st.Step != flow.StepProcessing || st.OrderID == "" {
		return st, nil
	}
	e, err := u.enrollments.FindByOrderID(ctx, repository.NoTX, st.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return st, nil
		}
		return nil, err
	}

	var ev flow.Event
	switch e.Status {
	case model.EnrollmentStatusCompleted:
		ev = flow.PaymentSucceeded{}
	case model.EnrollmentStatusFailed, model.EnrollmentStatusCancelled:
		ev = flow.PaymentFailed{Message: "payment was not completed, please try again"}
	default:
		// still pending: stay on processing until a terminal signal arrives
		return st, nil
	}
	next, err := flow.Reduce(*st, ev)
	if err != nil {
		return st, err
	}
	if next.Step == flow.StepSuccess {
		// A finished wizard has nothing left to resume. Dropping the state
		// frees the Redis slot instead of waiting out the TTL.
		if err := u.states.Clear(ctx, sessionID); err != nil {
			u.log.Warn().Err(err).Str("session_id", sessionID).Msg("clear finished flow state failed")
		}
		return &next, nil
	}
	if err := u.states.Set(ctx, sessionID, &next); err != nil {
		return nil, err
	}
	return &next, nil
}

func (u *checkoutUC) OrderStatus(ctx context.Context, orderID string) (*model.Enrollment, error) {
	return u.enrollments.FindByOrderID(ctx, repository.NoTX, orderID)
}
