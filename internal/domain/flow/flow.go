// Package flow models the checkout wizards as explicit finite-state
// machines: an enumerated step tag, an event union, and a pure reducer.
// State is serialized to Redis between user actions, so every field must
// survive a JSON round-trip.
package flow

import (
	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/model"
)

type Step string

const (
	StepConfirmation      Step = "confirmation"
	StepRegistration      Step = "registration"
	StepPlatformSelection Step = "platform-selection"
	StepPlanSelection     Step = "plan-selection"
	StepPayment           Step = "payment"
	StepProcessing        Step = "processing"
	StepSuccess           Step = "success"
)

type Kind string

const (
	KindEnrollment   Kind = "enrollment"   // one-time purchase
	KindSubscription Kind = "subscription" // recurring purchase
)

// State is the complete wizard state for one checkout session.
type State struct {
	Kind Kind `json:"kind"`
	Step Step `json:"step"`

	ServiceName   string `json:"service_name"`
	Authenticated bool   `json:"authenticated"` // decided once, at confirmation exit

	Registration *model.RegistrationForm `json:"registration,omitempty"`
	FieldErrors  map[string]string       `json:"field_errors,omitempty"`
	FirstInvalid string                  `json:"first_invalid,omitempty"`

	Platforms []string `json:"platforms,omitempty"` // subscription flow, multi-select
	PlanID    string   `json:"plan_id,omitempty"`

	BasePrice          int64  `json:"base_price"`
	StructuralDiscount int64  `json:"structural_discount"`
	PromoCode          string `json:"promo_code,omitempty"`
	PromoDiscount      int64  `json:"promo_discount"`

	OrderID      string `json:"order_id,omitempty"`
	PaymentError string `json:"payment_error,omitempty"`
}

// FinalAmount applies both discount layers, clamped at zero.
func (s *State) FinalAmount() int64 {
	f := s.BasePrice - s.StructuralDiscount - s.PromoDiscount
	if f < 0 {
		return 0
	}
	return f
}

// TotalDiscount is what lands in the enrollment row's discount column.
func (s *State) TotalDiscount() int64 {
	return s.StructuralDiscount + s.PromoDiscount
}

// NewEnrollment starts a one-time purchase wizard at the confirmation step.
func NewEnrollment(serviceName string, listPrice, structuralDiscount int64) *State {
	return &State{
		Kind:               KindEnrollment,
		Step:               StepConfirmation,
		ServiceName:        serviceName,
		BasePrice:          listPrice,
		StructuralDiscount: structuralDiscount,
	}
}

// NewSubscription starts a recurring purchase wizard. Whether registration
// is skipped is fixed here and never revisited; an authenticated session
// carries its stored profile as the prefilled contact, since the payment
// step still needs a name and an email.
func NewSubscription(serviceName string, authenticated bool, contact *model.RegistrationForm) *State {
	return &State{
		Kind:          KindSubscription,
		Step:          StepConfirmation,
		ServiceName:   serviceName,
		Authenticated: authenticated,
		Registration:  contact,
	}
}

// Event is the closed union of wizard inputs.
type Event interface{ isFlowEvent() }

type Confirm struct{}
type Back struct{}
type SubmitRegistration struct{ Form model.RegistrationForm }
type SelectPlatforms struct{ IDs []string } // empty slice = explicit skip
type SelectPlan struct{ PlanID string }
type ApplyPromo struct{ Code string }
type RemovePromo struct{}
type SubmitPayment struct{ OrderID string }
type PaymentSucceeded struct{}
type PaymentFailed struct{ Message string }

func (Confirm) isFlowEvent()            {}
func (Back) isFlowEvent()               {}
func (SubmitRegistration) isFlowEvent() {}
func (SelectPlatforms) isFlowEvent()    {}
func (SelectPlan) isFlowEvent()         {}
func (ApplyPromo) isFlowEvent()         {}
func (RemovePromo) isFlowEvent()        {}
func (SubmitPayment) isFlowEvent()      {}
func (PaymentSucceeded) isFlowEvent()   {}
func (PaymentFailed) isFlowEvent()      {}

// Reduce applies one event to a copy of the state. It is pure: no clocks,
// no I/O, no mutation of the input. Invalid transitions return the input
// state unchanged together with ErrInvalidTransition; the processing step
// in particular only ever advances on an explicit terminal event, never on
// a timeout.
func Reduce(s State, ev Event) (State, error) {
	switch e := ev.(type) {
	case Confirm:
		return reduceConfirm(s)
	case Back:
		return reduceBack(s)
	case SubmitRegistration:
		return reduceRegistration(s, e)
	case SelectPlatforms:
		return reducePlatforms(s, e)
	case SelectPlan:
		return reducePlan(s, e)
	case ApplyPromo:
		return reduceApplyPromo(s, e)
	case RemovePromo:
		return reduceRemovePromo(s)
	case SubmitPayment:
		return reduceSubmitPayment(s, e)
	case PaymentSucceeded:
		if s.Step != StepProcessing {
			return s, domain.ErrInvalidTransition
		}
		s.Step = StepSuccess
		s.PaymentError = ""
		return s, nil
	case PaymentFailed:
		if s.Step != StepProcessing {
			return s, domain.ErrInvalidTransition
		}
		s.Step = StepPayment
		s.PaymentError = e.Message
		return s, nil
	default:
		return s, domain.ErrInvalidTransition
	}
}

func reduceConfirm(s State) (State, error) {
	if s.Step != StepConfirmation {
		return s, domain.ErrInvalidTransition
	}
	switch s.Kind {
	case KindEnrollment:
		s.Step = StepRegistration
	case KindSubscription:
		if s.Authenticated {
			s.Step = StepPlatformSelection
		} else {
			s.Step = StepRegistration
		}
	}
	return s, nil
}

func reduceBack(s State) (State, error) {
	switch s.Step {
	case StepRegistration:
		s.Step = StepConfirmation
	case StepPayment:
		if s.Kind == KindSubscription {
			s.Step = StepPlanSelection
		} else {
			s.Step = StepRegistration
		}
		s.PaymentError = ""
	case StepPlatformSelection:
		if s.Kind == KindSubscription && !s.Authenticated {
			s.Step = StepRegistration
		} else {
			s.Step = StepConfirmation
		}
	case StepPlanSelection:
		s.Step = StepPlatformSelection
	default:
		// processing and success are not interactive; confirmation has nowhere to go
		return s, domain.ErrInvalidTransition
	}
	return s, nil
}

func reduceRegistration(s State, e SubmitRegistration) (State, error) {
	if s.Step != StepRegistration {
		return s, domain.ErrInvalidTransition
	}
	form := e.Form
	errs, first := form.Validate()
	if len(errs) > 0 {
		// stay on the step; the caller renders per-field errors and scrolls
		// to the first invalid field
		s.FieldErrors = errs
		s.FirstInvalid = first
		return s, nil
	}
	s.Registration = &form
	s.FieldErrors = nil
	s.FirstInvalid = ""
	if s.Kind == KindSubscription {
		s.Step = StepPlatformSelection
	} else {
		s.Step = StepPayment
	}
	return s, nil
}

func reducePlatforms(s State, e SelectPlatforms) (State, error) {
	if s.Kind != KindSubscription || s.Step != StepPlatformSelection {
		return s, domain.ErrInvalidTransition
	}
	s.Platforms = e.IDs
	s.Step = StepPlanSelection
	return s, nil
}

func reducePlan(s State, e SelectPlan) (State, error) {
	if s.Kind != KindSubscription || s.Step != StepPlanSelection {
		return s, domain.ErrInvalidTransition
	}
	plan, err := model.PlanByID(e.PlanID)
	if err != nil {
		return s, err
	}
	s.PlanID = plan.ID
	s.BasePrice = plan.PriceINR
	s.Step = StepPayment
	return s, nil
}

func reduceApplyPromo(s State, e ApplyPromo) (State, error) {
	if s.Step != StepPayment {
		return s, domain.ErrInvalidTransition
	}
	code, discount, err := model.ResolvePromo(e.Code)
	if err != nil {
		s.FieldErrors = withFieldError(s.FieldErrors, "promo_code", "invalid promo code")
		return s, err
	}
	if s.PromoCode == code {
		// re-applying the same code is a no-op; the UI disables the button
		return s, nil
	}
	s.PromoCode = code
	s.PromoDiscount = discount
	s.FieldErrors = withoutFieldError(s.FieldErrors, "promo_code")
	return s, nil
}

func reduceRemovePromo(s State) (State, error) {
	if s.Step != StepPayment {
		return s, domain.ErrInvalidTransition
	}
	s.PromoCode = ""
	s.PromoDiscount = 0
	s.FieldErrors = withoutFieldError(s.FieldErrors, "promo_code")
	return s, nil
}

// The FieldErrors map is shared with the caller's state value, so the
// reducers replace it instead of mutating it in place.
func withFieldError(m map[string]string, key, msg string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	out[key] = msg
	return out
}

func withoutFieldError(m map[string]string, key string) map[string]string {
	if _, ok := m[key]; !ok {
		return m
	}
	if len(m) == 1 {
		return nil
	}
	out := make(map[string]string, len(m)-1)
	for k, v := range m {
		if k != key {
			out[k] = v
		}
	}
	return out
}

func reduceSubmitPayment(s State, e SubmitPayment) (State, error) {
	if s.Step != StepPayment {
		return s, domain.ErrInvalidTransition
	}
	if e.OrderID == "" {
		return s, domain.ErrInvalidArgument
	}
	s.OrderID = e.OrderID
	s.PaymentError = ""
	s.Step = StepProcessing
	return s, nil
}
