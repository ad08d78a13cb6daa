package web

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/domain/flow"
	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/infra/logging"
)

type startCheckoutRequest struct {
	SessionID     string                  `json:"session_id"`
	ServiceName   string                  `json:"service_name"`
	Authenticated bool                    `json:"authenticated"`
	Contact       *model.RegistrationForm `json:"contact,omitempty"` // profile of an authenticated caller
}

type checkoutEventRequest struct {
	Action      string                  `json:"action"`
	Form        *model.RegistrationForm `json:"form,omitempty"`
	PlatformIDs []string                `json:"platform_ids,omitempty"`
	PlanID      string                  `json:"plan_id,omitempty"`
	PromoCode   string                  `json:"promo_code,omitempty"`
}

type payRequest struct {
	Provider      string `json:"provider"`
	PaymentMethod string `json:"payment_method"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) startEnrollmentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req startCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		state, err := s.checkoutUC.StartEnrollment(ctx, req.SessionID, req.ServiceName)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Unknown course", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to start checkout", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			SessionID string      `json:"session_id"`
			State     *flow.State `json:"state"`
		}{req.SessionID, state})
	}
}

func (s *Server) startSubscriptionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req startCheckoutRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.SessionID == "" {
			req.SessionID = uuid.NewString()
		}

		var contact *model.RegistrationForm
		if req.Authenticated {
			contact = req.Contact
		}
		state, err := s.checkoutUC.StartSubscription(ctx, req.SessionID, req.ServiceName, req.Authenticated, contact)
		if err != nil {
			http.Error(w, "Failed to start checkout", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			SessionID string      `json:"session_id"`
			State     *flow.State `json:"state"`
		}{req.SessionID, state})
	}
}

// applyEventHandler advances the checkout wizard. Validation outcomes
// (field errors, unknown promo) come back as 422 with the updated state so
// the client can render them; only transport-level problems are plain
// errors.
func (s *Server) applyEventHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := chi.URLParam(r, "sessionID")

		var req checkoutEventRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		ev, err := eventFromRequest(req)
		if err != nil {
			http.Error(w, "Unknown action", http.StatusBadRequest)
			return
		}

		state, err := s.checkoutUC.Apply(ctx, sessionID, ev)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, state)
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Checkout session not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidTransition):
			http.Error(w, "Action not allowed on this step", http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownPromoCode):
			writeJSON(w, http.StatusUnprocessableEntity, state)
		default:
			http.Error(w, "Failed to apply action", http.StatusInternalServerError)
		}
	}
}

func eventFromRequest(req checkoutEventRequest) (flow.Event, error) {
	switch req.Action {
	case "confirm":
		return flow.Confirm{}, nil
	case "back":
		return flow.Back{}, nil
	case "register":
		var form model.RegistrationForm
		if req.Form != nil {
			form = *req.Form
		}
		return flow.SubmitRegistration{Form: form}, nil
	case "platforms":
		return flow.SelectPlatforms{IDs: req.PlatformIDs}, nil
	case "plan":
		return flow.SelectPlan{PlanID: req.PlanID}, nil
	case "promo":
		return flow.ApplyPromo{Code: req.PromoCode}, nil
	case "promo_remove":
		return flow.RemovePromo{}, nil
	default:
		return nil, domain.ErrInvalidArgument
	}
}

func (s *Server) payHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := chi.URLParam(r, "sessionID")

		var req payRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		state, session, err := s.checkoutUC.Pay(ctx, sessionID, req.Provider, req.PaymentMethod)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, struct {
				State       *flow.State `json:"state"`
				Provider    string      `json:"provider"`
				OrderID     string      `json:"order_id"`
				ClientToken string      `json:"client_token"`
			}{state, session.Provider, session.OrderID, session.ClientToken})
		case errors.Is(err, domain.ErrNotFound):
			http.Error(w, "Checkout session not found", http.StatusNotFound)
		case errors.Is(err, domain.ErrInvalidTransition):
			http.Error(w, "Checkout is not ready for payment", http.StatusConflict)
		case errors.Is(err, domain.ErrInvalidArgument):
			http.Error(w, "Unknown payment provider", http.StatusBadRequest)
		default:
			s.log.Error().Err(err).Str("session_id", sessionID).Msg("payment session creation failed")
			http.Error(w, "Failed to create payment session", http.StatusBadGateway)
		}
	}
}

func (s *Server) flowStateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sessionID := chi.URLParam(r, "sessionID")

		state, err := s.checkoutUC.SyncProcessing(ctx, sessionID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "Checkout session not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to read checkout state", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, state)
	}
}

// orderStatusHandler is the polling target for the processing step. Status
// only ever changes through the webhook reconciler; the client reads, it
// never finalizes.
func (s *Server) orderStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		orderID := chi.URLParam(r, "orderID")

		e, err := s.checkoutUC.OrderStatus(ctx, orderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get order", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, struct {
			OrderID     string `json:"order_id"`
			Status      string `json:"status"`
			ServiceName string `json:"service_name"`
			FinalAmount int64  `json:"final_amount"`
		}{e.OrderID, string(e.Status), e.ServiceName, e.FinalAmount})
	}
}

func (s *Server) leadHandler() http.HandlerFunc {
	type leadRequest struct {
		FullName string `json:"full_name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Source   string `json:"source"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req leadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		lead, err := s.leadUC.Capture(ctx, req.FullName, req.Email, req.Phone, req.Source)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "Email or phone is required", http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to capture lead", http.StatusInternalServerError)
			return
		}

		logging.With(ctx, s.log).Info().
			Str("lead_id", lead.ID).
			Str("email", logging.Redact(req.Email, s.dev)).
			Str("source", req.Source).
			Msg("Lead captured")

		writeJSON(w, http.StatusCreated, struct {
			ID string `json:"id"`
		}{lead.ID})
	}
}

func (s *Server) adminLoginHandler() http.HandlerFunc {
	type loginRequest struct {
		Key string `json:"key"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminKey == "" {
			http.Error(w, "Admin login disabled", http.StatusForbidden)
			return
		}

		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if subtle.ConstantTimeCompare([]byte(req.Key), []byte(s.adminKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if _, err := s.auth.Mint(w); err != nil {
			s.log.Error().Err(err).Msg("Failed to mint admin session")
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) adminLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) sendNotificationHandler() http.HandlerFunc {
	type sendRequest struct {
		TemplateKey string            `json:"template_key"`
		To          string            `json:"to"`
		Variables   map[string]string `json:"variables"`
		UserID      string            `json:"user_id"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.TemplateKey == "" || req.To == "" {
			http.Error(w, "template_key and to are required", http.StatusBadRequest)
			return
		}

		vars := req.Variables
		if req.UserID != "" {
			if vars == nil {
				vars = map[string]string{}
			}
			vars["user_id"] = req.UserID
		}

		msgID, err := s.notifUC.Dispatch(ctx, req.TemplateKey, req.To, vars)
		if err != nil {
			if errors.Is(err, domain.ErrTemplateNotFound) {
				http.Error(w, "Unknown template", http.StatusNotFound)
				return
			}
			writeJSON(w, http.StatusBadGateway, struct {
				Success bool   `json:"success"`
				Error   string `json:"error"`
			}{false, "email delivery failed"})
			return
		}

		writeJSON(w, http.StatusOK, struct {
			Success   bool   `json:"success"`
			MessageID string `json:"message_id"`
		}{true, msgID})
	}
}
