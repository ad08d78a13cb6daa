package web

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"

	"trading-academy-platform/internal/domain"
	"trading-academy-platform/internal/infra/metrics"
	"trading-academy-platform/internal/infra/payment"
)

const maxWebhookBody = 1 << 20 // providers send small JSON payloads

// stripeWebhookHandler verifies the stripe-signature header and feeds the
// event to the reconciler. A processing error answers 5xx so Stripe
// redelivers; the reconciler absorbs the resulting duplicates.
func (s *Server) stripeWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "Failed to read body", http.StatusBadRequest)
			return
		}

		event, err := webhook.ConstructEvent(body, r.Header.Get("Stripe-Signature"), s.secrets.Stripe)
		if err != nil {
			metrics.IncWebhookRejected("stripe", "bad_signature")
			s.log.Warn().Err(err).Msg("stripe webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		if err := s.handleStripeEvent(ctx, event); err != nil {
			metrics.IncWebhookDelivery("stripe", "error")
			s.log.Error().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("stripe event processing failed")
			http.Error(w, "Processing failed", http.StatusInternalServerError)
			return
		}

		metrics.IncWebhookDelivery("stripe", "processed")
		writeJSON(w, http.StatusOK, struct {
			Received bool `json:"received"`
		}{true})
	}
}

func (s *Server) handleStripeEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return err
		}
		orderID := pi.Metadata["order_id"]
		if orderID == "" {
			// payment intents minted by Stripe itself (subscription
			// invoices) carry no order id; the invoice event covers those
			s.log.Debug().Str("payment_intent", pi.ID).Msg("payment intent without order id, skipping")
			return nil
		}
		return s.reconcileUC.PaymentSucceeded(ctx, "stripe", event.ID, orderID, pi.ID)

	case "payment_intent.payment_failed", "payment_intent.canceled":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return err
		}
		orderID := pi.Metadata["order_id"]
		if orderID == "" {
			return nil
		}
		userDropped := event.Type == "payment_intent.canceled"
		return s.reconcileUC.PaymentFailed(ctx, "stripe", event.ID, orderID, userDropped)

	case "invoice.payment_succeeded":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Subscription == nil {
			return nil
		}
		subID := inv.Subscription.ID
		if inv.BillingReason == stripe.InvoiceBillingReasonSubscriptionCreate {
			return s.activateStripeSubscription(ctx, event.ID, subID, subscriptionDetailsMetadata(&inv))
		}
		paidAt := time.Unix(inv.Created, 0)
		if inv.StatusTransitions != nil && inv.StatusTransitions.PaidAt > 0 {
			paidAt = time.Unix(inv.StatusTransitions.PaidAt, 0)
		}
		return s.reconcileUC.RenewalSucceeded(ctx, "stripe", event.ID, subID, paidAt)

	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Subscription == nil {
			return nil
		}
		return s.reconcileUC.RenewalFailed(ctx, "stripe", event.ID, inv.Subscription.ID)

	case "customer.subscription.created":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Status != stripe.SubscriptionStatusActive {
			// default_incomplete subscriptions activate via their first
			// paid invoice
			return nil
		}
		return s.activateStripeSubscription(ctx, event.ID, sub.ID, sub.Metadata)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.reconcileUC.SubscriptionCancelled(ctx, "stripe", event.ID, sub.ID)

	default:
		s.log.Debug().Str("event_type", string(event.Type)).Msg("unhandled stripe event type")
		return nil
	}
}

// activateStripeSubscription completes the originating order and records
// the subscription. The purchaser's identity comes from the pending
// enrollment row keyed by the order id we stamped into the metadata.
func (s *Server) activateStripeSubscription(ctx context.Context, eventID, subID string, metadata map[string]string) error {
	orderID := metadata["order_id"]
	planID := metadata["plan_id"]
	if orderID == "" || planID == "" {
		s.log.Warn().Str("subscription", subID).Msg("stripe subscription without checkout metadata, skipping")
		return nil
	}
	order, err := s.checkoutUC.OrderStatus(ctx, orderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Warn().Str("order_id", orderID).Msg("stripe subscription references unknown order")
			return nil
		}
		return err
	}
	if err := s.reconcileUC.PaymentSucceeded(ctx, "stripe", eventID+":order", orderID, subID); err != nil {
		return err
	}
	return s.reconcileUC.SubscriptionActivated(ctx, "stripe", eventID+":sub", subID, planID, order.Email, order.FullName)
}

func subscriptionDetailsMetadata(inv *stripe.Invoice) map[string]string {
	if inv.SubscriptionDetails != nil && inv.SubscriptionDetails.Metadata != nil {
		return inv.SubscriptionDetails.Metadata
	}
	return map[string]string{}
}

type cashfreeEnvelope struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			CFPaymentID   json.Number `json:"cf_payment_id"`
			PaymentStatus string      `json:"payment_status"`
		} `json:"payment"`
		Subscription struct {
			SubscriptionID  string `json:"subscription_id"`
			PlanID          string `json:"plan_id"`
			CustomerDetails struct {
				Email string `json:"customer_email"`
				Name  string `json:"customer_name"`
			} `json:"customer_details"`
		} `json:"subscription"`
	} `json:"data"`
}

// cashfreeWebhookHandler verifies the x-webhook-signature header
// (base64 HMAC-SHA256 over timestamp+body) before dispatching.
func (s *Server) cashfreeWebhookHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "Failed to read body", http.StatusBadRequest)
			return
		}

		timestamp := r.Header.Get("x-webhook-timestamp")
		signature := r.Header.Get("x-webhook-signature")
		if !payment.VerifyCashfreeWebhookSignature(s.secrets.Cashfree, timestamp, body, signature) {
			metrics.IncWebhookRejected("cashfree", "bad_signature")
			s.log.Warn().Msg("cashfree webhook signature verification failed")
			http.Error(w, "Invalid signature", http.StatusUnauthorized)
			return
		}

		var env cashfreeEnvelope
		if err := json.Unmarshal(body, &env); err != nil {
			metrics.IncWebhookRejected("cashfree", "bad_payload")
			http.Error(w, "Invalid payload", http.StatusBadRequest)
			return
		}

		eventID := r.Header.Get("x-idempotency-key")
		if eventID == "" {
			sum := sha256.Sum256(body)
			eventID = hex.EncodeToString(sum[:])
		}

		if err := s.handleCashfreeEvent(ctx, eventID, &env); err != nil {
			metrics.IncWebhookDelivery("cashfree", "error")
			s.log.Error().Err(err).Str("event_id", eventID).Str("event_type", env.Type).Msg("cashfree event processing failed")
			http.Error(w, "Processing failed", http.StatusInternalServerError)
			return
		}

		metrics.IncWebhookDelivery("cashfree", "processed")
		writeJSON(w, http.StatusOK, struct {
			Success bool `json:"success"`
		}{true})
	}
}

func (s *Server) handleCashfreeEvent(ctx context.Context, eventID string, env *cashfreeEnvelope) error {
	switch env.Type {
	case "PAYMENT_SUCCESS_WEBHOOK":
		return s.reconcileUC.PaymentSucceeded(ctx, "cashfree", eventID,
			env.Data.Order.OrderID, env.Data.Payment.CFPaymentID.String())
	case "PAYMENT_FAILED_WEBHOOK":
		return s.reconcileUC.PaymentFailed(ctx, "cashfree", eventID, env.Data.Order.OrderID, false)
	case "PAYMENT_USER_DROPPED_WEBHOOK":
		return s.reconcileUC.PaymentFailed(ctx, "cashfree", eventID, env.Data.Order.OrderID, true)
	case "SUBSCRIPTION_ACTIVATED":
		sub := env.Data.Subscription
		// The pending enrollment row shares its order id with the provider
		// subscription id. Settle the order first, then record the
		// subscription, under distinct ledger keys.
		if err := s.reconcileUC.PaymentSucceeded(ctx, "cashfree", eventID+":order",
			sub.SubscriptionID, sub.SubscriptionID); err != nil {
			return err
		}
		return s.reconcileUC.SubscriptionActivated(ctx, "cashfree", eventID+":sub",
			sub.SubscriptionID, sub.PlanID, sub.CustomerDetails.Email, sub.CustomerDetails.Name)
	case "SUBSCRIPTION_PAYMENT_SUCCESS":
		paidAt := time.Now()
		if ts, err := time.Parse(time.RFC3339, env.EventTime); err == nil {
			paidAt = ts
		} else if unix, err := strconv.ParseInt(env.EventTime, 10, 64); err == nil {
			paidAt = time.Unix(unix, 0)
		}
		return s.reconcileUC.RenewalSucceeded(ctx, "cashfree", eventID, env.Data.Subscription.SubscriptionID, paidAt)
	case "SUBSCRIPTION_PAYMENT_FAILED":
		return s.reconcileUC.RenewalFailed(ctx, "cashfree", eventID, env.Data.Subscription.SubscriptionID)
	case "SUBSCRIPTION_CANCELLED":
		return s.reconcileUC.SubscriptionCancelled(ctx, "cashfree", eventID, env.Data.Subscription.SubscriptionID)
	default:
		s.log.Debug().Str("event_type", env.Type).Msg("unhandled cashfree event type")
		return nil
	}
}
