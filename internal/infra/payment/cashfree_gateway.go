package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"trading-academy-platform/internal/domain/model"
	"trading-academy-platform/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*CashfreeGateway)(nil)

const cashfreeAPIVersion = "2023-08-01"

// CashfreeGateway talks to the Cashfree PG REST API directly. Orders return
// a payment_session_id consumed by the hosted checkout widget; the webhook
// endpoint settles them later.
type CashfreeGateway struct {
	appID     string
	secretKey string
	sandbox   bool
	baseURL   string
	returnURL string
	notifyURL string
	client    *http.Client
}

func NewCashfreeGateway(appID, secretKey string, sandbox bool, returnURL, notifyURL string) *CashfreeGateway {
	baseURL := "https://api.cashfree.com/pg"
	if sandbox {
		baseURL = "https://sandbox.cashfree.com/pg"
	}
	return &CashfreeGateway{
		appID:     appID,
		secretKey: secretKey,
		sandbox:   sandbox,
		baseURL:   baseURL,
		returnURL: returnURL,
		notifyURL: notifyURL,
		client:    &http.Client{},
	}
}

func (g *CashfreeGateway) Name() string { return "cashfree" }

type cashfreeOrderResponse struct {
	OrderID          string `json:"order_id"`
	OrderStatus      string `json:"order_status"`
	PaymentSessionID string `json:"payment_session_id"`
	Message          string `json:"message"`
	Code             string `json:"code"`
}

func (g *CashfreeGateway) CreateOrderSession(ctx context.Context, e *model.Enrollment) (*adapter.Session, error) {
	body := map[string]interface{}{
		"order_id":       e.OrderID,
		"order_amount":   float64(e.FinalAmount),
		"order_currency": "INR",
		"customer_details": map[string]string{
			"customer_id":    e.Email,
			"customer_name":  e.FullName,
			"customer_email": e.Email,
			"customer_phone": e.Phone,
		},
		"order_meta": map[string]string{
			"return_url": g.returnURL,
			"notify_url": g.notifyURL,
		},
		"order_note": e.ServiceName,
	}

	var resp cashfreeOrderResponse
	if err := g.post(ctx, "/orders", body, &resp); err != nil {
		return nil, err
	}
	if resp.PaymentSessionID == "" {
		return nil, fmt.Errorf("cashfree order %s: %s (%s)", e.OrderID, resp.Message, resp.Code)
	}
	return &adapter.Session{
		Provider:    g.Name(),
		OrderID:     e.OrderID,
		ClientToken: resp.PaymentSessionID,
	}, nil
}

type cashfreeSubscriptionResponse struct {
	SubscriptionID        string `json:"subscription_id"`
	SubscriptionSessionID string `json:"subscription_session_id"`
	Status                string `json:"subscription_status"`
	Message               string `json:"message"`
	Code                  string `json:"code"`
}

func (g *CashfreeGateway) CreateSubscriptionSession(ctx context.Context, plan *model.Plan, e *model.Enrollment) (*adapter.Session, error) {
	body := map[string]interface{}{
		"subscription_id": e.OrderID,
		"plan_details": map[string]interface{}{
			"plan_id":             plan.ID,
			"plan_name":           plan.ID,
			"plan_type":           "PERIODIC",
			"plan_currency":       "INR",
			"plan_recurring_amount": float64(e.FinalAmount),
			"plan_interval_type":  "MONTH",
			"plan_intervals":      plan.Cycle.Months(),
		},
		"customer_details": map[string]string{
			"customer_email": e.Email,
			"customer_name":  e.FullName,
		},
		"subscription_meta": map[string]string{
			"return_url": g.returnURL,
			"notify_url": g.notifyURL,
		},
	}

	var resp cashfreeSubscriptionResponse
	if err := g.post(ctx, "/subscriptions", body, &resp); err != nil {
		return nil, err
	}
	if resp.SubscriptionSessionID == "" {
		return nil, fmt.Errorf("cashfree subscription %s: %s (%s)", e.OrderID, resp.Message, resp.Code)
	}
	return &adapter.Session{
		Provider:    g.Name(),
		OrderID:     e.OrderID,
		ClientToken: resp.SubscriptionSessionID,
	}, nil
}

func (g *CashfreeGateway) VerifyOrder(ctx context.Context, orderID string) (adapter.OrderState, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/orders/"+orderID, nil)
	if err != nil {
		return adapter.OrderStatePending, "", fmt.Errorf("cashfree build request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return adapter.OrderStatePending, "", fmt.Errorf("cashfree get order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return adapter.OrderStatePending, "", fmt.Errorf("cashfree read response: %w", err)
	}
	var out struct {
		OrderStatus string `json:"order_status"`
		CFOrderID   string `json:"cf_order_id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return adapter.OrderStatePending, "", fmt.Errorf("cashfree parse response: %w, body: %s", err, string(raw))
	}
	switch out.OrderStatus {
	case "PAID":
		return adapter.OrderStatePaid, out.CFOrderID, nil
	case "EXPIRED", "TERMINATED":
		return adapter.OrderStateFailed, out.CFOrderID, nil
	default: // ACTIVE and transitional states
		return adapter.OrderStatePending, out.CFOrderID, nil
	}
}

func (g *CashfreeGateway) post(ctx context.Context, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("cashfree marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("cashfree build request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("cashfree send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("cashfree read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("cashfree parse response: %w, body: %s", err, string(raw))
	}
	return nil
}

func (g *CashfreeGateway) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", cashfreeAPIVersion)
	req.Header.Set("x-client-id", g.appID)
	req.Header.Set("x-client-secret", g.secretKey)
}
