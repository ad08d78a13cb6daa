package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"trading-academy-platform/internal/domain/ports/adapter"
)

var _ adapter.Mailer = (*ResendMailer)(nil)

const resendEndpoint = "https://api.resend.com/emails"

// ResendMailer sends transactional mail through the Resend REST API. One
// message per call; retry policy lives with the caller (the email job
// worker), not here.
type ResendMailer struct {
	apiKey string
	client *http.Client
}

func NewResendMailer(apiKey string) *ResendMailer {
	return &ResendMailer{apiKey: apiKey, client: &http.Client{}}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Name    string `json:"name"`
}

func (m *ResendMailer) Send(ctx context.Context, msg adapter.OutboundEmail) (string, error) {
	payload := resendRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("resend marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, resendEndpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("resend build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("resend send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("resend read response: %w", err)
	}
	var out resendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("resend parse response: %w, body: %s", err, string(raw))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("resend error %d: %s %s", resp.StatusCode, out.Name, out.Message)
	}
	if out.ID == "" {
		return "", fmt.Errorf("resend returned no message id, body: %s", string(raw))
	}
	return out.ID, nil
}
