package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// VerifyCashfreeWebhookSignature checks the x-webhook-signature header:
// base64(HMAC-SHA256(timestamp + raw body)) keyed with the webhook secret.
func VerifyCashfreeWebhookSignature(secret, timestamp string, body []byte, signature string) bool {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(timestamp))
	h.Write(body)
	expected := base64.StdEncoding.EncodeToString(h.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
