package helpscout

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"strings"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-HelpScout-Signature"

// EventHeader names the webhook event type
const EventHeader = "X-HelpScout-Event"

// Sign returns the base64 HMAC-SHA1 of body keyed by secret
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether signature matches body under secret
func VerifySignature(body []byte, signature, secret string) bool {
	signature = strings.TrimSpace(signature)
	if secret == "" || signature == "" {
		return false
	}
	return hmac.Equal([]byte(Sign(body, secret)), []byte(signature))
}

// WebhookEvent is the part of a webhook payload used for routing
type WebhookEvent struct {
	ID        int64 `json:"id"`
	MailboxID int64 `json:"mailboxId"`
}

// ProcessedEvents are the webhook events that can carry new customer content
var ProcessedEvents = map[string]bool{
	"convo.created":                true,
	"convo.customer.reply.created": true,
}
