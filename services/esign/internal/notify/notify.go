// Package notify holds the outbound delivery collaborator. Real email/SMS
// delivery is owned by the platform's notification pipeline; this service
// only hands it the signing link.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/Blaineeey/Planning-Suite-sub000/services/esign/internal/esign"
)

// Log writes delivery intents as structured JSON lines. It stands in for
// the email/SMS channel in development and in tests.
type Log struct{}

func (Log) SignatureRequested(ctx context.Context, req esign.SignatureRequest, signingURL string) {
	emit("signature_request_sent", map[string]any{
		"signature_request_id": req.RequestID,
		"recipient_email":      req.RecipientEmail,
		"signature_url":        signingURL,
		"expires_at":           req.ExpiresAt.Format(time.RFC3339),
	})
}

func (Log) SignatureReminder(ctx context.Context, req esign.SignatureRequest) {
	emit("signature_reminder_sent", map[string]any{
		"signature_request_id": req.RequestID,
		"recipient_email":      req.RecipientEmail,
	})
}

func emit(event string, fields map[string]any) {
	entry := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "esign",
		"event":     event,
	}
	for k, v := range fields {
		entry[k] = v
	}
	b, _ := json.Marshal(entry)
	log.Println(string(b))
}
