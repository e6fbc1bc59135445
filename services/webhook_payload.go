package services

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// webhookEnvelope is the shape the n8n workflow forwards: the provider event
// wrapped under data.
type webhookEnvelope struct {
	Event string `json:"event"`
	Data  struct {
		From      string          `json:"from"`
		Body      string          `json:"body"`
		Timestamp json.RawMessage `json:"timestamp"`
	} `json:"data"`
}

// flatWebhookPayload is the shape posted when the provider is wired directly,
// without the workflow in between.
type flatWebhookPayload struct {
	From      string          `json:"from"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
}

var ErrUnsupportedPayload = errors.New("payload de webhook no reconocido: se requiere remitente y texto")

// NormalizeWebhookPayload accepts either payload shape and returns the
// canonical inbound message. Unknown envelope events (delivery receipts,
// presence updates) are rejected the same way as malformed bodies.
func NormalizeWebhookPayload(body []byte) (*InboundMessage, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Event == "message" {
		if env.Data.From != "" && env.Data.Body != "" {
			return &InboundMessage{
				From:      env.Data.From,
				Text:      env.Data.Body,
				Timestamp: parseWebhookTimestamp(env.Data.Timestamp),
			}, nil
		}
		return nil, ErrUnsupportedPayload
	}

	var flat flatWebhookPayload
	if err := json.Unmarshal(body, &flat); err == nil && flat.From != "" && flat.Text != "" {
		return &InboundMessage{
			From:      flat.From,
			Text:      flat.Text,
			Timestamp: parseWebhookTimestamp(flat.Timestamp),
		}, nil
	}

	return nil, ErrUnsupportedPayload
}

// parseWebhookTimestamp accepts the timestamp in either form providers send:
// unix seconds as a JSON number, or an RFC3339 string. Anything else falls
// back to the receipt time; a bad timestamp must never cost us the message.
func parseWebhookTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Now()
	}

	var unix int64
	if err := json.Unmarshal(raw, &unix); err == nil && unix > 0 {
		return time.Unix(unix, 0)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if parsed, err := time.Parse(time.RFC3339, strings.TrimSpace(s)); err == nil {
			return parsed
		}
	}

	return time.Now()
}
