package services

import (
	"testing"
	"time"
)

func TestNormalizeWebhookPayload(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		wantFrom string
		wantText string
		wantErr  bool
	}{
		{
			name:     "n8n envelope",
			body:     `{"event":"message","data":{"from":"50370123456@c.us","body":"Juan no podrá ir hoy","timestamp":1735689600}}`,
			wantFrom: "50370123456@c.us",
			wantText: "Juan no podrá ir hoy",
		},
		{
			name:     "flat payload",
			body:     `{"from":"50370123456","text":"consulta de tarea","timestamp":"2025-01-01T08:00:00Z"}`,
			wantFrom: "50370123456",
			wantText: "consulta de tarea",
		},
		{
			name:     "flat payload without timestamp",
			body:     `{"from":"50370123456","text":"hola"}`,
			wantFrom: "50370123456",
			wantText: "hola",
		},
		{
			name:     "flat payload with unix timestamp",
			body:     `{"from":"50370000000","text":"no podrá ir hoy","timestamp":1700000000}`,
			wantFrom: "50370000000",
			wantText: "no podrá ir hoy",
		},
		{
			name:     "flat payload with unreadable timestamp",
			body:     `{"from":"50370123456","text":"hola","timestamp":"ayer"}`,
			wantFrom: "50370123456",
			wantText: "hola",
		},
		{
			name:     "envelope with string timestamp",
			body:     `{"event":"message","data":{"from":"50370123456","body":"hola","timestamp":"2025-06-01T10:30:00Z"}}`,
			wantFrom: "50370123456",
			wantText: "hola",
		},
		{
			name:    "envelope with non-message event",
			body:    `{"event":"ack","data":{"from":"50370123456","body":"x"}}`,
			wantErr: true,
		},
		{
			name:    "envelope missing body",
			body:    `{"event":"message","data":{"from":"50370123456"}}`,
			wantErr: true,
		},
		{
			name:    "missing sender",
			body:    `{"text":"hola"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `hello`,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NormalizeWebhookPayload([]byte(tc.body))
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.From != tc.wantFrom {
				t.Errorf("From = %q, want %q", got.From, tc.wantFrom)
			}
			if got.Text != tc.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tc.wantText)
			}
			if got.Timestamp.IsZero() {
				t.Error("Timestamp should never be zero")
			}
		})
	}
}

func TestNormalizeWebhookPayloadTimestamps(t *testing.T) {
	in, err := NormalizeWebhookPayload([]byte(`{"event":"message","data":{"from":"503","body":"x","timestamp":1735689600}}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := in.Timestamp.Unix(); got != 1735689600 {
		t.Errorf("unix timestamp = %d, want 1735689600", got)
	}

	// Both shapes accept both timestamp forms.
	in, err = NormalizeWebhookPayload([]byte(`{"from":"503","text":"x","timestamp":1700000000}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := in.Timestamp.Unix(); got != 1700000000 {
		t.Errorf("flat unix timestamp = %d, want 1700000000", got)
	}

	in, err = NormalizeWebhookPayload([]byte(`{"from":"503","text":"x","timestamp":"2025-06-01T10:30:00Z"}`))
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC)
	if !in.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", in.Timestamp, want)
	}
}
