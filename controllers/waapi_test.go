package controllers

import (
	"testing"

	"ccjap_go/services"
)

func TestOverrideRelaySettings(t *testing.T) {
	stored := services.RelaySettings{
		N8NURL:    "https://n8n.colegio.edu.sv",
		N8NAPIKey: "clave-guardada",
		APIKey:    "waapi-guardada",
	}

	t.Run("empty body keeps stored settings", func(t *testing.T) {
		got := overrideRelaySettings(stored, "", "")
		if got != stored {
			t.Errorf("got %+v, want stored settings unchanged", got)
		}
	})

	t.Run("candidate url replaces stored url only", func(t *testing.T) {
		got := overrideRelaySettings(stored, "https://n8n-staging.colegio.edu.sv", "")
		if got.N8NURL != "https://n8n-staging.colegio.edu.sv" {
			t.Errorf("N8NURL = %q, want candidate url", got.N8NURL)
		}
		if got.N8NAPIKey != stored.N8NAPIKey {
			t.Errorf("N8NAPIKey = %q, want stored key kept", got.N8NAPIKey)
		}
	})

	t.Run("candidate credentials replace both", func(t *testing.T) {
		got := overrideRelaySettings(stored, "https://n8n-staging.colegio.edu.sv", "clave-nueva")
		if got.N8NURL != "https://n8n-staging.colegio.edu.sv" || got.N8NAPIKey != "clave-nueva" {
			t.Errorf("got %+v, want both candidate values applied", got)
		}
		if got.APIKey != stored.APIKey {
			t.Errorf("APIKey = %q, want direct-send key untouched", got.APIKey)
		}
	})

	t.Run("candidate url works without stored config", func(t *testing.T) {
		got := overrideRelaySettings(services.RelaySettings{}, "https://n8n.colegio.edu.sv", "clave")
		if got.N8NURL == "" || got.N8NAPIKey == "" {
			t.Errorf("got %+v, want candidate credentials usable on their own", got)
		}
	})
}
