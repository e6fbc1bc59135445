package services

import (
	"bytes"
	"ccjap_go/config"
	"ccjap_go/database"
	"ccjap_go/models"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"github.com/sirupsen/logrus"
)

// WhatsAppService delivers outbound messages. Primary transport is the n8n
// workflow server; on failure it falls back to the WaAPI HTTP API directly.
type WhatsAppService struct {
	httpClient *http.Client
	cfg        *config.Config
}

// RelaySettings are the resolved credentials for one tenant. Tenant-level
// values from waapi_config override the process-wide defaults.
type RelaySettings struct {
	N8NURL    string
	N8NAPIKey string
	APIKey    string
}

func NewWhatsAppService() *WhatsAppService {
	return &WhatsAppService{
		httpClient: &http.Client{Timeout: config.AppConfig.RelayTimeout},
		cfg:        config.AppConfig,
	}
}

// ResolveRelaySettings loads the tenant's messaging configuration, falling
// back to environment defaults where the tenant has none.
func (s *WhatsAppService) ResolveRelaySettings(institucionID *uint) RelaySettings {
	settings := RelaySettings{
		N8NURL:    s.cfg.N8NBaseURL,
		N8NAPIKey: s.cfg.N8NAPIKey,
	}
	if institucionID == nil {
		return settings
	}

	var waCfg models.WaAPIConfig
	if err := database.DB.Where("institucion_id = ?", *institucionID).First(&waCfg).Error; err != nil {
		return settings
	}
	if waCfg.N8NURL != "" {
		settings.N8NURL = waCfg.N8NURL
	}
	if waCfg.N8NAPIKey != "" {
		settings.N8NAPIKey = waCfg.N8NAPIKey
	}
	settings.APIKey = waCfg.APIKey
	return settings
}

// NormalizeSender strips everything but digits from an inbound phone number
// so correlation against stored guardian phones is format-insensitive.
func NormalizeSender(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatInternational converts a phone number to international digits-only
// format, prefixing the default country code when absent. Salvadoran local
// numbers are 8 digits; anything longer already carries a country code.
func FormatInternational(phone, countryCode string) string {
	digits := NormalizeSender(phone)
	if strings.HasPrefix(digits, countryCode) || len(digits) > 8 {
		return digits
	}
	return countryCode + digits
}

// SendMessage delivers a WhatsApp message to telefono. Returns whether the
// message was (or can be treated as) delivered. Failures are logged, never
// escalated: callers record the boolean and move on.
func (s *WhatsAppService) SendMessage(ctx context.Context, settings RelaySettings, telefono, mensaje string) bool {
	destino := FormatInternational(telefono, s.cfg.DefaultCountryCode)

	if settings.N8NURL != "" {
		err := s.postJSON(ctx, settings.N8NURL+"/webhook/enviar-whatsapp", settings.N8NAPIKey, map[string]string{
			"telefono": destino,
			"mensaje":  mensaje,
		})
		if err == nil {
			return true
		}
		logrus.WithError(err).Warn("n8n relay failed, trying WaAPI directly")
	}

	if settings.APIKey != "" {
		err := s.postWaAPI(ctx, settings.APIKey, destino, mensaje)
		if err == nil {
			return true
		}
		logrus.WithError(err).Error("Direct WaAPI call failed")
	}

	if s.simulationEnabled() {
		logrus.WithField("telefono", destino).Warn("Simulating WhatsApp delivery (SIMULATE_WHATSAPP)")
		return true
	}
	return false
}

// NotifyTeacher posts a teacher notification through the n8n workflow.
// ausenciaID is zero for query notifications.
func (s *WhatsAppService) NotifyTeacher(ctx context.Context, settings RelaySettings, email, nombreMaestro, nombreAlumno, mensaje string, ausenciaID uint, tipo string) bool {
	if settings.N8NURL == "" {
		return s.simulationEnabled()
	}

	payload := map[string]interface{}{
		"email":         email,
		"nombreMaestro": nombreMaestro,
		"nombreAlumno":  nombreAlumno,
		"mensaje":       mensaje,
		"tipo":          tipo,
	}
	if ausenciaID != 0 {
		payload["ausenciaId"] = ausenciaID
	}

	if err := s.postJSON(ctx, settings.N8NURL+"/webhook/notificar-maestro", settings.N8NAPIKey, payload); err != nil {
		logrus.WithError(err).Error("Failed to notify teacher through n8n")
		return s.simulationEnabled()
	}
	return true
}

// TestConnection checks reachability and authentication of an n8n endpoint
// without persisting anything.
func (s *WhatsAppService) TestConnection(ctx context.Context, n8nURL, apiKey string) error {
	if n8nURL == "" {
		return fmt.Errorf("no hay URL de n8n configurada")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(n8nURL, "/")+"/healthz", nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("X-N8N-API-KEY", apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("no se pudo conectar con n8n: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("n8n respondió con estado %d", resp.StatusCode)
	}
	return nil
}

func (s *WhatsAppService) simulationEnabled() bool {
	return s.cfg.SimulateWhatsApp && !s.cfg.IsProduction()
}

func (s *WhatsAppService) postJSON(ctx context.Context, url, apiKey string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-N8N-API-KEY", apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("relay respondió con estado %d", resp.StatusCode)
	}
	return nil
}

func (s *WhatsAppService) postWaAPI(ctx context.Context, apiKey, destino, mensaje string) error {
	body, err := json.Marshal(map[string]string{
		"id":      destino,
		"message": mensaje,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WaAPIBaseURL+"/api/send/text", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var result struct {
		Success bool `json:"success"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("WaAPI reportó fallo de envío")
	}
	return nil
}
