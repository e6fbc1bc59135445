package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/services"
	"ccjap_go/utils"
)

// WaAPIController manages the per-tenant messaging configuration.
type WaAPIController struct {
	wa *services.WhatsAppService
}

func NewWaAPIController(wa *services.WhatsAppService) *WaAPIController {
	return &WaAPIController{wa: wa}
}

// resolveTenant picks the institution the request operates on: superadmins
// may target any tenant via institucion_id, everyone else is pinned to their
// own.
func resolveTenant(c *fiber.Ctx, claims *middleware.Claims) (*uint, error) {
	if claims.IsSuperadmin() {
		if id := c.QueryInt("institucion_id"); id > 0 {
			uid := uint(id)
			return &uid, nil
		}
		if claims.InstitucionID != nil {
			return claims.InstitucionID, nil
		}
		return nil, fiber.NewError(fiber.StatusBadRequest, "Debe indicar la institución")
	}
	if claims.InstitucionID == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "El usuario no pertenece a ninguna institución")
	}
	return claims.InstitucionID, nil
}

// GetConfig returns the tenant's messaging configuration, API key redacted.
func (wc *WaAPIController) GetConfig(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}
	institucionID, err := resolveTenant(c, claims)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var cfg models.WaAPIConfig
	if err := database.GetDB().Where("institucion_id = ?", *institucionID).First(&cfg).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "La institución no tiene configuración de mensajería"})
	}

	cfg.APIKey = redactKey(cfg.APIKey)
	cfg.N8NAPIKey = redactKey(cfg.N8NAPIKey)
	return c.JSON(fiber.Map{"config": cfg})
}

func redactKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

type UpsertWaAPIConfigRequest struct {
	APIKey                  string `json:"api_key" validate:"required"`
	PhoneNumber             string `json:"phone_number" validate:"required"`
	WebhookURL              string `json:"webhook_url" validate:"omitempty,url"`
	N8NURL                  string `json:"n8n_url" validate:"omitempty,url"`
	N8NAPIKey               string `json:"n8n_api_key"`
	RespuestaAutomatica     *bool  `json:"respuesta_automatica"`
	NotificarAusencias      *bool  `json:"notificar_ausencias"`
	NotificarCalificaciones *bool  `json:"notificar_calificaciones"`
	NotificarEventos        *bool  `json:"notificar_eventos"`
}

// UpsertConfig creates or replaces the tenant's messaging configuration.
func (wc *WaAPIController) UpsertConfig(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}
	institucionID, err := resolveTenant(c, claims)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var req UpsertWaAPIConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Configuración inválida",
			"detalle": utils.ValidationErrorMap(err),
		})
	}

	db := database.GetDB()
	var cfg models.WaAPIConfig
	isNew := db.Where("institucion_id = ?", *institucionID).First(&cfg).Error != nil

	cfg.InstitucionID = *institucionID
	cfg.APIKey = req.APIKey
	cfg.PhoneNumber = services.NormalizeSender(req.PhoneNumber)
	cfg.WebhookURL = req.WebhookURL
	cfg.N8NURL = req.N8NURL
	cfg.N8NAPIKey = req.N8NAPIKey
	cfg.RespuestaAutomatica = boolOrDefault(req.RespuestaAutomatica, true)
	cfg.NotificarAusencias = boolOrDefault(req.NotificarAusencias, true)
	cfg.NotificarCalificaciones = boolOrDefault(req.NotificarCalificaciones, false)
	cfg.NotificarEventos = boolOrDefault(req.NotificarEventos, false)

	if err := db.Save(&cfg).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo guardar la configuración"})
	}

	action := "UPDATE"
	status := fiber.StatusOK
	if isNew {
		action = "CREATE"
		status = fiber.StatusCreated
	}
	middleware.LogActivity(c, action, "waapi_config", cfg.ID, fiber.Map{"institucion_id": *institucionID})

	cfg.APIKey = redactKey(cfg.APIKey)
	cfg.N8NAPIKey = redactKey(cfg.N8NAPIKey)
	return c.Status(status).JSON(fiber.Map{"config": cfg})
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

type TestConnectionRequest struct {
	N8NURL    string `json:"n8n_url" validate:"omitempty,url"`
	N8NAPIKey string `json:"n8n_api_key"`
}

// overrideRelaySettings applies candidate credentials over the stored ones,
// so an operator can probe a configuration before saving it.
func overrideRelaySettings(settings services.RelaySettings, n8nURL, apiKey string) services.RelaySettings {
	if n8nURL != "" {
		settings.N8NURL = n8nURL
	}
	if apiKey != "" {
		settings.N8NAPIKey = apiKey
	}
	return settings
}

// TestConnection probes an n8n instance: the candidate credentials from the
// request body when given, the stored/tenant settings otherwise. Nothing is
// persisted.
func (wc *WaAPIController) TestConnection(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}
	institucionID, err := resolveTenant(c, claims)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var req TestConnectionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
		}
		if err := utils.ValidateStruct(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error":   "Credenciales de prueba inválidas",
				"detalle": utils.ValidationErrorMap(err),
			})
		}
	}

	settings := overrideRelaySettings(wc.wa.ResolveRelaySettings(institucionID), req.N8NURL, req.N8NAPIKey)
	if settings.N8NURL == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No hay URL de n8n configurada"})
	}

	if err := wc.wa.TestConnection(c.Context(), settings.N8NURL, settings.N8NAPIKey); err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}
	return c.JSON(fiber.Map{"success": true, "message": "Conexión con n8n verificada"})
}

type SendMessageRequest struct {
	Telefono string `json:"telefono" validate:"required"`
	Mensaje  string `json:"mensaje" validate:"required"`
}

// SendMessage sends an ad-hoc outbound message through the relay and records
// it.
func (wc *WaAPIController) SendMessage(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}
	institucionID, err := resolveTenant(c, claims)
	if err != nil {
		fe := err.(*fiber.Error)
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Datos de envío inválidos",
			"detalle": utils.ValidationErrorMap(err),
		})
	}

	settings := wc.wa.ResolveRelaySettings(institucionID)
	if !wc.wa.SendMessage(c.Context(), settings, req.Telefono, req.Mensaje) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo entregar el mensaje"})
	}

	userID := claims.UserID
	outbound := models.WhatsAppMessage{
		TelefonoRemitente: services.NormalizeSender(req.Telefono),
		TextoMensaje:      req.Mensaje,
		FechaRecepcion:    time.Now(),
		Procesado:         true,
		TipoMensaje:       services.MessageTypeRespuesta,
		Estado:            models.MessageStateSent,
		InstitucionID:     institucionID,
		UsuarioID:         &userID,
	}
	if err := database.GetDB().Create(&outbound).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Mensaje enviado, pero no se pudo registrar"})
	}

	middleware.LogActivity(c, "SEND", "mensajes_whatsapp", outbound.ID, nil)

	return c.JSON(fiber.Map{"success": true, "mensaje": outbound})
}
