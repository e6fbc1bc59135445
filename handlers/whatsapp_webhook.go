package handlers

import (
	"ccjap_go/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// WhatsAppWebhookHandler receives inbound messages relayed by the n8n
// workflow (or posted directly by the provider). The endpoint is
// unauthenticated: the sender is correlated by phone number, never trusted
// for anything else.
type WhatsAppWebhookHandler struct {
	processor *services.WebhookProcessor
}

func NewWhatsAppWebhookHandler(processor *services.WebhookProcessor) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{processor: processor}
}

// HandleInbound processes POST /api/webhook/whatsapp.
// 400 means the payload could not be normalized; 500 means the raw message
// could not be persisted. Any failure after persistence still returns 200 so
// the relay does not retry a message we already stored.
func (h *WhatsAppWebhookHandler) HandleInbound(c *fiber.Ctx) error {
	in, err := services.NormalizeWebhookPayload(c.Body())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"error":   err.Error(),
		})
	}

	result, err := h.processor.ProcessInbound(c.Context(), in)
	if err != nil {
		logrus.WithError(err).Error("Failed to persist inbound WhatsApp message")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"success": false,
			"error":   "No se pudo guardar el mensaje",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"resultado": result,
	})
}
