package controllers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/services"
	"ccjap_go/utils"
)

// MensajeriaController exposes the recorded absences and WhatsApp traffic to
// the administration panel.
type MensajeriaController struct {
	wa      *services.WhatsAppService
	reports *services.ReportService
}

func NewMensajeriaController(wa *services.WhatsAppService, reports *services.ReportService) *MensajeriaController {
	return &MensajeriaController{wa: wa, reports: reports}
}

// scopedAbsenceQuery joins alumnos and applies the caller's visibility, same
// rules as the student listing.
func scopedAbsenceQuery(db *gorm.DB, claims *middleware.Claims) *gorm.DB {
	db = db.Joins("JOIN alumnos ON alumnos.id = ausencias.alumno_id")
	if claims.IsSuperadmin() {
		return db
	}
	db = db.Where("alumnos.institucion_id = ?", claims.InstitucionID)
	if claims.Rol == utils.RolDocente {
		db = db.Where("alumnos.maestro_id = ?", claims.UserID)
	}
	return db
}

// GetAusencias lists visible absences, newest first. Supports desde, hasta
// and justificada filters.
func (mc *MensajeriaController) GetAusencias(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	query := scopedAbsenceQuery(database.GetDB().Model(&models.Absence{}), claims).
		Preload("Alumno").Preload("Alumno.Maestro")

	if desde := c.Query("desde"); desde != "" {
		if d, err := time.Parse("2006-01-02", desde); err == nil {
			query = query.Where("ausencias.fecha >= ?", d)
		}
	}
	if hasta := c.Query("hasta"); hasta != "" {
		if h, err := time.Parse("2006-01-02", hasta); err == nil {
			query = query.Where("ausencias.fecha <= ?", h)
		}
	}
	if justificada := c.Query("justificada"); justificada != "" {
		query = query.Where("ausencias.justificada = ?", justificada == "true")
	}

	var ausencias []models.Absence
	if err := query.Order("ausencias.fecha DESC").Find(&ausencias).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar las ausencias"})
	}

	return c.JSON(fiber.Map{"ausencias": ausencias})
}

type JustificarAusenciaRequest struct {
	Justificada bool   `json:"justificada"`
	Motivo      string `json:"motivo"`
}

// JustificarAusencia toggles the justified flag on an absence within the
// caller's scope.
func (mc *MensajeriaController) JustificarAusencia(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var ausencia models.Absence
	if err := scopedAbsenceQuery(database.GetDB(), claims).
		Where("ausencias.id = ?", id).First(&ausencia).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Ausencia no encontrada"})
	}

	var req JustificarAusenciaRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}

	updates := map[string]interface{}{"justificada": req.Justificada}
	if req.Motivo != "" {
		updates["motivo"] = utils.SanitizeString(req.Motivo)
	}
	if err := database.GetDB().Model(&ausencia).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo actualizar la ausencia"})
	}

	middleware.LogActivity(c, "UPDATE", "ausencias", ausencia.ID, updates)

	return c.JSON(fiber.Map{"ausencia": ausencia})
}

// GetMensajes lists the tenant's WhatsApp traffic, newest first. Supports
// tipo, estado and telefono filters plus limit/offset paging.
func (mc *MensajeriaController) GetMensajes(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	query := database.GetDB().Model(&models.WhatsAppMessage{}).Preload("Alumno")
	if !claims.IsSuperadmin() {
		query = query.Where("institucion_id = ?", claims.InstitucionID)
	}
	if tipo := c.Query("tipo"); tipo != "" {
		query = query.Where("tipo_mensaje = ?", tipo)
	}
	if estado := c.Query("estado"); estado != "" {
		query = query.Where("estado = ?", estado)
	}
	if telefono := c.Query("telefono"); telefono != "" {
		query = query.Where("telefono_remitente = ?", services.NormalizeSender(telefono))
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los mensajes"})
	}

	var mensajes []models.WhatsAppMessage
	if err := query.Order("fecha_recepcion DESC").Limit(limit).Offset(offset).Find(&mensajes).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los mensajes"})
	}

	return c.JSON(fiber.Map{
		"mensajes": mensajes,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}

type ResponderMensajeRequest struct {
	MensajeID uint   `json:"mensaje_id" validate:"required"`
	Mensaje   string `json:"mensaje" validate:"required"`
}

// ResponderMensaje sends a manual reply to the sender of an inbound message
// and records the outbound message.
func (mc *MensajeriaController) ResponderMensaje(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	var req ResponderMensajeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Respuesta inválida",
			"detalle": utils.ValidationErrorMap(err),
		})
	}

	query := database.GetDB()
	if !claims.IsSuperadmin() {
		query = query.Where("institucion_id = ?", claims.InstitucionID)
	}
	var original models.WhatsAppMessage
	if err := query.First(&original, req.MensajeID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Mensaje no encontrado"})
	}

	settings := mc.wa.ResolveRelaySettings(original.InstitucionID)
	if !mc.wa.SendMessage(c.Context(), settings, original.TelefonoRemitente, req.Mensaje) {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "No se pudo entregar la respuesta"})
	}

	userID := claims.UserID
	respuesta := models.WhatsAppMessage{
		TelefonoRemitente: original.TelefonoRemitente,
		TextoMensaje:      req.Mensaje,
		FechaRecepcion:    time.Now(),
		Procesado:         true,
		TipoMensaje:       services.MessageTypeRespuesta,
		Estado:            models.MessageStateSent,
		InstitucionID:     original.InstitucionID,
		AlumnoID:          original.AlumnoID,
		UsuarioID:         &userID,
	}
	if err := database.GetDB().Create(&respuesta).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Respuesta enviada, pero no se pudo registrar"})
	}

	middleware.LogActivity(c, "REPLY", "mensajes_whatsapp", respuesta.ID, fiber.Map{"original_id": original.ID})

	return c.JSON(fiber.Map{"success": true, "mensaje": respuesta})
}

// ExportAusencias streams the caller's visible absences as an xlsx file.
func (mc *MensajeriaController) ExportAusencias(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	filter := services.AbsenceReportFilter{}
	if !claims.IsSuperadmin() {
		filter.InstitucionID = claims.InstitucionID
		if claims.Rol == utils.RolDocente {
			uid := claims.UserID
			filter.MaestroID = &uid
		}
	}
	if desde := c.Query("desde"); desde != "" {
		if d, err := time.Parse("2006-01-02", desde); err == nil {
			filter.Desde = &d
		}
	}
	if hasta := c.Query("hasta"); hasta != "" {
		if h, err := time.Parse("2006-01-02", hasta); err == nil {
			filter.Hasta = &h
		}
	}

	data, filename, err := mc.reports.BuildAbsenceReport(filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo generar el reporte"})
	}

	middleware.LogActivity(c, "EXPORT", "ausencias", 0, fiber.Map{"filename": filename})

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(data)
}
