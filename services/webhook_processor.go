package services

import (
	"ccjap_go/database"
	"ccjap_go/models"
	"ccjap_go/services/websocket"
	"ccjap_go/utils"
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InboundMessage is the canonical form every webhook payload shape is
// normalized to before processing.
type InboundMessage struct {
	From      string
	Text      string
	Timestamp time.Time
}

// ProcessResult summarizes what happened to one inbound message.
type ProcessResult struct {
	MensajeID  uint   `json:"mensaje_id"`
	Tipo       string `json:"tipo"`
	Procesado  bool   `json:"procesado"`
	Motivo     string `json:"motivo,omitempty"`
	AusenciaID uint   `json:"ausencia_id,omitempty"`
	AlumnoID   uint   `json:"alumno_id,omitempty"`
}

// WebhookProcessor runs the intake flow: persist raw message, classify,
// correlate, record, dispatch.
type WebhookProcessor struct {
	db  *gorm.DB
	wa  *WhatsAppService
	hub *websocket.Hub
}

func NewWebhookProcessor(wa *WhatsAppService, hub *websocket.Hub) *WebhookProcessor {
	return &WebhookProcessor{db: database.GetDB(), wa: wa, hub: hub}
}

// ProcessInbound handles one normalized inbound message. The raw message row
// is written first and is never rolled back: classification or dispatch
// failures mark it estado Error but the text is always retained.
func (p *WebhookProcessor) ProcessInbound(ctx context.Context, in *InboundMessage) (*ProcessResult, error) {
	sender := NormalizeSender(in.From)

	msg := models.WhatsAppMessage{
		TelefonoRemitente: sender,
		TextoMensaje:      in.Text,
		FechaRecepcion:    in.Timestamp,
		Estado:            models.MessageStateReceived,
	}
	if err := p.db.Create(&msg).Error; err != nil {
		return nil, fmt.Errorf("no se pudo guardar el mensaje entrante: %w", err)
	}

	result := p.process(ctx, &msg, sender)

	updates := map[string]interface{}{
		"tipo_mensaje": result.Tipo,
		"procesado":    result.Procesado,
		"estado":       models.MessageStateProcessed,
	}
	if !result.Procesado && result.Tipo != MessageTypeOtro {
		updates["estado"] = models.MessageStateError
	}
	if result.AlumnoID != 0 {
		updates["alumno_id"] = result.AlumnoID
	}
	if msg.InstitucionID != nil {
		updates["institucion_id"] = *msg.InstitucionID
	}
	if err := p.db.Model(&msg).Updates(updates).Error; err != nil {
		logrus.WithError(err).Error("Failed to update inbound message state")
	}

	if p.hub != nil {
		p.hub.BroadcastToTenant(msg.InstitucionID, websocket.Event{Type: "mensaje_whatsapp", Data: msg})
	}

	return result, nil
}

func (p *WebhookProcessor) process(ctx context.Context, msg *models.WhatsAppMessage, sender string) *ProcessResult {
	result := &ProcessResult{MensajeID: msg.ID, Tipo: ClassifyMessage(msg.TextoMensaje)}

	switch result.Tipo {
	case MessageTypeAusencia:
		p.processAbsence(ctx, msg, sender, result)
	case MessageTypeConsulta:
		p.processQuery(ctx, msg, sender, result)
	default:
		// Nothing to do beyond retaining the raw message.
	}
	return result
}

// findStudentByGuardianPhone correlates the sender to an Active student.
func (p *WebhookProcessor) findStudentByGuardianPhone(sender string) (*models.Student, error) {
	var student models.Student
	err := p.db.Preload("Maestro").
		Where("telefono_responsable_principal = ? AND estado = ?", sender, "Activo").
		First(&student).Error
	if err != nil {
		return nil, err
	}
	return &student, nil
}

func (p *WebhookProcessor) processAbsence(ctx context.Context, msg *models.WhatsAppMessage, sender string, result *ProcessResult) {
	student, err := p.findStudentByGuardianPhone(sender)
	if err != nil {
		result.Motivo = "No se encontró alumno asociado a este número de teléfono"
		return
	}
	result.AlumnoID = student.ID
	msg.InstitucionID = student.InstitucionID

	today := dateOnly(time.Now())
	mensajeID := msg.ID
	absence := models.Absence{
		AlumnoID:  student.ID,
		Fecha:     today,
		Motivo:    msg.TextoMensaje,
		MensajeID: &mensajeID,
	}

	alreadyRecorded, insertErr := resolveAbsenceInsert(p.db.Create(&absence).Error)
	if insertErr != nil {
		logrus.WithError(insertErr).Error("Failed to insert absence")
		result.Motivo = "No se pudo registrar la ausencia"
		return
	}
	if alreadyRecorded {
		if err := p.db.Where("alumno_id = ? AND fecha = ?", student.ID, today).First(&absence).Error; err != nil {
			logrus.WithError(err).Error("Failed to load existing absence")
		}
	}
	result.AusenciaID = absence.ID
	result.Procesado = true

	settings := p.wa.ResolveRelaySettings(student.InstitucionID)

	notified := alreadyRecorded && absence.NotificadoDocente
	if shouldNotifyAbsence(alreadyRecorded, student.Maestro != nil,
		p.tenantToggle(student.InstitucionID, func(c *models.WaAPIConfig) bool { return c.NotificarAusencias })) {
		notified = p.wa.NotifyTeacher(ctx, settings, student.Maestro.Email, student.Maestro.Nombre,
			student.NombreCompleto, msg.TextoMensaje, absence.ID, MessageTypeAusencia)
	}

	if p.tenantToggle(student.InstitucionID, func(c *models.WaAPIConfig) bool { return c.RespuestaAutomatica }) {
		ack := buildAbsenceAck(student.NombreCompleto, notified, alreadyRecorded)
		p.wa.SendMessage(ctx, settings, sender, ack)
	}

	if !alreadyRecorded {
		if err := p.db.Model(&absence).Update("notificado_docente", notified).Error; err != nil {
			logrus.WithError(err).Error("Failed to update absence notification flag")
		}
	}
}

func (p *WebhookProcessor) processQuery(ctx context.Context, msg *models.WhatsAppMessage, sender string, result *ProcessResult) {
	student, err := p.findStudentByGuardianPhone(sender)
	if err != nil {
		result.Motivo = "No se encontró alumno asociado a este número de teléfono"
		return
	}
	result.AlumnoID = student.ID
	msg.InstitucionID = student.InstitucionID
	result.Procesado = true

	settings := p.wa.ResolveRelaySettings(student.InstitucionID)

	notified := false
	if student.Maestro != nil {
		notified = p.wa.NotifyTeacher(ctx, settings, student.Maestro.Email, student.Maestro.Nombre,
			student.NombreCompleto, msg.TextoMensaje, 0, MessageTypeConsulta)
	}

	if p.tenantToggle(student.InstitucionID, func(c *models.WaAPIConfig) bool { return c.RespuestaAutomatica }) {
		p.wa.SendMessage(ctx, settings, sender, buildQueryAck(student.NombreCompleto, notified))
	}
}

// resolveAbsenceInsert maps the outcome of the absence insert: a duplicate
// key on (alumno, fecha) means a replayed webhook or a second message the
// same day, which counts as already recorded rather than a failure.
func resolveAbsenceInsert(err error) (alreadyRecorded bool, insertErr error) {
	if err == nil {
		return false, nil
	}
	if utils.IsDuplicateEntry(err) {
		return true, nil
	}
	return false, err
}

// shouldNotifyAbsence decides whether the teacher gets a notification for
// this absence. Replays never re-notify; a student without an assigned
// teacher or a tenant that disabled absence notifications skips it too.
func shouldNotifyAbsence(alreadyRecorded, hasMaestro, tenantEnabled bool) bool {
	return !alreadyRecorded && hasMaestro && tenantEnabled
}

// tenantToggle reads one boolean preference from the tenant's messaging
// config. A tenant without a config row gets the defaults (enabled).
func (p *WebhookProcessor) tenantToggle(institucionID *uint, pick func(*models.WaAPIConfig) bool) bool {
	if institucionID == nil {
		return true
	}
	var cfg models.WaAPIConfig
	if err := p.db.Where("institucion_id = ?", *institucionID).First(&cfg).Error; err != nil {
		return true
	}
	return pick(&cfg)
}

func buildAbsenceAck(nombreAlumno string, notified, alreadyRecorded bool) string {
	if alreadyRecorded {
		return fmt.Sprintf("✅ La ausencia de %s ya se encontraba registrada para el día de hoy.", nombreAlumno)
	}
	if notified {
		return fmt.Sprintf("✅ Se ha registrado la ausencia de %s. El docente ha sido notificado.", nombreAlumno)
	}
	return fmt.Sprintf("✅ Se ha registrado la ausencia de %s. No se pudo notificar al docente, pero el registro de ausencia fue creado.", nombreAlumno)
}

func buildQueryAck(nombreAlumno string, notified bool) string {
	if notified {
		return fmt.Sprintf("✅ Su consulta sobre %s ha sido recibida. El docente ha sido notificado y responderá a la brevedad.", nombreAlumno)
	}
	return fmt.Sprintf("✅ Su consulta sobre %s ha sido recibida. No se pudo notificar al docente, pero su consulta fue registrada.", nombreAlumno)
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
