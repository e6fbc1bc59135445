package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
)

// NotificationScheduler runs the recurring jobs: the daily absence digest for
// teachers and the activity-log queue flush.
type NotificationScheduler struct {
	db   *gorm.DB
	wa   *WhatsAppService
	cron *cron.Cron
}

func NewNotificationScheduler(wa *WhatsAppService) *NotificationScheduler {
	return &NotificationScheduler{
		db:   database.GetDB(),
		wa:   wa,
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Start registers and launches the scheduled jobs. The digest fires at 18:00
// server time; the log flush every 5 minutes.
func (ns *NotificationScheduler) Start() error {
	if _, err := ns.cron.AddFunc("0 18 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
		defer cancel()
		ns.SendDailyAbsenceDigest(ctx)
	}); err != nil {
		return fmt.Errorf("no se pudo registrar el resumen diario: %w", err)
	}

	if _, err := ns.cron.AddFunc("*/5 * * * *", func() {
		if n, err := middleware.FlushActivityLogs(); err != nil {
			logrus.WithError(err).Warn("Activity log flush failed")
		} else if n > 0 {
			logrus.WithField("count", n).Debug("Flushed activity logs")
		}
	}); err != nil {
		return fmt.Errorf("no se pudo registrar el vaciado de logs: %w", err)
	}

	ns.cron.Start()
	logrus.Info("Notification scheduler started")
	return nil
}

// Stop waits for running jobs to finish.
func (ns *NotificationScheduler) Stop() {
	ctx := ns.cron.Stop()
	<-ctx.Done()
}

// SendDailyAbsenceDigest sends each assigned teacher a summary of today's
// absences among their students. Only tenants with notificar_ausencias
// enabled participate.
func (ns *NotificationScheduler) SendDailyAbsenceDigest(ctx context.Context) {
	today := dateOnly(time.Now())

	var configs []models.WaAPIConfig
	if err := ns.db.Where("notificar_ausencias = ?", true).Find(&configs).Error; err != nil {
		logrus.WithError(err).Error("Failed to load tenant configs for digest")
		return
	}

	for _, cfg := range configs {
		institucionID := cfg.InstitucionID
		var absences []models.Absence
		err := ns.db.Preload("Alumno").Preload("Alumno.Maestro").
			Joins("JOIN alumnos ON alumnos.id = ausencias.alumno_id").
			Where("alumnos.institucion_id = ? AND ausencias.fecha = ?", institucionID, today).
			Find(&absences).Error
		if err != nil {
			logrus.WithError(err).WithField("institucion_id", institucionID).Error("Failed to load absences for digest")
			continue
		}
		if len(absences) == 0 {
			continue
		}

		byTeacher := make(map[uint][]models.Absence)
		for _, a := range absences {
			if a.Alumno.MaestroID == nil {
				continue
			}
			byTeacher[*a.Alumno.MaestroID] = append(byTeacher[*a.Alumno.MaestroID], a)
		}

		settings := ns.wa.ResolveRelaySettings(&institucionID)
		for maestroID, list := range byTeacher {
			maestro := list[0].Alumno.Maestro
			if maestro == nil {
				continue
			}
			body := buildDigestBody(today, list)
			if ok := ns.wa.NotifyTeacher(ctx, settings, maestro.Email, maestro.Nombre,
				fmt.Sprintf("%d alumnos", len(list)), body, 0, MessageTypeOtro); !ok {
				logrus.WithFields(logrus.Fields{
					"institucion_id": institucionID,
					"maestro_id":     maestroID,
				}).Warn("Daily digest delivery failed")
			}
		}
	}
}

func buildDigestBody(fecha time.Time, absences []models.Absence) string {
	body := fmt.Sprintf("Resumen de ausencias del %s:\n", fecha.Format("2006-01-02"))
	for _, a := range absences {
		estado := "sin justificar"
		if a.Justificada {
			estado = "justificada"
		}
		body += fmt.Sprintf("- %s (%s %s), %s\n", a.Alumno.NombreCompleto, a.Alumno.GradoActual, a.Alumno.Seccion, estado)
	}
	return body
}
