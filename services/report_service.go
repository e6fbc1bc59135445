package services

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"ccjap_go/database"
	"ccjap_go/models"
)

// ReportService builds downloadable absence reports.
type ReportService struct {
	db *gorm.DB
}

func NewReportService() *ReportService {
	return &ReportService{db: database.GetDB()}
}

// AbsenceReportFilter narrows the exported rows. InstitucionID nil means all
// tenants (superadmin only); MaestroID nil means all assigned teachers.
type AbsenceReportFilter struct {
	InstitucionID *uint
	MaestroID     *uint
	Desde         *time.Time
	Hasta         *time.Time
}

var absenceReportHeader = []string{
	"Fecha", "Alumno", "Grado", "Sección", "Motivo", "Justificada", "Docente notificado", "Docente asignado",
}

// BuildAbsenceReport renders the filtered absences into an xlsx workbook and
// returns its bytes ready for streaming.
func (rs *ReportService) BuildAbsenceReport(filter AbsenceReportFilter) ([]byte, string, error) {
	query := rs.db.Preload("Alumno").Preload("Alumno.Maestro").
		Joins("JOIN alumnos ON alumnos.id = ausencias.alumno_id").
		Order("ausencias.fecha DESC")

	if filter.InstitucionID != nil {
		query = query.Where("alumnos.institucion_id = ?", *filter.InstitucionID)
	}
	if filter.MaestroID != nil {
		query = query.Where("alumnos.maestro_id = ?", *filter.MaestroID)
	}
	if filter.Desde != nil {
		query = query.Where("ausencias.fecha >= ?", *filter.Desde)
	}
	if filter.Hasta != nil {
		query = query.Where("ausencias.fecha <= ?", *filter.Hasta)
	}

	var absences []models.Absence
	if err := query.Find(&absences).Error; err != nil {
		return nil, "", fmt.Errorf("no se pudieron consultar las ausencias: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ausencias"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}

	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	for col, h := range absenceReportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellStr(sheet, cell, h); err != nil {
			return nil, "", err
		}
	}
	endCell, _ := excelize.CoordinatesToCellName(len(absenceReportHeader), 1)
	_ = f.SetCellStyle(sheet, "A1", endCell, bold)
	_ = f.AutoFilter(sheet, "A1:"+endCell, nil)

	for i, a := range absences {
		row := i + 2
		maestro := ""
		if a.Alumno.Maestro != nil {
			maestro = a.Alumno.Maestro.Nombre
		}
		values := []string{
			a.Fecha.Format("2006-01-02"),
			a.Alumno.NombreCompleto,
			a.Alumno.GradoActual,
			a.Alumno.Seccion,
			a.Motivo,
			siNo(a.Justificada),
			siNo(a.NotificadoDocente),
			maestro,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return nil, "", err
			}
		}
	}

	_ = f.SetColWidth(sheet, "A", "A", 12)
	_ = f.SetColWidth(sheet, "B", "B", 32)
	_ = f.SetColWidth(sheet, "E", "E", 40)
	_ = f.SetColWidth(sheet, "F", "H", 18)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", fmt.Errorf("no se pudo generar el archivo: %w", err)
	}

	filename := fmt.Sprintf("ausencias_%s.xlsx", time.Now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

func siNo(b bool) string {
	if b {
		return "Sí"
	}
	return "No"
}
