package services

import "strings"

// Message classification types
const (
	MessageTypeAusencia  = "ausencia"
	MessageTypeConsulta  = "consulta"
	MessageTypeRespuesta = "respuesta"
	MessageTypeOtro      = "otro"
)

// Absence indicators take priority over query indicators: a message matching
// both is an absence report.
var absenceKeywords = []string{
	"no podrá ir",
	"no podra ir",
	"no asistirá",
	"no asistira",
	"ausencia",
	"falta",
	"faltar",
	"enfermo",
	"enferma",
}

var queryKeywords = []string{
	"tarea",
	"deberes",
	"asignación",
	"asignacion",
}

// ClassifyMessage categorizes inbound message text by plain substring
// matching over the lower-cased text. This is deliberately not NLP: parents
// write short messages and the keyword lists cover the phrasing the school
// actually receives.
func ClassifyMessage(text string) string {
	lower := strings.ToLower(text)

	for _, kw := range absenceKeywords {
		if strings.Contains(lower, kw) {
			return MessageTypeAusencia
		}
	}
	for _, kw := range queryKeywords {
		if strings.Contains(lower, kw) {
			return MessageTypeConsulta
		}
	}
	return MessageTypeOtro
}
