package services

import "testing"

func TestClassifyMessage(t *testing.T) {
	cases := []struct {
		name string
		text string
		want string
	}{
		{"absence plain", "Buenos días, Juan no podrá ir hoy a clases", MessageTypeAusencia},
		{"absence no accent", "maria no podra ir manana", MessageTypeAusencia},
		{"absence sick", "Mi hijo está enfermo y no irá", MessageTypeAusencia},
		{"absence keyword falta", "Le aviso de la falta de Pedro", MessageTypeAusencia},
		{"absence uppercase", "AUSENCIA de Carlos por cita médica", MessageTypeAusencia},
		{"query homework", "¿Cuál es la tarea de matemáticas?", MessageTypeConsulta},
		{"query assignment", "Consulta sobre la asignacion de ciencias", MessageTypeConsulta},
		{"absence wins over query", "No podrá ir hoy, ¿me manda la tarea?", MessageTypeAusencia},
		{"unclassified", "Buenas tardes, gracias por todo", MessageTypeOtro},
		{"empty", "", MessageTypeOtro},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyMessage(tc.text); got != tc.want {
				t.Errorf("ClassifyMessage(%q) = %q, want %q", tc.text, got, tc.want)
			}
		})
	}
}
