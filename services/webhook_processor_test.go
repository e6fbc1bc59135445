package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestResolveAbsenceInsert(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry '3-2026-08-31' for key 'idx_alumno_fecha'"}
	broken := errors.New("connection reset")

	cases := []struct {
		name        string
		err         error
		wantAlready bool
		wantErr     bool
	}{
		{"inserted", nil, false, false},
		{"duplicate day", dup, true, false},
		{"wrapped duplicate", fmt.Errorf("create absence: %w", dup), true, false},
		{"other failure", broken, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			already, err := resolveAbsenceInsert(tc.err)
			if already != tc.wantAlready {
				t.Errorf("alreadyRecorded = %v, want %v", already, tc.wantAlready)
			}
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestShouldNotifyAbsence(t *testing.T) {
	cases := []struct {
		name            string
		alreadyRecorded bool
		hasMaestro      bool
		tenantEnabled   bool
		want            bool
	}{
		{"first report with teacher", false, true, true, true},
		{"replay never re-notifies", true, true, true, false},
		{"no assigned teacher", false, false, true, false},
		{"tenant disabled notifications", false, true, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := shouldNotifyAbsence(tc.alreadyRecorded, tc.hasMaestro, tc.tenantEnabled)
			if got != tc.want {
				t.Errorf("shouldNotifyAbsence(%v, %v, %v) = %v, want %v",
					tc.alreadyRecorded, tc.hasMaestro, tc.tenantEnabled, got, tc.want)
			}
		})
	}
}

func TestReplayAcknowledgesWithoutNotifying(t *testing.T) {
	// A replayed webhook lands on the duplicate-day branch: the parent still
	// gets the already-recorded ack and no new teacher notification goes out.
	already, err := resolveAbsenceInsert(&mysql.MySQLError{Number: 1062})
	if err != nil || !already {
		t.Fatalf("resolveAbsenceInsert = (%v, %v), want (true, nil)", already, err)
	}
	if shouldNotifyAbsence(already, true, true) {
		t.Error("replay must not trigger a second teacher notification")
	}
	ack := buildAbsenceAck("Ana Pérez", false, already)
	if !strings.Contains(ack, "ya se encontraba registrada") {
		t.Errorf("ack %q should report the absence as already recorded", ack)
	}
}

func TestBuildAbsenceAck(t *testing.T) {
	cases := []struct {
		name            string
		notified        bool
		alreadyRecorded bool
		wantFragment    string
	}{
		{"notified", true, false, "El docente ha sido notificado"},
		{"not notified", false, false, "No se pudo notificar al docente"},
		{"already recorded", false, true, "ya se encontraba registrada"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := buildAbsenceAck("Ana Pérez", tc.notified, tc.alreadyRecorded)
			if !strings.Contains(got, "Ana Pérez") {
				t.Errorf("ack %q should mention the student", got)
			}
			if !strings.Contains(got, tc.wantFragment) {
				t.Errorf("ack %q should contain %q", got, tc.wantFragment)
			}
		})
	}
}

func TestBuildQueryAck(t *testing.T) {
	notified := buildQueryAck("Luis Gómez", true)
	if !strings.Contains(notified, "responderá a la brevedad") {
		t.Errorf("notified ack %q missing teacher confirmation", notified)
	}
	fallback := buildQueryAck("Luis Gómez", false)
	if !strings.Contains(fallback, "su consulta fue registrada") {
		t.Errorf("fallback ack %q missing retained-query notice", fallback)
	}
	for _, ack := range []string{notified, fallback} {
		if !strings.Contains(ack, "Luis Gómez") {
			t.Errorf("ack %q should mention the student", ack)
		}
	}
}
