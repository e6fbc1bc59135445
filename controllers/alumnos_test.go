package controllers

import (
	"errors"
	"testing"
)

func TestPhotoCleanupTarget(t *testing.T) {
	dbErr := errors.New("Error 1062: Duplicate entry")

	cases := []struct {
		name      string
		updateErr error
		oldURL    string
		newURL    string
		want      string
	}{
		{"no photo uploaded", nil, "s3://fotos/old.jpg", "", ""},
		{"no photo uploaded and update failed", dbErr, "s3://fotos/old.jpg", "", ""},
		{"update failed removes new upload", dbErr, "s3://fotos/old.jpg", "s3://fotos/new.jpg", "s3://fotos/new.jpg"},
		{"update succeeded removes superseded photo", nil, "s3://fotos/old.jpg", "s3://fotos/new.jpg", "s3://fotos/old.jpg"},
		{"first photo has nothing to supersede", nil, "", "s3://fotos/new.jpg", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := photoCleanupTarget(tc.updateErr, tc.oldURL, tc.newURL)
			if got != tc.want {
				t.Errorf("photoCleanupTarget(%v, %q, %q) = %q, want %q",
					tc.updateErr, tc.oldURL, tc.newURL, got, tc.want)
			}
		})
	}
}

func TestMaestroUpdateValue(t *testing.T) {
	if got := maestroUpdateValue(0); got != nil {
		t.Errorf("maestroUpdateValue(0) = %v, want nil to clear the assignment", got)
	}
	if got := maestroUpdateValue(7); got != uint(7) {
		t.Errorf("maestroUpdateValue(7) = %v, want 7", got)
	}
}
