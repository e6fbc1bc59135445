package controllers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestSetupFailureStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"already configured", errSetupConfigured, fiber.StatusForbidden},
		{"wrapped already configured", fmt.Errorf("setup: %w", errSetupConfigured), fiber.StatusForbidden},
		{"storage failure", errors.New("dial tcp: connection refused"), fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := setupFailureStatus(tc.err); got != tc.want {
				t.Errorf("setupFailureStatus(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
