package services

import "testing"

func TestNormalizeSender(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"waapi suffix", "50370123456@c.us", "50370123456"},
		{"plus prefix", "+503 7012-3456", "50370123456"},
		{"already clean", "50370123456", "50370123456"},
		{"spaces and dashes", "7012 34-56", "70123456"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := NormalizeSender(tc.in); got != tc.want {
				t.Errorf("NormalizeSender(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestFormatInternational(t *testing.T) {
	cases := []struct {
		name        string
		phone       string
		countryCode string
		want        string
	}{
		{"local eight digits", "70123456", "503", "50370123456"},
		{"already international", "50370123456", "503", "50370123456"},
		{"with formatting", "+503 7012-3456", "503", "50370123456"},
		{"other country kept", "5215512345678", "503", "5215512345678"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := FormatInternational(tc.phone, tc.countryCode); got != tc.want {
				t.Errorf("FormatInternational(%q, %q) = %q, want %q", tc.phone, tc.countryCode, got, tc.want)
			}
		})
	}
}
