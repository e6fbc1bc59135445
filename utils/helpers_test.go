package utils

import "testing"

func TestIsValidRole(t *testing.T) {
	cases := []struct {
		rol  string
		want bool
	}{
		{"Superadministrador", true},
		{"Director", true},
		{"Docente", true},
		{"Secretaria", true},
		{"Colegiatura", true},
		{"superadministrador", false},
		{"Admin", false},
		{"", false},
	}

	for _, tc := range cases {
		t.Run(tc.rol, func(t *testing.T) {
			if got := IsValidRole(tc.rol); got != tc.want {
				t.Errorf("IsValidRole(%q) = %v, want %v", tc.rol, got, tc.want)
			}
		})
	}
}

func TestIsValidEstadoAlumno(t *testing.T) {
	for _, estado := range ValidEstadosAlumno {
		if !IsValidEstadoAlumno(estado) {
			t.Errorf("IsValidEstadoAlumno(%q) = false, want true", estado)
		}
	}
	for _, estado := range []string{"activo", "Expulsado", ""} {
		if IsValidEstadoAlumno(estado) {
			t.Errorf("IsValidEstadoAlumno(%q) = true, want false", estado)
		}
	}
}

func TestIsValidFileExtension(t *testing.T) {
	allowed := []string{"jpg", "jpeg", "png", "webp"}

	cases := []struct {
		filename string
		want     bool
	}{
		{"foto.jpg", true},
		{"foto.PNG", true},
		{"foto.webp", true},
		{"documento.pdf", false},
		{"script.sh", false},
		{"sin_extension", false},
	}

	for _, tc := range cases {
		t.Run(tc.filename, func(t *testing.T) {
			if got := IsValidFileExtension(tc.filename, allowed); got != tc.want {
				t.Errorf("IsValidFileExtension(%q) = %v, want %v", tc.filename, got, tc.want)
			}
		})
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secreto-muy-largo")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "secreto-muy-largo" {
		t.Fatal("hash must not equal the plaintext")
	}
	if err := CheckPassword("secreto-muy-largo", hash); err != nil {
		t.Errorf("CheckPassword with correct password: %v", err)
	}
	if err := CheckPassword("otro", hash); err == nil {
		t.Error("CheckPassword with wrong password should fail")
	}
}
