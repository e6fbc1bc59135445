package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a password with its hash
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// Roles
const (
	RolSuperadministrador = "Superadministrador"
	RolDirector           = "Director"
	RolDocente            = "Docente"
	RolSecretaria         = "Secretaria"
	RolColegiatura        = "Colegiatura"
)

// ValidRoles is the canonical role set.
var ValidRoles = []string{
	RolSuperadministrador,
	RolDirector,
	RolDocente,
	RolSecretaria,
	RolColegiatura,
}

// IsValidRole checks if a role is valid
func IsValidRole(rol string) bool {
	for _, r := range ValidRoles {
		if rol == r {
			return true
		}
	}
	return false
}

// ValidEstadosAlumno is the student status set.
var ValidEstadosAlumno = []string{"Activo", "Inactivo", "Retirado", "Graduado"}

// IsValidEstadoAlumno checks if a student status is valid
func IsValidEstadoAlumno(estado string) bool {
	for _, e := range ValidEstadosAlumno {
		if estado == e {
			return true
		}
	}
	return false
}

// IsValidFileExtension checks if file extension is allowed
func IsValidFileExtension(filename string, allowedExtensions []string) bool {
	if filename == "" {
		return false
	}

	parts := strings.Split(filename, ".")
	if len(parts) < 2 {
		return false
	}

	ext := strings.ToLower(parts[len(parts)-1])
	for _, allowed := range allowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// SanitizeString removes null bytes and trims whitespace
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	return strings.TrimSpace(input)
}
