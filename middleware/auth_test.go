package middleware

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"ccjap_go/config"
	"ccjap_go/models"
)

func TestGenerateTokenRoundTrip(t *testing.T) {
	config.AppConfig = &config.Config{
		JWTSecret:    "clave-de-prueba-suficientemente-larga",
		JWTExpiresIn: time.Hour,
	}

	institucionID := uint(3)
	user := &models.User{
		BaseModel:     models.BaseModel{ID: 42},
		Nombre:        "Marta López",
		Email:         "marta@colegio.edu.sv",
		Rol:           "Director",
		InstitucionID: &institucionID,
	}

	tokenString, err := GenerateToken(user)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		t.Fatalf("ParseWithClaims: %v", err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		t.Fatal("token should be valid")
	}

	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "marta@colegio.edu.sv" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Rol != "Director" {
		t.Errorf("Rol = %q, want Director", claims.Rol)
	}
	if claims.InstitucionID == nil || *claims.InstitucionID != 3 {
		t.Errorf("InstitucionID = %v, want 3", claims.InstitucionID)
	}
	if claims.IsSuperadmin() {
		t.Error("Director must not be superadmin")
	}

	if remaining := time.Until(claims.ExpiresAt.Time); remaining > time.Hour || remaining < 55*time.Minute {
		t.Errorf("expiry %v outside the configured window", remaining)
	}
}

func TestGenerateTokenRejectsTamperedSignature(t *testing.T) {
	config.AppConfig = &config.Config{
		JWTSecret:    "clave-de-prueba-suficientemente-larga",
		JWTExpiresIn: time.Hour,
	}

	user := &models.User{BaseModel: models.BaseModel{ID: 1}, Rol: "Docente"}
	tokenString, err := GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}

	_, err = jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte("otra-clave-distinta-y-larga"), nil
	})
	if err == nil {
		t.Fatal("token signed with another key should not validate")
	}
}

func TestClaimsIsSuperadmin(t *testing.T) {
	if !(&Claims{Rol: "Superadministrador"}).IsSuperadmin() {
		t.Error("Superadministrador should be superadmin")
	}
	for _, rol := range []string{"Director", "Docente", "Secretaria", "Colegiatura", ""} {
		if (&Claims{Rol: rol}).IsSuperadmin() {
			t.Errorf("%q should not be superadmin", rol)
		}
	}
}
