package middleware

import (
	"ccjap_go/config"
	"ccjap_go/database"
	"ccjap_go/models"
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

// A single message for every authentication failure, so callers cannot tell
// a missing header from an expired or revoked token.
const unauthorizedMessage = "No autorizado"

type Claims struct {
	UserID        uint   `json:"user_id"`
	Email         string `json:"email"`
	Rol           string `json:"rol"`
	Nombre        string `json:"nombre"`
	InstitucionID *uint  `json:"institucion_id"`
	jwt.RegisteredClaims
}

// GenerateToken creates a new JWT token for a user
func GenerateToken(user *models.User) (string, error) {
	claims := &Claims{
		UserID:        user.ID,
		Email:         user.Email,
		Rol:           user.Rol,
		Nombre:        user.Nombre,
		InstitucionID: user.InstitucionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(config.AppConfig.JWTExpiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// JWTMiddleware validates bearer tokens and attaches the identity to the
// request context.
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader || tokenString == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}

		if isTokenBlacklisted(tokenString) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}

		token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(config.AppConfig.JWTSecret), nil
		})
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}

		claims, ok := token.Claims.(*Claims)
		if !ok || !token.Valid {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}

		// Verify the account still exists
		var user models.User
		if err := database.DB.First(&user, claims.UserID).Error; err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": unauthorizedMessage})
		}

		c.Locals("user", &user)
		c.Locals("claims", claims)

		return c.Next()
	}
}

// RequireRoles checks that the authenticated identity carries one of the
// permitted roles.
func RequireRoles(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*Claims)
		if !ok || claims.Rol == "" {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Acceso denegado. Rol de usuario no encontrado.",
			})
		}

		for _, rol := range roles {
			if claims.Rol == rol {
				return c.Next()
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Acceso denegado. Rol '" + claims.Rol + "' no tiene permiso para este recurso.",
		})
	}
}

// BlacklistToken stores a token in the Redis blacklist until it would have
// expired anyway. Without Redis, logout is a client-side operation.
func BlacklistToken(tokenString string) error {
	rc := database.GetRedisClient()
	if rc == nil {
		return nil
	}
	return rc.Set(context.Background(), "blacklist:jwt:"+tokenString, "1", config.AppConfig.JWTExpiresIn).Err()
}

func isTokenBlacklisted(tokenString string) bool {
	rc := database.GetRedisClient()
	if rc == nil {
		return false
	}
	n, err := rc.Exists(context.Background(), "blacklist:jwt:"+tokenString).Result()
	return err == nil && n > 0
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals("user").(*models.User)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, unauthorizedMessage)
	}
	return user, nil
}

// GetCurrentClaims returns the current JWT claims
func GetCurrentClaims(c *fiber.Ctx) (*Claims, error) {
	claims, ok := c.Locals("claims").(*Claims)
	if !ok {
		return nil, fiber.NewError(fiber.StatusUnauthorized, unauthorizedMessage)
	}
	return claims, nil
}

// IsSuperadmin reports whether the claims belong to a cross-tenant admin.
func (cl *Claims) IsSuperadmin() bool {
	return cl.Rol == "Superadministrador"
}
