package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/utils"
)

type AuthController struct{}

func NewAuthController() *AuthController { return &AuthController{} }

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Login authenticates a user by email and returns a JWT. The same message is
// returned whether the email is unknown or the password is wrong.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Datos de acceso incompletos",
			"detalle": utils.ValidationErrorMap(err),
		})
	}

	var user models.User
	if err := database.GetDB().Where("email = ?", strings.ToLower(strings.TrimSpace(req.Email))).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Credenciales inválidas"})
	}

	if err := utils.CheckPassword(req.Password, user.PasswordHash); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Credenciales inválidas"})
	}

	token, err := middleware.GenerateToken(&user)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo generar el token"})
	}

	middleware.LogActivity(c, "LOGIN", "auth", user.ID, fiber.Map{"email": user.Email})

	return c.JSON(fiber.Map{
		"token":   token,
		"usuario": user,
	})
}

// Logout blacklists the presented JWT until it would have expired anyway.
// Logout never fails: without Redis the token simply ages out.
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if authHeader == "" || tokenString == authHeader {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Encabezado de autorización inválido"})
	}

	if err := middleware.BlacklistToken(tokenString); err != nil {
		middleware.LogActivity(c, "LOGOUT", "auth", 0, fiber.Map{"error": err.Error()})
	}
	if user, err := middleware.GetCurrentUser(c); err == nil {
		middleware.LogActivity(c, "LOGOUT", "auth", user.ID, fiber.Map{"email": user.Email})
	}

	return c.JSON(fiber.Map{"message": "Sesión cerrada correctamente"})
}
