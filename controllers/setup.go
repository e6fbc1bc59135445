package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/utils"
)

var errSetupConfigured = errors.New("La instalación ya fue configurada")

// SetupController handles the one-time bootstrap of an empty installation.
// Both endpoints are unauthenticated; completion is refused once any user
// exists.
type SetupController struct{}

func NewSetupController() *SetupController { return &SetupController{} }

type CompleteSetupRequest struct {
	NombreInstitucion string `json:"nombre_institucion" validate:"required,min=2,max=255"`
	NombreAdmin       string `json:"nombre_admin" validate:"required,min=2,max=255"`
	EmailAdmin        string `json:"email_admin" validate:"required,email"`
	PasswordAdmin     string `json:"password_admin" validate:"required,min=8"`
}

func setupComplete() (bool, error) {
	db := database.GetDB()
	if !db.Migrator().HasTable(&models.User{}) {
		return false, nil
	}
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// ensureNotConfigured re-checks the bootstrap state inside the transaction,
// with a locking read so two concurrent complete-setup calls cannot both
// commit.
func ensureNotConfigured(tx *gorm.DB) error {
	if !tx.Migrator().HasTable(&models.User{}) {
		return nil
	}
	var count int64
	if err := tx.Model(&models.User{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errSetupConfigured
	}
	return nil
}

func setupFailureStatus(err error) int {
	if errors.Is(err, errSetupConfigured) {
		return fiber.StatusForbidden
	}
	return fiber.StatusInternalServerError
}

// GetStatus reports whether the installation has been bootstrapped.
func (sc *SetupController) GetStatus(c *fiber.Ctx) error {
	complete, err := setupComplete()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo verificar el estado de instalación"})
	}
	return c.JSON(fiber.Map{"isSetupComplete": complete})
}

// CompleteSetup migrates the schema and creates the first institution plus
// its superadmin, all in one transaction.
func (sc *SetupController) CompleteSetup(c *fiber.Ctx) error {
	complete, err := setupComplete()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo verificar el estado de instalación"})
	}
	if complete {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "La instalación ya fue configurada"})
	}

	var req CompleteSetupRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Datos de instalación inválidos",
			"detalle": utils.ValidationErrorMap(err),
		})
	}

	hash, err := utils.HashPassword(req.PasswordAdmin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo procesar la contraseña"})
	}

	var admin models.User
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := ensureNotConfigured(tx); err != nil {
			return err
		}
		if err := database.AutoMigrate(tx); err != nil {
			return err
		}

		institucion := models.Institution{Nombre: utils.SanitizeString(req.NombreInstitucion)}
		if err := tx.Create(&institucion).Error; err != nil {
			return err
		}

		admin = models.User{
			Nombre:        utils.SanitizeString(req.NombreAdmin),
			Email:         strings.ToLower(strings.TrimSpace(req.EmailAdmin)),
			PasswordHash:  hash,
			Rol:           utils.RolSuperadministrador,
			InstitucionID: &institucion.ID,
		}
		return tx.Create(&admin).Error
	})
	if err != nil {
		if errors.Is(err, errSetupConfigured) {
			return c.Status(setupFailureStatus(err)).JSON(fiber.Map{"error": errSetupConfigured.Error()})
		}
		return c.Status(setupFailureStatus(err)).JSON(fiber.Map{"error": "No se pudo completar la instalación"})
	}

	token, err := middleware.GenerateToken(&admin)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Instalación completada, pero no se pudo generar el token"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Instalación completada correctamente",
		"token":   token,
		"usuario": admin,
	})
}
