package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/storage"
	"ccjap_go/utils"
)

type UserController struct {
	storage *storage.StorageService
}

func NewUserController(storage *storage.StorageService) *UserController {
	return &UserController{storage: storage}
}

type CreateUserRequest struct {
	Nombre        string `json:"nombre" validate:"required,min=2,max=255"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Rol           string `json:"rol" validate:"required"`
	InstitucionID *uint  `json:"institucion_id"`
}

type UpdateUserRequest struct {
	Nombre        *string `json:"nombre"`
	Email         *string `json:"email"`
	Password      *string `json:"password"`
	Rol           *string `json:"rol"`
	InstitucionID *uint   `json:"institucion_id"`
}

// scopedUserQuery narrows the query to the caller's institution unless the
// caller is a cross-tenant superadmin.
func scopedUserQuery(db *gorm.DB, claims *middleware.Claims) *gorm.DB {
	if claims.IsSuperadmin() {
		return db
	}
	return db.Where("institucion_id = ?", claims.InstitucionID)
}

// GetUsers lists users visible to the caller, ordered by name.
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	var users []models.User
	query := scopedUserQuery(database.GetDB().Model(&models.User{}), claims)
	if rol := c.Query("rol"); rol != "" {
		query = query.Where("rol = ?", rol)
	}
	if err := query.Order("nombre ASC").Find(&users).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los usuarios"})
	}

	return c.JSON(fiber.Map{"usuarios": users})
}

// GetUser returns one user within the caller's scope.
func (uc *UserController) GetUser(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var user models.User
	if err := scopedUserQuery(database.GetDB(), claims).First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	return c.JSON(fiber.Map{"usuario": user})
}

// CreateUser registers a new account. Directors create accounts inside their
// own institution only and cannot mint superadmins.
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	var req CreateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Datos de usuario inválidos",
			"detalle": utils.ValidationErrorMap(err),
		})
	}
	if !utils.IsValidRole(req.Rol) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rol no válido"})
	}

	institucionID := req.InstitucionID
	if !claims.IsSuperadmin() {
		if req.Rol == utils.RolSuperadministrador {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No tiene permisos para crear superadministradores"})
		}
		institucionID = claims.InstitucionID
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo procesar la contraseña"})
	}

	user := models.User{
		Nombre:        utils.SanitizeString(req.Nombre),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash:  hash,
		Rol:           req.Rol,
		InstitucionID: institucionID,
	}

	if err := database.GetDB().Create(&user).Error; err != nil {
		if utils.IsDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Ya existe un usuario con ese correo"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo crear el usuario"})
	}

	middleware.LogActivity(c, "CREATE", "usuarios", user.ID, fiber.Map{"email": user.Email, "rol": user.Rol})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"usuario": user})
}

// UpdateUser modifies an account within the caller's scope.
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var user models.User
	if err := scopedUserQuery(database.GetDB(), claims).First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	var req UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}

	updates := map[string]interface{}{}
	if req.Nombre != nil {
		updates["nombre"] = utils.SanitizeString(*req.Nombre)
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Password != nil && *req.Password != "" {
		if len(*req.Password) < 8 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "La contraseña debe tener al menos 8 caracteres"})
		}
		hash, err := utils.HashPassword(*req.Password)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo procesar la contraseña"})
		}
		updates["password_hash"] = hash
	}
	if req.Rol != nil {
		if !utils.IsValidRole(*req.Rol) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Rol no válido"})
		}
		if *req.Rol != utils.RolSuperadministrador && user.Rol == utils.RolSuperadministrador {
			if err := ensureNotLastSuperadmin(user.ID); err != nil {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
			}
		}
		if *req.Rol == utils.RolSuperadministrador && !claims.IsSuperadmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No tiene permisos para asignar ese rol"})
		}
		updates["rol"] = *req.Rol
	}
	if req.InstitucionID != nil && claims.IsSuperadmin() {
		updates["institucion_id"] = *req.InstitucionID
	}

	if len(updates) == 0 {
		return c.JSON(fiber.Map{"usuario": user})
	}

	if err := database.GetDB().Model(&user).Updates(updates).Error; err != nil {
		if utils.IsDuplicateEntry(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Ya existe un usuario con ese correo"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo actualizar el usuario"})
	}

	middleware.LogActivity(c, "UPDATE", "usuarios", user.ID, updates)

	return c.JSON(fiber.Map{"usuario": user})
}

// DeleteUser removes an account. The last remaining superadmin can never be
// deleted, not even by itself.
func (uc *UserController) DeleteUser(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var user models.User
	if err := scopedUserQuery(database.GetDB(), claims).First(&user, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Usuario no encontrado"})
	}

	if user.Rol == utils.RolSuperadministrador {
		if err := ensureNotLastSuperadmin(user.ID); err != nil {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
		}
	}

	if err := database.GetDB().Delete(&user).Error; err != nil {
		if utils.IsForeignKeyViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "El usuario tiene registros asociados y no puede eliminarse"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo eliminar el usuario"})
	}

	middleware.LogActivity(c, "DELETE", "usuarios", user.ID, fiber.Map{"email": user.Email})

	return c.JSON(fiber.Map{"message": "Usuario eliminado correctamente"})
}

func ensureNotLastSuperadmin(excludeID uint) error {
	var count int64
	if err := database.GetDB().Model(&models.User{}).
		Where("rol = ? AND id <> ?", utils.RolSuperadministrador, excludeID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errLastSuperadmin
	}
	return nil
}

var errLastSuperadmin = errors.New("No se puede eliminar el último superadministrador")

// GetProfile returns the authenticated user's own record.
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}
	return c.JSON(fiber.Map{"usuario": user})
}

// UpdateProfile lets any authenticated user change their own name, password
// and profile photo. Role and institution are never editable here.
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	user, err := middleware.GetCurrentUser(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	updates := map[string]interface{}{}
	if nombre := c.FormValue("nombre"); nombre != "" {
		updates["nombre"] = utils.SanitizeString(nombre)
	}
	if password := c.FormValue("password"); password != "" {
		if len(password) < 8 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "La contraseña debe tener al menos 8 caracteres"})
		}
		hash, err := utils.HashPassword(password)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo procesar la contraseña"})
		}
		updates["password_hash"] = hash
	}

	oldPhotoURL, newPhotoURL := "", ""
	if file, err := c.FormFile("foto_perfil"); err == nil && uc.storage != nil {
		url, err := uc.storage.UploadProfileImage(file, "usuarios")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		oldPhotoURL = user.FotoPerfilURL
		newPhotoURL = url
		updates["foto_perfil_url"] = url
	}

	if len(updates) == 0 {
		return c.JSON(fiber.Map{"usuario": user})
	}

	if err := database.GetDB().Model(user).Updates(updates).Error; err != nil {
		if url := photoCleanupTarget(err, oldPhotoURL, newPhotoURL); url != "" && uc.storage != nil {
			_ = uc.storage.DeleteFile(url)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo actualizar el perfil"})
	}

	if url := photoCleanupTarget(nil, oldPhotoURL, newPhotoURL); url != "" && uc.storage != nil {
		// Best effort: the new photo is already live.
		_ = uc.storage.DeleteFile(url)
	}

	middleware.LogActivity(c, "UPDATE", "perfil", user.ID, nil)

	return c.JSON(fiber.Map{"usuario": user})
}
