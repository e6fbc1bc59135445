package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/services"
	"ccjap_go/storage"
	"ccjap_go/utils"
)

type AlumnoController struct {
	storage *storage.StorageService
}

func NewAlumnoController(storage *storage.StorageService) *AlumnoController {
	return &AlumnoController{storage: storage}
}

// scopedAlumnoQuery applies the caller's visibility: superadmins see every
// tenant, teachers only their assigned students, everyone else their
// institution.
func scopedAlumnoQuery(db *gorm.DB, claims *middleware.Claims) *gorm.DB {
	if claims.IsSuperadmin() {
		return db
	}
	db = db.Where("alumnos.institucion_id = ?", claims.InstitucionID)
	if claims.Rol == utils.RolDocente {
		db = db.Where("alumnos.maestro_id = ?", claims.UserID)
	}
	return db
}

// GetAlumnos lists visible students ordered by name. Supports estado, grado
// and q (name prefix) filters.
func (ac *AlumnoController) GetAlumnos(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	query := scopedAlumnoQuery(database.GetDB().Model(&models.Student{}), claims).Preload("Maestro")
	if estado := c.Query("estado"); estado != "" {
		query = query.Where("estado = ?", estado)
	}
	if grado := c.Query("grado"); grado != "" {
		query = query.Where("grado_actual = ?", grado)
	}
	if q := c.Query("q"); q != "" {
		query = query.Where("nombre_completo LIKE ?", q+"%")
	}

	var alumnos []models.Student
	if err := query.Order("nombre_completo ASC").Find(&alumnos).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los alumnos"})
	}

	return c.JSON(fiber.Map{"alumnos": alumnos})
}

// GetAlumno returns one student within the caller's scope.
func (ac *AlumnoController) GetAlumno(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var alumno models.Student
	if err := scopedAlumnoQuery(database.GetDB(), claims).Preload("Maestro").First(&alumno, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Alumno no encontrado"})
	}

	return c.JSON(fiber.Map{"alumno": alumno})
}

type alumnoForm struct {
	NombreCompleto               string `json:"nombre_completo" form:"nombre_completo" validate:"required,min=2,max=255"`
	FechaNacimiento              string `json:"fecha_nacimiento" form:"fecha_nacimiento"`
	Genero                       string `json:"genero" form:"genero"`
	Direccion                    string `json:"direccion" form:"direccion"`
	NombreResponsablePrincipal   string `json:"nombre_responsable_principal" form:"nombre_responsable_principal"`
	TelefonoResponsablePrincipal string `json:"telefono_responsable_principal" form:"telefono_responsable_principal"`
	EmailResponsablePrincipal    string `json:"email_responsable_principal" form:"email_responsable_principal" validate:"omitempty,email"`
	GradoActual                  string `json:"grado_actual" form:"grado_actual" validate:"required"`
	Seccion                      string `json:"seccion" form:"seccion" validate:"required"`
	FechaIngreso                 string `json:"fecha_ingreso" form:"fecha_ingreso"`
	Estado                       string `json:"estado" form:"estado"`
	MaestroID                    *uint  `json:"maestro_id" form:"maestro_id"`
	InstitucionID                *uint  `json:"institucion_id" form:"institucion_id"`
}

// maestroUpdateValue translates the form value for the assigned-teacher
// column: 0 clears the assignment, anything else sets it.
func maestroUpdateValue(id uint) interface{} {
	if id == 0 {
		return nil
	}
	return id
}

// photoCleanupTarget picks which stored photo to remove after an update that
// may have uploaded a replacement: the new object when the update failed (so
// it is not orphaned), the superseded one when it succeeded. Empty when no
// photo was uploaded.
func photoCleanupTarget(updateErr error, oldURL, newURL string) string {
	if newURL == "" {
		return ""
	}
	if updateErr != nil {
		return newURL
	}
	return oldURL
}

// validateMaestro confirms the assigned teacher is a Docente of the same
// institution.
func validateMaestro(maestroID uint, institucionID *uint) error {
	var maestro models.User
	query := database.GetDB().Where("id = ? AND rol = ?", maestroID, utils.RolDocente)
	if institucionID != nil {
		query = query.Where("institucion_id = ?", *institucionID)
	}
	if err := query.First(&maestro).Error; err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "El maestro asignado no existe o no es un docente de la institución")
	}
	return nil
}

// CreateAlumno registers a student. Estado defaults to Activo and
// fecha_ingreso to today. Accepts multipart with an optional foto_perfil.
func (ac *AlumnoController) CreateAlumno(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	var form alumnoForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}
	if err := utils.ValidateStruct(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Datos de alumno inválidos",
			"detalle": utils.ValidationErrorMap(err),
		})
	}

	estado := form.Estado
	if estado == "" {
		estado = "Activo"
	}
	if !utils.IsValidEstadoAlumno(estado) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Estado no válido"})
	}

	// Tenant always comes from the caller; only superadmins may target
	// another institution explicitly.
	institucionID := claims.InstitucionID
	if claims.IsSuperadmin() && form.InstitucionID != nil {
		institucionID = form.InstitucionID
	}
	if institucionID == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Debe indicar la institución del alumno"})
	}

	if form.MaestroID != nil {
		if err := validateMaestro(*form.MaestroID, institucionID); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
	}

	alumno := models.Student{
		NombreCompleto:               utils.SanitizeString(form.NombreCompleto),
		Genero:                       form.Genero,
		Direccion:                    form.Direccion,
		NombreResponsablePrincipal:   utils.SanitizeString(form.NombreResponsablePrincipal),
		TelefonoResponsablePrincipal: services.NormalizeSender(form.TelefonoResponsablePrincipal),
		EmailResponsablePrincipal:    form.EmailResponsablePrincipal,
		GradoActual:                  form.GradoActual,
		Seccion:                      form.Seccion,
		FechaIngreso:                 time.Now(),
		Estado:                       estado,
		InstitucionID:                institucionID,
		MaestroID:                    form.MaestroID,
	}
	if form.FechaNacimiento != "" {
		if fn, err := time.Parse("2006-01-02", form.FechaNacimiento); err == nil {
			alumno.FechaNacimiento = &fn
		}
	}
	if form.FechaIngreso != "" {
		if fi, err := time.Parse("2006-01-02", form.FechaIngreso); err == nil {
			alumno.FechaIngreso = fi
		}
	}

	// Upload the photo before the insert so a failed upload never leaves a
	// student without its submitted photo; a failed insert cleans up the
	// orphaned object instead.
	if file, err := c.FormFile("foto_perfil"); err == nil && ac.storage != nil {
		url, err := ac.storage.UploadProfileImage(file, "alumnos")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		alumno.FotoPerfilURL = url
	}

	if err := database.GetDB().Create(&alumno).Error; err != nil {
		if alumno.FotoPerfilURL != "" && ac.storage != nil {
			_ = ac.storage.DeleteFile(alumno.FotoPerfilURL)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo registrar el alumno"})
	}

	middleware.LogActivity(c, "CREATE", "alumnos", alumno.ID, fiber.Map{"nombre": alumno.NombreCompleto})

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"alumno": alumno})
}

// UpdateAlumno modifies a student inside the caller's scope.
func (ac *AlumnoController) UpdateAlumno(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var alumno models.Student
	if err := scopedAlumnoQuery(database.GetDB(), claims).First(&alumno, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Alumno no encontrado"})
	}

	var form alumnoForm
	if err := c.BodyParser(&form); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cuerpo de solicitud inválido"})
	}

	updates := map[string]interface{}{}
	if form.NombreCompleto != "" {
		updates["nombre_completo"] = utils.SanitizeString(form.NombreCompleto)
	}
	if form.Genero != "" {
		updates["genero"] = form.Genero
	}
	if form.Direccion != "" {
		updates["direccion"] = form.Direccion
	}
	if form.NombreResponsablePrincipal != "" {
		updates["nombre_responsable_principal"] = utils.SanitizeString(form.NombreResponsablePrincipal)
	}
	if form.TelefonoResponsablePrincipal != "" {
		updates["telefono_responsable_principal"] = services.NormalizeSender(form.TelefonoResponsablePrincipal)
	}
	if form.EmailResponsablePrincipal != "" {
		updates["email_responsable_principal"] = form.EmailResponsablePrincipal
	}
	if form.GradoActual != "" {
		updates["grado_actual"] = form.GradoActual
	}
	if form.Seccion != "" {
		updates["seccion"] = form.Seccion
	}
	if form.Estado != "" {
		if !utils.IsValidEstadoAlumno(form.Estado) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Estado no válido"})
		}
		updates["estado"] = form.Estado
	}
	if form.FechaNacimiento != "" {
		if fn, err := time.Parse("2006-01-02", form.FechaNacimiento); err == nil {
			updates["fecha_nacimiento"] = fn
		}
	}
	if form.FechaIngreso != "" {
		if fi, err := time.Parse("2006-01-02", form.FechaIngreso); err == nil {
			updates["fecha_ingreso"] = fi
		}
	}
	if form.MaestroID != nil {
		if *form.MaestroID != 0 {
			if err := validateMaestro(*form.MaestroID, alumno.InstitucionID); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
			}
		}
		updates["maestro_id"] = maestroUpdateValue(*form.MaestroID)
	}
	if form.InstitucionID != nil {
		// Cross-tenant moves are a superadmin-only operation.
		if !claims.IsSuperadmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No tiene permisos para cambiar la institución del alumno"})
		}
		updates["institucion_id"] = *form.InstitucionID
	}

	oldPhotoURL, newPhotoURL := "", ""
	if file, err := c.FormFile("foto_perfil"); err == nil && ac.storage != nil {
		url, err := ac.storage.UploadProfileImage(file, "alumnos")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		oldPhotoURL = alumno.FotoPerfilURL
		newPhotoURL = url
		updates["foto_perfil_url"] = url
	}

	if len(updates) == 0 {
		return c.JSON(fiber.Map{"alumno": alumno})
	}

	if err := database.GetDB().Model(&alumno).Updates(updates).Error; err != nil {
		if url := photoCleanupTarget(err, oldPhotoURL, newPhotoURL); url != "" && ac.storage != nil {
			_ = ac.storage.DeleteFile(url)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo actualizar el alumno"})
	}

	if url := photoCleanupTarget(nil, oldPhotoURL, newPhotoURL); url != "" && ac.storage != nil {
		_ = ac.storage.DeleteFile(url)
	}

	middleware.LogActivity(c, "UPDATE", "alumnos", alumno.ID, updates)

	return c.JSON(fiber.Map{"alumno": alumno})
}

// DeleteAlumno removes a student and its stored photo. Related records that
// restrict deletion surface as a conflict instead of a server error.
func (ac *AlumnoController) DeleteAlumno(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	id, err := c.ParamsInt("id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "ID inválido"})
	}

	var alumno models.Student
	if err := scopedAlumnoQuery(database.GetDB(), claims).First(&alumno, id).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Alumno no encontrado"})
	}

	if err := database.GetDB().Delete(&alumno).Error; err != nil {
		if utils.IsForeignKeyViolation(err) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "El alumno tiene registros asociados y no puede eliminarse"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudo eliminar el alumno"})
	}

	if alumno.FotoPerfilURL != "" && ac.storage != nil {
		_ = ac.storage.DeleteFile(alumno.FotoPerfilURL)
	}

	middleware.LogActivity(c, "DELETE", "alumnos", alumno.ID, fiber.Map{"nombre": alumno.NombreCompleto})

	return c.JSON(fiber.Map{"message": "Alumno eliminado correctamente"})
}
