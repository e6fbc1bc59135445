package models

import (
	"database/sql/driver"
	"time"
)

// Base model with common fields
type BaseModel struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"fecha_creacion"`
	UpdatedAt time.Time `json:"fecha_actualizacion"`
}

// JSON field type for GORM
type JSON []byte

func (j JSON) Value() (driver.Value, error) {
	if j.IsNull() {
		return nil, nil
	}
	return string(j), nil
}

func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	s, ok := value.([]byte)
	if !ok {
		return nil
	}
	*j = append((*j)[0:0], s...)
	return nil
}

func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = append((*j)[0:0], data...)
	return nil
}

func (j JSON) IsNull() bool {
	return len(j) == 0 || string(j) == "null"
}

// Institution is the tenant: every other record is scoped to one.
type Institution struct {
	BaseModel
	Nombre  string `json:"nombre" gorm:"size:255;not null"`
	LogoURL string `json:"logo_url" gorm:"size:2048"`

	// Relationships
	Users    []User    `json:"usuarios,omitempty" gorm:"foreignKey:InstitucionID"`
	Students []Student `json:"alumnos,omitempty" gorm:"foreignKey:InstitucionID"`
}

func (Institution) TableName() string { return "instituciones" }

// User model. InstitucionID is nil only for cross-tenant Superadministrador
// accounts created before any institution existed.
type User struct {
	BaseModel
	Nombre        string `json:"nombre" gorm:"size:255;not null"`
	Email         string `json:"email" gorm:"size:255;not null;uniqueIndex"`
	PasswordHash  string `json:"-" gorm:"size:255;not null"`
	Rol           string `json:"rol" gorm:"size:50;not null;type:enum('Superadministrador','Director','Docente','Secretaria','Colegiatura')"`
	InstitucionID *uint  `json:"institucion_id"`
	FotoPerfilURL string `json:"foto_perfil_url" gorm:"size:500"`

	// Relationships
	Institucion *Institution `json:"institucion,omitempty" gorm:"foreignKey:InstitucionID"`
}

func (User) TableName() string { return "usuarios" }

// Student model (alumno). MaestroID is the assigned teacher; deleting that
// user sets it null rather than cascading.
type Student struct {
	BaseModel
	NombreCompleto                string     `json:"nombre_completo" gorm:"size:255;not null"`
	FechaNacimiento               *time.Time `json:"fecha_nacimiento"`
	Genero                        string     `json:"genero" gorm:"size:50"`
	Direccion                     string     `json:"direccion" gorm:"type:text"`
	NombreResponsablePrincipal    string     `json:"nombre_responsable_principal" gorm:"size:255"`
	TelefonoResponsablePrincipal  string     `json:"telefono_responsable_principal" gorm:"size:25;index"`
	EmailResponsablePrincipal     string     `json:"email_responsable_principal" gorm:"size:100"`
	GradoActual                   string     `json:"grado_actual" gorm:"size:100;not null"`
	Seccion                       string     `json:"seccion" gorm:"size:50;not null"`
	FechaIngreso                  time.Time  `json:"fecha_ingreso"`
	Estado                        string     `json:"estado" gorm:"size:50;not null;default:'Activo';type:enum('Activo','Inactivo','Retirado','Graduado')"`
	InstitucionID                 *uint      `json:"institucion_id" gorm:"index"`
	MaestroID                     *uint      `json:"maestro_id"`
	FotoPerfilURL                 string     `json:"foto_perfil_url" gorm:"size:500"`

	// Relationships
	Institucion *Institution `json:"institucion,omitempty" gorm:"foreignKey:InstitucionID;constraint:OnDelete:CASCADE"`
	Maestro     *User        `json:"maestro,omitempty" gorm:"foreignKey:MaestroID;constraint:OnDelete:SET NULL"`
}

func (Student) TableName() string { return "alumnos" }

// Absence model (ausencia). One row per student per date: the unique index
// turns a replayed webhook into a duplicate-key error instead of a second row.
type Absence struct {
	BaseModel
	AlumnoID          uint      `json:"alumno_id" gorm:"not null;uniqueIndex:idx_alumno_fecha"`
	Fecha             time.Time `json:"fecha" gorm:"type:date;not null;uniqueIndex:idx_alumno_fecha"`
	Motivo            string    `json:"motivo" gorm:"type:text"`
	Justificada       bool      `json:"justificada" gorm:"default:false"`
	NotificadoDocente bool      `json:"notificado_docente" gorm:"default:false"`
	MensajeID         *uint     `json:"mensaje_id"`

	// Relationships
	Alumno  Student          `json:"alumno,omitempty" gorm:"foreignKey:AlumnoID;constraint:OnDelete:CASCADE"`
	Mensaje *WhatsAppMessage `json:"mensaje,omitempty" gorm:"foreignKey:MensajeID;constraint:OnDelete:SET NULL"`
}

func (Absence) TableName() string { return "ausencias" }

// Message processing states
const (
	MessageStateReceived   = "Recibido"
	MessageStateProcessing = "Procesando"
	MessageStateProcessed  = "Procesado"
	MessageStateError      = "Error"
	MessageStateSent       = "Enviado"
	MessageStateDelivered  = "Entregado"
	MessageStateRead       = "Leido"
)

// WhatsAppMessage model (mensaje de WhatsApp): every inbound webhook payload
// is persisted here before any classification, and outbound replies are
// recorded with estado Enviado.
type WhatsAppMessage struct {
	BaseModel
	TelefonoRemitente string    `json:"telefono_remitente" gorm:"size:25;not null;index"`
	TextoMensaje      string    `json:"texto_mensaje" gorm:"type:text;not null"`
	FechaRecepcion    time.Time `json:"fecha_recepcion" gorm:"not null"`
	Procesado         bool      `json:"procesado" gorm:"default:false"`
	TipoMensaje       string    `json:"tipo_mensaje" gorm:"size:50"`
	Estado            string    `json:"estado" gorm:"size:50;not null;default:'Recibido';type:enum('Recibido','Procesando','Procesado','Error','Enviado','Entregado','Leido')"`
	InstitucionID     *uint     `json:"institucion_id" gorm:"index"`
	AlumnoID          *uint     `json:"alumno_id"`
	UsuarioID         *uint     `json:"usuario_id"`

	// Relationships
	Alumno  *Student `json:"alumno,omitempty" gorm:"foreignKey:AlumnoID;constraint:OnDelete:SET NULL"`
	Usuario *User    `json:"usuario,omitempty" gorm:"foreignKey:UsuarioID;constraint:OnDelete:SET NULL"`
}

func (WhatsAppMessage) TableName() string { return "mensajes_whatsapp" }

// WaAPIConfig holds the per-tenant messaging credentials and notification
// preferences. One row per institution.
type WaAPIConfig struct {
	BaseModel
	InstitucionID          uint   `json:"institucion_id" gorm:"not null;uniqueIndex"`
	APIKey                 string `json:"api_key" gorm:"size:255;not null"`
	PhoneNumber            string `json:"phone_number" gorm:"size:25;not null"`
	WebhookURL             string `json:"webhook_url" gorm:"size:500"`
	N8NURL                 string `json:"n8n_url" gorm:"size:500"`
	N8NAPIKey              string `json:"n8n_api_key" gorm:"size:255"`
	RespuestaAutomatica    bool   `json:"respuesta_automatica" gorm:"default:true"`
	NotificarAusencias     bool   `json:"notificar_ausencias" gorm:"default:true"`
	NotificarCalificaciones bool  `json:"notificar_calificaciones" gorm:"default:false"`
	NotificarEventos       bool   `json:"notificar_eventos" gorm:"default:false"`

	// Relationships
	Institucion Institution `json:"institucion,omitempty" gorm:"foreignKey:InstitucionID;constraint:OnDelete:CASCADE"`
}

func (WaAPIConfig) TableName() string { return "waapi_config" }

// Log model for activity tracking
type ActivityLog struct {
	BaseModel
	UserID     uint   `json:"user_id"`
	Action     string `json:"action" gorm:"size:100;not null"`
	Resource   string `json:"resource" gorm:"size:100;not null"`
	ResourceID uint   `json:"resource_id"`
	Details    JSON   `json:"details" gorm:"type:json"`
	IPAddress  string `json:"ip_address" gorm:"size:45"`
	UserAgent  string `json:"user_agent" gorm:"size:500"`
}
