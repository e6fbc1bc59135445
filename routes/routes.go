package routes

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"

	"ccjap_go/controllers"
	"ccjap_go/handlers"
	"ccjap_go/middleware"
	"ccjap_go/services"
	"ccjap_go/services/websocket"
	"ccjap_go/storage"
	"ccjap_go/utils"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, wsHub *websocket.Hub, wa *services.WhatsAppService, store *storage.StorageService) {
	authController := controllers.NewAuthController()
	userController := controllers.NewUserController(store)
	alumnoController := controllers.NewAlumnoController(store)
	setupController := controllers.NewSetupController()
	waapiController := controllers.NewWaAPIController(wa)
	mensajeriaController := controllers.NewMensajeriaController(wa, services.NewReportService())
	wsController := controllers.NewWebSocketController(wsHub)
	healthController := controllers.NewHealthController()
	logController := controllers.NewLogController()
	webhookHandler := handlers.NewWhatsAppWebhookHandler(services.NewWebhookProcessor(wa, wsHub))

	api := app.Group("/api")

	// First-run bootstrap, open until the first user exists.
	setup := api.Group("/setup")
	setup.Get("/status", setupController.GetStatus)
	setup.Post("/complete-setup", setupController.CompleteSetup)

	// Inbound messages from the n8n relay. Unauthenticated: identity comes
	// from phone-number correlation only.
	api.Post("/webhook/whatsapp", webhookHandler.HandleInbound)

	auth := api.Group("/auth")
	auth.Post("/login", authController.Login)

	protected := api.Group("/", middleware.JWTMiddleware())
	protected.Post("/auth/logout", authController.Logout)

	// Own profile, any authenticated role. Registered before the /users
	// group so "me" is not captured by the :id routes.
	protected.Get("/users/me", userController.GetProfile)
	protected.Put("/users/me", userController.UpdateProfile)

	// User administration.
	adminOnly := middleware.RequireRoles(utils.RolSuperadministrador, utils.RolDirector)
	users := protected.Group("/users", adminOnly)
	users.Get("/", userController.GetUsers)
	users.Get("/:id", userController.GetUser)
	users.Post("/", userController.CreateUser)
	users.Put("/:id", userController.UpdateUser)
	users.Delete("/:id", userController.DeleteUser)

	// Students. Reading is open to school staff; writes exclude teachers.
	staff := middleware.RequireRoles(utils.RolSuperadministrador, utils.RolDirector, utils.RolDocente, utils.RolSecretaria)
	writeStaff := middleware.RequireRoles(utils.RolSuperadministrador, utils.RolDirector, utils.RolSecretaria)
	alumnos := protected.Group("/alumnos")
	alumnos.Get("/", staff, alumnoController.GetAlumnos)
	alumnos.Get("/:id", staff, alumnoController.GetAlumno)
	alumnos.Post("/", writeStaff, alumnoController.CreateAlumno)
	alumnos.Put("/:id", writeStaff, alumnoController.UpdateAlumno)
	alumnos.Delete("/:id", writeStaff, alumnoController.DeleteAlumno)

	// Absences and message traffic recorded by the webhook flow.
	webhookAdmin := protected.Group("/webhook", staff)
	webhookAdmin.Get("/ausencias", mensajeriaController.GetAusencias)
	webhookAdmin.Get("/ausencias/export", mensajeriaController.ExportAusencias)
	webhookAdmin.Put("/ausencias/:id/justificar", mensajeriaController.JustificarAusencia)
	webhookAdmin.Get("/mensajes", adminOnly, mensajeriaController.GetMensajes)
	webhookAdmin.Post("/responder", adminOnly, mensajeriaController.ResponderMensaje)

	// Audit trail, administrators only.
	logs := protected.Group("/logs", adminOnly)
	logs.Get("/", logController.GetLogs)
	logs.Get("/stats", logController.GetLogStats)

	// Per-tenant messaging configuration.
	waapi := protected.Group("/waapi", adminOnly)
	waapi.Get("/config", waapiController.GetConfig)
	waapi.Post("/config", waapiController.UpsertConfig)
	waapi.Post("/test-connection", waapiController.TestConnection)
	waapi.Post("/send-message", waapiController.SendMessage)

	// Live message feed.
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return wsController.UpgradeRequired(c)
	})
	app.Get("/ws", wsController.Handler())

	// Health check
	app.Get("/health", healthController.GetHealthStatus)
}
