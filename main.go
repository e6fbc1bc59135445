package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"ccjap_go/config"
	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/routes"
	"ccjap_go/services"
	"ccjap_go/services/websocket"
	"ccjap_go/storage"
)

func init() {
	config.LoadConfig()
	setupLogging()
	database.Connect()
}

func main() {
	wsHub := websocket.NewHub()
	go wsHub.Run()

	whatsappService := services.NewWhatsAppService()

	scheduler := services.NewNotificationScheduler(whatsappService)
	if err := scheduler.Start(); err != nil {
		log.Fatal("Failed to start scheduler:", err)
	}
	defer scheduler.Stop()

	storageService, err := storage.NewStorageService()
	if err != nil {
		logrus.WithError(err).Warn("S3 storage unavailable, profile photos disabled")
		storageService = nil
	}

	if storageService != nil {
		archive := services.NewLogArchiveService(storageService)
		if err := archive.StartMaintenanceScheduler(); err != nil {
			logrus.WithError(err).Warn("Log archive scheduler not started")
		}
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    int(config.AppConfig.MaxFileSize),
	})

	app.Use(recover.New())
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,HEAD,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))
	app.Use(middleware.LoggerMiddleware())

	routes.SetupRoutes(app, wsHub, whatsappService, storageService)

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":  "Ruta no encontrada",
			"path":   c.Path(),
			"method": c.Method(),
		})
	})

	logrus.WithFields(logrus.Fields{
		"port": config.AppConfig.Port,
		"env":  config.AppConfig.AppEnv,
	}).Info("Server starting")

	if err := app.Listen(":" + config.AppConfig.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

func setupLogging() {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(config.AppConfig.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if config.AppConfig.IsProduction() && config.AppConfig.LogFile != "" {
		if err := os.MkdirAll("logs", 0o755); err == nil {
			if file, err := os.OpenFile(config.AppConfig.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666); err == nil {
				logrus.SetOutput(file)
				return
			}
		}
		log.Printf("Warning: could not open log file %s, logging to stdout", config.AppConfig.LogFile)
	}
	logrus.SetOutput(os.Stdout)
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Error interno del servidor"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	logrus.WithFields(logrus.Fields{
		"status": code,
		"path":   c.Path(),
		"method": c.Method(),
	}).WithError(err).Error("Request failed")

	return c.Status(code).JSON(fiber.Map{"error": message})
}
