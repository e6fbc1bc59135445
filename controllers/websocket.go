package controllers

import (
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"

	"ccjap_go/config"
	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
	"ccjap_go/services/websocket"
)

// WebSocketController streams live messaging events to the admin panel.
type WebSocketController struct {
	hub *websocket.Hub
}

func NewWebSocketController(hub *websocket.Hub) *WebSocketController {
	return &WebSocketController{hub: hub}
}

// validateJWT checks the token passed as a query parameter. Browsers cannot
// set headers on WebSocket upgrades, so the token travels in the URL.
func (wsc *WebSocketController) validateJWT(tokenString string) (*models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &middleware.Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*middleware.Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrInvalidKey
	}

	var user models.User
	if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UpgradeRequired answers plain HTTP requests against the WebSocket path.
func (wsc *WebSocketController) UpgradeRequired(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUpgradeRequired).JSON(fiber.Map{
		"error": "Use el endpoint WebSocket: ws://<host>/ws?token=JWT",
	})
}

// Handler validates the token and hands the connection to the hub, scoped to
// the user's institution.
func (wsc *WebSocketController) Handler() fiber.Handler {
	return fiberws.New(func(c *fiberws.Conn) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("WebSocket handler panic")
			}
		}()

		token := c.Query("token")
		if token == "" {
			_ = c.WriteMessage(fiberws.CloseMessage, []byte("token requerido"))
			_ = c.Close()
			return
		}

		user, err := wsc.validateJWT(token)
		if err != nil {
			logrus.WithError(err).Warn("WebSocket connection rejected")
			_ = c.WriteMessage(fiberws.CloseMessage, []byte("token inválido"))
			_ = c.Close()
			return
		}

		institucionID := user.InstitucionID
		if user.Rol == "Superadministrador" {
			// Superadmins watch every tenant.
			institucionID = nil
		}
		wsc.hub.ServeFiberWS(c, user.ID, institucionID)
	})
}
