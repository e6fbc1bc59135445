package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"ccjap_go/database"
)

// HealthController reports component-level health for load balancers and
// uptime monitors.
type HealthController struct{}

func NewHealthController() *HealthController { return &HealthController{} }

// GetHealthStatus pings the database and Redis. Redis is optional, so a
// missing client degrades the report without failing it.
func (hc *HealthController) GetHealthStatus(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	status := "ok"
	code := fiber.StatusOK
	components := fiber.Map{}

	dbStatus := "ok"
	if sqlDB, err := database.GetDB().DB(); err != nil {
		dbStatus = "error"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "error"
	}
	if dbStatus != "ok" {
		status = "unhealthy"
		code = fiber.StatusServiceUnavailable
	}
	components["database"] = dbStatus

	redisStatus := "disabled"
	if rc := database.GetRedisClient(); rc != nil {
		redisStatus = "ok"
		if err := rc.Ping(ctx).Err(); err != nil {
			redisStatus = "error"
			if status == "ok" {
				status = "degraded"
			}
		}
	}
	components["redis"] = redisStatus

	return c.Status(code).JSON(fiber.Map{
		"status":     status,
		"components": components,
		"timestamp":  time.Now().UTC(),
	})
}
