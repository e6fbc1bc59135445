package controllers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"ccjap_go/database"
	"ccjap_go/middleware"
	"ccjap_go/models"
)

// LogController exposes the activity audit trail to administrators.
type LogController struct{}

func NewLogController() *LogController { return &LogController{} }

// LogResponse flattens the stored JSON details for the panel.
type LogResponse struct {
	ID         uint                   `json:"id"`
	UserID     uint                   `json:"user_id"`
	Action     string                 `json:"action"`
	Resource   string                 `json:"resource"`
	ResourceID uint                   `json:"resource_id"`
	Details    map[string]interface{} `json:"details"`
	IPAddress  string                 `json:"ip_address"`
	UserAgent  string                 `json:"user_agent"`
	CreatedAt  time.Time              `json:"fecha_creacion"`
}

// GetLogs lists audit entries, newest first. Filters: user_id, action,
// resource, desde, hasta; limit/offset paging.
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	if _, err := middleware.GetCurrentClaims(c); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "No autorizado"})
	}

	query := database.GetDB().Model(&models.ActivityLog{})
	if userID := c.QueryInt("user_id"); userID > 0 {
		query = query.Where("user_id = ?", userID)
	}
	if action := c.Query("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if resource := c.Query("resource"); resource != "" {
		query = query.Where("resource = ?", resource)
	}
	if desde := c.Query("desde"); desde != "" {
		if d, err := time.Parse("2006-01-02", desde); err == nil {
			query = query.Where("created_at >= ?", d)
		}
	}
	if hasta := c.Query("hasta"); hasta != "" {
		if h, err := time.Parse("2006-01-02", hasta); err == nil {
			query = query.Where("created_at < ?", h.AddDate(0, 0, 1))
		}
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los registros"})
	}

	var logs []models.ActivityLog
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&logs).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los registros"})
	}

	responses := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		var details map[string]interface{}
		if !l.Details.IsNull() {
			_ = json.Unmarshal(l.Details, &details)
		}
		responses = append(responses, LogResponse{
			ID:         l.ID,
			UserID:     l.UserID,
			Action:     l.Action,
			Resource:   l.Resource,
			ResourceID: l.ResourceID,
			Details:    details,
			IPAddress:  l.IPAddress,
			UserAgent:  l.UserAgent,
			CreatedAt:  l.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"logs":   responses,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// startOfToday is midnight in the server's local zone, so the "today"
// counter rolls over with the local calendar day.
func startOfToday(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// GetLogStats returns aggregate counts for the audit dashboard.
func (lc *LogController) GetLogStats(c *fiber.Ctx) error {
	db := database.GetDB().Model(&models.ActivityLog{})

	var total, today int64
	if err := db.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los registros"})
	}
	if err := database.GetDB().Model(&models.ActivityLog{}).
		Where("created_at >= ?", startOfToday(time.Now())).Count(&today).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los registros"})
	}

	type breakdown struct {
		Key   string `json:"key"`
		Count int64  `json:"count"`
	}
	var byAction []breakdown
	if err := database.GetDB().Model(&models.ActivityLog{}).
		Select("action AS `key`, COUNT(*) AS count").
		Group("action").Order("count DESC").Limit(10).Scan(&byAction).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "No se pudieron consultar los registros"})
	}

	return c.JSON(fiber.Map{
		"total":       total,
		"total_hoy":   today,
		"por_accion":  byAction,
	})
}
