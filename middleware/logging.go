package middleware

import (
	"ccjap_go/database"
	"ccjap_go/models"
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Redis list drained periodically by the activity-log flush job.
const activityLogQueueKey = "activity_logs:queue"

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		logrus.WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     c.Response().StatusCode(),
			"duration":   time.Since(start).String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		}).Info("HTTP Request")

		return err
	}
}

// LogActivity records a user action. Writes go through the Redis queue when
// available so request handlers never wait on the audit insert; without Redis
// the row is inserted directly in a goroutine.
func LogActivity(c *fiber.Ctx, action, resource string, resourceID uint, details interface{}) {
	var userID uint
	if user, err := GetCurrentUser(c); err == nil {
		userID = user.ID
	}

	var detailsJSON models.JSON
	if details != nil {
		if detailsBytes, err := json.Marshal(details); err == nil {
			detailsJSON = detailsBytes
		}
	}

	entry := models.ActivityLog{
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    detailsJSON,
		IPAddress:  c.IP(),
		UserAgent:  c.Get("User-Agent"),
	}

	go func(al models.ActivityLog) {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithField("panic", r).Error("panic recovered in LogActivity goroutine")
			}
		}()

		if err := enqueueActivityLog(al); err == nil {
			return
		}
		if database.DB == nil {
			logrus.Error("database.DB is nil; cannot save activity log")
			return
		}
		if dbErr := database.DB.Create(&al).Error; dbErr != nil {
			logrus.WithError(dbErr).Error("Failed to save activity log to database")
		}
	}(entry)
}

func enqueueActivityLog(al models.ActivityLog) error {
	rc := database.GetRedisClient()
	if rc == nil {
		return errRedisUnavailable
	}
	payload, err := json.Marshal(al)
	if err != nil {
		return err
	}
	return rc.RPush(context.Background(), activityLogQueueKey, payload).Err()
}

var errRedisUnavailable = fiber.NewError(fiber.StatusServiceUnavailable, "redis unavailable")

// FlushActivityLogs drains the Redis queue into the database. Called from the
// maintenance scheduler; returns the number of rows persisted.
func FlushActivityLogs() (int, error) {
	rc := database.GetRedisClient()
	if rc == nil {
		return 0, nil
	}

	ctx := context.Background()
	flushed := 0
	for {
		payload, err := rc.LPop(ctx, activityLogQueueKey).Bytes()
		if err != nil {
			// Empty queue surfaces as redis.Nil; either way we stop.
			break
		}
		var al models.ActivityLog
		if err := json.Unmarshal(payload, &al); err != nil {
			logrus.WithError(err).Warn("Dropping malformed activity log entry")
			continue
		}
		if err := database.DB.Create(&al).Error; err != nil {
			logrus.WithError(err).Error("Failed to persist queued activity log")
			continue
		}
		flushed++
	}
	return flushed, nil
}
