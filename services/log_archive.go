package services

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"ccjap_go/database"
	"ccjap_go/models"
	"ccjap_go/storage"
)

// LogArchiveService moves old activity logs out of the hot table into zipped
// JSON archives on S3.
type LogArchiveService struct {
	storage *storage.StorageService
	cron    *cron.Cron
}

// ArchivedLog is the exported representation stored inside archives.
type ArchivedLog struct {
	ID         uint           `json:"id"`
	UserID     uint           `json:"user_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID uint           `json:"resource_id"`
	Details    map[string]any `json:"details"`
	IPAddress  string         `json:"ip_address"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  time.Time      `json:"created_at"`
}

func NewLogArchiveService(store *storage.StorageService) *LogArchiveService {
	return &LogArchiveService{
		storage: store,
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// StartMaintenanceScheduler archives 90-day-old logs on the first day of each
// month at 03:00.
func (las *LogArchiveService) StartMaintenanceScheduler() error {
	if _, err := las.cron.AddFunc("0 3 1 * *", func() {
		if err := las.ArchiveOldLogs(90); err != nil {
			logrus.WithError(err).Error("Activity log archival failed")
		}
	}); err != nil {
		return err
	}
	las.cron.Start()
	return nil
}

// ArchiveOldLogs uploads logs older than daysOld as a zipped JSON file and
// deletes the archived rows. Rows are only deleted after the upload succeeds.
func (las *LogArchiveService) ArchiveOldLogs(daysOld int) error {
	if daysOld < 7 {
		return fmt.Errorf("minimum archive age is 7 days for safety")
	}
	if las.storage == nil {
		return fmt.Errorf("storage not configured")
	}

	cutoffDate := time.Now().AddDate(0, 0, -daysOld)
	db := database.GetDB()

	const batchSize = 1000
	var archived []ArchivedLog
	var maxID uint

	for {
		var logs []models.ActivityLog
		if err := db.Where("created_at < ? AND id > ?", cutoffDate, maxID).
			Order("id ASC").Limit(batchSize).Find(&logs).Error; err != nil {
			return fmt.Errorf("failed to load logs for archival: %w", err)
		}
		if len(logs) == 0 {
			break
		}
		for _, l := range logs {
			var details map[string]any
			if !l.Details.IsNull() {
				_ = json.Unmarshal(l.Details, &details)
			}
			archived = append(archived, ArchivedLog{
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
		maxID = logs[len(logs)-1].ID
	}

	if len(archived) == 0 {
		logrus.Info("No activity logs old enough to archive")
		return nil
	}

	payload, err := json.MarshalIndent(archived, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	entry, err := zw.Create("activity_logs.json")
	if err != nil {
		return err
	}
	if _, err := entry.Write(payload); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}

	key := fmt.Sprintf("archives/activity_logs/%s_%d.zip", time.Now().Format("2006-01"), time.Now().Unix())
	if err := las.storage.UploadArchive(key, buf.Bytes(), "application/zip"); err != nil {
		return err
	}

	if err := db.Where("created_at < ?", cutoffDate).Delete(&models.ActivityLog{}).Error; err != nil {
		return fmt.Errorf("archive uploaded but cleanup failed: %w", err)
	}

	logrus.WithFields(logrus.Fields{"count": len(archived), "key": key}).Info("Archived activity logs")
	return nil
}
