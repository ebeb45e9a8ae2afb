package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/joynpoolmaster-tech/my-academy-bus/models"
	"github.com/joynpoolmaster-tech/my-academy-bus/storage"

	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const logQueueKey = "logs:queue"

// LogArchiveService drains Redis-cached activity logs into the
// database and periodically archives old rows to S3.
type LogArchiveService struct {
	db    *gorm.DB
	redis *redis.Client
	s3    *storage.S3Storage
	cron  *cron.Cron
}

func NewLogArchiveService(db *gorm.DB, redisClient *redis.Client, s3 *storage.S3Storage) *LogArchiveService {
	return &LogArchiveService{db: db, redis: redisClient, s3: s3}
}

// Start schedules the flush every ten minutes and the archive sweep
// nightly at 03:00.
func (s *LogArchiveService) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc("*/10 * * * *", func() {
		if err := s.FlushQueued(context.Background()); err != nil {
			logrus.WithError(err).Error("Activity log flush failed")
		}
	}); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.ArchiveOlderThan(context.Background(), 90*24*time.Hour); err != nil {
			logrus.WithError(err).Error("Activity log archive failed")
		}
	}); err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *LogArchiveService) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// FlushQueued moves cached log entries from Redis into the database.
// Entries that fail to decode are dropped from the queue so one bad
// record cannot wedge the flush forever.
func (s *LogArchiveService) FlushQueued(ctx context.Context) error {
	if s.redis == nil {
		return nil
	}

	keys, err := s.redis.ZRange(ctx, logQueueKey, 0, 499).Result()
	if err != nil {
		return fmt.Errorf("read log queue: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	flushed := 0
	for _, key := range keys {
		data, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			var entry models.ActivityLog
			if jsonErr := json.Unmarshal([]byte(data), &entry); jsonErr == nil {
				entry.ID = 0
				if dbErr := s.db.Create(&entry).Error; dbErr != nil {
					logrus.WithError(dbErr).Warn("Failed to persist cached activity log")
					continue
				}
				flushed++
			}
		}
		s.redis.ZRem(ctx, logQueueKey, key)
		s.redis.Del(ctx, key)
	}

	if flushed > 0 {
		logrus.WithField("count", flushed).Info("Activity logs flushed to database")
	}
	return nil
}

// ArchiveOlderThan uploads activity logs older than the retention
// window to S3 as one JSON file, records the archive and deletes the
// archived rows.
func (s *LogArchiveService) ArchiveOlderThan(ctx context.Context, retention time.Duration) error {
	if s.s3 == nil {
		return nil
	}
	cutoff := time.Now().Add(-retention)

	var logs []models.ActivityLog
	err := s.db.Where("created_at < ?", cutoff).
		Order("created_at ASC").
		Find(&logs).Error
	if err != nil {
		return fmt.Errorf("collect logs: %w", err)
	}
	if len(logs) == 0 {
		return nil
	}

	data, err := json.Marshal(logs)
	if err != nil {
		return fmt.Errorf("encode logs: %w", err)
	}

	fileName := fmt.Sprintf("activity-logs-%s.json", time.Now().UTC().Format("20060102-150405"))
	archive := models.LogArchive{
		FileName:    fileName,
		StartDate:   logs[0].CreatedAt,
		EndDate:     logs[len(logs)-1].CreatedAt,
		RecordCount: len(logs),
		FileSize:    int64(len(data)),
		Status:      "pending",
	}

	key, err := s.s3.UploadArchive(ctx, fileName, data)
	if err != nil {
		archive.Status = "failed"
		archive.Error = err.Error()
		s.db.Create(&archive)
		return err
	}
	archive.S3Key = key
	archive.Status = "completed"

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&archive).Error; err != nil {
			return err
		}
		return tx.Unscoped().
			Where("created_at < ?", cutoff).
			Delete(&models.ActivityLog{}).Error
	})
}
