package services

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// HealthService checks the backing stores.
type HealthService struct {
	db    *gorm.DB
	redis *redis.Client
}

func NewHealthService(db *gorm.DB, redisClient *redis.Client) *HealthService {
	return &HealthService{db: db, redis: redisClient}
}

// HealthStatus is the readiness snapshot.
type HealthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

// Check pings the database and Redis with a short deadline. Redis is
// optional; its absence degrades the status without failing it.
func (s *HealthService) Check(ctx context.Context) HealthStatus {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	status := HealthStatus{Status: "ok", Database: "ok", Redis: "ok"}

	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		status.Database = "down"
		status.Status = "down"
	}

	if s.redis == nil {
		status.Redis = "disabled"
	} else if err := s.redis.Ping(ctx).Err(); err != nil {
		status.Redis = "down"
		if status.Status == "ok" {
			status.Status = "degraded"
		}
	}

	return status
}
