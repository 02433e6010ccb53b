// Package server implements the HVACPulse APIs and storage layer.
// The data plane ingests device heartbeats into the device_state table;
// the control plane serves operator reads. Storage goes through GORM with
// Postgres (production, externally provisioned schema) or SQLite (dev/test).
package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/vesaa/hvacpulse/internal/config"
	"github.com/vesaa/hvacpulse/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var DB *gorm.DB

var logger = zap.NewNop()

// SetLogger installs the zap logger used by the server package.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// InitDB opens the database selected by db_driver. With SQLite it also runs
// AutoMigrate; with Postgres the device_state schema is provisioned
// externally and never touched here.
func InitDB(cfg *config.Config) error {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres", "":
		dialector = postgres.Open(cfg.PostgresDSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DBPath)
	default:
		return fmt.Errorf("unsupported db_driver %q (use 'postgres' or 'sqlite')", cfg.DBDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	if cfg.DBDriver == "sqlite" {
		if strings.Contains(cfg.DBPath, ":memory:") {
			// an in-memory sqlite database exists per connection; the pool
			// must stay on a single one or the schema vanishes
			sqlDB, err := db.DB()
			if err != nil {
				return fmt.Errorf("accessing sql.DB: %w", err)
			}
			sqlDB.SetMaxOpenConns(1)
		}
		if err := db.AutoMigrate(&models.DeviceState{}); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	DB = db
	logger.Info("database opened", zap.String("driver", cfg.DBDriver))
	return nil
}

// upsertDeviceState is the single statement behind every heartbeat. The
// COALESCE arms keep a stored value whenever the incoming one is NULL, so a
// heartbeat that omits a field never erases what an earlier one reported.
// Runs unchanged on Postgres and SQLite.
const upsertDeviceState = `
INSERT INTO device_state (
    device_id, site_id, last_seen_ts, status, agent_version,
    cpu_pct, disk_free_gb, queue_depth, poll_interval_s,
    last_upload_ts, updated_at
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (device_id) DO UPDATE SET
    last_seen_ts    = EXCLUDED.last_seen_ts,
    status          = COALESCE(EXCLUDED.status, device_state.status),
    agent_version   = COALESCE(EXCLUDED.agent_version, device_state.agent_version),
    cpu_pct         = COALESCE(EXCLUDED.cpu_pct, device_state.cpu_pct),
    disk_free_gb    = COALESCE(EXCLUDED.disk_free_gb, device_state.disk_free_gb),
    queue_depth     = COALESCE(EXCLUDED.queue_depth, device_state.queue_depth),
    poll_interval_s = COALESCE(EXCLUDED.poll_interval_s, device_state.poll_interval_s),
    last_upload_ts  = COALESCE(EXCLUDED.last_upload_ts, device_state.last_upload_ts),
    updated_at      = EXCLUDED.updated_at`

// UpsertHeartbeat writes one heartbeat record, creating or refreshing the
// device's row. seenAt becomes last_seen_ts and updated_at; each call is its
// own autocommit transaction so batch records stay independent.
func UpsertHeartbeat(ctx context.Context, rec models.HeartbeatRecord, seenAt time.Time) error {
	return DB.WithContext(ctx).Exec(upsertDeviceState,
		rec.DeviceID, rec.SiteID, seenAt, rec.Status, rec.AgentVersion,
		rec.CPUPct, rec.DiskFreeGB, rec.QueueDepth, rec.PollIntervalS,
		rec.LastUploadTS, seenAt,
	).Error
}

// ListDeviceStates returns device rows newest-first, optionally filtered by
// site. limit caps the result; values outside 1..1000 fall back to 100.
func ListDeviceStates(ctx context.Context, siteID string, limit int) ([]models.DeviceState, error) {
	if limit < 1 || limit > 1000 {
		limit = 100
	}
	q := DB.WithContext(ctx).Order("last_seen_ts DESC").Limit(limit)
	if siteID != "" {
		q = q.Where("site_id = ?", siteID)
	}
	var rows []models.DeviceState
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetDeviceState returns one device's row, or gorm.ErrRecordNotFound when
// the device has never sent a heartbeat.
func GetDeviceState(ctx context.Context, deviceID string) (*models.DeviceState, error) {
	var row models.DeviceState
	if err := DB.WithContext(ctx).First(&row, "device_id = ?", deviceID).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
