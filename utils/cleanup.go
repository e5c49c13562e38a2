package utils

import (
	"context"
	"fmt"
	"os"
	"time"

	"training-crm-backend/config"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const maxRetries = 3
const retryDelay = 2 * time.Minute

// CleanupExpiredFiles deletes a generated export file once it is older than
// the TTL
func CleanupExpiredFiles(filePath string, ttl time.Duration) error {
	info, err := os.Stat(filePath)
	if err != nil {
		return fmt.Errorf("error checking file: %w", err)
	}

	if time.Since(info.ModTime()) > ttl {
		if err := os.Remove(filePath); err != nil {
			return fmt.Errorf("error deleting expired file: %w", err)
		}
		config.Logger.Info("Expired export file deleted", zap.String("file", filePath))
	}
	return nil
}

// CleanupAllExpired removes export files past their TTL along with the
// cached file-path entries pointing at them
func CleanupAllExpired(fileTTL time.Duration, rdb *redis.Client) error {
	files, err := os.ReadDir(exportDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading files directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		filePath := fmt.Sprintf("%s/%s", exportDir, file.Name())
		if err := CleanupExpiredFiles(filePath, fileTTL); err != nil {
			config.Logger.Warn("Error cleaning up file", zap.Error(err))
		}
	}

	if err := InvalidateCache(context.Background(), rdb, "clients_export"); err != nil {
		return fmt.Errorf("error cleaning up export cache: %w", err)
	}
	return nil
}

// RunScheduledMaintenance schedules the nightly jobs: export cleanup at 1 AM
// and a cache warm at 2 AM, so the first morning page load never pays for a
// full location or head-site rebuild. The warm function is supplied by the
// caller to keep the scheduling free of cache internals.
func RunScheduledMaintenance(rdb *redis.Client, warmCaches func(ctx context.Context) error) {
	c := cron.New()

	c.AddFunc("0 1 * * *", func() {
		config.Logger.Info("Running scheduled export cleanup")

		for attempt := 1; attempt <= maxRetries; attempt++ {
			err := CleanupAllExpired(24*time.Hour, rdb)
			if err == nil {
				config.Logger.Info("Export cleanup successful")
				return
			}
			config.Logger.Warn("Export cleanup attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if attempt < maxRetries {
				time.Sleep(retryDelay)
			}
		}
		config.Logger.Error("Export cleanup failed after retries")
	})

	if warmCaches != nil {
		c.AddFunc("0 2 * * *", func() {
			config.Logger.Info("Running scheduled cache warm")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			if err := warmCaches(ctx); err != nil {
				config.Logger.Error("Scheduled cache warm failed", zap.Error(err))
			}
		})
	}

	c.AddFunc("0 0 * * *", func() {
		config.Logger.Info("Running scheduled database backup")
		if err := config.BackupDatabase(); err != nil {
			config.Logger.Error("Scheduled database backup failed", zap.Error(err))
		}
	})

	c.Start()
}
