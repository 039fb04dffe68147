package job

import (
	"EnclosureAPI/internal/config"
	"context"
	"log/slog"
	"time"
)

type CacheCleaner interface {
	Cleanup(cutoff time.Time) (int, error)
	TotalSize() (int64, error)
}

func RunMediaCacheCleanup(ctx context.Context, cache CacheCleaner, cfg *config.AppConfig) error {
	retentionDays := cfg.MediaCacheRetentionDays
	if retentionDays < 0 {
		retentionDays = 30.0
	}

	duration := time.Duration(retentionDays * 24 * float64(time.Hour))
	cutoff := time.Now().UTC().Add(-duration)

	slog.Info("Running Media Cache Cleanup", "retentionDays", retentionDays, "cutoff", cutoff)

	if err := ctx.Err(); err != nil {
		return err
	}

	removed, err := cache.Cleanup(cutoff)
	if err != nil {
		slog.Error("Failed to clean media cache", "error", err, "removed", removed)
		return err
	}

	total, err := cache.TotalSize()
	if err != nil {
		slog.Warn("Failed to measure media cache", "error", err)
	}

	slog.Info("Media cache cleanup finished", "removed", removed, "remainingBytes", total)
	return nil
}
