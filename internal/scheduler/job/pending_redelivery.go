package job

import (
	"EnclosureAPI/internal/config"
	"context"
	"log/slog"
	"time"
)

type Redeliverer interface {
	Redeliver(ctx context.Context, olderThan time.Duration) (delivered int, abandoned int, err error)
}

func RunPendingRedelivery(ctx context.Context, pending Redeliverer, cfg *config.AppConfig) error {
	olderThan := cfg.PendingRedeliveryAfter
	if olderThan <= 0 {
		olderThan = 5 * time.Minute
	}

	slog.Info("Running Pending Redelivery", "olderThan", olderThan)

	delivered, abandoned, err := pending.Redeliver(ctx, olderThan)
	if err != nil {
		slog.Error("Pending redelivery stopped early", "error", err, "delivered", delivered, "abandoned", abandoned)
		return err
	}

	slog.Info("Pending redelivery finished", "delivered", delivered, "abandoned", abandoned)
	return nil
}
