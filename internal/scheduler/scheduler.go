package scheduler

import (
	"EnclosureAPI/internal/adapter"
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/localcache"
	"EnclosureAPI/internal/repository"
	"EnclosureAPI/internal/scheduler/job"
	"EnclosureAPI/internal/service"
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cfg            *config.AppConfig
	cron           *cron.Cron
	pendingService *service.PendingService
	mediaCache     *localcache.Cache
}

func New(cfg *config.AppConfig, db *sql.DB, httpClient *http.Client) *Scheduler {
	repo := repository.NewPendingMessageRepository(db)
	deliveryAdapter := adapter.NewDeliveryAdapter(cfg, httpClient)

	return &Scheduler{
		cfg:            cfg,
		cron:           cron.New(),
		pendingService: service.NewPendingService(cfg, repo, deliveryAdapter),
		mediaCache:     localcache.New(cfg.MediaCacheDir),
	}
}

func (s *Scheduler) Start() {
	slog.Info("Starting Scheduler...")

	s.registerJobs()

	s.cron.Start()
	slog.Info("Scheduler started successfully")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("Scheduler stopped")
}

func (s *Scheduler) registerJobs() {
	s.register("Pending Redelivery", s.cfg.PendingRedeliveryCron, func(ctx context.Context) error {
		return job.RunPendingRedelivery(ctx, s.pendingService, s.cfg)
	})

	s.register("Media Cache Cleanup", s.cfg.CacheCleanupCron, func(ctx context.Context) error {
		return job.RunMediaCacheCleanup(ctx, s.mediaCache, s.cfg)
	})
}

func (s *Scheduler) register(name, schedule string, run func(ctx context.Context) error) {
	_, err := s.cron.AddFunc(schedule, func() {
		slog.Info("Starting job", "job", name)
		if err := run(context.Background()); err != nil {
			slog.Error("Job failed", "job", name, "error", err)
		} else {
			slog.Info("Job completed", "job", name)
		}
	})
	if err != nil {
		slog.Error("Failed to register job", "job", name, "error", err)
		return
	}
	slog.Info("Registered job", "job", name, "schedule", schedule)
}
