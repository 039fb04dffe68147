package bootstrap

import (
	"EnclosureAPI/internal/adapter"
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/controller"
	"EnclosureAPI/internal/download"
	"EnclosureAPI/internal/localcache"
	"EnclosureAPI/internal/middleware"
	"EnclosureAPI/internal/repository"
	"EnclosureAPI/internal/service"
	"EnclosureAPI/internal/websocket"
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// App holds the long-lived pieces main needs to drain on shutdown.
type App struct {
	Hub              *websocket.Hub
	MediaSendService *service.MediaSendService
	DownloadService  *service.DownloadService

	rateLimiter  *config.RateLimiter
	redisAdapter *adapter.RedisAdapter
}

func Init(appConfig *config.AppConfig, db *sql.DB, validator *validator.Validate, httpClient *http.Client, chiMux *chi.Mux) (*App, error) {
	if appConfig.DBMigrate {
		if err := repository.NewPendingMessageRepository(db).Migrate(context.Background()); err != nil {
			return nil, err
		}
		slog.Info("Pending message schema migrated")
	}

	redisAdapter, err := adapter.NewRedisAdapter(appConfig)
	if err != nil {
		slog.Warn("Redis unavailable, rate limiting falls back to in-process limiter", "error", err)
		redisAdapter = nil
	}

	repo := repository.NewRepository(db, redisAdapter)

	storage, err := NewStorage(appConfig)
	if err != nil {
		return nil, err
	}

	wsHub := websocket.NewHub()
	go wsHub.Run()

	mediaCache := localcache.New(appConfig.MediaCacheDir)
	exporter := service.NewDefaultExporter(appConfig, nil)
	uploader := service.NewBatchUploader(appConfig, exporter, storage.ContentStore, mediaCache)

	deliveryAdapter := adapter.NewDeliveryAdapter(appConfig, httpClient)
	backendAPIAdapter := adapter.NewBackendAPIAdapter(appConfig, httpClient)

	mediaSendService := service.NewMediaSendService(appConfig, uploader, repo.PendingMessage, deliveryAdapter, wsHub, backendAPIAdapter)
	pendingService := service.NewPendingService(appConfig, repo.PendingMessage, deliveryAdapter)
	groupService := service.NewGroupService(backendAPIAdapter)

	downloadPolicy := NewDownloadPolicy(appConfig)
	downloadManager := download.NewManager(NewDownloadHTTPClient(downloadPolicy), storage.Fetchers, downloadPolicy)
	downloadService := service.NewDownloadService(validator, downloadManager, mediaCache, wsHub)

	rateLimiter := config.NewRateLimiter(10 * time.Minute)
	var rateLimitStore middleware.RateLimitStore
	if repo.RateLimit != nil {
		rateLimitStore = repo.RateLimit
	}

	authMiddleware := middleware.NewAuthMiddleware(appConfig)
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(rateLimitStore, rateLimiter, appConfig)

	route := NewRoute(
		appConfig,
		chiMux,
		db,
		authMiddleware,
		rateLimitMiddleware,
		controller.NewMediaController(appConfig, validator, mediaSendService),
		controller.NewPendingController(pendingService),
		controller.NewGroupController(groupService),
		controller.NewDownloadController(downloadService),
		controller.NewWebSocketController(wsHub),
	)
	route.Register()

	return &App{
		Hub:              wsHub,
		MediaSendService: mediaSendService,
		DownloadService:  downloadService,
		rateLimiter:      rateLimiter,
		redisAdapter:     redisAdapter,
	}, nil
}

// Shutdown waits for in-flight deliveries and downloads, then stops the hub.
func (a *App) Shutdown() {
	a.MediaSendService.Wait()
	a.DownloadService.Wait()
	a.Hub.Stop()
	a.rateLimiter.Stop()
	if a.redisAdapter != nil {
		if err := a.redisAdapter.Close(); err != nil {
			slog.Warn("Error closing redis connection", "error", err)
		}
	}
}

// Storage is the configured content store plus every bucket fetcher the
// download manager can use.
type Storage struct {
	ContentStore service.ContentStore
	Fetchers     map[string]download.ObjectFetcher
}

func NewStorage(cfg *config.AppConfig) (*Storage, error) {
	storage := &Storage{Fetchers: map[string]download.ObjectFetcher{}}

	var s3Adapter *adapter.StorageAdapter
	if cfg.S3Bucket != "" {
		s3Client, err := config.NewS3Client(cfg)
		if err != nil {
			slog.Error("Failed to initialize S3 client", "error", err)
		} else {
			s3Adapter = adapter.NewStorageAdapter(cfg, s3Client)
			storage.Fetchers["s3"] = s3Adapter
		}
	}

	var firebaseAdapter *adapter.FirebaseStorageAdapter
	if cfg.FirebaseBucket != "" {
		svc, err := config.NewFirebaseStorageService(cfg)
		if err != nil {
			slog.Error("Failed to initialize Firebase storage client", "error", err)
		} else {
			firebaseAdapter = adapter.NewFirebaseStorageAdapter(cfg, svc)
			storage.Fetchers["gs"] = firebaseAdapter
		}
	}

	switch cfg.StorageProvider {
	case "firebase":
		if firebaseAdapter == nil {
			return nil, errors.New("firebase storage is not configured")
		}
		storage.ContentStore = firebaseAdapter
	default:
		if s3Adapter == nil {
			return nil, errors.New("s3 storage is not configured")
		}
		storage.ContentStore = s3Adapter
	}

	slog.Info("Content store ready", "provider", cfg.StorageProvider)
	return storage, nil
}
