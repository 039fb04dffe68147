package bootstrap

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/controller"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/middleware"
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type Route struct {
	cfg                 *config.AppConfig
	chi                 *chi.Mux
	db                  *sql.DB
	authMiddleware      *middleware.AuthMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware
	mediaController     *controller.MediaController
	pendingController   *controller.PendingController
	groupController     *controller.GroupController
	downloadController  *controller.DownloadController
	webSocketController *controller.WebSocketController
}

func NewRoute(
	cfg *config.AppConfig,
	chi *chi.Mux,
	db *sql.DB,
	authMiddleware *middleware.AuthMiddleware,
	rateLimitMiddleware *middleware.RateLimitMiddleware,
	mediaController *controller.MediaController,
	pendingController *controller.PendingController,
	groupController *controller.GroupController,
	downloadController *controller.DownloadController,
	webSocketController *controller.WebSocketController,
) *Route {
	return &Route{
		cfg:                 cfg,
		chi:                 chi,
		db:                  db,
		authMiddleware:      authMiddleware,
		rateLimitMiddleware: rateLimitMiddleware,
		mediaController:     mediaController,
		pendingController:   pendingController,
		groupController:     groupController,
		downloadController:  downloadController,
		webSocketController: webSocketController,
	}
}

func (route *Route) Register() {
	route.chi.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Welcome to EnclosureAPI"))
	})

	route.chi.Get("/health", route.health)

	route.chi.With(route.authMiddleware.VerifyWSToken).Get("/ws", route.webSocketController.ServeWS)

	route.chi.Route("/api", func(r chi.Router) {
		r.Use(route.authMiddleware.VerifyToken)

		r.Group(func(r chi.Router) {
			r.Use(route.rateLimitMiddleware.Limit("send_media", route.cfg.RateLimitSendPerMinute, time.Minute))

			r.Post("/chats/{contactUID}/media", route.mediaController.SendToContact)
			r.Post("/groups/{groupID}/media", route.mediaController.SendToGroup)
			r.Post("/share", route.mediaController.ShareToContacts)
		})

		r.Get("/groups/{groupID}", route.groupController.GetGroup)

		r.Get("/pending/{receiverUID}", route.pendingController.List)
		r.Post("/pending/{receiverUID}/ack", route.pendingController.Acknowledge)
		r.Delete("/pending/{receiverUID}/{modelID}", route.pendingController.Remove)

		r.Post("/downloads", route.downloadController.StartDownload)
		r.Get("/downloads", route.downloadController.ActiveDownloads)
	})
}

func (route *Route) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := route.db.PingContext(ctx); err != nil {
		slog.Warn("Health check failed", "error", err)
		helper.WriteError(w, helper.NewServiceUnavailableError(""))
		return
	}

	helper.WriteSuccess(w, map[string]string{"status": "ok"})
}
