package middleware

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/helper"
	"EnclosureAPI/internal/model"
	"context"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const UserContextKey contextKey = "userContext"

type AuthMiddleware struct {
	secret string
}

func NewAuthMiddleware(cfg *config.AppConfig) *AuthMiddleware {
	return &AuthMiddleware{
		secret: cfg.JWTSecret,
	}
}

func (m *AuthMiddleware) VerifyToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		scheme, token, found := strings.Cut(authHeader, " ")
		if !found || scheme != "Bearer" || token == "" {
			helper.WriteError(w, helper.NewUnauthorizedError(""))
			return
		}

		m.serveWithUser(w, r, next, token)
	})
}

// VerifyWSToken reads the token from the query string; browsers cannot set
// headers on a websocket upgrade.
func (m *AuthMiddleware) VerifyWSToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			helper.WriteError(w, helper.NewUnauthorizedError(""))
			return
		}

		m.serveWithUser(w, r, next, token)
	})
}

func (m *AuthMiddleware) serveWithUser(w http.ResponseWriter, r *http.Request, next http.Handler, token string) {
	claims, err := helper.ParseJWT(m.secret, token)
	if err != nil {
		slog.Warn("Rejected bearer token", "error", err)
		helper.WriteError(w, helper.NewUnauthorizedError("invalid or expired token"))
		return
	}

	user := &model.UserDTO{
		UID:        claims.UID,
		FullName:   claims.FullName,
		Photo:      claims.Photo,
		FCMToken:   claims.FToken,
		DeviceType: claims.DeviceType,
	}

	ctx := context.WithValue(r.Context(), UserContextKey, user)
	next.ServeHTTP(w, r.WithContext(ctx))
}

// UserFromContext returns the authenticated sender, or nil.
func UserFromContext(ctx context.Context) *model.UserDTO {
	user, _ := ctx.Value(UserContextKey).(*model.UserDTO)
	return user
}
