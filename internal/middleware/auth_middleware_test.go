package middleware

import (
	"EnclosureAPI/internal/config"
	"EnclosureAPI/internal/helper"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func echoUID() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(user.UID + "|" + user.FCMToken))
	})
}

func TestVerifyToken(t *testing.T) {
	m := NewAuthMiddleware(&config.AppConfig{JWTSecret: testSecret})
	token, err := helper.GenerateJWT(testSecret, time.Hour, helper.JWTClaims{UID: "u1", FToken: "push"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.VerifyToken(echoUID()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1|push", rec.Body.String())
}

func TestVerifyTokenRejects(t *testing.T) {
	m := NewAuthMiddleware(&config.AppConfig{JWTSecret: testSecret})
	wrongKey, err := helper.GenerateJWT("other", time.Hour, helper.JWTClaims{UID: "u1"})
	require.NoError(t, err)
	expired, err := helper.GenerateJWT(testSecret, -time.Minute, helper.JWTClaims{UID: "u1"})
	require.NoError(t, err)

	for name, header := range map[string]string{
		"missing":   "",
		"no bearer": "Token abc",
		"wrong key": "Bearer " + wrongKey,
		"expired":   "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			m.VerifyToken(echoUID()).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestVerifyWSToken(t *testing.T) {
	m := NewAuthMiddleware(&config.AppConfig{JWTSecret: testSecret})
	token, err := helper.GenerateJWT(testSecret, time.Hour, helper.JWTClaims{UID: "u2"})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	m.VerifyWSToken(echoUID()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u2|", rec.Body.String())

	rec = httptest.NewRecorder()
	m.VerifyWSToken(echoUID()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
