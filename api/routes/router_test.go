package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oaklinehq/oakline-backend/pkg/auth"
	"github.com/oaklinehq/oakline-backend/pkg/config"
	"github.com/oaklinehq/oakline-backend/pkg/logger"
)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "oakline-test",
			ExpirationMinutes: 15,
		},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return NewRouter(RouterParams{
		Config: testConfig(),
		Logger: logger.New(logger.Options{ServiceName: "router-test"}),
	})
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", w.Header().Get("X-Oakline-Env"))
}

func TestHealthReady_NoDepsWired(t *testing.T) {
	router := newTestRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{"/api/v1/cart", "/api/v1/addresses", "/api/v1/orders"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusUnauthorized, w.Code, path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	}
}

func TestProtectedRouteRejectsForgedToken(t *testing.T) {
	cfg := testConfig()
	router := NewRouter(RouterParams{
		Config: cfg,
		Logger: logger.New(logger.Options{ServiceName: "router-test"}),
	})

	forged := config.JWTConfig{Secret: "other-secret", Issuer: cfg.JWT.Issuer, ExpirationMinutes: 15}
	token, err := auth.MintAccessToken(forged, time.Now(), auth.AccessTokenPayload{UserID: uuid.New()})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
