package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/buildbuddy/engine/internal/api/handlers"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (uuid.UUID, error) {
	return uuid.Nil, appErr.New(appErr.CodeUnauthorized, "invalid token")
}

func newTestRouter() http.Handler {
	return NewRouter(Dependencies{
		Authenticator: rejectAll{},
		AuthHandler:   handlers.NewAuthHandler(nil, 0),
		WizardHandler: handlers.NewWizardHandler(nil, nil),
	})
}

func TestPublicEndpoints(t *testing.T) {
	r := newTestRouter()
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rr.Code, path)
		require.NotEmpty(t, rr.Header().Get("X-Request-ID"), path)
	}
}

func TestWizardRoutesRequireAuth(t *testing.T) {
	r := newTestRouter()
	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/v1/wizard"},
		{http.MethodPost, "/api/v1/wizard/hackathon"},
		{http.MethodGet, "/api/v1/wizard/ideas"},
		{http.MethodPost, "/api/v1/wizard/export"},
		{http.MethodGet, "/api/v1/auth/me"},
	}
	for _, c := range cases {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(c.method, c.path, nil))
		require.Equal(t, http.StatusUnauthorized, rr.Code, c.path)

		req := httptest.NewRequest(c.method, c.path, nil)
		req.Header.Set("Authorization", "Bearer forged")
		rr = httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		require.Equal(t, http.StatusUnauthorized, rr.Code, c.path)
	}
}

func TestCORSPreflight(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/api/v1/wizard", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
