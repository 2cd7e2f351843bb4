package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/wizard"
	"github.com/stretchr/testify/require"
)

func envelope(w http.ResponseWriter, status int, v types.APIResponse) {
	types.WriteJSON(w, status, v)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(&Options{BaseURL: "localhost"})
	require.Error(t, err)

	c, err := NewClient(nil)
	require.NoError(t, err)
	require.Equal(t, DefaultBaseURL, c.baseURL)
}

func TestLoginStoresToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			body, _ := io.ReadAll(r.Body)
			var req types.LoginRequest
			require.NoError(t, json.Unmarshal(body, &req))
			require.Equal(t, "ada@example.com", req.Email)
			envelope(w, http.StatusOK, types.APIResponse{Data: types.TokenResponse{AccessToken: "tok-1", TokenType: "Bearer"}})
		case "/api/v1/wizard":
			gotAuth = r.Header.Get("Authorization")
			envelope(w, http.StatusOK, types.APIResponse{Data: wizard.View{ActiveStep: wizard.StepIdeas, HackathonName: "Gemini Hack"}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(&Options{BaseURL: srv.URL})
	require.NoError(t, err)

	tok, err := c.Login(context.Background(), types.LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	require.Equal(t, "tok-1", tok.AccessToken)

	v, err := c.State(context.Background())
	require.NoError(t, err)
	require.Equal(t, "Bearer tok-1", gotAuth)
	require.Equal(t, wizard.StepIdeas, v.ActiveStep)
	require.Equal(t, "Gemini Hack", v.HackathonName)
}

func TestErrorsCarryCodes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/wizard/steps/5", r.URL.Path)
		envelope(w, http.StatusConflict, types.APIResponse{Error: &types.APIError{
			Code: "step_locked", Message: "select a project idea first", Step: 5,
		}})
	}))
	defer srv.Close()

	c, err := NewClient(&Options{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)

	_, err = c.SelectStep(context.Background(), 5)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "step_locked", apiErr.Code)
	require.Equal(t, 5, apiErr.Step)
	require.False(t, apiErr.Retryable)
}

func TestRegenerateQuery(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		envelope(w, http.StatusOK, types.APIResponse{Data: []wizard.Idea{{Name: "StudyPal"}}})
	}))
	defer srv.Close()

	c, err := NewClient(&Options{BaseURL: srv.URL})
	require.NoError(t, err)

	ideas, err := c.Ideas(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, "regenerate=true", query)
	require.Len(t, ideas, 1)

	_, err = c.Ideas(context.Background(), false)
	require.NoError(t, err)
	require.Empty(t, query)
}

func TestArchitectureHistoryRoutes(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/v1/wizard/architecture/versions":
			envelope(w, http.StatusOK, types.APIResponse{Data: []models.ProjectArchitecture{{Version: 2}, {Version: 1}}})
		case "/api/v1/wizard/architecture/versions/1/restore":
			envelope(w, http.StatusOK, types.APIResponse{Data: models.ProjectArchitecture{Version: 1, IsCurrent: true}})
		case "/api/v1/wizard/continue":
			envelope(w, http.StatusOK, types.APIResponse{Data: wizard.View{ActiveStep: wizard.StepGuide}})
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(&Options{BaseURL: srv.URL, Token: "tok"})
	require.NoError(t, err)

	versions, err := c.ArchitectureVersions(context.Background())
	require.NoError(t, err)
	require.Len(t, versions, 2)

	restored, err := c.RestoreArchitecture(context.Background(), 1)
	require.NoError(t, err)
	require.True(t, restored.IsCurrent)

	v, err := c.Continue(context.Background())
	require.NoError(t, err)
	require.Equal(t, wizard.StepGuide, v.ActiveStep)

	require.Equal(t, []string{
		"GET /api/v1/wizard/architecture/versions",
		"POST /api/v1/wizard/architecture/versions/1/restore",
		"POST /api/v1/wizard/continue",
	}, calls)
}

func TestDownloadExportReturnsRawDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte("project:\n  name: StudyPal\n"))
	}))
	defer srv.Close()

	c, err := NewClient(&Options{BaseURL: srv.URL})
	require.NoError(t, err)
	doc, err := c.DownloadExport(context.Background())
	require.NoError(t, err)
	require.Contains(t, string(doc), "StudyPal")
}
