// Package client is the Go client for the BuildBuddy HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buildbuddy/engine/internal/api/types"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/queue/tasks"
	"github.com/buildbuddy/engine/internal/wizard"
	fiber "github.com/gofiber/fiber/v2"
)

const (
	DefaultBaseURL = "http://localhost:8080"
	// DefaultTimeout covers a full generation round trip.
	DefaultTimeout = 2 * time.Minute
	apiPrefix      = "/api/v1"
)

// Client is the wizard API surface.
type Client interface {
	Register(ctx context.Context, req types.RegisterRequest) (types.User, error)
	Login(ctx context.Context, req types.LoginRequest) (types.TokenResponse, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (types.User, error)

	State(ctx context.Context) (wizard.View, error)
	SelectStep(ctx context.Context, step int) (wizard.View, error)
	Continue(ctx context.Context) (wizard.View, error)
	AnalyzeHackathon(ctx context.Context, req types.HackathonRequest) (models.Hackathon, error)
	Ideas(ctx context.Context, regenerate bool) ([]wizard.Idea, error)
	SelectIdea(ctx context.Context, index int) (models.Project, error)
	Architecture(ctx context.Context, regenerate bool) (models.ProjectArchitecture, error)
	SaveArchitecture(ctx context.Context) (models.ProjectArchitecture, error)
	ArchitectureVersions(ctx context.Context) ([]models.ProjectArchitecture, error)
	RestoreArchitecture(ctx context.Context, version int) (models.ProjectArchitecture, error)
	Guide(ctx context.Context, regenerate bool) (wizard.Guide, error)
	SaveGuide(ctx context.Context) (wizard.Guide, error)
	ToggleStep(ctx context.Context, index int) (wizard.Progress, error)
	FinishGuide(ctx context.Context) (wizard.View, error)
	Deployment(ctx context.Context) (wizard.DeploymentGuide, error)
	CompleteDeployment(ctx context.Context) (wizard.Acknowledgment, error)
	RequestExport(ctx context.Context) (tasks.ExportStatus, error)
	DownloadExport(ctx context.Context) ([]byte, error)
}

var _ Client = &APIClient{}

// Options configures the client.
type Options struct {
	BaseURL string
	Timeout time.Duration
	Token   string
}

func DefaultOptions() *Options {
	return &Options{BaseURL: DefaultBaseURL, Timeout: DefaultTimeout}
}

// Error is a failed API call.
type Error struct {
	Status    int
	Code      string
	Message   string
	Retryable bool
	Step      int
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// APIClient implements Client over HTTP.
type APIClient struct {
	baseURL string
	timeout time.Duration
	token   string
}

func NewClient(opts *Options) (*APIClient, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", opts.BaseURL)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &APIClient{baseURL: strings.TrimRight(opts.BaseURL, "/"), timeout: timeout, token: opts.Token}, nil
}

// SetToken sets the bearer token sent with every request.
func (c *APIClient) SetToken(token string) { c.token = token }

func (c *APIClient) agent(ctx context.Context, method, endpoint string, body any) (*fiber.Agent, error) {
	full := c.baseURL + apiPrefix + endpoint

	var a *fiber.Agent
	switch method {
	case http.MethodGet:
		a = fiber.Get(full)
	case http.MethodPost:
		a = fiber.Post(full)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	if deadline, ok := ctx.Deadline(); ok {
		a.Timeout(time.Until(deadline))
	} else {
		a.Timeout(c.timeout)
	}
	a.Set("Accept", "application/json")
	if c.token != "" {
		a.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		a.JSON(body)
	}
	return a, nil
}

// raw sends the request and returns the body of a successful response.
func (c *APIClient) raw(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a, err := c.agent(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	status, resp, errs := a.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("error sending request: %w", errs[0])
	}
	if status < 200 || status >= 300 {
		return nil, decodeError(status, resp)
	}
	return resp, nil
}

func decodeError(status int, body []byte) error {
	var env types.APIResponse
	if err := json.Unmarshal(body, &env); err != nil || env.Error == nil {
		return &Error{Status: status, Message: strings.TrimSpace(string(body))}
	}
	return &Error{
		Status:    status,
		Code:      env.Error.Code,
		Message:   env.Error.Message,
		Retryable: env.Error.Retryable,
		Step:      env.Error.Step,
	}
}

// call sends the request and decodes the envelope's data into out.
func call[T any](ctx context.Context, c *APIClient, method, endpoint string, body any) (T, error) {
	var out T
	resp, err := c.raw(ctx, method, endpoint, body)
	if err != nil {
		return out, err
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp, &env); err != nil {
		return out, fmt.Errorf("error decoding response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("error decoding response data: %w", err)
	}
	return out, nil
}

func regenerateQuery(regenerate bool) string {
	if regenerate {
		return "?regenerate=true"
	}
	return ""
}

func (c *APIClient) Register(ctx context.Context, req types.RegisterRequest) (types.User, error) {
	return call[types.User](ctx, c, http.MethodPost, "/auth/register", req)
}

// Login signs in and keeps the returned token for later calls.
func (c *APIClient) Login(ctx context.Context, req types.LoginRequest) (types.TokenResponse, error) {
	tok, err := call[types.TokenResponse](ctx, c, http.MethodPost, "/auth/login", req)
	if err == nil {
		c.token = tok.AccessToken
	}
	return tok, err
}

func (c *APIClient) Logout(ctx context.Context) error {
	_, err := c.raw(ctx, http.MethodPost, "/auth/logout", nil)
	if err == nil {
		c.token = ""
	}
	return err
}

func (c *APIClient) Me(ctx context.Context) (types.User, error) {
	return call[types.User](ctx, c, http.MethodGet, "/auth/me", nil)
}

func (c *APIClient) State(ctx context.Context) (wizard.View, error) {
	return call[wizard.View](ctx, c, http.MethodGet, "/wizard", nil)
}

func (c *APIClient) SelectStep(ctx context.Context, step int) (wizard.View, error) {
	return call[wizard.View](ctx, c, http.MethodPost, "/wizard/steps/"+strconv.Itoa(step), nil)
}

func (c *APIClient) Continue(ctx context.Context) (wizard.View, error) {
	return call[wizard.View](ctx, c, http.MethodPost, "/wizard/continue", nil)
}

func (c *APIClient) AnalyzeHackathon(ctx context.Context, req types.HackathonRequest) (models.Hackathon, error) {
	return call[models.Hackathon](ctx, c, http.MethodPost, "/wizard/hackathon", req)
}

func (c *APIClient) Ideas(ctx context.Context, regenerate bool) ([]wizard.Idea, error) {
	return call[[]wizard.Idea](ctx, c, http.MethodGet, "/wizard/ideas"+regenerateQuery(regenerate), nil)
}

func (c *APIClient) SelectIdea(ctx context.Context, index int) (models.Project, error) {
	return call[models.Project](ctx, c, http.MethodPost, "/wizard/ideas/"+strconv.Itoa(index)+"/select", nil)
}

func (c *APIClient) Architecture(ctx context.Context, regenerate bool) (models.ProjectArchitecture, error) {
	return call[models.ProjectArchitecture](ctx, c, http.MethodGet, "/wizard/architecture"+regenerateQuery(regenerate), nil)
}

func (c *APIClient) SaveArchitecture(ctx context.Context) (models.ProjectArchitecture, error) {
	return call[models.ProjectArchitecture](ctx, c, http.MethodPost, "/wizard/architecture/save", nil)
}

func (c *APIClient) ArchitectureVersions(ctx context.Context) ([]models.ProjectArchitecture, error) {
	return call[[]models.ProjectArchitecture](ctx, c, http.MethodGet, "/wizard/architecture/versions", nil)
}

func (c *APIClient) RestoreArchitecture(ctx context.Context, version int) (models.ProjectArchitecture, error) {
	return call[models.ProjectArchitecture](ctx, c, http.MethodPost, "/wizard/architecture/versions/"+strconv.Itoa(version)+"/restore", nil)
}

func (c *APIClient) Guide(ctx context.Context, regenerate bool) (wizard.Guide, error) {
	return call[wizard.Guide](ctx, c, http.MethodGet, "/wizard/guide"+regenerateQuery(regenerate), nil)
}

func (c *APIClient) SaveGuide(ctx context.Context) (wizard.Guide, error) {
	return call[wizard.Guide](ctx, c, http.MethodPost, "/wizard/guide/save", nil)
}

func (c *APIClient) ToggleStep(ctx context.Context, index int) (wizard.Progress, error) {
	return call[wizard.Progress](ctx, c, http.MethodPost, "/wizard/guide/steps/"+strconv.Itoa(index)+"/toggle", nil)
}

func (c *APIClient) FinishGuide(ctx context.Context) (wizard.View, error) {
	return call[wizard.View](ctx, c, http.MethodPost, "/wizard/guide/finish", nil)
}

func (c *APIClient) Deployment(ctx context.Context) (wizard.DeploymentGuide, error) {
	return call[wizard.DeploymentGuide](ctx, c, http.MethodGet, "/wizard/deployment", nil)
}

func (c *APIClient) CompleteDeployment(ctx context.Context) (wizard.Acknowledgment, error) {
	return call[wizard.Acknowledgment](ctx, c, http.MethodPost, "/wizard/deployment/complete", nil)
}

func (c *APIClient) RequestExport(ctx context.Context) (tasks.ExportStatus, error) {
	return call[tasks.ExportStatus](ctx, c, http.MethodPost, "/wizard/export", nil)
}

// DownloadExport returns the YAML export document.
func (c *APIClient) DownloadExport(ctx context.Context) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, "/wizard/export", nil)
}
