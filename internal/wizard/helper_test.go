package wizard

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/buildbuddy/engine/internal/generation"
	"github.com/buildbuddy/engine/internal/identity"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/internal/repository"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	if _, err := logger.Init("info", "json"); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	os.Exit(m.Run())
}

var _ Store = (*repository.Store)(nil)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateHackathon(ctx context.Context, h *models.Hackathon) error {
	args := m.Called(ctx, h)
	if args.Error(0) == nil && h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockStore) CreateProject(ctx context.Context, p *models.Project) error {
	args := m.Called(ctx, p)
	if args.Error(0) == nil && p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockStore) CreateArchitecture(ctx context.Context, a *models.ProjectArchitecture) error {
	args := m.Called(ctx, a)
	if args.Error(0) == nil {
		a.ID = uuid.New()
		a.IsCurrent = true
	}
	return args.Error(0)
}

func (m *mockStore) CreateSteps(ctx context.Context, steps []models.ProjectStep) error {
	args := m.Called(ctx, steps)
	if args.Error(0) == nil {
		for i := range steps {
			steps[i].ID = uuid.New()
			steps[i].Batch = 1
		}
	}
	return args.Error(0)
}

func (m *mockStore) ListArchitectures(ctx context.Context, projectID uuid.UUID) ([]models.ProjectArchitecture, error) {
	args := m.Called(ctx, projectID)
	out, _ := args.Get(0).([]models.ProjectArchitecture)
	return out, args.Error(1)
}

func (m *mockStore) RestoreArchitecture(ctx context.Context, projectID uuid.UUID, version int, dest *models.ProjectArchitecture) error {
	args := m.Called(ctx, projectID, version)
	if a, ok := args.Get(0).(*models.ProjectArchitecture); ok {
		*dest = *a
	}
	return args.Error(1)
}

// fakeGenerator answers each request name with a canned value. Requests
// named in block wait until the channel is closed or ctx is done.
type fakeGenerator struct {
	mu        sync.Mutex
	responses map[string]any
	errs      map[string]error
	block     map[string]chan struct{}
	calls     map[string]int
	entered   chan string
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		responses: map[string]any{
			reqHackathon:    geminiAnalysis(),
			reqIdeas:        geminiIdeas(),
			reqArchitecture: studyPalPlan(),
			reqGuide:        studyPalGuide(8),
		},
		errs:    map[string]error{},
		block:   map[string]chan struct{}{},
		calls:   map[string]int{},
		entered: make(chan string, 64),
	}
}

func (g *fakeGenerator) Generate(ctx context.Context, req generation.Request, out any) error {
	g.mu.Lock()
	g.calls[req.Name]++
	resp, err, gate := g.responses[req.Name], g.errs[req.Name], g.block[req.Name]
	g.mu.Unlock()

	select {
	case g.entered <- req.Name:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", generation.ErrGenerationFailed, ctx.Err())
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %w", generation.ErrGenerationFailed, err)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return jsonschema.VerifySchemaAndUnmarshal(req.Schema, data, out)
}

func (g *fakeGenerator) set(name string, resp any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.responses[name] = resp
}

func (g *fakeGenerator) fail(name string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[name] = err
}

func (g *fakeGenerator) hold(name string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.block[name] = ch
	return ch
}

func (g *fakeGenerator) count(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[name]
}

type fakeOracle struct {
	mu   sync.Mutex
	user *models.User
	out  bool
	subs []func(identity.SessionEvent)
}

func (o *fakeOracle) CurrentUser(ctx context.Context) (*models.User, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.out {
		return nil, appErr.AuthRequired()
	}
	u := *o.user
	return &u, nil
}

func (o *fakeOracle) Logout(ctx context.Context, token string) error { return nil }

func (o *fakeOracle) Subscribe(fn func(identity.SessionEvent)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.subs = append(o.subs, fn)
	return func() {}
}

func (o *fakeOracle) setSignedOut(out bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.out = out
}

func (o *fakeOracle) emit(ev identity.SessionEvent) {
	o.mu.Lock()
	subs := append([]func(identity.SessionEvent){}, o.subs...)
	o.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

type harness struct {
	ctx    context.Context
	user   *models.User
	gen    *fakeGenerator
	store  *mockStore
	oracle *fakeOracle
	m      *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	user := &models.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada"}
	h := &harness{
		ctx:    context.Background(),
		user:   user,
		gen:    newFakeGenerator(),
		store:  &mockStore{},
		oracle: &fakeOracle{user: user},
	}
	h.m = NewManager(h.gen, h.store, h.oracle, NewMemoryCache(0))
	t.Cleanup(h.m.Close)
	return h
}

// storeOK makes every store call succeed.
func (h *harness) storeOK() *harness {
	h.store.On("CreateHackathon", mock.Anything, mock.Anything).Return(nil)
	h.store.On("CreateProject", mock.Anything, mock.Anything).Return(nil)
	h.store.On("CreateArchitecture", mock.Anything, mock.Anything).Return(nil)
	h.store.On("CreateSteps", mock.Anything, mock.Anything).Return(nil)
	return h
}

var geminiInput = HackathonInput{
	Name:  "Gemini Hack",
	Rules: "Build something useful with Gemini in 48 hours. Teams of up to 4. Judged on impact, technical depth and creative use of multimodal AI.",
}

// toProject drives a session to step 3 with the first idea selected.
func (h *harness) toProject(t *testing.T) *models.Project {
	t.Helper()
	_, err := h.m.AnalyzeHackathon(h.ctx, geminiInput)
	require.NoError(t, err)
	_, err = h.m.Ideas(h.ctx, false)
	require.NoError(t, err)
	p, err := h.m.SelectIdea(h.ctx, 0)
	require.NoError(t, err)
	return p
}

func geminiAnalysis() map[string]any {
	return map[string]any{
		"theme":           "Multimodal AI for everyday problems",
		"judgingCriteria": []string{"Impact", "Technical depth", "Creative use of Gemini"},
		"timeConstraints": "48 hours",
	}
}

func idea(name, difficulty string) map[string]any {
	return map[string]any{
		"name":          name,
		"description":   name + " helps people get things done.",
		"difficulty":    difficulty,
		"estimatedTime": "24 hours",
		"judgingValue":  "High impact with a clear demo",
		"techStack":     "React, Go, Gemini API",
	}
}

func geminiIdeas() map[string]any {
	return map[string]any{"projects": []map[string]any{
		idea("StudyPal", "Beginner"),
		idea("FridgeChef", "Intermediate"),
		idea("SignBridge", "Advanced"),
		idea("MeetingMind", "Intermediate"),
		idea("CityLens", "Advanced"),
	}}
}

func studyPalPlan() map[string]any {
	node := func(id, label string, x, y float64) map[string]any {
		return map[string]any{"id": id, "label": label, "position": map[string]any{"x": x, "y": y}}
	}
	edge := func(id, src, dst string) map[string]any {
		return map[string]any{"id": id, "source": src, "target": dst, "animated": true}
	}
	return map[string]any{
		"nodes": []map[string]any{
			node("web", "Frontend", 0, 0),
			node("api", "Backend API", 250, 0),
			node("ai", "Gemini", 500, -100),
			node("db", "Database", 500, 100),
		},
		"edges": []map[string]any{
			edge("e1", "web", "api"),
			edge("e2", "api", "ai"),
			edge("e3", "api", "db"),
		},
	}
}

func studyPalGuide(n int) map[string]any {
	steps := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		steps = append(steps, map[string]any{
			"title":       fmt.Sprintf("Step %d", i+1),
			"objective":   "Make progress",
			"explanation": "Do the next small thing.",
			"code":        "go run ./cmd/api",
			"file":        "main.go",
		})
	}
	return map[string]any{"steps": steps}
}
