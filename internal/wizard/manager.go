package wizard

import (
	"context"
	"fmt"
	"sync"

	"github.com/buildbuddy/engine/internal/generation"
	"github.com/buildbuddy/engine/internal/identity"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/buildbuddy/engine/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Store persists the entities each stage produces.
type Store interface {
	CreateHackathon(ctx context.Context, h *models.Hackathon) error
	CreateProject(ctx context.Context, p *models.Project) error
	CreateArchitecture(ctx context.Context, a *models.ProjectArchitecture) error
	CreateSteps(ctx context.Context, steps []models.ProjectStep) error
	ListArchitectures(ctx context.Context, projectID uuid.UUID) ([]models.ProjectArchitecture, error)
	RestoreArchitecture(ctx context.Context, projectID uuid.UUID, version int, dest *models.ProjectArchitecture) error
}

// Manager owns one Session per user and runs the stage operations.
type Manager struct {
	gen      generation.Generator
	store    Store
	identity identity.Oracle
	cache    Cache
	log      *zap.Logger

	group singleflight.Group

	mu          sync.Mutex
	sessions    map[uuid.UUID]*Session
	unsubscribe func()
}

// NewManager wires the stage collaborators. Sessions are reset when the
// identity oracle reports a sign-out. A nil cache means an untimed memory
// cache.
func NewManager(gen generation.Generator, store Store, oracle identity.Oracle, cache Cache) *Manager {
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	m := &Manager{
		gen:      gen,
		store:    store,
		identity: oracle,
		cache:    cache,
		log:      logger.Named("wizard"),
		sessions: map[uuid.UUID]*Session{},
	}
	m.unsubscribe = oracle.Subscribe(m.onSessionEvent)
	return m
}

// Close stops listening for identity events.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

func (m *Manager) onSessionEvent(ev identity.SessionEvent) {
	if ev.IsLoading || ev.SignedIn {
		return
	}
	m.Reset(ev.UserID)
}

// Reset clears the user's session, if any.
func (m *Manager) Reset(userID uuid.UUID) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if ok {
		s.Reset()
		m.log.Info("wizard session reset", zap.String("user_id", userID.String()))
	}
}

// Session returns the user's session, creating it on first use.
func (m *Manager) Session(userID uuid.UUID) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	if !ok {
		s = NewSession(userID)
		m.sessions[userID] = s
	}
	return s
}

func (m *Manager) sessionFor(ctx context.Context) (*Session, *models.User, error) {
	user, err := m.identity.CurrentUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	return m.Session(user.ID), user, nil
}

// View returns the caller's session snapshot.
func (m *Manager) View(ctx context.Context) (View, error) {
	s, _, err := m.sessionFor(ctx)
	if err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// SelectStep navigates the caller's session to step n.
func (m *Manager) SelectStep(ctx context.Context, n Step) (View, error) {
	s, _, err := m.sessionFor(ctx)
	if err != nil {
		return View{}, err
	}
	if err := s.SelectStep(n); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// Continue moves the caller's session past a step that captures no new
// entity: the execution plan once it is saved, or the build guide once half
// of it is done.
func (m *Manager) Continue(ctx context.Context) (View, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return View{}, err
	}
	if err := s.Continue(); err != nil {
		return View{}, err
	}
	v := s.View()
	m.log.Info("wizard step continued", zap.String("user_id", user.ID.String()), zap.Stringer("step", v.ActiveStep))
	return v, nil
}

// ensureSignedIn re-checks identity right before a store write.
func (m *Manager) ensureSignedIn(ctx context.Context) error {
	_, err := m.identity.CurrentUser(ctx)
	return err
}

func flightKey(userID uuid.UUID, epoch uint64, stage Step, input string) string {
	return fmt.Sprintf("%s:%d:%s:%s", userID, epoch, stage, input)
}

// flight runs fn as the single in-flight call for (session, stage). Callers
// arriving with the same input share its result. fn gets a context that keeps
// ctx's values but not its cancellation, so a caller that goes away does not
// fail the others joined to the call.
func (m *Manager) flight(ctx context.Context, s *Session, stage Step, input string, fn func(ctx context.Context) (any, error)) (any, error) {
	key, err := s.enter(stage, input)
	if err != nil {
		return nil, err
	}
	defer s.leave(stage, key)
	shared := context.WithoutCancel(ctx)
	v, err, joined := m.group.Do(key, func() (any, error) { return fn(shared) })
	if joined {
		m.log.Debug("joined in-flight call", zap.String("user_id", s.userID.String()), zap.Stringer("step", stage))
	}
	return v, err
}

func (m *Manager) cacheGet(ctx context.Context, stage Step, id uuid.UUID, dest any) bool {
	ok, err := m.cache.Get(ctx, stage, id, dest)
	if err != nil {
		m.log.Warn("stage cache read failed", zap.Stringer("step", stage), zap.Error(err))
		return false
	}
	return ok
}

func (m *Manager) cacheSet(ctx context.Context, stage Step, id uuid.UUID, v any) {
	if err := m.cache.Set(ctx, stage, id, v); err != nil {
		m.log.Warn("stage cache write failed", zap.Stringer("step", stage), zap.Error(err))
	}
}
