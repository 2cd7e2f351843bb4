package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Guide is the current build guide batch with the session's progress.
type Guide struct {
	ProjectID uuid.UUID            `json:"project_id"`
	Steps     []models.ProjectStep `json:"steps"`
	Progress  Progress             `json:"progress"`
}

type guidePayload struct {
	Steps []models.StepContent `json:"steps"`
}

func (p guidePayload) steps(projectID, userID uuid.UUID) ([]models.ProjectStep, error) {
	if n := len(p.Steps); n < minGuideSteps || n > maxGuideSteps {
		return nil, fmt.Errorf("expected %d-%d steps, got %d", minGuideSteps, maxGuideSteps, n)
	}
	out := make([]models.ProjectStep, 0, len(p.Steps))
	for i, c := range p.Steps {
		title := strings.TrimSpace(c.Title)
		if title == "" {
			return nil, fmt.Errorf("step %d has no title", i)
		}
		out = append(out, models.ProjectStep{
			ProjectID:  projectID,
			UserID:     userID,
			OrderIndex: i,
			Title:      title,
			Content:    datatypes.NewJSONType(c),
		})
	}
	return out, nil
}

// Guide returns the build guide for the session's project, generating and
// saving a new batch when none exists or regenerate is set.
func (m *Manager) Guide(ctx context.Context, regenerate bool) (*Guide, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p, cur, pending := s.project, s.guide, s.pendingGuide
	t := ticket{epoch: s.epoch, input: s.inputFor(StepGuide)}
	s.mu.Unlock()
	if p == nil {
		return nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(StepGuide))
	}

	if !regenerate {
		if cur != nil {
			return s.guideView(p.ID), nil
		}
		var cached []models.ProjectStep
		if pending == nil && m.cacheGet(ctx, StepGuide, p.ID, &cached) && len(cached) > 0 {
			if err := s.apply(t, StepGuide, func() { s.setGuide(cached) }); err != nil {
				return nil, err
			}
			return s.guideView(p.ID), nil
		}
	}

	if _, err := m.flight(ctx, s, StepGuide, p.ID.String(), func(ctx context.Context) (any, error) {
		return m.writeGuide(ctx, s, t, user, p, regenerate)
	}); err != nil {
		return nil, err
	}
	return s.guideView(p.ID), nil
}

// SaveGuide retries saving a guide whose earlier save failed. With nothing
// pending it returns the current guide.
func (m *Manager) SaveGuide(ctx context.Context) (*Guide, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p, cur, pending := s.project, s.guide, s.pendingGuide
	t := ticket{epoch: s.epoch, input: s.inputFor(StepGuide)}
	s.mu.Unlock()
	switch {
	case p == nil:
		return nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(StepGuide))
	case pending == nil && cur != nil:
		return s.guideView(p.ID), nil
	case pending == nil:
		return nil, appErr.New(appErr.CodeInvalid, "generate the build guide first")
	}

	if _, err := m.flight(ctx, s, StepGuide, p.ID.String(), func(ctx context.Context) (any, error) {
		return m.saveGuide(ctx, s, t, user, p, pending)
	}); err != nil {
		return nil, err
	}
	return s.guideView(p.ID), nil
}

// ToggleStep flips completion of guide step i.
func (m *Manager) ToggleStep(ctx context.Context, i int) (Progress, error) {
	s, _, err := m.sessionFor(ctx)
	if err != nil {
		return Progress{}, err
	}
	return s.ToggleStep(i)
}

// FinishGuide moves to deployment once enough steps are complete.
func (m *Manager) FinishGuide(ctx context.Context) (View, error) {
	s, _, err := m.sessionFor(ctx)
	if err != nil {
		return View{}, err
	}
	if err := s.Finish(); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

func (m *Manager) writeGuide(ctx context.Context, s *Session, t ticket, user *models.User, p *models.Project, regenerate bool) ([]models.ProjectStep, error) {
	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("project_id", p.ID.String()))

	s.mu.Lock()
	steps, cur := s.pendingGuide, s.guide
	s.mu.Unlock()
	if !regenerate && steps == nil && cur != nil {
		return cur, nil
	}

	if steps == nil || regenerate {
		log.Info("generate guide called", zap.Bool("regenerate", regenerate))
		var out guidePayload
		if err := m.gen.Generate(ctx, guideRequest(p), &out); err != nil {
			log.Error("guide generation failed", zap.Error(err))
			return nil, appErr.Generation(err, "could not generate the build guide, please try again")
		}
		var err error
		if steps, err = out.steps(p.ID, user.ID); err != nil {
			log.Error("generated guide is unusable", zap.Error(err))
			return nil, appErr.Generation(err, "the generated build guide was invalid, please try again")
		}
		if err := s.apply(t, StepGuide, func() { s.pendingGuide = steps }); err != nil {
			return nil, err
		}
	}
	return m.saveGuide(ctx, s, t, user, p, steps)
}

func (m *Manager) saveGuide(ctx context.Context, s *Session, t ticket, user *models.User, p *models.Project, steps []models.ProjectStep) ([]models.ProjectStep, error) {
	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("project_id", p.ID.String()))

	if err := m.ensureSignedIn(ctx); err != nil {
		return nil, err
	}
	if err := m.store.CreateSteps(ctx, steps); err != nil {
		log.Error("save guide failed", zap.Error(err))
		return nil, appErr.Persistence(err, "could not save the build guide, please try again")
	}

	if err := s.apply(t, StepGuide, func() {
		s.pendingGuide = nil
		s.setGuide(steps)
	}); err != nil {
		return nil, err
	}
	m.cacheSet(ctx, StepGuide, p.ID, steps)
	log.Info("guide saved", zap.Int("steps", len(steps)), zap.Int("batch", steps[0].Batch))
	return steps, nil
}

// setGuide installs a new batch and clears completion. Caller holds mu.
func (s *Session) setGuide(steps []models.ProjectStep) {
	s.guide = steps
	s.completed = map[int]bool{}
}

func (s *Session) guideView(projectID uuid.UUID) *Guide {
	s.mu.Lock()
	defer s.mu.Unlock()
	steps := make([]models.ProjectStep, len(s.guide))
	copy(steps, s.guide)
	return &Guide{ProjectID: projectID, Steps: steps, Progress: s.progress()}
}
