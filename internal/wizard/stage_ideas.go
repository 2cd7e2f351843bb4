package wizard

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Idea is one candidate project recommended on step 2.
type Idea struct {
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Difficulty    models.Difficulty `json:"difficulty"`
	EstimatedTime string            `json:"estimated_time"`
	JudgingValue  string            `json:"judging_value"`
	TechStack     string            `json:"tech_stack"`
}

func (i Idea) project(hackathonID, userID uuid.UUID) *models.Project {
	return &models.Project{
		HackathonID:   hackathonID,
		UserID:        userID,
		Name:          i.Name,
		Description:   i.Description,
		Difficulty:    i.Difficulty,
		EstimatedTime: i.EstimatedTime,
		JudgingValue:  i.JudgingValue,
		TechStack:     i.TechStack,
	}
}

type ideaPayload struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Difficulty    string `json:"difficulty"`
	EstimatedTime string `json:"estimatedTime"`
	JudgingValue  string `json:"judgingValue"`
	TechStack     string `json:"techStack"`
}

type ideasPayload struct {
	Projects []ideaPayload `json:"projects"`
}

func parseDifficulty(s string) (models.Difficulty, bool) {
	for _, d := range []models.Difficulty{models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced} {
		if strings.EqualFold(strings.TrimSpace(s), string(d)) {
			return d, true
		}
	}
	return "", false
}

func (p ideasPayload) ideas() ([]Idea, error) {
	if len(p.Projects) != ideaCount {
		return nil, fmt.Errorf("expected %d ideas, got %d", ideaCount, len(p.Projects))
	}
	out := make([]Idea, 0, ideaCount)
	for i, raw := range p.Projects {
		d, ok := parseDifficulty(raw.Difficulty)
		if !ok {
			return nil, fmt.Errorf("idea %d has unknown difficulty %q", i, raw.Difficulty)
		}
		if strings.TrimSpace(raw.Name) == "" {
			return nil, fmt.Errorf("idea %d has no name", i)
		}
		out = append(out, Idea{
			Name:          strings.TrimSpace(raw.Name),
			Description:   raw.Description,
			Difficulty:    d,
			EstimatedTime: raw.EstimatedTime,
			JudgingValue:  raw.JudgingValue,
			TechStack:     raw.TechStack,
		})
	}
	return out, nil
}

// Ideas returns five project candidates for the session's hackathon.
// Candidates are generated once per hackathon unless regenerate is set.
func (m *Manager) Ideas(ctx context.Context, regenerate bool) ([]Idea, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	h, ideas := s.hackathon, s.ideas
	t := ticket{epoch: s.epoch, input: s.inputFor(StepIdeas)}
	s.mu.Unlock()
	if h == nil {
		return nil, lockedError(StepIdeas)
	}

	if !regenerate {
		if ideas != nil {
			return cloneIdeas(ideas), nil
		}
		var cached []Idea
		if m.cacheGet(ctx, StepIdeas, h.ID, &cached) && len(cached) == ideaCount {
			if err := s.apply(t, StepIdeas, func() { s.ideas = cached }); err != nil {
				return nil, err
			}
			return cloneIdeas(cached), nil
		}
	}

	v, err := m.flight(ctx, s, StepIdeas, h.ID.String(), func(ctx context.Context) (any, error) {
		return m.generateIdeas(ctx, s, t, user, h, regenerate)
	})
	if err != nil {
		return nil, err
	}
	return cloneIdeas(v.([]Idea)), nil
}

func (m *Manager) generateIdeas(ctx context.Context, s *Session, t ticket, user *models.User, h *models.Hackathon, regenerate bool) ([]Idea, error) {
	if !regenerate {
		s.mu.Lock()
		ideas := s.ideas
		fresh := s.current(t, StepIdeas)
		s.mu.Unlock()
		if fresh && ideas != nil {
			return ideas, nil
		}
	}
	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("hackathon_id", h.ID.String()))
	log.Info("generate ideas called")

	var out ideasPayload
	if err := m.gen.Generate(ctx, ideasRequest(h), &out); err != nil {
		log.Error("idea generation failed", zap.Error(err))
		return nil, appErr.Generation(err, "could not generate project ideas, please try again")
	}
	ideas, err := out.ideas()
	if err != nil {
		log.Error("idea generation returned unusable candidates", zap.Error(err))
		return nil, appErr.Generation(err, "could not generate project ideas, please try again")
	}

	if err := s.apply(t, StepIdeas, func() { s.ideas = ideas }); err != nil {
		return nil, err
	}
	m.cacheSet(ctx, StepIdeas, h.ID, ideas)
	return ideas, nil
}

// SelectIdea saves candidate i as the session's project and moves to step 3.
// Only the first selection for a hackathon creates a project; later calls
// return it.
func (m *Manager) SelectIdea(ctx context.Context, i int) (*models.Project, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	h := s.hackathon
	switch {
	case h == nil:
		s.mu.Unlock()
		return nil, lockedError(StepIdeas)
	case s.project != nil && s.project.HackathonID == h.ID:
		p := s.project
		s.mu.Unlock()
		return p, nil
	case s.selecting:
		s.mu.Unlock()
		return nil, appErr.New(appErr.CodeConflict, "project selection already in progress")
	case len(s.ideas) == 0:
		s.mu.Unlock()
		return nil, appErr.New(appErr.CodeInvalid, "generate project ideas first")
	case i < 0 || i >= len(s.ideas):
		s.mu.Unlock()
		return nil, appErr.Validation("idea index out of range").WithMeta("index", i)
	}
	idea := s.ideas[i]
	t := ticket{epoch: s.epoch, input: s.inputFor(StepIdeas)}
	s.selecting = true
	s.mu.Unlock()

	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("hackathon_id", h.ID.String()))
	log.Info("select idea called", zap.Int("index", i), zap.String("name", idea.Name))

	release := func() {
		s.mu.Lock()
		if s.epoch == t.epoch {
			s.selecting = false
		}
		s.mu.Unlock()
	}

	if err := m.ensureSignedIn(ctx); err != nil {
		release()
		return nil, err
	}
	p := idea.project(h.ID, user.ID)
	if err := m.store.CreateProject(ctx, p); err != nil {
		release()
		log.Error("save project failed", zap.Error(err))
		return nil, appErr.Persistence(err, "could not save the selected project, please try again")
	}

	if err := s.apply(t, StepIdeas, func() { s.resolveProject(p) }); err != nil {
		return nil, err
	}
	log.Info("project selected", zap.String("project_id", p.ID.String()))
	return p, nil
}

func cloneIdeas(in []Idea) []Idea {
	out := make([]Idea, len(in))
	copy(out, in)
	return out
}
