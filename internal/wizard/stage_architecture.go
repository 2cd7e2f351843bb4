package wizard

import (
	"context"
	"fmt"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"go.uber.org/zap"
)

// Architecture returns the execution plan for the session's project,
// generating and saving a new version when none exists or regenerate is set.
func (m *Manager) Architecture(ctx context.Context, regenerate bool) (*models.ProjectArchitecture, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p, cur, pending := s.project, s.architecture, s.pendingArchitecture
	t := ticket{epoch: s.epoch, input: s.inputFor(StepArchitecture)}
	s.mu.Unlock()
	if p == nil {
		return nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(StepArchitecture))
	}

	if !regenerate {
		if cur != nil {
			return cur, nil
		}
		var cached models.ProjectArchitecture
		if pending == nil && m.cacheGet(ctx, StepArchitecture, p.ID, &cached) {
			if err := s.apply(t, StepArchitecture, func() { s.architecture = &cached }); err != nil {
				return nil, err
			}
			return &cached, nil
		}
	}

	v, err := m.flight(ctx, s, StepArchitecture, p.ID.String(), func(ctx context.Context) (any, error) {
		return m.planArchitecture(ctx, s, t, user, p, regenerate)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ProjectArchitecture), nil
}

// SaveArchitecture retries saving a plan whose earlier save failed. With
// nothing pending it returns the current plan.
func (m *Manager) SaveArchitecture(ctx context.Context) (*models.ProjectArchitecture, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p, cur, pending := s.project, s.architecture, s.pendingArchitecture
	t := ticket{epoch: s.epoch, input: s.inputFor(StepArchitecture)}
	s.mu.Unlock()
	switch {
	case p == nil:
		return nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(StepArchitecture))
	case pending == nil && cur != nil:
		return cur, nil
	case pending == nil:
		return nil, appErr.New(appErr.CodeInvalid, "generate an execution plan first")
	}

	v, err := m.flight(ctx, s, StepArchitecture, p.ID.String(), func(ctx context.Context) (any, error) {
		return m.saveArchitecture(ctx, s, t, user, pending)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ProjectArchitecture), nil
}

func (m *Manager) planArchitecture(ctx context.Context, s *Session, t ticket, user *models.User, p *models.Project, regenerate bool) (*models.ProjectArchitecture, error) {
	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("project_id", p.ID.String()))

	s.mu.Lock()
	record, cur := s.pendingArchitecture, s.architecture
	s.mu.Unlock()
	if !regenerate && record == nil && cur != nil {
		return cur, nil
	}

	if record == nil || regenerate {
		log.Info("generate architecture called", zap.Bool("regenerate", regenerate))
		var out architecturePayload
		if err := m.gen.Generate(ctx, architectureRequest(p), &out); err != nil {
			log.Error("architecture generation failed", zap.Error(err))
			return nil, appErr.Generation(err, "could not generate the execution plan, please try again")
		}
		nodes, edges, err := buildGraph(out)
		if err != nil {
			log.Error("generated architecture is not a valid graph", zap.Error(err))
			return nil, appErr.Generation(err, "the generated execution plan was invalid, please try again")
		}
		record = &models.ProjectArchitecture{ProjectID: p.ID, UserID: user.ID, Nodes: nodes, Edges: edges}
		if err := s.apply(t, StepArchitecture, func() { s.pendingArchitecture = record }); err != nil {
			return nil, err
		}
	}
	return m.saveArchitecture(ctx, s, t, user, record)
}

func (m *Manager) saveArchitecture(ctx context.Context, s *Session, t ticket, user *models.User, record *models.ProjectArchitecture) (*models.ProjectArchitecture, error) {
	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("project_id", record.ProjectID.String()))

	if err := m.ensureSignedIn(ctx); err != nil {
		return nil, err
	}
	if err := m.store.CreateArchitecture(ctx, record); err != nil {
		log.Error("save architecture failed", zap.Error(err))
		return nil, appErr.Persistence(err, "could not save the execution plan, please try again")
	}

	if err := s.apply(t, StepArchitecture, func() {
		if s.pendingArchitecture == record {
			s.pendingArchitecture = nil
		}
		s.architecture = record
	}); err != nil {
		return nil, err
	}
	m.cacheSet(ctx, StepArchitecture, record.ProjectID, record)
	log.Info("architecture saved", zap.String("architecture_id", record.ID.String()), zap.Int("version", record.Version))
	return record, nil
}

// ArchitectureVersions lists every saved plan for the session's project,
// newest first.
func (m *Manager) ArchitectureVersions(ctx context.Context) ([]models.ProjectArchitecture, error) {
	s, _, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	p := s.project
	s.mu.Unlock()
	if p == nil {
		return nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(StepArchitecture))
	}

	out, err := m.store.ListArchitectures(ctx, p.ID)
	if err != nil {
		m.log.Error("list architectures failed", zap.String("project_id", p.ID.String()), zap.Error(err))
		return nil, appErr.Persistence(err, "could not load the plan history, please try again")
	}
	return out, nil
}

// RestoreArchitecture makes a saved version the current plan again. An
// unsaved plan still pending is dropped.
func (m *Manager) RestoreArchitecture(ctx context.Context, version int) (*models.ProjectArchitecture, error) {
	if version < 1 {
		return nil, appErr.Validation("version must be positive").WithMeta("version", version)
	}
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	p := s.project
	t := ticket{epoch: s.epoch, input: s.inputFor(StepArchitecture)}
	s.mu.Unlock()
	if p == nil {
		return nil, appErr.StepLocked("select a project idea first").WithMeta("step", int(StepArchitecture))
	}

	v, err := m.flight(ctx, s, StepArchitecture, fmt.Sprintf("%s@%d", p.ID, version), func(ctx context.Context) (any, error) {
		return m.restoreArchitecture(ctx, s, t, user, p, version)
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ProjectArchitecture), nil
}

func (m *Manager) restoreArchitecture(ctx context.Context, s *Session, t ticket, user *models.User, p *models.Project, version int) (*models.ProjectArchitecture, error) {
	log := m.log.With(zap.String("user_id", user.ID.String()), zap.String("project_id", p.ID.String()), zap.Int("version", version))

	if err := m.ensureSignedIn(ctx); err != nil {
		return nil, err
	}
	record := &models.ProjectArchitecture{}
	if err := m.store.RestoreArchitecture(ctx, p.ID, version, record); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, err
		}
		log.Error("restore architecture failed", zap.Error(err))
		return nil, appErr.Persistence(err, "could not restore the execution plan, please try again")
	}

	if err := s.apply(t, StepArchitecture, func() {
		s.pendingArchitecture = nil
		s.architecture = record
	}); err != nil {
		return nil, err
	}
	m.cacheSet(ctx, StepArchitecture, p.ID, record)
	log.Info("architecture restored", zap.String("architecture_id", record.ID.String()))
	return record, nil
}
