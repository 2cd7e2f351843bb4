package repository

import (
	"context"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
)

// Store exposes the four wizard collections behind one value.
type Store struct {
	Hackathons    HackathonRepository
	Projects      ProjectRepository
	Architectures ArchitectureRepository
	Steps         StepRepository
}

func NewStore(h HackathonRepository, p ProjectRepository, a ArchitectureRepository, s StepRepository) *Store {
	return &Store{Hackathons: h, Projects: p, Architectures: a, Steps: s}
}

func (s *Store) CreateHackathon(ctx context.Context, h *models.Hackathon) error {
	return s.Hackathons.Create(ctx, h)
}

func (s *Store) CreateProject(ctx context.Context, p *models.Project) error {
	return s.Projects.Create(ctx, p)
}

func (s *Store) CreateArchitecture(ctx context.Context, a *models.ProjectArchitecture) error {
	return s.Architectures.CreateVersioned(ctx, a)
}

func (s *Store) ListArchitectures(ctx context.Context, projectID uuid.UUID) ([]models.ProjectArchitecture, error) {
	return s.Architectures.ListByProject(ctx, projectID)
}

// RestoreArchitecture makes version the current plan and loads it into dest.
func (s *Store) RestoreArchitecture(ctx context.Context, projectID uuid.UUID, version int, dest *models.ProjectArchitecture) error {
	if err := s.Architectures.SetCurrent(ctx, projectID, version); err != nil {
		return err
	}
	return s.Architectures.GetByVersion(ctx, projectID, version, dest)
}

func (s *Store) CreateSteps(ctx context.Context, steps []models.ProjectStep) error {
	_, err := s.Steps.CreateBatch(ctx, steps)
	return err
}

// PlanBundle is everything saved for one project: the hackathon it belongs
// to, the current execution plan and the latest build guide batch.
type PlanBundle struct {
	Hackathon    models.Hackathon
	Project      models.Project
	Architecture *models.ProjectArchitecture
	Steps        []models.ProjectStep
}

// LoadPlan gathers a project's saved plan. A project owned by another user
// is reported as not found. Architecture and Steps are empty when those
// stages have not run yet.
func (s *Store) LoadPlan(ctx context.Context, userID, projectID uuid.UUID) (*PlanBundle, error) {
	var b PlanBundle
	if err := s.Projects.GetByID(ctx, projectID, &b.Project); err != nil {
		return nil, err
	}
	if b.Project.UserID != userID {
		return nil, appErr.New(appErr.CodeNotFound, "project not found")
	}
	if err := s.Hackathons.GetByID(ctx, b.Project.HackathonID, &b.Hackathon); err != nil {
		return nil, err
	}

	var arch models.ProjectArchitecture
	switch err := s.Architectures.GetCurrentByProject(ctx, projectID, &arch); {
	case err == nil:
		b.Architecture = &arch
	case !appErr.IsCode(err, appErr.CodeNotFound):
		return nil, err
	}

	steps, err := s.Steps.ListLatestBatch(ctx, projectID)
	if err != nil {
		return nil, err
	}
	b.Steps = steps
	return &b, nil
}
