package repository

import (
	"testing"

	"github.com/buildbuddy/engine/internal/models"
	appErr "github.com/buildbuddy/engine/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"gorm.io/datatypes"
)

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) TestUserEmailIsUnique() {
	users := NewUserRepository(s.db)
	err := users.Create(s.ctx, &models.User{Email: "ada@example.com", PasswordHash: "y", Name: "Other"})
	s.Require().Error(err)
	s.True(appErr.IsCode(err, appErr.CodeConflict))

	var got models.User
	s.Require().NoError(users.GetByEmail(s.ctx, " ADA@example.com ", &got))
	s.Equal(s.user.ID, got.ID)
}

func (s *RepositorySuite) TestGetByIDNotFound() {
	var h models.Hackathon
	err := s.store.Hackathons.GetByID(s.ctx, uuid.New(), &h)
	s.True(appErr.IsCode(err, appErr.CodeNotFound))
}

func (s *RepositorySuite) TestHackathonRoundTripsJSONColumns() {
	h, p := s.seedProject()

	var got models.Hackathon
	s.Require().NoError(s.store.Hackathons.GetByID(s.ctx, h.ID, &got))
	s.Equal([]string{"Impact", "Demo"}, []string(got.JudgingCriteria))
	s.NotEqual(uuid.Nil, got.ID)

	list, err := s.store.Projects.ListByHackathon(s.ctx, h.ID)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(p.ID, list[0].ID)
}

func (s *RepositorySuite) TestArchitectureVersionsSupersedeCurrent() {
	_, p := s.seedProject()
	nodes := datatypes.JSONSlice[models.Node]{{ID: "fe", Label: "Frontend"}, {ID: "db", Label: "Database"}}
	edges := datatypes.JSONSlice[models.Edge]{{ID: "e1", Source: "fe", Target: "db"}}

	first := &models.ProjectArchitecture{ProjectID: p.ID, UserID: s.user.ID, Nodes: nodes, Edges: edges}
	s.Require().NoError(s.store.CreateArchitecture(s.ctx, first))
	second := &models.ProjectArchitecture{ProjectID: p.ID, UserID: s.user.ID, Nodes: nodes, Edges: edges}
	s.Require().NoError(s.store.CreateArchitecture(s.ctx, second))

	s.Equal(1, first.Version)
	s.Equal(2, second.Version)

	var current models.ProjectArchitecture
	s.Require().NoError(s.store.Architectures.GetCurrentByProject(s.ctx, p.ID, &current))
	s.Equal(second.ID, current.ID)
	s.Require().Len(current.Nodes, 2)
	s.Equal("Database", current.Nodes[1].Label)

	all, err := s.store.Architectures.ListByProject(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Len(all, 2)

	s.Require().NoError(s.store.Architectures.SetCurrent(s.ctx, p.ID, 1))
	s.Require().NoError(s.store.Architectures.GetCurrentByProject(s.ctx, p.ID, &current))
	s.Equal(first.ID, current.ID)

	err = s.store.Architectures.SetCurrent(s.ctx, p.ID, 9)
	s.True(appErr.IsCode(err, appErr.CodeNotFound))
}

func (s *RepositorySuite) TestLookupsOverwriteReusedDestination() {
	_, p := s.seedProject()
	nodes := datatypes.JSONSlice[models.Node]{{ID: "api", Label: "API"}}

	first := &models.ProjectArchitecture{ProjectID: p.ID, UserID: s.user.ID, Nodes: nodes}
	s.Require().NoError(s.store.CreateArchitecture(s.ctx, first))
	second := &models.ProjectArchitecture{ProjectID: p.ID, UserID: s.user.ID, Nodes: nodes}
	s.Require().NoError(s.store.CreateArchitecture(s.ctx, second))

	dest := *second
	s.Require().NoError(s.store.Architectures.SetCurrent(s.ctx, p.ID, 1))
	s.Require().NoError(s.store.Architectures.GetCurrentByProject(s.ctx, p.ID, &dest))
	s.Equal(first.ID, dest.ID)

	s.Require().NoError(s.store.Architectures.GetByVersion(s.ctx, p.ID, 2, &dest))
	s.Equal(second.ID, dest.ID)
	s.False(dest.IsCurrent)

	var h models.Hackathon
	s.Require().NoError(s.store.Hackathons.GetByID(s.ctx, p.HackathonID, &h))
	other := &models.Hackathon{UserID: s.user.ID, Name: "Other", Rules: "Anything goes."}
	s.Require().NoError(s.store.CreateHackathon(s.ctx, other))
	s.Require().NoError(s.store.Hackathons.GetByID(s.ctx, other.ID, &h))
	s.Equal("Other", h.Name)
}

func (s *RepositorySuite) TestRestoreArchitectureReturnsRestoredVersion() {
	_, p := s.seedProject()
	nodes := datatypes.JSONSlice[models.Node]{{ID: "api", Label: "API"}}
	for i := 0; i < 3; i++ {
		s.Require().NoError(s.store.CreateArchitecture(s.ctx, &models.ProjectArchitecture{ProjectID: p.ID, UserID: s.user.ID, Nodes: nodes}))
	}

	var got models.ProjectArchitecture
	s.Require().NoError(s.store.RestoreArchitecture(s.ctx, p.ID, 2, &got))
	s.Equal(2, got.Version)
	s.True(got.IsCurrent)

	all, err := s.store.ListArchitectures(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(all, 3)
	s.Equal(3, all[0].Version)
	for _, a := range all {
		s.Equal(a.Version == 2, a.IsCurrent, a.Version)
	}

	err = s.store.RestoreArchitecture(s.ctx, p.ID, 7, &got)
	s.True(appErr.IsCode(err, appErr.CodeNotFound))
}

func (s *RepositorySuite) TestStepBatchesAreNumberedAndOrdered() {
	_, p := s.seedProject()
	mk := func(n int) []models.ProjectStep {
		out := make([]models.ProjectStep, n)
		for i := range out {
			out[i] = models.ProjectStep{
				ProjectID:  p.ID,
				UserID:     s.user.ID,
				OrderIndex: i,
				Title:      "step",
				Content:    datatypes.NewJSONType(models.StepContent{Title: "step", File: "main.go"}),
			}
		}
		return out
	}

	s.Require().NoError(s.store.CreateSteps(s.ctx, mk(6)))
	batch, err := s.store.Steps.CreateBatch(s.ctx, mk(8))
	s.Require().NoError(err)
	s.Equal(2, batch)

	latest, err := s.store.Steps.ListLatestBatch(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Require().Len(latest, 8)
	for i, st := range latest {
		s.Equal(i, st.OrderIndex)
		s.Equal(2, st.Batch)
		s.Equal("main.go", st.Content.Data().File)
	}

	_, err = s.store.Steps.CreateBatch(s.ctx, nil)
	s.True(appErr.IsCode(err, appErr.CodeInvalid))
}

func (s *RepositorySuite) TestDuplicateOrderIndexIsRejected() {
	_, p := s.seedProject()
	steps := []models.ProjectStep{
		{ProjectID: p.ID, UserID: s.user.ID, OrderIndex: 0, Title: "a"},
		{ProjectID: p.ID, UserID: s.user.ID, OrderIndex: 0, Title: "b"},
	}
	err := s.store.CreateSteps(s.ctx, steps)
	s.Require().Error(err)

	latest, err := s.store.Steps.ListLatestBatch(s.ctx, p.ID)
	s.Require().NoError(err)
	s.Empty(latest)
}

func (s *RepositorySuite) TestLoadPlanGathersLatestState() {
	h, p := s.seedProject()

	b, err := s.store.LoadPlan(s.ctx, s.user.ID, p.ID)
	s.Require().NoError(err)
	s.Equal(h.ID, b.Hackathon.ID)
	s.Nil(b.Architecture)
	s.Empty(b.Steps)

	for i := 0; i < 2; i++ {
		s.Require().NoError(s.store.CreateArchitecture(s.ctx, &models.ProjectArchitecture{
			ProjectID: p.ID,
			UserID:    s.user.ID,
			Nodes:     datatypes.JSONSlice[models.Node]{{ID: "web", Label: "Frontend"}},
		}))
	}
	s.Require().NoError(s.store.CreateSteps(s.ctx, []models.ProjectStep{
		{ProjectID: p.ID, UserID: s.user.ID, OrderIndex: 0, Title: "Scaffold"},
	}))

	b, err = s.store.LoadPlan(s.ctx, s.user.ID, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(b.Architecture)
	s.Equal(2, b.Architecture.Version)
	s.Len(b.Steps, 1)

	_, err = s.store.LoadPlan(s.ctx, uuid.New(), p.ID)
	s.True(appErr.IsCode(err, appErr.CodeNotFound))
}
