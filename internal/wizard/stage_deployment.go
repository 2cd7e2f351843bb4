package wizard

import (
	"context"
	"fmt"

	"github.com/buildbuddy/engine/internal/models"
	"go.uber.org/zap"
)

const publishedMessage = "Project published successfully!"

type HostingOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Recommended bool   `json:"recommended"`
}

type EnvVar struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// DeploymentGuide is the static go-live guidance shown on step 5.
type DeploymentGuide struct {
	Headline    string          `json:"headline"`
	ProjectName string          `json:"project_name"`
	Hosting     []HostingOption `json:"hosting"`
	EnvVars     []EnvVar        `json:"env_vars"`
	Checklist   []string        `json:"checklist"`
	Published   bool            `json:"published"`
}

// Acknowledgment confirms that the user marked the project as published.
type Acknowledgment struct {
	Message string `json:"message"`
	View    View   `json:"view"`
}

func deploymentGuide(h *models.Hackathon, p *models.Project, published bool) *DeploymentGuide {
	checklist := []string{"AI Reasoning Validated", "Judges Checklist Clear"}
	if h != nil {
		for _, c := range h.JudgingCriteria {
			checklist = append(checklist, fmt.Sprintf("Demo covers: %s", c))
		}
	}
	return &DeploymentGuide{
		Headline:    "The Hackathon Finish Line",
		ProjectName: p.Name,
		Hosting: []HostingOption{
			{Name: "One-click hosting", Description: "Deploy in one click with built-in SSL and custom domain support.", Recommended: true},
			{Name: "Vercel", Description: "Perfect for web apps. Just connect your GitHub repository."},
		},
		EnvVars: []EnvVar{
			{Name: "APP_PROJECT_ID", Description: "Identifies the deployed project"},
			{Name: "APP_PUBLISHABLE_KEY", Description: "Public key used by the frontend"},
		},
		Checklist: checklist,
		Published: published,
	}
}

// Deployment returns go-live guidance for the session's project. It makes no
// generation call and writes nothing.
func (m *Manager) Deployment(ctx context.Context) (*DeploymentGuide, error) {
	s, _, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.project == nil {
		return nil, lockedError(StepDeployment)
	}
	return deploymentGuide(s.hackathon, s.project, s.published), nil
}

// CompleteDeployment records that the user published the project. The flag
// lives only in the session.
func (m *Manager) CompleteDeployment(ctx context.Context) (*Acknowledgment, error) {
	s, user, err := m.sessionFor(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.project == nil {
		s.mu.Unlock()
		return nil, lockedError(StepDeployment)
	}
	s.published = true
	projectID := s.project.ID
	v := s.view()
	s.mu.Unlock()

	m.log.Info("project published", zap.String("user_id", user.ID.String()), zap.String("project_id", projectID.String()))
	return &Acknowledgment{Message: publishedMessage, View: v}, nil
}
