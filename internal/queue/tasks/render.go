package tasks

import (
	"time"

	"github.com/buildbuddy/engine/internal/repository"
	"gopkg.in/yaml.v3"
)

type exportDocument struct {
	GeneratedAt time.Time       `yaml:"generated_at"`
	Hackathon   exportHackathon `yaml:"hackathon"`
	Project     exportProject   `yaml:"project"`
	Plan        *exportPlan     `yaml:"plan,omitempty"`
	Guide       []exportStep    `yaml:"guide,omitempty"`
}

type exportHackathon struct {
	Name            string   `yaml:"name"`
	Theme           string   `yaml:"theme,omitempty"`
	Deadline        string   `yaml:"deadline,omitempty"`
	JudgingCriteria []string `yaml:"judging_criteria,omitempty"`
	AllowedTech     []string `yaml:"allowed_tech,omitempty"`
}

type exportProject struct {
	Name          string `yaml:"name"`
	Description   string `yaml:"description,omitempty"`
	Difficulty    string `yaml:"difficulty"`
	EstimatedTime string `yaml:"estimated_time,omitempty"`
	JudgingValue  string `yaml:"judging_value,omitempty"`
	TechStack     string `yaml:"tech_stack,omitempty"`
}

type exportPlan struct {
	Version int          `yaml:"version"`
	Nodes   []exportNode `yaml:"components"`
	Edges   []exportEdge `yaml:"flows,omitempty"`
}

type exportNode struct {
	ID    string  `yaml:"id"`
	Label string  `yaml:"label"`
	Type  string  `yaml:"type,omitempty"`
	X     float64 `yaml:"x"`
	Y     float64 `yaml:"y"`
}

type exportEdge struct {
	From  string `yaml:"from"`
	To    string `yaml:"to"`
	Label string `yaml:"label,omitempty"`
}

type exportStep struct {
	Title       string `yaml:"title"`
	Objective   string `yaml:"objective,omitempty"`
	Explanation string `yaml:"explanation,omitempty"`
	Code        string `yaml:"code,omitempty"`
	File        string `yaml:"file,omitempty"`
}

// RenderPlan writes a saved plan as a YAML document.
func RenderPlan(b *repository.PlanBundle, now time.Time) ([]byte, error) {
	doc := exportDocument{
		GeneratedAt: now.UTC(),
		Hackathon: exportHackathon{
			Name:            b.Hackathon.Name,
			Theme:           b.Hackathon.Theme,
			Deadline:        b.Hackathon.Deadline,
			JudgingCriteria: b.Hackathon.JudgingCriteria,
			AllowedTech:     b.Hackathon.AllowedTech,
		},
		Project: exportProject{
			Name:          b.Project.Name,
			Description:   b.Project.Description,
			Difficulty:    string(b.Project.Difficulty),
			EstimatedTime: b.Project.EstimatedTime,
			JudgingValue:  b.Project.JudgingValue,
			TechStack:     b.Project.TechStack,
		},
	}

	if a := b.Architecture; a != nil {
		plan := &exportPlan{Version: a.Version}
		for _, n := range a.Nodes {
			plan.Nodes = append(plan.Nodes, exportNode{ID: n.ID, Label: n.Label, Type: n.Type, X: n.Position.X, Y: n.Position.Y})
		}
		for _, e := range a.Edges {
			plan.Edges = append(plan.Edges, exportEdge{From: e.Source, To: e.Target, Label: e.Label})
		}
		doc.Plan = plan
	}

	for _, s := range b.Steps {
		c := s.Content.Data()
		doc.Guide = append(doc.Guide, exportStep{
			Title:       s.Title,
			Objective:   c.Objective,
			Explanation: c.Explanation,
			Code:        c.Code,
			File:        c.File,
		})
	}

	return yaml.Marshal(doc)
}
