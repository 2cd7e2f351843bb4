package wizard

import (
	"fmt"
	"strings"

	"github.com/buildbuddy/engine/internal/generation"
	"github.com/buildbuddy/engine/internal/models"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Request names. They double as schema names sent to the provider and as
// the metrics label.
const (
	reqHackathon    = "hackathon_analysis"
	reqIdeas        = "project_ideas"
	reqArchitecture = "execution_plan"
	reqGuide        = "build_guide"
)

const ideaCount = 5

const (
	minGuideSteps = 6
	maxGuideSteps = 8
)

var (
	str     = jsonschema.Definition{Type: jsonschema.String}
	strList = jsonschema.Definition{Type: jsonschema.Array, Items: &str}
)

func hackathonRequest(in HackathonInput) generation.Request {
	prompt := fmt.Sprintf(`Analyze the following hackathon details:
Name: %s
Rules/Theme:
%s

Extract the core theme, the judging criteria, the time constraints and, if the rules restrict it, the allowed technologies.`,
		in.Name, in.Rules)

	return generation.Request{
		Name:   reqHackathon,
		Prompt: prompt,
		Schema: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"theme":           str,
				"judgingCriteria": strList,
				"timeConstraints": str,
				"allowedTech":     strList,
			},
			Required: []string{"theme", "judgingCriteria", "timeConstraints"},
		},
	}
}

func ideasRequest(h *models.Hackathon) generation.Request {
	prompt := fmt.Sprintf(`Based on this hackathon:
Name: %s
Theme: %s
Judging Criteria: %s
Deadline/Constraints: %s

Recommend %d realistic and high-impact project ideas that can be completed in a hackathon timeline (24-72 hours).
Grade each idea's difficulty as Beginner, Intermediate or Advanced, estimate the build time, explain why it scores well with the judges and list its tech stack.`,
		h.Name, h.Theme, strings.Join(h.JudgingCriteria, ", "), h.Deadline, ideaCount)

	idea := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"name":        str,
			"description": str,
			"difficulty": {
				Type: jsonschema.String,
				Enum: []string{string(models.DifficultyBeginner), string(models.DifficultyIntermediate), string(models.DifficultyAdvanced)},
			},
			"estimatedTime": str,
			"judgingValue":  str,
			"techStack":     str,
		},
		Required: []string{"name", "description", "difficulty", "estimatedTime", "judgingValue", "techStack"},
	}
	return generation.Request{
		Name:   reqIdeas,
		Prompt: prompt,
		Schema: jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: map[string]jsonschema.Definition{"projects": {Type: jsonschema.Array, Items: &idea}},
			Required:   []string{"projects"},
		},
	}
}

func architectureRequest(p *models.Project) generation.Request {
	prompt := fmt.Sprintf(`Generate a system architecture flow for the project: %s.
Description: %s
Tech stack: %s

Nodes should represent components like Frontend, Backend, Database, AI services or external APIs.
Edges represent data flow between them and may only reference node ids you defined.
Position nodes logically (x, y) so the flow reads from left to right.`,
		p.Name, p.Description, p.TechStack)

	number := jsonschema.Definition{Type: jsonschema.Number}
	node := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"id":    str,
			"label": str,
			"type":  str,
			"position": {
				Type:       jsonschema.Object,
				Properties: map[string]jsonschema.Definition{"x": number, "y": number},
				Required:   []string{"x", "y"},
			},
		},
		Required: []string{"id", "label", "position"},
	}
	edge := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"id":       str,
			"source":   str,
			"target":   str,
			"label":    str,
			"animated": {Type: jsonschema.Boolean},
		},
		Required: []string{"id", "source", "target"},
	}
	return generation.Request{
		Name:   reqArchitecture,
		Prompt: prompt,
		Schema: jsonschema.Definition{
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"nodes": {Type: jsonschema.Array, Items: &node},
				"edges": {Type: jsonschema.Array, Items: &edge},
			},
			Required: []string{"nodes", "edges"},
		},
	}
}

func guideRequest(p *models.Project) generation.Request {
	prompt := fmt.Sprintf(`Break down the hackathon project "%s" into %d-%d manageable, sequential coding steps.
Project description: %s
Tech stack: %s

For each step provide:
1. Title
2. Concise objective
3. Simple explanation (written like teaching a beginner)
4. Code snippet or command
5. Key file involved`,
		p.Name, minGuideSteps, maxGuideSteps, p.Description, p.TechStack)

	step := jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"title":       str,
			"objective":   str,
			"explanation": str,
			"code":        str,
			"file":        str,
		},
		Required: []string{"title", "objective", "explanation", "code", "file"},
	}
	return generation.Request{
		Name:   reqGuide,
		Prompt: prompt,
		Schema: jsonschema.Definition{
			Type:       jsonschema.Object,
			Properties: map[string]jsonschema.Definition{"steps": {Type: jsonschema.Array, Items: &step}},
			Required:   []string{"steps"},
		},
	}
}
