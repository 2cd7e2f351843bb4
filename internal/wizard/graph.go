package wizard

import (
	"fmt"
	"strings"

	"github.com/buildbuddy/engine/internal/models"
)

// Presentation defaults applied to every generated plan.
const (
	nodeWidth   = 180
	nodeClass   = "rounded-xl border-2 border-primary/20 bg-card p-4 font-display font-bold text-sm shadow-lg"
	accentColor = "hsl(var(--primary))"
	arrowClosed = "arrowclosed"
)

type nodePayload struct {
	ID       string          `json:"id"`
	Label    string          `json:"label"`
	Position models.Position `json:"position"`
	Type     string          `json:"type,omitempty"`
}

type edgePayload struct {
	ID       string `json:"id"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Label    string `json:"label,omitempty"`
	Animated bool   `json:"animated,omitempty"`
}

type architecturePayload struct {
	Nodes []nodePayload `json:"nodes"`
	Edges []edgePayload `json:"edges"`
}

// buildGraph checks that node ids are unique, edge ids are unique and every
// edge connects known nodes, then decorates the result.
func buildGraph(p architecturePayload) ([]models.Node, []models.Edge, error) {
	if len(p.Nodes) == 0 {
		return nil, nil, fmt.Errorf("plan has no nodes")
	}

	nodes := make([]models.Node, 0, len(p.Nodes))
	known := make(map[string]struct{}, len(p.Nodes))
	for i, n := range p.Nodes {
		id := strings.TrimSpace(n.ID)
		if id == "" {
			return nil, nil, fmt.Errorf("node %d has no id", i)
		}
		if _, dup := known[id]; dup {
			return nil, nil, fmt.Errorf("duplicate node id %q", id)
		}
		known[id] = struct{}{}
		label := strings.TrimSpace(n.Label)
		if label == "" {
			label = id
		}
		nodes = append(nodes, models.Node{
			ID:       id,
			Label:    label,
			Position: n.Position,
			Type:     n.Type,
			Style:    map[string]any{"width": nodeWidth},
			Class:    nodeClass,
		})
	}

	edges := make([]models.Edge, 0, len(p.Edges))
	seen := make(map[string]struct{}, len(p.Edges))
	for i, e := range p.Edges {
		src, dst := strings.TrimSpace(e.Source), strings.TrimSpace(e.Target)
		if _, ok := known[src]; !ok {
			return nil, nil, fmt.Errorf("edge %d starts at unknown node %q", i, src)
		}
		if _, ok := known[dst]; !ok {
			return nil, nil, fmt.Errorf("edge %d ends at unknown node %q", i, dst)
		}
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = fmt.Sprintf("e-%s-%s", src, dst)
		}
		if _, dup := seen[id]; dup {
			return nil, nil, fmt.Errorf("duplicate edge id %q", id)
		}
		seen[id] = struct{}{}
		edges = append(edges, models.Edge{
			ID:        id,
			Source:    src,
			Target:    dst,
			Label:     e.Label,
			Animated:  e.Animated,
			MarkerEnd: &models.Marker{Type: arrowClosed, Color: accentColor},
			Style:     map[string]any{"stroke": accentColor, "strokeWidth": 2},
		})
	}
	return nodes, edges, nil
}
