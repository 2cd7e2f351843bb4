package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one component box of an execution plan diagram.
type Node struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Position Position          `json:"position"`
	Type     string            `json:"type,omitempty"`
	Style    map[string]any    `json:"style,omitempty"`
	Class    string            `json:"class_name,omitempty"`
	Meta     map[string]string `json:"meta,omitempty"`
}

// Marker decorates the end of an edge.
type Marker struct {
	Type  string `json:"type"`
	Color string `json:"color,omitempty"`
}

// Edge is a directed data flow between two nodes of the same diagram.
type Edge struct {
	ID        string         `json:"id"`
	Source    string         `json:"source"`
	Target    string         `json:"target"`
	Label     string         `json:"label,omitempty"`
	Animated  bool           `json:"animated,omitempty"`
	MarkerEnd *Marker        `json:"marker_end,omitempty"`
	Style     map[string]any `json:"style,omitempty"`
}

// ProjectArchitecture is one generated version of a project's execution plan.
// Versions are kept as history; exactly one per project has IsCurrent set.
type ProjectArchitecture struct {
	ID        uuid.UUID                 `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID uuid.UUID                 `gorm:"type:uuid;not null;index:idx_architecture_project_version,unique" json:"project_id" validate:"required"`
	UserID    uuid.UUID                 `gorm:"type:uuid;index;not null" json:"user_id" validate:"required"`
	Version   int                       `gorm:"not null;index:idx_architecture_project_version,unique" json:"version" validate:"gte=1"`
	Nodes     datatypes.JSONSlice[Node] `json:"nodes" validate:"required"`
	Edges     datatypes.JSONSlice[Edge] `json:"edges"`
	IsCurrent bool                      `gorm:"not null;default:false;index" json:"is_current"`
	CreatedAt time.Time                 `json:"created_at"`
	UpdatedAt time.Time                 `json:"updated_at"`

	Project *Project `gorm:"constraint:OnDelete:CASCADE" json:"-" swaggerignore:"true"`
}

func (a *ProjectArchitecture) BeforeCreate(*gorm.DB) error { assignID(&a.ID); return nil }
