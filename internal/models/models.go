package models

import "github.com/google/uuid"

// All lists every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Hackathon{},
		&Project{},
		&ProjectArchitecture{},
		&ProjectStep{},
	}
}

// assignID gives a record its UUID on insert. IDs are generated in Go
// rather than by a column default so the same schema works on SQLite.
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
