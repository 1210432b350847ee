package domain

import "time"

// Diagram is a saved network chart over entities of one collection.
type Diagram struct {
	ID           int64          `json:"id"`
	CollectionID int64          `json:"collection_id"`
	RoleID       string         `json:"role_id"`
	Label        string         `json:"label"`
	Summary      string         `json:"summary"`
	Entities     []string       `json:"entities"`
	Layout       map[string]any `json:"layout"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// CreateInput is a decoded DiagramCreate request.
type CreateInput struct {
	CollectionID int64
	Label        string
	Summary      string
	Entities     []map[string]any
	Layout       map[string]any
}

// UpdateInput is a decoded DiagramUpdate request. Nil fields are left as is.
type UpdateInput struct {
	Label    *string
	Summary  *string
	Entities []string
	Layout   map[string]any
}

// Apply copies the set fields of in onto d.
func (d *Diagram) Apply(in UpdateInput) {
	if in.Label != nil {
		d.Label = *in.Label
	}
	if in.Summary != nil {
		d.Summary = *in.Summary
	}
	if in.Entities != nil {
		d.Entities = in.Entities
	}
	if in.Layout != nil {
		d.Layout = in.Layout
	}
}

// ListFilter narrows a diagram listing to a role and optionally a collection.
type ListFilter struct {
	RoleID       string
	CollectionID *int64
	Limit        int
	Offset       int
}
