package entities

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("entity not found")
	ErrDuplicate = errors.New("entity already exists")
)

// Entity is a persisted, collection-scoped record. Data holds the client's
// fields minus the id; Schema is copied out of Data["schema"] for indexing.
type Entity struct {
	ID           string         `json:"id"`
	CollectionID int64          `json:"collection_id"`
	Schema       string         `json:"schema"`
	Data         map[string]any `json:"data"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    *time.Time     `json:"deleted_at,omitempty"`
}

func (e *Entity) Deleted() bool {
	return e.DeletedAt != nil
}

// SchemaOf returns data["schema"] when it is a string.
func SchemaOf(data map[string]any) string {
	if s, ok := data["schema"].(string); ok {
		return s
	}
	return ""
}
