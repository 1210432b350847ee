package collections

import (
	"errors"
	"time"

	"github.com/GoSim-25-26J-441/diagram-service/internal/namespace"
)

var ErrNotFound = errors.New("collection not found")

// Collection groups entities and diagrams. Its foreign id keys the namespace
// every stored entity id must verify against.
type Collection struct {
	ID        int64     `json:"id"`
	ForeignID string    `json:"foreign_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Collection) Namespace() *namespace.Namespace {
	return namespace.New(c.ForeignID)
}

// Permission is what a role may do with a collection.
type Permission struct {
	Read  bool
	Write bool
}
