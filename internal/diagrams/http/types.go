package http

import (
	"bytes"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/service"
)

// Handler handles HTTP requests for diagrams
type Handler struct {
	svc *service.DiagramService
	log *zap.Logger
}

// New creates a new Handler
func New(svc *service.DiagramService, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{svc: svc, log: log}
}

// flexID accepts an integer id sent either as a JSON number or a string.
type flexID int64

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %q", b)
	}
	*f = flexID(n)
	return nil
}

type createReq struct {
	CollectionID flexID           `json:"collection_id" binding:"required"`
	Label        string           `json:"label" binding:"required"`
	Summary      string           `json:"summary"`
	Entities     []map[string]any `json:"entities"`
	Layout       map[string]any   `json:"layout"`
}

func (r createReq) input() domain.CreateInput {
	return domain.CreateInput{
		CollectionID: int64(r.CollectionID),
		Label:        r.Label,
		Summary:      r.Summary,
		Entities:     r.Entities,
		Layout:       r.Layout,
	}
}

type updateReq struct {
	Label    *string        `json:"label"`
	Summary  *string        `json:"summary"`
	Entities []string       `json:"entities"`
	Layout   map[string]any `json:"layout"`
}

func (r updateReq) input() domain.UpdateInput {
	return domain.UpdateInput{
		Label:    r.Label,
		Summary:  r.Summary,
		Entities: r.Entities,
		Layout:   r.Layout,
	}
}

// diagramResponse is a serialized diagram plus the caller's write access.
type diagramResponse struct {
	domain.Diagram
	Writeable bool `json:"writeable"`
}
