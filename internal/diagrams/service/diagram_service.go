package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/diagram-service/internal/collections"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/reconcile"
	"github.com/GoSim-25-26J-441/diagram-service/internal/query"
)

// Authorizer is the per-request view of the caller.
type Authorizer interface {
	RoleID() string
	LoggedIn() bool
	CanRead(ctx context.Context, collectionID int64) (bool, error)
	CanWrite(ctx context.Context, collectionID int64) (bool, error)
}

type DiagramStore interface {
	Create(ctx context.Context, d *domain.Diagram) error
	ByID(ctx context.Context, id int64) (*domain.Diagram, error)
	List(ctx context.Context, f domain.ListFilter) ([]domain.Diagram, int, error)
	Update(ctx context.Context, d *domain.Diagram) error
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

type CollectionStore interface {
	ByID(ctx context.Context, id int64) (*collections.Collection, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, records []map[string]any, target reconcile.Target) (reconcile.Result, error)
}

// DiagramService handles diagram-related business logic
type DiagramService struct {
	diagrams    DiagramStore
	collections CollectionStore
	reconciler  Reconciler
	log         *zap.Logger
}

// NewDiagramService creates a new diagram service
func NewDiagramService(diagrams DiagramStore, collections CollectionStore, reconciler Reconciler, log *zap.Logger) *DiagramService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DiagramService{
		diagrams:    diagrams,
		collections: collections,
		reconciler:  reconciler,
		log:         log,
	}
}

type access int

const (
	read access = iota
	write
)

// collection loads a collection and checks the caller may act on it.
func (s *DiagramService) collection(ctx context.Context, az Authorizer, id int64, action access) (*collections.Collection, error) {
	c, err := s.collections.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, collections.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var ok bool
	if action == write {
		ok, err = az.CanWrite(ctx, c.ID)
	} else {
		ok, err = az.CanRead(ctx, c.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("check permission: %w", err)
	}
	if !ok {
		if !az.LoggedIn() {
			return nil, domain.ErrUnauthorized
		}
		return nil, domain.ErrForbidden
	}
	return c, nil
}

// List returns the caller's diagrams, optionally limited to one collection.
func (s *DiagramService) List(ctx context.Context, az Authorizer, p query.Parser) ([]domain.Diagram, int, error) {
	if !az.LoggedIn() {
		return nil, 0, domain.ErrUnauthorized
	}

	f := domain.ListFilter{RoleID: az.RoleID(), Limit: p.Limit, Offset: p.Offset}

	collectionID, ok, err := p.FirstInt64("collection_id")
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}
	if ok {
		if _, err := s.collection(ctx, az, collectionID, read); err != nil {
			return nil, 0, err
		}
		f.CollectionID = &collectionID
	}

	return s.diagrams.List(ctx, f)
}

// Create upserts the submitted entities into the collection, then stores the
// diagram with the reconciled entity ids and layout.
func (s *DiagramService) Create(ctx context.Context, az Authorizer, in domain.CreateInput) (*domain.Diagram, error) {
	c, err := s.collection(ctx, az, in.CollectionID, write)
	if err != nil {
		return nil, err
	}

	res, err := s.reconciler.Reconcile(ctx, in.Entities, reconcile.Target{
		CollectionID: c.ID,
		Namespace:    c.Namespace(),
	})
	if err != nil {
		s.log.Warn("reconcile diagram entities",
			zap.Int64("collection_id", c.ID),
			zap.Int("committed", len(res.EntityIDs)),
			zap.Int("submitted", len(in.Entities)),
			zap.Error(err))
		return nil, err
	}

	d := &domain.Diagram{
		CollectionID: c.ID,
		RoleID:       az.RoleID(),
		Label:        in.Label,
		Summary:      in.Summary,
		Entities:     res.EntityIDs,
		Layout:       reconcile.RewriteLayout(in.Layout, res.Substitutions),
	}
	if err := s.diagrams.Create(ctx, d); err != nil {
		return nil, err
	}

	s.log.Info("diagram created",
		zap.Int64("diagram_id", d.ID),
		zap.Int64("collection_id", c.ID),
		zap.Int("entities", len(d.Entities)),
		zap.Int("resigned", len(res.Substitutions)))
	return d, nil
}

// Get returns a diagram the caller can read.
func (s *DiagramService) Get(ctx context.Context, az Authorizer, id int64) (*domain.Diagram, error) {
	d, err := s.diagrams.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.collection(ctx, az, d.CollectionID, read); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DiagramService) Update(ctx context.Context, az Authorizer, id int64, in domain.UpdateInput) (*domain.Diagram, error) {
	d, err := s.diagrams.ByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.collection(ctx, az, d.CollectionID, write); err != nil {
		return nil, err
	}

	d.Apply(in)
	if err := s.diagrams.Update(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *DiagramService) Delete(ctx context.Context, az Authorizer, id int64) error {
	d, err := s.diagrams.ByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.collection(ctx, az, d.CollectionID, write); err != nil {
		return err
	}

	ok, err := s.diagrams.SoftDelete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotFound
	}
	s.log.Info("diagram deleted", zap.Int64("diagram_id", id))
	return nil
}

// Writeable reports whether the caller may modify d. Lookup failures count
// as read-only.
func (s *DiagramService) Writeable(ctx context.Context, az Authorizer, d *domain.Diagram) bool {
	ok, err := az.CanWrite(ctx, d.CollectionID)
	return err == nil && ok
}
