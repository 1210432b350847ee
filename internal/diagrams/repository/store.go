package repository

import (
	"context"
	"database/sql"

	"github.com/GoSim-25-26J-441/diagram-service/internal/collections"
	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/reconcile"
	"github.com/GoSim-25-26J-441/diagram-service/internal/entities"
)

// Store opens per-record transactions spanning the entity and collection
// tables.
type Store struct {
	db          *sql.DB
	entities    *entities.Repo
	collections *collections.Repo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:          db,
		entities:    entities.NewRepo(db),
		collections: collections.NewRepo(db),
	}
}

func (s *Store) Begin(ctx context.Context) (reconcile.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &storeTx{
		tx:          tx,
		entities:    s.entities.WithTx(tx),
		collections: s.collections.WithTx(tx),
	}, nil
}

type storeTx struct {
	tx          *sql.Tx
	entities    *entities.Repo
	collections *collections.Repo
}

func (t *storeTx) EntityByID(ctx context.Context, id string, includeDeleted bool) (*entities.Entity, error) {
	return t.entities.ByID(ctx, id, includeDeleted)
}

func (t *storeTx) CreateEntity(ctx context.Context, e *entities.Entity) error {
	return t.entities.Create(ctx, e)
}

func (t *storeTx) UpdateEntity(ctx context.Context, e *entities.Entity, data map[string]any) error {
	return t.entities.Update(ctx, e, data)
}

func (t *storeTx) UndeleteEntity(ctx context.Context, e *entities.Entity) error {
	return t.entities.Undelete(ctx, e)
}

func (t *storeTx) TouchCollection(ctx context.Context, collectionID int64) error {
	return t.collections.Touch(ctx, collectionID)
}

func (t *storeTx) Commit() error {
	return t.tx.Commit()
}

// Rollback after a successful Commit is a no-op.
func (t *storeTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}
