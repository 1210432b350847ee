// Package reconcile turns client-submitted entity records into persisted,
// collection-namespaced entities.
//
// Records are processed strictly in order. Each record's id is verified
// against the target namespace and signed when it does not belong; the
// old -> new mapping accumulated so far is applied to the record before it is
// stored, so a record only sees substitutions made by records before it. Every
// record is committed in its own transaction: a failure part way through
// leaves the earlier records persisted.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/GoSim-25-26J-441/diagram-service/internal/entities"
)

var ErrMissingField = errors.New("missing required field")

type Namespace interface {
	Verify(id string) bool
	Sign(id string) string
}

// Target is the collection entities are reconciled into.
type Target struct {
	CollectionID int64
	Namespace    Namespace
}

// Tx is one per-record unit of work.
type Tx interface {
	EntityByID(ctx context.Context, id string, includeDeleted bool) (*entities.Entity, error)
	CreateEntity(ctx context.Context, e *entities.Entity) error
	UpdateEntity(ctx context.Context, e *entities.Entity, data map[string]any) error
	UndeleteEntity(ctx context.Context, e *entities.Entity) error
	TouchCollection(ctx context.Context, collectionID int64) error
	Commit() error
	Rollback() error
}

type Beginner interface {
	Begin(ctx context.Context) (Tx, error)
}

type Indexer interface {
	UpdateEntity(ctx context.Context, e *entities.Entity, sync bool) error
}

type Reconciler struct {
	store   Beginner
	indexer Indexer
	log     *zap.Logger
}

func New(store Beginner, indexer Indexer, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{store: store, indexer: indexer, log: log}
}

// Result is the outcome of a reconciliation.
type Result struct {
	EntityIDs     []string
	Substitutions Substitutions
}

// Reconcile persists records into target. On error the returned Result holds
// the ids of the records that were committed before the failure.
func (r *Reconciler) Reconcile(ctx context.Context, records []map[string]any, target Target) (Result, error) {
	res := Result{
		EntityIDs:     make([]string, 0, len(records)),
		Substitutions: Substitutions{},
	}

	for i, rec := range records {
		oldID, data, err := popID(rec)
		if err != nil {
			return res, fmt.Errorf("entity %d: %w", i, err)
		}

		id := Resolve(target.Namespace, oldID, res.Substitutions)
		data = ReplaceIDs(data, res.Substitutions).(map[string]any)

		if err := r.persist(ctx, target, id, data); err != nil {
			return res, fmt.Errorf("entity %s: %w", id, err)
		}
		res.EntityIDs = append(res.EntityIDs, id)
	}

	if len(res.Substitutions) > 0 {
		r.log.Debug("entity ids re-signed",
			zap.Int64("collection_id", target.CollectionID),
			zap.Any("substitutions", res.Substitutions))
	}
	return res, nil
}

// Resolve returns the namespaced id for oldID, recording a substitution in
// subs when the id had to be signed.
func Resolve(ns Namespace, oldID string, subs Substitutions) string {
	if ns.Verify(oldID) {
		return oldID
	}
	newID := ns.Sign(oldID)
	subs.Add(oldID, newID)
	return newID
}

func (r *Reconciler) persist(ctx context.Context, target Target, id string, data map[string]any) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	ent, err := tx.EntityByID(ctx, id, true)
	switch {
	case errors.Is(err, entities.ErrNotFound):
		ent = &entities.Entity{
			ID:           id,
			CollectionID: target.CollectionID,
			Schema:       entities.SchemaOf(data),
			Data:         data,
		}
		if err := tx.CreateEntity(ctx, ent); err != nil {
			return err
		}
		if err := tx.TouchCollection(ctx, target.CollectionID); err != nil {
			return err
		}
	case err != nil:
		return err
	default:
		if ent.Deleted() {
			if err := tx.UndeleteEntity(ctx, ent); err != nil {
				return err
			}
		}
		if err := tx.UpdateEntity(ctx, ent, data); err != nil {
			return err
		}
	}

	if err := r.indexer.UpdateEntity(ctx, ent, true); err != nil {
		return fmt.Errorf("reindex: %w", err)
	}
	if err := tx.Commit(); err != nil {
		// The index already holds the uncommitted row. Queue the id so the
		// sweeper rewrites or drops the document from what is in Postgres.
		if qerr := r.indexer.UpdateEntity(context.WithoutCancel(ctx), ent, false); qerr != nil {
			r.log.Error("queue reindex after failed commit", zap.String("entity_id", id), zap.Error(qerr))
		}
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// popID copies rec without its "id" field.
func popID(rec map[string]any) (string, map[string]any, error) {
	raw, ok := rec["id"]
	if !ok {
		return "", nil, fmt.Errorf("%w: id", ErrMissingField)
	}
	id, ok := raw.(string)
	if !ok || id == "" {
		return "", nil, fmt.Errorf("%w: id", ErrMissingField)
	}

	data := make(map[string]any, len(rec))
	for k, v := range rec {
		if k != "id" {
			data[k] = v
		}
	}
	return id, data, nil
}
