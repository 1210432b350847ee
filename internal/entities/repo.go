package entities

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/diagram-service/internal/storage/postgres"
)

type Repo struct {
	db postgres.DBTX
}

func NewRepo(db postgres.DBTX) *Repo {
	return &Repo{db: db}
}

func (r *Repo) WithTx(tx *sql.Tx) *Repo {
	return &Repo{db: tx}
}

// ByID loads an entity and locks its row for the surrounding transaction.
// Soft-deleted rows are only returned when includeDeleted is set.
func (r *Repo) ByID(ctx context.Context, id string, includeDeleted bool) (*Entity, error) {
	const q = `
select id, collection_id, schema, data::text, created_at, updated_at, deleted_at
from entities
where id = $1
  and ($2 or deleted_at is null)
for update;
`
	e, err := scanEntity(r.db.QueryRowContext(ctx, q, id, includeDeleted))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

func (r *Repo) Create(ctx context.Context, e *Entity) error {
	payload, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("marshal entity data: %w", err)
	}

	const q = `
insert into entities (id, collection_id, schema, data)
values ($1, $2, $3, $4::jsonb)
returning created_at, updated_at;
`
	err = r.db.QueryRowContext(ctx, q, e.ID, e.CollectionID, e.Schema, string(payload)).
		Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert entity %s: %w", e.ID, err)
	}
	return nil
}

// Update replaces the entity's schema and data.
func (r *Repo) Update(ctx context.Context, e *Entity, data map[string]any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal entity data: %w", err)
	}
	schema := SchemaOf(data)

	const q = `
update entities
set schema = $2, data = $3::jsonb, updated_at = now()
where id = $1
returning updated_at;
`
	if err := r.db.QueryRowContext(ctx, q, e.ID, schema, string(payload)).Scan(&e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update entity %s: %w", e.ID, err)
	}
	e.Schema = schema
	e.Data = data
	return nil
}

func (r *Repo) Undelete(ctx context.Context, e *Entity) error {
	const q = `
update entities
set deleted_at = null, updated_at = now()
where id = $1
returning updated_at;
`
	if err := r.db.QueryRowContext(ctx, q, e.ID).Scan(&e.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("undelete entity %s: %w", e.ID, err)
	}
	e.DeletedAt = nil
	return nil
}

// ListByCollection returns the live entities of a collection.
func (r *Repo) ListByCollection(ctx context.Context, collectionID int64) ([]Entity, error) {
	const q = `
select id, collection_id, schema, data::text, created_at, updated_at, deleted_at
from entities
where collection_id = $1 and deleted_at is null
order by id;
`
	rows, err := r.db.QueryContext(ctx, q, collectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Entity, 0, 64)
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntity(row scanner) (*Entity, error) {
	var (
		e         Entity
		dataText  string
		deletedAt sql.NullTime
	)
	if err := row.Scan(&e.ID, &e.CollectionID, &e.Schema, &dataText, &e.CreatedAt, &e.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	if dataText != "" {
		if err := json.Unmarshal([]byte(dataText), &e.Data); err != nil {
			return nil, fmt.Errorf("decode entity %s data: %w", e.ID, err)
		}
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		e.DeletedAt = &t
	}
	return &e, nil
}
