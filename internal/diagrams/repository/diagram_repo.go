package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/GoSim-25-26J-441/diagram-service/internal/diagrams/domain"
	"github.com/GoSim-25-26J-441/diagram-service/internal/storage/postgres"
)

// DiagramRepository provides persistence operations for diagrams
type DiagramRepository struct {
	db postgres.DBTX
}

// NewDiagramRepository creates a new diagram repository
func NewDiagramRepository(db postgres.DBTX) *DiagramRepository {
	return &DiagramRepository{db: db}
}

const diagramColumns = `id, collection_id, role_id::text, label, summary, entities, layout::text, created_at, updated_at`

func (r *DiagramRepository) Create(ctx context.Context, d *domain.Diagram) error {
	layout, err := marshalLayout(d.Layout)
	if err != nil {
		return err
	}
	if d.Entities == nil {
		d.Entities = []string{}
	}

	const q = `
insert into diagrams (collection_id, role_id, label, summary, entities, layout)
values ($1, $2::uuid, $3, $4, $5, $6::jsonb)
returning id, created_at, updated_at;
`
	err = r.db.QueryRowContext(ctx, q,
		d.CollectionID, d.RoleID, d.Label, d.Summary, pq.Array(d.Entities), layout,
	).Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert diagram: %w", err)
	}
	return nil
}

func (r *DiagramRepository) ByID(ctx context.Context, id int64) (*domain.Diagram, error) {
	q := `
select ` + diagramColumns + `
from diagrams
where id = $1 and deleted_at is null;
`
	d, err := scanDiagram(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// List returns one page of the role's diagrams, newest first, and the total
// number of matches.
func (r *DiagramRepository) List(ctx context.Context, f domain.ListFilter) ([]domain.Diagram, int, error) {
	const where = `
from diagrams
where role_id = $1::uuid
  and deleted_at is null
  and ($2::bigint is null or collection_id = $2)
`
	var collectionID sql.NullInt64
	if f.CollectionID != nil {
		collectionID = sql.NullInt64{Int64: *f.CollectionID, Valid: true}
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `select count(*)`+where, f.RoleID, collectionID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count diagrams: %w", err)
	}

	q := `select ` + diagramColumns + where + `order by created_at desc, id desc
limit $3 offset $4;
`
	rows, err := r.db.QueryContext(ctx, q, f.RoleID, collectionID, f.Limit, f.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list diagrams: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Diagram, 0, min(f.Limit, total))
	for rows.Next() {
		d, err := scanDiagram(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *DiagramRepository) Update(ctx context.Context, d *domain.Diagram) error {
	layout, err := marshalLayout(d.Layout)
	if err != nil {
		return err
	}
	if d.Entities == nil {
		d.Entities = []string{}
	}

	const q = `
update diagrams
set label = $2, summary = $3, entities = $4, layout = $5::jsonb, updated_at = now()
where id = $1 and deleted_at is null
returning updated_at;
`
	err = r.db.QueryRowContext(ctx, q, d.ID, d.Label, d.Summary, pq.Array(d.Entities), layout).
		Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update diagram %d: %w", d.ID, err)
	}
	return nil
}

// SoftDelete marks a diagram as deleted (soft delete).
func (r *DiagramRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	const q = `
update diagrams
set deleted_at = now(), updated_at = now()
where id = $1 and deleted_at is null;
`
	result, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDiagram(row scanner) (*domain.Diagram, error) {
	var (
		d          domain.Diagram
		layoutText string
	)
	err := row.Scan(&d.ID, &d.CollectionID, &d.RoleID, &d.Label, &d.Summary,
		pq.Array(&d.Entities), &layoutText, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if d.Entities == nil {
		d.Entities = []string{}
	}
	if layoutText != "" {
		if err := json.Unmarshal([]byte(layoutText), &d.Layout); err != nil {
			return nil, fmt.Errorf("decode diagram %d layout: %w", d.ID, err)
		}
	}
	return &d, nil
}

func marshalLayout(layout map[string]any) (string, error) {
	if layout == nil {
		return "{}", nil
	}
	b, err := json.Marshal(layout)
	if err != nil {
		return "", fmt.Errorf("marshal layout: %w", err)
	}
	return string(b), nil
}
