package collections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/diagram-service/internal/storage/postgres"
)

type Repo struct {
	db postgres.DBTX
}

func NewRepo(db postgres.DBTX) *Repo {
	return &Repo{db: db}
}

// WithTx returns a repo bound to tx.
func (r *Repo) WithTx(tx *sql.Tx) *Repo {
	return &Repo{db: tx}
}

func (r *Repo) ByID(ctx context.Context, id int64) (*Collection, error) {
	const q = `
select id, foreign_id, label, created_at, updated_at
from collections
where id = $1 and deleted_at is null;
`
	var c Collection
	err := r.db.QueryRowContext(ctx, q, id).
		Scan(&c.ID, &c.ForeignID, &c.Label, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// Touch bumps updated_at so the index sweeper picks the collection up.
func (r *Repo) Touch(ctx context.Context, id int64) error {
	const q = `
update collections
set updated_at = now()
where id = $1 and deleted_at is null;
`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("touch collection %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Permission returns the role's grant on the collection. A missing grant is
// the zero Permission, not an error.
func (r *Repo) Permission(ctx context.Context, roleID string, collectionID int64) (Permission, error) {
	const q = `
select read, write
from permissions
where role_id = $1::uuid and collection_id = $2;
`
	var p Permission
	err := r.db.QueryRowContext(ctx, q, roleID, collectionID).Scan(&p.Read, &p.Write)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Permission{}, nil
		}
		return Permission{}, err
	}
	// write implies read
	p.Read = p.Read || p.Write
	return p, nil
}

// TouchedSince lists collections modified after since, oldest first.
func (r *Repo) TouchedSince(ctx context.Context, since time.Time) ([]int64, error) {
	const q = `
select id
from collections
where updated_at > $1 and deleted_at is null
order by updated_at asc;
`
	rows, err := r.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]int64, 0, 16)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Now reads the database clock. Touch stamps updated_at with it, so sweep
// watermarks compare against the same clock.
func (r *Repo) Now(ctx context.Context) (time.Time, error) {
	var now time.Time
	if err := r.db.QueryRowContext(ctx, `select now();`).Scan(&now); err != nil {
		return time.Time{}, fmt.Errorf("read database clock: %w", err)
	}
	return now, nil
}
