package roles

import (
	"context"
	"fmt"

	"github.com/GoSim-25-26J-441/diagram-service/internal/storage/postgres"
)

type Repo struct {
	db postgres.DBTX
}

func NewRepo(db postgres.DBTX) *Repo {
	return &Repo{db: db}
}

// UpsertRole identifies a caller by the id of the authentication provider.
type UpsertRole struct {
	ForeignID string
	Email     string
	Name      string
}

// EnsureRole creates the role on first sight and returns its id.
func (r *Repo) EnsureRole(ctx context.Context, u UpsertRole) (string, error) {
	if u.ForeignID == "" {
		return "", fmt.Errorf("foreign_id required")
	}

	const q = `
insert into roles (foreign_id, email, name, updated_at)
values ($1, nullif($2,''), nullif($3,''), now())
on conflict (foreign_id) do update
set
  email = coalesce(excluded.email, roles.email),
  name = coalesce(excluded.name, roles.name),
  updated_at = now()
returning id::text;
`
	var id string
	if err := r.db.QueryRowContext(ctx, q, u.ForeignID, u.Email, u.Name).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}
