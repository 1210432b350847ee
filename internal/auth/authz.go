package auth

import (
	"context"

	"github.com/GoSim-25-26J-441/diagram-service/internal/collections"
)

type PermissionSource interface {
	Permission(ctx context.Context, roleID string, collectionID int64) (collections.Permission, error)
}

// Authz answers access questions for one request. Grants are cached for the
// life of the request.
type Authz struct {
	roleID string
	perms  PermissionSource
	cache  map[int64]collections.Permission
}

func New(roleID string, perms PermissionSource) *Authz {
	return &Authz{roleID: roleID, perms: perms, cache: map[int64]collections.Permission{}}
}

func Anonymous() *Authz {
	return &Authz{cache: map[int64]collections.Permission{}}
}

func (a *Authz) RoleID() string {
	return a.roleID
}

func (a *Authz) LoggedIn() bool {
	return a.roleID != ""
}

func (a *Authz) CanRead(ctx context.Context, collectionID int64) (bool, error) {
	p, err := a.permission(ctx, collectionID)
	return p.Read, err
}

func (a *Authz) CanWrite(ctx context.Context, collectionID int64) (bool, error) {
	p, err := a.permission(ctx, collectionID)
	return p.Write, err
}

func (a *Authz) permission(ctx context.Context, collectionID int64) (collections.Permission, error) {
	if !a.LoggedIn() || a.perms == nil {
		return collections.Permission{}, nil
	}
	if p, ok := a.cache[collectionID]; ok {
		return p, nil
	}
	p, err := a.perms.Permission(ctx, a.roleID, collectionID)
	if err != nil {
		return collections.Permission{}, err
	}
	a.cache[collectionID] = p
	return p, nil
}
