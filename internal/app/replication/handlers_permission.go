package replication

import (
	"context"
	"errors"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// PermissionCreated upserts a permission under its upstream ID.
func (h *Handlers) PermissionCreated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "permission")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	perm := identity.Permission{ID: id, GuardName: guardName(entity)}
	if name, ok := asString(entity["name"]); ok {
		perm.Name = name
	}
	return rs.Permissions().Upsert(ctx, perm)
}

// PermissionUpdated applies a permission update delta.
func (h *Handlers) PermissionUpdated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "permission")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	perm, err := rs.Permissions().FindByID(ctx, id)
	switch {
	case errors.Is(err, identity.ErrPermissionNotFound):
		perm = identity.Permission{ID: id, GuardName: identity.DefaultGuard}
	case err != nil:
		return err
	}

	if v, ok := deltaValue(entity, "name"); ok {
		if s, ok := asString(v); ok {
			perm.Name = s
		}
	}
	if v, ok := deltaValue(entity, "guard_name"); ok {
		if s, ok := asString(v); ok && s != "" {
			perm.GuardName = s
		}
	}

	return rs.Permissions().Upsert(ctx, perm)
}

// PermissionDeleted removes a permission by upstream ID.
func (h *Handlers) PermissionDeleted(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "permission")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}
	return rs.Permissions().Delete(ctx, id)
}
