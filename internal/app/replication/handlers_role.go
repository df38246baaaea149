package replication

import (
	"context"
	"errors"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// RoleCreated upserts a role under its upstream ID.
func (h *Handlers) RoleCreated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "role")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	role := identity.Role{ID: id, GuardName: guardName(entity)}
	if name, ok := asString(entity["name"]); ok {
		role.Name = name
	}
	return rs.Roles().Upsert(ctx, role)
}

// RoleUpdated applies a role update delta.
func (h *Handlers) RoleUpdated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "role")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	role, err := rs.Roles().FindByID(ctx, id)
	switch {
	case errors.Is(err, identity.ErrRoleNotFound):
		role = identity.Role{ID: id, GuardName: identity.DefaultGuard}
	case err != nil:
		return err
	}

	if v, ok := deltaValue(entity, "name"); ok {
		if s, ok := asString(v); ok {
			role.Name = s
		}
	}
	if v, ok := deltaValue(entity, "guard_name"); ok {
		if s, ok := asString(v); ok && s != "" {
			role.GuardName = s
		}
	}

	return rs.Roles().Upsert(ctx, role)
}

// RoleDeleted removes a role by upstream ID.
func (h *Handlers) RoleDeleted(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "role")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}
	return rs.Roles().Delete(ctx, id)
}

// RolePermissionGranted attaches a permission to a role by permission name.
// The permission must already be replicated under its upstream ID; the
// handler never invents one, so the event retries until the permission's own
// creation event lands.
func (h *Handlers) RolePermissionGranted(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "role_permission")
	roleID, ok := refID(entity, "role")
	if !ok {
		return &MissingFieldError{Field: "role_id"}
	}
	permName, ok := refName(entity, "permission")
	if !ok {
		return &MissingFieldError{Field: "permission"}
	}

	if _, err := rs.Roles().FindByID(ctx, roleID); err != nil {
		return err
	}
	perm, err := rs.Permissions().FindByName(ctx, permName, guardName(entity))
	if err != nil {
		return err
	}
	return rs.Roles().GrantPermission(ctx, roleID, perm.ID)
}

// RolePermissionRevoked detaches a permission from a role by permission name.
func (h *Handlers) RolePermissionRevoked(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "role_permission")
	roleID, ok := refID(entity, "role")
	if !ok {
		return &MissingFieldError{Field: "role_id"}
	}
	permName, ok := refName(entity, "permission")
	if !ok {
		return &MissingFieldError{Field: "permission"}
	}

	perm, err := rs.Permissions().FindByName(ctx, permName, guardName(entity))
	if err != nil {
		return err
	}
	return rs.Roles().RevokePermission(ctx, roleID, perm.ID)
}

// RolePermissionSynced replaces a role's permission set with the event's
// final-state list.
func (h *Handlers) RolePermissionSynced(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "role_permission")
	roleID, ok := refID(entity, "role")
	if !ok {
		return &MissingFieldError{Field: "role_id"}
	}

	guard := guardName(entity)
	permIDs := make([]int64, 0)
	for _, name := range stringList(entity["permissions"]) {
		perm, err := rs.Permissions().FindByName(ctx, name, guard)
		if err != nil {
			return err
		}
		permIDs = append(permIDs, perm.ID)
	}
	return rs.Roles().ReplacePermissions(ctx, roleID, permIDs)
}
