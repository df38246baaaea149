package replication

import (
	"context"
	"errors"
	"time"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// UserCreated upserts a user under its upstream ID.
func (h *Handlers) UserCreated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	user := identity.User{ID: id}
	if name, ok := asString(entity["name"]); ok {
		user.Name = name
	}
	if email, ok := asString(entity["email"]); ok {
		user.Email = email
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	if t, ok := asTime(entity["created_at"]); ok {
		user.CreatedAt = t
	}
	if t, ok := asTime(entity["updated_at"]); ok {
		user.UpdatedAt = t
	}

	return rs.Users().Upsert(ctx, user)
}

// UserUpdated applies a user update delta. An update for a user the replica
// has never seen seeds a fresh row under the upstream ID so later events
// referencing it still resolve.
func (h *Handlers) UserUpdated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	user, err := rs.Users().FindByID(ctx, id)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		user = identity.User{ID: id, CreatedAt: time.Now().UTC()}
	case err != nil:
		return err
	}

	if v, ok := deltaValue(entity, "name"); ok {
		if s, ok := asString(v); ok {
			user.Name = s
		}
	}
	if v, ok := deltaValue(entity, "email"); ok {
		if s, ok := asString(v); ok {
			user.Email = s
		}
	}
	user.UpdatedAt = time.Now().UTC()
	if v, ok := deltaValue(entity, "updated_at"); ok {
		if t, ok := asTime(v); ok {
			user.UpdatedAt = t
		}
	}

	return rs.Users().Upsert(ctx, user)
}

// UserDeleted removes a user by upstream ID. Deleting an unknown user is a
// no-op.
func (h *Handlers) UserDeleted(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}
	return rs.Users().Delete(ctx, id)
}

// UserRoleGranted attaches a role to a user by role name. The role must
// already be replicated; otherwise the event is retried until its creation
// event arrives.
func (h *Handlers) UserRoleGranted(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user_role")
	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
	}
	roleName, ok := refName(entity, "role")
	if !ok {
		return &MissingFieldError{Field: "role"}
	}

	if _, err := rs.Users().FindByID(ctx, userID); err != nil {
		return err
	}
	role, err := rs.Roles().FindByName(ctx, roleName, guardName(entity))
	if err != nil {
		return err
	}
	return rs.Users().GrantRole(ctx, userID, role.ID)
}

// UserRoleRevoked detaches a role from a user by role name.
func (h *Handlers) UserRoleRevoked(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user_role")
	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
	}
	roleName, ok := refName(entity, "role")
	if !ok {
		return &MissingFieldError{Field: "role"}
	}

	role, err := rs.Roles().FindByName(ctx, roleName, guardName(entity))
	if err != nil {
		return err
	}
	return rs.Users().RevokeRole(ctx, userID, role.ID)
}

// UserRoleSynced replaces a user's role set with the event's final-state
// list. Every named role must already be replicated.
func (h *Handlers) UserRoleSynced(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user_role")
	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
	}

	guard := guardName(entity)
	roleIDs := make([]int64, 0)
	for _, name := range stringList(entity["roles"]) {
		role, err := rs.Roles().FindByName(ctx, name, guard)
		if err != nil {
			return err
		}
		roleIDs = append(roleIDs, role.ID)
	}
	return rs.Users().ReplaceRoles(ctx, userID, roleIDs)
}

// UserPermissionRevoked detaches a direct permission from a user by name.
func (h *Handlers) UserPermissionRevoked(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user_permission")
	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
	}
	permName, ok := refName(entity, "permission")
	if !ok {
		return &MissingFieldError{Field: "permission"}
	}

	perm, err := rs.Permissions().FindByName(ctx, permName, guardName(entity))
	if err != nil {
		return err
	}
	return rs.Users().RevokePermission(ctx, userID, perm.ID)
}

// UserPermissionSynced replaces a user's direct permission set with the
// event's final-state list.
func (h *Handlers) UserPermissionSynced(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "user_permission")
	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
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
	return rs.Users().ReplacePermissions(ctx, userID, permIDs)
}
