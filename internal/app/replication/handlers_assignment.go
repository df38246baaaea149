package replication

import (
	"context"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// parseAssignment builds a StoreRoleAssignment from one event object. The
// role may arrive as a name or as a bare numeric ID; the ID form gets the
// same placeholder name on every path so composite lookups match later.
func parseAssignment(entity map[string]any, defaultUserID int64) (identity.StoreRoleAssignment, error) {
	id, err := requireInt64(entity, "id")
	if err != nil {
		return identity.StoreRoleAssignment{}, err
	}

	userID, ok := refID(entity, "user")
	if !ok {
		if defaultUserID == 0 {
			return identity.StoreRoleAssignment{}, &MissingFieldError{Field: "user_id"}
		}
		userID = defaultUserID
	}

	roleName, err := assignmentRoleName(entity)
	if err != nil {
		return identity.StoreRoleAssignment{}, err
	}

	a := identity.StoreRoleAssignment{
		ID:       id,
		UserID:   userID,
		StoreID:  optionalStoreID(entity),
		RoleName: roleName,
		Active:   true,
	}
	if active, ok := asBool(entity["active"]); ok {
		a.Active = active
	}
	return a, nil
}

// assignmentRoleName resolves the role designator on an assignment event:
// an explicit role name, or a numeric role ID rendered as a placeholder.
func assignmentRoleName(entity map[string]any) (string, error) {
	if name, ok := refName(entity, "role"); ok {
		return name, nil
	}
	if roleID, ok := refID(entity, "role"); ok {
		return identity.PlaceholderRoleName(roleID), nil
	}
	return "", &MissingFieldError{Field: "role"}
}

// optionalStoreID reads the nullable store scope. Absent or null means the
// assignment spans all stores.
func optionalStoreID(entity map[string]any) *int64 {
	if n, ok := refID(entity, "store"); ok {
		return &n
	}
	return nil
}

// StoreRoleAssigned upserts a store-scoped role assignment under its
// upstream assignment ID.
func (h *Handlers) StoreRoleAssigned(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "assignment")
	a, err := parseAssignment(entity, 0)
	if err != nil {
		return err
	}
	return rs.Assignments().Upsert(ctx, a)
}

// StoreRoleRemoved deletes an assignment, by upstream ID when the event
// carries one, else by the (user, store-or-null, role name) composite.
func (h *Handlers) StoreRoleRemoved(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "assignment")

	if id, ok := asInt64(entity["id"]); ok {
		return rs.Assignments().Delete(ctx, id)
	}

	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
	}
	roleName, err := assignmentRoleName(entity)
	if err != nil {
		return err
	}
	return rs.Assignments().DeleteByComposite(ctx, userID, optionalStoreID(entity), roleName)
}

// StoreRoleToggled flips an assignment's active flag without deleting the
// row, so a re-toggle restores the original grant.
func (h *Handlers) StoreRoleToggled(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "assignment")

	active, ok := asBool(entity["active"])
	if !ok {
		return &MissingFieldError{Field: "active"}
	}

	if id, ok := asInt64(entity["id"]); ok {
		return rs.Assignments().SetActive(ctx, id, active)
	}

	userID, ok := refID(entity, "user")
	if !ok {
		return &MissingFieldError{Field: "user_id"}
	}
	roleName, err := assignmentRoleName(entity)
	if err != nil {
		return err
	}
	return rs.Assignments().SetActiveByComposite(ctx, userID, optionalStoreID(entity), roleName, active)
}

// StoreRoleBulkAssigned upserts a batch of assignments. A top-level user_id
// applies to items that omit their own; each item stands alone otherwise,
// and the batch fails atomically on the first bad item (the whole event is
// retried).
func (h *Handlers) StoreRoleBulkAssigned(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "assignments")

	defaultUserID, _ := refID(entity, "user")

	items, ok := entity["assignments"].([]any)
	if !ok {
		return &MissingFieldError{Field: "assignments"}
	}

	for _, raw := range items {
		item, ok := asObject(raw)
		if !ok {
			continue
		}
		a, err := parseAssignment(item, defaultUserID)
		if err != nil {
			return err
		}
		if err := rs.Assignments().Upsert(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
