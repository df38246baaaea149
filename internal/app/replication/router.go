package replication

import (
	"context"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/events"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// ApplyFunc applies a single decoded event payload to the read model through
// the repositories bound to the current inbox transaction.
type ApplyFunc func(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error

// Router resolves event subjects to their replication handlers. The table is
// fixed at construction; resolution is a pure lookup.
type Router struct {
	routes map[events.Subject]ApplyFunc
}

// NewRouter builds the full subject table over the given handler set.
func NewRouter(h *Handlers) *Router {
	return &Router{routes: map[events.Subject]ApplyFunc{
		events.SubjectUserCreated: h.UserCreated,
		events.SubjectUserUpdated: h.UserUpdated,
		events.SubjectUserDeleted: h.UserDeleted,

		events.SubjectStoreCreated: h.StoreCreated,
		events.SubjectStoreUpdated: h.StoreUpdated,
		events.SubjectStoreDeleted: h.StoreDeleted,

		events.SubjectRoleCreated: h.RoleCreated,
		events.SubjectRoleUpdated: h.RoleUpdated,
		events.SubjectRoleDeleted: h.RoleDeleted,

		events.SubjectPermissionCreated: h.PermissionCreated,
		events.SubjectPermissionUpdated: h.PermissionUpdated,
		events.SubjectPermissionDeleted: h.PermissionDeleted,

		events.SubjectRolePermissionGranted: h.RolePermissionGranted,
		events.SubjectRolePermissionRevoked: h.RolePermissionRevoked,
		events.SubjectRolePermissionSynced:  h.RolePermissionSynced,

		events.SubjectUserRoleGranted: h.UserRoleGranted,
		events.SubjectUserRoleRevoked: h.UserRoleRevoked,
		events.SubjectUserRoleSynced:  h.UserRoleSynced,

		events.SubjectUserPermissionRevoked: h.UserPermissionRevoked,
		events.SubjectUserPermissionSynced:  h.UserPermissionSynced,

		events.SubjectStoreRoleAssigned:     h.StoreRoleAssigned,
		events.SubjectStoreRoleRemoved:      h.StoreRoleRemoved,
		events.SubjectStoreRoleToggled:      h.StoreRoleToggled,
		events.SubjectStoreRoleBulkAssigned: h.StoreRoleBulkAssigned,
	}}
}

// Resolve returns the handler registered for subject, or an
// UnregisteredSubjectError when the subject is unknown.
func (r *Router) Resolve(subject events.Subject) (ApplyFunc, error) {
	fn, ok := r.routes[subject]
	if !ok {
		return nil, &UnregisteredSubjectError{Subject: subject}
	}
	return fn, nil
}

// Subjects returns every subject the router can dispatch, in no particular
// order. Used to validate stream filter configuration at startup.
func (r *Router) Subjects() []events.Subject {
	out := make([]events.Subject, 0, len(r.routes))
	for s := range r.routes {
		out = append(out, s)
	}
	return out
}
