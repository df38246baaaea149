package events

// Subject identifies the category of an upstream event, enabling type-safe
// routing to the replication handler responsible for it.
type Subject string

// User lifecycle subjects.
const (
	SubjectUserCreated Subject = "auth.v1.user.created"
	SubjectUserUpdated Subject = "auth.v1.user.updated"
	SubjectUserDeleted Subject = "auth.v1.user.deleted"
)

// Store lifecycle subjects.
const (
	SubjectStoreCreated Subject = "auth.v1.store.created"
	SubjectStoreUpdated Subject = "auth.v1.store.updated"
	SubjectStoreDeleted Subject = "auth.v1.store.deleted"
)

// Role lifecycle subjects.
const (
	SubjectRoleCreated Subject = "auth.v1.role.created"
	SubjectRoleUpdated Subject = "auth.v1.role.updated"
	SubjectRoleDeleted Subject = "auth.v1.role.deleted"
)

// Permission lifecycle subjects.
const (
	SubjectPermissionCreated Subject = "auth.v1.permission.created"
	SubjectPermissionUpdated Subject = "auth.v1.permission.updated"
	SubjectPermissionDeleted Subject = "auth.v1.permission.deleted"
)

// Role <-> permission relationship subjects.
const (
	SubjectRolePermissionGranted Subject = "auth.v1.role.permission.granted"
	SubjectRolePermissionRevoked Subject = "auth.v1.role.permission.revoked"
	SubjectRolePermissionSynced  Subject = "auth.v1.role.permission.synced"
)

// User <-> role relationship subjects.
const (
	SubjectUserRoleGranted Subject = "auth.v1.user.role.granted"
	SubjectUserRoleRevoked Subject = "auth.v1.user.role.revoked"
	SubjectUserRoleSynced  Subject = "auth.v1.user.role.synced"
)

// User <-> direct permission relationship subjects.
const (
	SubjectUserPermissionRevoked Subject = "auth.v1.user.permission.revoked"
	SubjectUserPermissionSynced  Subject = "auth.v1.user.permission.synced"
)

// Store-scoped role assignment subjects.
const (
	SubjectStoreRoleAssigned     Subject = "auth.v1.user.store_role.assigned"
	SubjectStoreRoleRemoved      Subject = "auth.v1.user.store_role.removed"
	SubjectStoreRoleToggled      Subject = "auth.v1.user.store_role.toggled"
	SubjectStoreRoleBulkAssigned Subject = "auth.v1.user.store_role.bulk_assigned"
)
