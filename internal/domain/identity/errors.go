package identity

import "errors"

// Not-found errors for the replicated entities. Relationship handlers treat
// these as "the prerequisite event has not arrived yet" and retry rather than
// fabricating the missing entity.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrStoreNotFound      = errors.New("store not found")
	ErrRoleNotFound       = errors.New("role not found")
	ErrPermissionNotFound = errors.New("permission not found")
	ErrAssignmentNotFound = errors.New("store role assignment not found")
)
