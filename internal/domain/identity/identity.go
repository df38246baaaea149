// Package identity defines the local read model replicated from the upstream
// auth system-of-record: users, stores, roles, permissions, and store-scoped
// role assignments. Every identifier on these types is upstream-assigned;
// this subsystem never mints one locally.
package identity

import (
	"fmt"
	"time"
)

// DefaultGuard is the guard name assumed when an event omits one. It matches
// the upstream producer's default authorization guard.
const DefaultGuard = "web"

// UnknownGroup is the sentinel group number used when a store's metadata
// carries no recognizable group key.
const UnknownGroup = -1

// User is a replicated upstream user.
type User struct {
	// ID is the upstream-assigned user identifier.
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a replicated upstream store.
type Store struct {
	// ID is the upstream-assigned store identifier.
	ID   int64
	Name string

	// GroupNumber is the access-group number derived from the store's
	// free-form metadata, or UnknownGroup when none was found.
	GroupNumber int

	// Metadata is the raw upstream metadata map, kept for re-derivation.
	Metadata map[string]any
}

// Role is a replicated upstream role.
type Role struct {
	// ID is the upstream-assigned role identifier.
	ID        int64
	Name      string
	GuardName string
}

// Permission is a replicated upstream permission.
type Permission struct {
	// ID is the upstream-assigned permission identifier.
	ID        int64
	Name      string
	GuardName string
}

// StoreRoleAssignment grants a user a role scoped to one store. Its primary
// identifier is the upstream assignment ID. A nil StoreID means the role
// applies to all stores for that user.
type StoreRoleAssignment struct {
	// ID is the upstream-assigned assignment identifier.
	ID       int64
	UserID   int64
	StoreID  *int64
	RoleName string
	Active   bool
}

// PlaceholderRoleName builds the synthetic role name used when an assignment
// event supplies only a numeric role ID. The creation and removal paths both
// use it so composite lookups stay consistent.
func PlaceholderRoleName(roleID int64) string {
	return fmt.Sprintf("role_id_%d", roleID)
}
