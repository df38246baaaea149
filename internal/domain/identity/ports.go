package identity

import "context"

// UserRepository persists replicated users and their role/permission
// associations. Upsert is keyed by the upstream ID; Delete of a missing row
// is a no-op.
type UserRepository interface {
	Upsert(ctx context.Context, user User) error
	FindByID(ctx context.Context, id int64) (User, error)
	Delete(ctx context.Context, id int64) error

	GrantRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
	// ReplaceRoles makes roleIDs the user's exact role set.
	ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error

	RevokePermission(ctx context.Context, userID, permissionID int64) error
	// ReplacePermissions makes permissionIDs the user's exact direct
	// permission set.
	ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error
}

// StoreRepository persists replicated stores.
type StoreRepository interface {
	Upsert(ctx context.Context, store Store) error
	FindByID(ctx context.Context, id int64) (Store, error)
	Delete(ctx context.Context, id int64) error
}

// RoleRepository persists replicated roles and their permission grants.
type RoleRepository interface {
	Upsert(ctx context.Context, role Role) error
	FindByID(ctx context.Context, id int64) (Role, error)
	// FindByName resolves a role by its upstream (name, guard) identity.
	// Returns ErrRoleNotFound if no such role has been replicated yet.
	FindByName(ctx context.Context, name, guardName string) (Role, error)
	Delete(ctx context.Context, id int64) error

	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
	// ReplacePermissions makes permissionIDs the role's exact permission set.
	ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
}

// PermissionRepository persists replicated permissions.
type PermissionRepository interface {
	Upsert(ctx context.Context, permission Permission) error
	FindByID(ctx context.Context, id int64) (Permission, error)
	// FindByName resolves a permission by its upstream (name, guard)
	// identity. Returns ErrPermissionNotFound if it has not been replicated.
	FindByName(ctx context.Context, name, guardName string) (Permission, error)
	Delete(ctx context.Context, id int64) error
}

// AssignmentRepository persists store-scoped role assignments. The composite
// variants support removal/toggle events that omit the upstream assignment
// ID; a nil storeID matches only all-store assignments.
type AssignmentRepository interface {
	Upsert(ctx context.Context, assignment StoreRoleAssignment) error
	FindByID(ctx context.Context, id int64) (StoreRoleAssignment, error)
	Delete(ctx context.Context, id int64) error
	DeleteByComposite(ctx context.Context, userID int64, storeID *int64, roleName string) error
	SetActive(ctx context.Context, id int64, active bool) error
	SetActiveByComposite(ctx context.Context, userID int64, storeID *int64, roleName string, active bool) error
}

// ReplicaSet groups the read-model repositories participating in a single
// replication attempt. Implementations bind every repository to the same
// storage transaction so handler writes commit or roll back together.
type ReplicaSet interface {
	Users() UserRepository
	Stores() StoreRepository
	Roles() RoleRepository
	Permissions() PermissionRepository
	Assignments() AssignmentRepository
}
