// Package memory provides thread-safe in-memory implementations of the
// identity read-model repositories. They back handler and processor tests
// and serve as a dev-mode storage backend.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

var _ identity.ReplicaSet = (*ReplicaSet)(nil)

// ReplicaSet holds the whole read model in process memory. All repositories
// returned from it share one lock and one state, so relationship operations
// observe entity writes made in the same attempt.
type ReplicaSet struct {
	mu sync.RWMutex

	users       map[int64]identity.User
	stores      map[int64]identity.Store
	roles       map[int64]identity.Role
	permissions map[int64]identity.Permission
	assignments map[int64]identity.StoreRoleAssignment

	userRoles       map[int64]map[int64]struct{}
	userPermissions map[int64]map[int64]struct{}
	rolePermissions map[int64]map[int64]struct{}
}

// NewReplicaSet creates an empty in-memory read model.
func NewReplicaSet() *ReplicaSet {
	return &ReplicaSet{
		users:           make(map[int64]identity.User),
		stores:          make(map[int64]identity.Store),
		roles:           make(map[int64]identity.Role),
		permissions:     make(map[int64]identity.Permission),
		assignments:     make(map[int64]identity.StoreRoleAssignment),
		userRoles:       make(map[int64]map[int64]struct{}),
		userPermissions: make(map[int64]map[int64]struct{}),
		rolePermissions: make(map[int64]map[int64]struct{}),
	}
}

// Users returns the user repository.
func (s *ReplicaSet) Users() identity.UserRepository { return (*userStore)(s) }

// Stores returns the store repository.
func (s *ReplicaSet) Stores() identity.StoreRepository { return (*storeStore)(s) }

// Roles returns the role repository.
func (s *ReplicaSet) Roles() identity.RoleRepository { return (*roleStore)(s) }

// Permissions returns the permission repository.
func (s *ReplicaSet) Permissions() identity.PermissionRepository { return (*permissionStore)(s) }

// Assignments returns the assignment repository.
func (s *ReplicaSet) Assignments() identity.AssignmentRepository { return (*assignmentStore)(s) }

// RolePermissionIDs returns the sorted permission IDs attached to a role.
// Test inspection helper.
func (s *ReplicaSet) RolePermissionIDs(roleID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.rolePermissions[roleID])
}

// UserRoleIDs returns the sorted role IDs attached to a user. Test
// inspection helper.
func (s *ReplicaSet) UserRoleIDs(userID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.userRoles[userID])
}

// UserPermissionIDs returns the sorted direct permission IDs attached to a
// user. Test inspection helper.
func (s *ReplicaSet) UserPermissionIDs(userID int64) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.userPermissions[userID])
}

// AllAssignments returns every assignment sorted by ID. Test inspection
// helper.
func (s *ReplicaSet) AllAssignments() []identity.StoreRoleAssignment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]identity.StoreRoleAssignment, 0, len(s.assignments))
	for _, a := range s.assignments {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func sortedKeys(set map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type userStore ReplicaSet

func (s *userStore) Upsert(_ context.Context, user identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

func (s *userStore) FindByID(_ context.Context, id int64) (identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return identity.User{}, identity.ErrUserNotFound
	}
	return user, nil
}

func (s *userStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
	delete(s.userRoles, id)
	delete(s.userPermissions, id)
	return nil
}

func (s *userStore) GrantRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userRoles[userID] == nil {
		s.userRoles[userID] = make(map[int64]struct{})
	}
	s.userRoles[userID][roleID] = struct{}{}
	return nil
}

func (s *userStore) RevokeRole(_ context.Context, userID, roleID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userRoles[userID], roleID)
	return nil
}

func (s *userStore) ReplaceRoles(_ context.Context, userID int64, roleIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[int64]struct{}, len(roleIDs))
	for _, id := range roleIDs {
		next[id] = struct{}{}
	}
	s.userRoles[userID] = next
	return nil
}

func (s *userStore) RevokePermission(_ context.Context, userID, permissionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.userPermissions[userID], permissionID)
	return nil
}

func (s *userStore) ReplacePermissions(_ context.Context, userID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		next[id] = struct{}{}
	}
	s.userPermissions[userID] = next
	return nil
}

type storeStore ReplicaSet

func (s *storeStore) Upsert(_ context.Context, store identity.Store) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stores[store.ID] = store
	return nil
}

func (s *storeStore) FindByID(_ context.Context, id int64) (identity.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	store, ok := s.stores[id]
	if !ok {
		return identity.Store{}, identity.ErrStoreNotFound
	}
	return store, nil
}

func (s *storeStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.stores, id)
	return nil
}

type roleStore ReplicaSet

func (s *roleStore) Upsert(_ context.Context, role identity.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[role.ID] = role
	return nil
}

func (s *roleStore) FindByID(_ context.Context, id int64) (identity.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[id]
	if !ok {
		return identity.Role{}, identity.ErrRoleNotFound
	}
	return role, nil
}

func (s *roleStore) FindByName(_ context.Context, name, guardName string) (identity.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, role := range s.roles {
		if role.Name == name && role.GuardName == guardName {
			return role, nil
		}
	}
	return identity.Role{}, identity.ErrRoleNotFound
}

func (s *roleStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.roles, id)
	delete(s.rolePermissions, id)
	return nil
}

func (s *roleStore) GrantPermission(_ context.Context, roleID, permissionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rolePermissions[roleID] == nil {
		s.rolePermissions[roleID] = make(map[int64]struct{})
	}
	s.rolePermissions[roleID][permissionID] = struct{}{}
	return nil
}

func (s *roleStore) RevokePermission(_ context.Context, roleID, permissionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rolePermissions[roleID], permissionID)
	return nil
}

func (s *roleStore) ReplacePermissions(_ context.Context, roleID int64, permissionIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[int64]struct{}, len(permissionIDs))
	for _, id := range permissionIDs {
		next[id] = struct{}{}
	}
	s.rolePermissions[roleID] = next
	return nil
}

type permissionStore ReplicaSet

func (s *permissionStore) Upsert(_ context.Context, permission identity.Permission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permissions[permission.ID] = permission
	return nil
}

func (s *permissionStore) FindByID(_ context.Context, id int64) (identity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	permission, ok := s.permissions[id]
	if !ok {
		return identity.Permission{}, identity.ErrPermissionNotFound
	}
	return permission, nil
}

func (s *permissionStore) FindByName(_ context.Context, name, guardName string) (identity.Permission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, permission := range s.permissions {
		if permission.Name == name && permission.GuardName == guardName {
			return permission, nil
		}
	}
	return identity.Permission{}, identity.ErrPermissionNotFound
}

func (s *permissionStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.permissions, id)
	return nil
}

type assignmentStore ReplicaSet

func matchesComposite(a identity.StoreRoleAssignment, userID int64, storeID *int64, roleName string) bool {
	if a.UserID != userID || a.RoleName != roleName {
		return false
	}
	if a.StoreID == nil || storeID == nil {
		return a.StoreID == nil && storeID == nil
	}
	return *a.StoreID == *storeID
}

func (s *assignmentStore) Upsert(_ context.Context, assignment identity.StoreRoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assignments[assignment.ID] = assignment
	return nil
}

func (s *assignmentStore) FindByID(_ context.Context, id int64) (identity.StoreRoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return identity.StoreRoleAssignment{}, identity.ErrAssignmentNotFound
	}
	return assignment, nil
}

func (s *assignmentStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.assignments, id)
	return nil
}

func (s *assignmentStore) DeleteByComposite(_ context.Context, userID int64, storeID *int64, roleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range s.assignments {
		if matchesComposite(a, userID, storeID, roleName) {
			delete(s.assignments, id)
		}
	}
	return nil
}

func (s *assignmentStore) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	assignment, ok := s.assignments[id]
	if !ok {
		return identity.ErrAssignmentNotFound
	}
	assignment.Active = active
	s.assignments[id] = assignment
	return nil
}

func (s *assignmentStore) SetActiveByComposite(_ context.Context, userID int64, storeID *int64, roleName string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := false
	for id, a := range s.assignments {
		if matchesComposite(a, userID, storeID, roleName) {
			a.Active = active
			s.assignments[id] = a
			found = true
		}
	}
	if !found {
		return identity.ErrAssignmentNotFound
	}
	return nil
}
