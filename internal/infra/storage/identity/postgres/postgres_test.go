package postgres

import (
	"context"
	"testing"
	"time"

	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage"
)

func setupReplicaSetTest(t *testing.T) (context.Context, *ReplicaSet, func()) {
	t.Helper()

	db, cleanup := storage.SetupTestContainer(t)
	rs := NewReplicaSet(db, storage.NoOpTracer())
	ctx := context.Background()

	return ctx, rs, cleanup
}

func TestPGUserStore_UpsertAndFind(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	now := time.Now().UTC().Truncate(time.Second)
	user := identity.User{ID: 10, Name: "alice", Email: "alice@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, rs.Users().Upsert(ctx, user))

	// Second upsert under the same upstream ID replaces the row.
	user.Name = "alicia"
	require.NoError(t, rs.Users().Upsert(ctx, user))

	loaded, err := rs.Users().FindByID(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "alicia", loaded.Name)
	assert.Equal(t, "alice@example.com", loaded.Email)
	assert.WithinDuration(t, now, loaded.CreatedAt, time.Second)
}

func TestPGUserStore_UpsertPersistsPayloadTimestamps(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, rs.Users().Upsert(ctx, identity.User{
		ID: 11, Name: "alice", CreatedAt: created, UpdatedAt: updated,
	}))

	// An update event carries its own upstream timestamp; the row must keep
	// the original created_at and take the new updated_at.
	updated = time.Date(2024, 3, 5, 8, 15, 0, 0, time.UTC)
	require.NoError(t, rs.Users().Upsert(ctx, identity.User{
		ID: 11, Name: "alicia", CreatedAt: created, UpdatedAt: updated,
	}))

	loaded, err := rs.Users().FindByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, created, loaded.CreatedAt.UTC())
	assert.Equal(t, updated, loaded.UpdatedAt.UTC())
}

func TestPGUserStore_FindMissing(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	_, err := rs.Users().FindByID(ctx, 404)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestPGUserStore_DeleteIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	require.NoError(t, rs.Users().Upsert(ctx, identity.User{ID: 10}))
	require.NoError(t, rs.Users().Delete(ctx, 10))
	require.NoError(t, rs.Users().Delete(ctx, 10))

	_, err := rs.Users().FindByID(ctx, 10)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestPGUserStore_RoleGrantsAndReplace(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	require.NoError(t, rs.Users().Upsert(ctx, identity.User{ID: 10}))
	require.NoError(t, rs.Roles().Upsert(ctx, identity.Role{ID: 1, Name: "editor", GuardName: "web"}))
	require.NoError(t, rs.Roles().Upsert(ctx, identity.Role{ID: 2, Name: "viewer", GuardName: "web"}))

	require.NoError(t, rs.Users().GrantRole(ctx, 10, 1))
	require.NoError(t, rs.Users().GrantRole(ctx, 10, 1), "duplicate grant is a no-op")

	require.NoError(t, rs.Users().ReplaceRoles(ctx, 10, []int64{2}))
	require.NoError(t, rs.Users().RevokeRole(ctx, 10, 2))
	require.NoError(t, rs.Users().RevokeRole(ctx, 10, 2), "revoking a missing grant is a no-op")
}

func TestPGStoreStore_MetadataRoundTrip(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	store := identity.Store{
		ID:          3,
		Name:        "Downtown",
		GroupNumber: 7,
		Metadata:    map[string]any{"group": float64(7), "region": "west"},
	}
	require.NoError(t, rs.Stores().Upsert(ctx, store))

	loaded, err := rs.Stores().FindByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "Downtown", loaded.Name)
	assert.Equal(t, 7, loaded.GroupNumber)
	assert.Equal(t, "west", loaded.Metadata["region"])
}

func TestPGRoleStore_FindByName(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	require.NoError(t, rs.Roles().Upsert(ctx, identity.Role{ID: 1, Name: "editor", GuardName: "web"}))
	require.NoError(t, rs.Roles().Upsert(ctx, identity.Role{ID: 2, Name: "editor", GuardName: "api"}))

	role, err := rs.Roles().FindByName(ctx, "editor", "api")
	require.NoError(t, err)
	assert.Equal(t, int64(2), role.ID)

	_, err = rs.Roles().FindByName(ctx, "editor", "mobile")
	assert.ErrorIs(t, err, identity.ErrRoleNotFound)
}

func TestPGRoleStore_PermissionReplace(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	require.NoError(t, rs.Roles().Upsert(ctx, identity.Role{ID: 1, Name: "editor", GuardName: "web"}))
	require.NoError(t, rs.Permissions().Upsert(ctx, identity.Permission{ID: 20, Name: "read", GuardName: "web"}))
	require.NoError(t, rs.Permissions().Upsert(ctx, identity.Permission{ID: 21, Name: "write", GuardName: "web"}))

	require.NoError(t, rs.Roles().GrantPermission(ctx, 1, 20))
	require.NoError(t, rs.Roles().GrantPermission(ctx, 1, 21))
	require.NoError(t, rs.Roles().ReplacePermissions(ctx, 1, []int64{20}))
	require.NoError(t, rs.Roles().RevokePermission(ctx, 1, 20))
	require.NoError(t, rs.Roles().ReplacePermissions(ctx, 1, nil), "empty replace clears the set")
}

func TestPGPermissionStore_FindByName(t *testing.T) {
	t.Parallel()

	ctx, rs, cleanup := setupReplicaSetTest(t)
	defer cleanup()

	require.NoError(t, rs.Permissions().Upsert(ctx, identity.Permission{ID: 20, Name: "articles.write", GuardName: "web"}))

	perm, err := rs.Permissions().FindByName(ctx, "articles.write", "web")
	require.NoError(t, err)
	assert.Equal(t, int64(20), perm.ID)

	_, err = rs.Permissions().FindByName(ctx, "articles.write", "api")
	assert.ErrorIs(t, err, identity.ErrPermissionNotFound)
}
