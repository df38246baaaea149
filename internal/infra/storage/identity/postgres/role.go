package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage"
)

var _ identity.RoleRepository = (*roleStore)(nil)

// roleStore implements identity.RoleRepository using PostgreSQL.
type roleStore struct {
	db     DBTX
	tracer trace.Tracer
}

// Upsert persists a role keyed by its upstream ID.
func (r *roleStore) Upsert(ctx context.Context, role identity.Role) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("role_id", role.ID),
		attribute.String("role_name", role.Name),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.upsert_role", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			INSERT INTO roles (id, name, guard_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    guard_name = EXCLUDED.guard_name`,
			role.ID, role.Name, role.GuardName,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert role: %w", err)
		}
		return nil
	})
}

// FindByID loads a role by its upstream ID.
func (r *roleStore) FindByID(ctx context.Context, id int64) (identity.Role, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("role_id", id))

	var role identity.Role
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_role", dbAttrs, func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, `SELECT id, name, guard_name FROM roles WHERE id = $1`, id)
		if err := row.Scan(&role.ID, &role.Name, &role.GuardName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrRoleNotFound
			}
			return fmt.Errorf("failed to find role: %w", err)
		}
		return nil
	})
	if err != nil {
		return identity.Role{}, err
	}

	return role, nil
}

// FindByName resolves a role by its upstream (name, guard) identity.
func (r *roleStore) FindByName(ctx context.Context, name, guardName string) (identity.Role, error) {
	dbAttrs := append(defaultDBAttributes,
		attribute.String("role_name", name),
		attribute.String("guard_name", guardName),
	)

	var role identity.Role
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_role_by_name", dbAttrs, func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, `SELECT id, name, guard_name FROM roles WHERE name = $1 AND guard_name = $2`, name, guardName)
		if err := row.Scan(&role.ID, &role.Name, &role.GuardName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrRoleNotFound
			}
			return fmt.Errorf("failed to find role by name: %w", err)
		}
		return nil
	})
	if err != nil {
		return identity.Role{}, err
	}

	return role, nil
}

// Delete removes a role by its upstream ID. Deleting a missing row is a
// no-op.
func (r *roleStore) Delete(ctx context.Context, id int64) error {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("role_id", id))

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_role", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return nil
	})
}

// GrantPermission attaches a permission to a role. Granting twice is a no-op.
func (r *roleStore) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("role_id", roleID),
		attribute.Int64("permission_id", permissionID),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.grant_role_permission", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			roleID, permissionID,
		)
		if err != nil {
			return fmt.Errorf("failed to grant permission to role: %w", err)
		}
		return nil
	})
}

// RevokePermission detaches a permission from a role. Revoking an absent
// grant is a no-op.
func (r *roleStore) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("role_id", roleID),
		attribute.Int64("permission_id", permissionID),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.revoke_role_permission", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`, roleID, permissionID)
		if err != nil {
			return fmt.Errorf("failed to revoke permission from role: %w", err)
		}
		return nil
	})
}

// ReplacePermissions makes permissionIDs the role's exact permission set.
func (r *roleStore) ReplacePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("role_id", roleID),
		attribute.Int("permission_count", len(permissionIDs)),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.replace_role_permissions", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("failed to clear role permissions: %w", err)
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		_, err := r.db.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`,
			roleID, permissionIDs,
		)
		if err != nil {
			return fmt.Errorf("failed to replace role permissions: %w", err)
		}
		return nil
	})
}
