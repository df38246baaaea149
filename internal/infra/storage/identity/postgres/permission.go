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

var _ identity.PermissionRepository = (*permissionStore)(nil)

// permissionStore implements identity.PermissionRepository using PostgreSQL.
type permissionStore struct {
	db     DBTX
	tracer trace.Tracer
}

// Upsert persists a permission keyed by its upstream ID.
func (r *permissionStore) Upsert(ctx context.Context, permission identity.Permission) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("permission_id", permission.ID),
		attribute.String("permission_name", permission.Name),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.upsert_permission", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			INSERT INTO permissions (id, name, guard_name)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    guard_name = EXCLUDED.guard_name`,
			permission.ID, permission.Name, permission.GuardName,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert permission: %w", err)
		}
		return nil
	})
}

// FindByID loads a permission by its upstream ID.
func (r *permissionStore) FindByID(ctx context.Context, id int64) (identity.Permission, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("permission_id", id))

	var permission identity.Permission
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_permission", dbAttrs, func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, `SELECT id, name, guard_name FROM permissions WHERE id = $1`, id)
		if err := row.Scan(&permission.ID, &permission.Name, &permission.GuardName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrPermissionNotFound
			}
			return fmt.Errorf("failed to find permission: %w", err)
		}
		return nil
	})
	if err != nil {
		return identity.Permission{}, err
	}

	return permission, nil
}

// FindByName resolves a permission by its upstream (name, guard) identity.
func (r *permissionStore) FindByName(ctx context.Context, name, guardName string) (identity.Permission, error) {
	dbAttrs := append(defaultDBAttributes,
		attribute.String("permission_name", name),
		attribute.String("guard_name", guardName),
	)

	var permission identity.Permission
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_permission_by_name", dbAttrs, func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, `SELECT id, name, guard_name FROM permissions WHERE name = $1 AND guard_name = $2`, name, guardName)
		if err := row.Scan(&permission.ID, &permission.Name, &permission.GuardName); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrPermissionNotFound
			}
			return fmt.Errorf("failed to find permission by name: %w", err)
		}
		return nil
	})
	if err != nil {
		return identity.Permission{}, err
	}

	return permission, nil
}

// Delete removes a permission by its upstream ID. Deleting a missing row is
// a no-op.
func (r *permissionStore) Delete(ctx context.Context, id int64) error {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("permission_id", id))

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_permission", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM permissions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete permission: %w", err)
		}
		return nil
	})
}
