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

var _ identity.UserRepository = (*userStore)(nil)

// userStore implements identity.UserRepository using PostgreSQL.
type userStore struct {
	db     DBTX
	tracer trace.Tracer
}

// Upsert persists a user keyed by its upstream ID.
func (r *userStore) Upsert(ctx context.Context, user identity.User) error {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("user_id", user.ID))

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.upsert_user", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			INSERT INTO users (id, name, email, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    email = EXCLUDED.email,
			    updated_at = EXCLUDED.updated_at`,
			user.ID, user.Name, user.Email, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		return nil
	})
}

// FindByID loads a user by its upstream ID.
func (r *userStore) FindByID(ctx context.Context, id int64) (identity.User, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("user_id", id))

	var user identity.User
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_user", dbAttrs, func(ctx context.Context) error {
		row := r.db.QueryRow(ctx, `
			SELECT id, name, email, created_at, updated_at
			FROM users
			WHERE id = $1`,
			id,
		)
		if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrUserNotFound
			}
			return fmt.Errorf("failed to find user: %w", err)
		}
		return nil
	})
	if err != nil {
		return identity.User{}, err
	}

	return user, nil
}

// Delete removes a user by its upstream ID. Deleting a missing row is a
// no-op.
func (r *userStore) Delete(ctx context.Context, id int64) error {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("user_id", id))

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_user", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil
	})
}

// GrantRole attaches a role to a user. Granting an already-held role is a
// no-op.
func (r *userStore) GrantRole(ctx context.Context, userID, roleID int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.Int64("role_id", roleID),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.grant_user_role", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING`,
			userID, roleID,
		)
		if err != nil {
			return fmt.Errorf("failed to grant role to user: %w", err)
		}
		return nil
	})
}

// RevokeRole detaches a role from a user. Revoking an absent role is a no-op.
func (r *userStore) RevokeRole(ctx context.Context, userID, roleID int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.Int64("role_id", roleID),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.revoke_user_role", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
		if err != nil {
			return fmt.Errorf("failed to revoke role from user: %w", err)
		}
		return nil
	})
}

// ReplaceRoles makes roleIDs the user's exact role set.
func (r *userStore) ReplaceRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.Int("role_count", len(roleIDs)),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.replace_user_roles", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear user roles: %w", err)
		}

		if len(roleIDs) == 0 {
			return nil
		}

		_, err := r.db.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`,
			userID, roleIDs,
		)
		if err != nil {
			return fmt.Errorf("failed to replace user roles: %w", err)
		}
		return nil
	})
}

// RevokePermission detaches a direct permission from a user.
func (r *userStore) RevokePermission(ctx context.Context, userID, permissionID int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.Int64("permission_id", permissionID),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.revoke_user_permission", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
		if err != nil {
			return fmt.Errorf("failed to revoke permission from user: %w", err)
		}
		return nil
	})
}

// ReplacePermissions makes permissionIDs the user's exact direct permission
// set.
func (r *userStore) ReplacePermissions(ctx context.Context, userID int64, permissionIDs []int64) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.Int("permission_count", len(permissionIDs)),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.replace_user_permissions", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear user permissions: %w", err)
		}

		if len(permissionIDs) == 0 {
			return nil
		}

		_, err := r.db.Exec(ctx, `
			INSERT INTO user_permissions (user_id, permission_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`,
			userID, permissionIDs,
		)
		if err != nil {
			return fmt.Errorf("failed to replace user permissions: %w", err)
		}
		return nil
	})
}
