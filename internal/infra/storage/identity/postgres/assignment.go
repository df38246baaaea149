package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage"
)

var _ identity.AssignmentRepository = (*assignmentStore)(nil)

// assignmentStore implements identity.AssignmentRepository using PostgreSQL.
type assignmentStore struct {
	db     DBTX
	tracer trace.Tracer
}

func storeIDParam(storeID *int64) pgtype.Int8 {
	if storeID == nil {
		return pgtype.Int8{}
	}
	return pgtype.Int8{Int64: *storeID, Valid: true}
}

// Upsert persists an assignment keyed by the upstream assignment ID.
func (r *assignmentStore) Upsert(ctx context.Context, assignment identity.StoreRoleAssignment) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("assignment_id", assignment.ID),
		attribute.Int64("user_id", assignment.UserID),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.upsert_assignment", dbAttrs, func(ctx context.Context) error {
		_, err := r.db.Exec(ctx, `
			INSERT INTO store_role_assignments (id, user_id, store_id, role_name, active)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE
			SET user_id = EXCLUDED.user_id,
			    store_id = EXCLUDED.store_id,
			    role_name = EXCLUDED.role_name,
			    active = EXCLUDED.active`,
			assignment.ID, assignment.UserID, storeIDParam(assignment.StoreID), assignment.RoleName, assignment.Active,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert assignment: %w", err)
		}
		return nil
	})
}

// FindByID loads an assignment by the upstream assignment ID.
func (r *assignmentStore) FindByID(ctx context.Context, id int64) (identity.StoreRoleAssignment, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("assignment_id", id))

	var assignment identity.StoreRoleAssignment
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_assignment", dbAttrs, func(ctx context.Context) error {
		var storeID pgtype.Int8
		row := r.db.QueryRow(ctx, `
			SELECT id, user_id, store_id, role_name, active
			FROM store_role_assignments
			WHERE id = $1`,
			id,
		)
		if err := row.Scan(&assignment.ID, &assignment.UserID, &storeID, &assignment.RoleName, &assignment.Active); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrAssignmentNotFound
			}
			return fmt.Errorf("failed to find assignment: %w", err)
		}
		if storeID.Valid {
			assignment.StoreID = &storeID.Int64
		}
		return nil
	})
	if err != nil {
		return identity.StoreRoleAssignment{}, err
	}

	return assignment, nil
}

// Delete removes an assignment by the upstream assignment ID. Deleting a
// missing row is a no-op.
func (r *assignmentStore) Delete(ctx context.Context, id int64) error {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("assignment_id", id))

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_assignment", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM store_role_assignments WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		return nil
	})
}

// DeleteByComposite removes the assignment matching (user, store-or-null,
// role name). Used when a removal event omits the upstream assignment ID.
func (r *assignmentStore) DeleteByComposite(ctx context.Context, userID int64, storeID *int64, roleName string) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.String("role_name", roleName),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_assignment_composite", dbAttrs, func(ctx context.Context) error {
		// IS NOT DISTINCT FROM treats two NULLs as equal, so a nil storeID
		// matches only all-store assignments.
		_, err := r.db.Exec(ctx, `
			DELETE FROM store_role_assignments
			WHERE user_id = $1
			  AND store_id IS NOT DISTINCT FROM $2
			  AND role_name = $3`,
			userID, storeIDParam(storeID), roleName,
		)
		if err != nil {
			return fmt.Errorf("failed to delete assignment by composite key: %w", err)
		}
		return nil
	})
}

// SetActive toggles an assignment by the upstream assignment ID. Returns
// ErrAssignmentNotFound when no such assignment has been replicated yet.
func (r *assignmentStore) SetActive(ctx context.Context, id int64, active bool) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("assignment_id", id),
		attribute.Bool("active", active),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.set_assignment_active", dbAttrs, func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `UPDATE store_role_assignments SET active = $2 WHERE id = $1`, id, active)
		if err != nil {
			return fmt.Errorf("failed to toggle assignment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return identity.ErrAssignmentNotFound
		}
		return nil
	})
}

// SetActiveByComposite toggles the assignment matching (user, store-or-null,
// role name). Returns ErrAssignmentNotFound when nothing matches.
func (r *assignmentStore) SetActiveByComposite(ctx context.Context, userID int64, storeID *int64, roleName string, active bool) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("user_id", userID),
		attribute.String("role_name", roleName),
		attribute.Bool("active", active),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.set_assignment_active_composite", dbAttrs, func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `
			UPDATE store_role_assignments
			SET active = $4
			WHERE user_id = $1
			  AND store_id IS NOT DISTINCT FROM $2
			  AND role_name = $3`,
			userID, storeIDParam(storeID), roleName, active,
		)
		if err != nil {
			return fmt.Errorf("failed to toggle assignment by composite key: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return identity.ErrAssignmentNotFound
		}
		return nil
	})
}
