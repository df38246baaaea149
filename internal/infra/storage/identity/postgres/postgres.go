// Package postgres provides PostgreSQL-backed implementations of the
// identity read-model repositories. All writes are upserts or deletes keyed
// by upstream-assigned identifiers; the package never generates one.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// DBTX is the subset of pgx operations the stores need. Both *pgxpool.Pool
// and pgx.Tx satisfy it, which is how the idempotency gate binds a ReplicaSet
// to its open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var defaultDBAttributes = []attribute.KeyValue{
	attribute.String("db.system", "postgresql"),
}

var _ identity.ReplicaSet = (*ReplicaSet)(nil)

// ReplicaSet bundles the postgres repositories over a single DBTX.
type ReplicaSet struct {
	db     DBTX
	tracer trace.Tracer
}

// NewReplicaSet creates a ReplicaSet whose repositories all execute against
// db. Pass a pgx.Tx to make every repository operation part of that
// transaction.
func NewReplicaSet(db DBTX, tracer trace.Tracer) *ReplicaSet {
	return &ReplicaSet{db: db, tracer: tracer}
}

// Users returns the user repository.
func (s *ReplicaSet) Users() identity.UserRepository {
	return &userStore{db: s.db, tracer: s.tracer}
}

// Stores returns the store repository.
func (s *ReplicaSet) Stores() identity.StoreRepository {
	return &storeStore{db: s.db, tracer: s.tracer}
}

// Roles returns the role repository.
func (s *ReplicaSet) Roles() identity.RoleRepository {
	return &roleStore{db: s.db, tracer: s.tracer}
}

// Permissions returns the permission repository.
func (s *ReplicaSet) Permissions() identity.PermissionRepository {
	return &permissionStore{db: s.db, tracer: s.tracer}
}

// Assignments returns the assignment repository.
func (s *ReplicaSet) Assignments() identity.AssignmentRepository {
	return &assignmentStore{db: s.db, tracer: s.tracer}
}
