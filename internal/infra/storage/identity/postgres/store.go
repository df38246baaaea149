package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/infra/storage"
)

var _ identity.StoreRepository = (*storeStore)(nil)

// storeStore implements identity.StoreRepository using PostgreSQL.
type storeStore struct {
	db     DBTX
	tracer trace.Tracer
}

// Upsert persists a store keyed by its upstream ID.
func (r *storeStore) Upsert(ctx context.Context, store identity.Store) error {
	dbAttrs := append(defaultDBAttributes,
		attribute.Int64("store_id", store.ID),
		attribute.Int("group_number", store.GroupNumber),
	)

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.upsert_store", dbAttrs, func(ctx context.Context) error {
		metadataJSON, err := json.Marshal(store.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal store metadata: %w", err)
		}

		_, err = r.db.Exec(ctx, `
			INSERT INTO stores (id, name, group_number, metadata)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name,
			    group_number = EXCLUDED.group_number,
			    metadata = EXCLUDED.metadata`,
			store.ID, store.Name, store.GroupNumber, metadataJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert store: %w", err)
		}
		return nil
	})
}

// FindByID loads a store by its upstream ID.
func (r *storeStore) FindByID(ctx context.Context, id int64) (identity.Store, error) {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("store_id", id))

	var store identity.Store
	err := storage.ExecuteAndTrace(ctx, r.tracer, "postgres.find_store", dbAttrs, func(ctx context.Context) error {
		var metadataJSON []byte
		row := r.db.QueryRow(ctx, `
			SELECT id, name, group_number, metadata
			FROM stores
			WHERE id = $1`,
			id,
		)
		if err := row.Scan(&store.ID, &store.Name, &store.GroupNumber, &metadataJSON); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return identity.ErrStoreNotFound
			}
			return fmt.Errorf("failed to find store: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &store.Metadata); err != nil {
				return fmt.Errorf("failed to unmarshal store metadata: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return identity.Store{}, err
	}

	return store, nil
}

// Delete removes a store by its upstream ID. Deleting a missing row is a
// no-op.
func (r *storeStore) Delete(ctx context.Context, id int64) error {
	dbAttrs := append(defaultDBAttributes, attribute.Int64("store_id", id))

	return storage.ExecuteAndTrace(ctx, r.tracer, "postgres.delete_store", dbAttrs, func(ctx context.Context) error {
		if _, err := r.db.Exec(ctx, `DELETE FROM stores WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete store: %w", err)
		}
		return nil
	})
}
