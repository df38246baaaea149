package replication

import (
	"context"
	"errors"

	"github.com/RnD-Experts-Team/AuditApp-sub000/internal/domain/identity"
)

// StoreCreated upserts a store under its upstream ID, deriving its access
// group from the metadata map.
func (h *Handlers) StoreCreated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "store")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	store := identity.Store{ID: id, GroupNumber: identity.UnknownGroup}
	if name, ok := asString(entity["name"]); ok {
		store.Name = name
	}
	if meta, ok := asObject(entity["metadata"]); ok {
		store.Metadata = meta
		store.GroupNumber = int(groupNumber(meta))
	}

	return rs.Stores().Upsert(ctx, store)
}

// StoreUpdated applies a store update delta. Metadata arrives as a whole
// object, not a {from,to} pair, and replaces the stored map wholesale; the
// group number is re-derived from it.
func (h *Handlers) StoreUpdated(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "store")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}

	store, err := rs.Stores().FindByID(ctx, id)
	switch {
	case errors.Is(err, identity.ErrStoreNotFound):
		store = identity.Store{ID: id, GroupNumber: identity.UnknownGroup}
	case err != nil:
		return err
	}

	if v, ok := deltaValue(entity, "name"); ok {
		if s, ok := asString(v); ok {
			store.Name = s
		}
	}
	if meta, ok := asObject(entity["metadata"]); ok {
		store.Metadata = meta
		store.GroupNumber = int(groupNumber(meta))
	}

	return rs.Stores().Upsert(ctx, store)
}

// StoreDeleted removes a store by upstream ID.
func (h *Handlers) StoreDeleted(ctx context.Context, rs identity.ReplicaSet, data map[string]any) error {
	entity := extractEntity(data, "store")
	id, err := requireInt64(entity, "id")
	if err != nil {
		return err
	}
	return rs.Stores().Delete(ctx, id)
}
