package repository

import (
	"context"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// KeyValueRepository is the durable scalar and blob store shared by the
// bootstrap engine and the surface manager. Writes are last-write-wins per key.
type KeyValueRepository interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key entity.StoreKey) (value string, ok bool, err error)

	// Set saves or replaces the value for key.
	Set(ctx context.Context, key entity.StoreKey, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key entity.StoreKey) error

	// Take returns the value for key and deletes it.
	Take(ctx context.Context, key entity.StoreKey) (value string, ok bool, err error)
}
