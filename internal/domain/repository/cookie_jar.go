package repository

import (
	"context"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// CookieJarRepository persists the grouped cookie jar as a single blob.
type CookieJarRepository interface {
	// Load returns the persisted jar. A missing or corrupt blob yields an empty jar.
	Load(ctx context.Context) (entity.CookieJar, error)

	// Save replaces the persisted jar.
	Save(ctx context.Context, jar entity.CookieJar) error
}
