package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

type cookieJarRepo struct {
	kv repository.KeyValueRepository
}

// NewCookieJarRepository stores the grouped cookie jar as one JSON blob in the key/value table.
func NewCookieJarRepository(db *sql.DB) repository.CookieJarRepository {
	return &cookieJarRepo{kv: NewKeyValueRepository(db)}
}

func (r *cookieJarRepo) Load(ctx context.Context) (entity.CookieJar, error) {
	raw, ok, err := r.kv.Get(ctx, entity.KeyCookieJar)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return entity.NewCookieJar(nil), nil
	}

	var stored map[string]map[string]entity.CookieRecord
	if err := sonic.UnmarshalString(raw, &stored); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("corrupt cookie jar blob, starting empty")
		return entity.NewCookieJar(nil), nil
	}

	// Regroup so keys and records always agree.
	jar := entity.NewCookieJar(nil)
	for domain, byName := range stored {
		for name, record := range byName {
			if record.Domain == "" {
				record.Domain = domain
			}
			if record.Name == "" {
				record.Name = name
			}
			jar.Put(record)
		}
	}
	return jar, nil
}

func (r *cookieJarRepo) Save(ctx context.Context, jar entity.CookieJar) error {
	if jar == nil {
		jar = entity.NewCookieJar(nil)
	}
	raw, err := sonic.MarshalString(jar)
	if err != nil {
		return fmt.Errorf("failed to encode cookie jar: %w", err)
	}
	return r.kv.Set(ctx, entity.KeyCookieJar, raw)
}
