package sqlite

import (
	"context"
	"sync"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
)

// LazyKeyValueRepository opens the database on first use.
type LazyKeyValueRepository struct {
	provider port.DatabaseProvider
	repo     repository.KeyValueRepository
	once     sync.Once
	initErr  error
}

// NewLazyKeyValueRepository creates a lazy-loading key/value repository.
func NewLazyKeyValueRepository(provider port.DatabaseProvider) repository.KeyValueRepository {
	return &LazyKeyValueRepository{provider: provider}
}

func (r *LazyKeyValueRepository) init(ctx context.Context) error {
	r.once.Do(func() {
		db, err := r.provider.DB(ctx)
		if err != nil {
			r.initErr = err
			return
		}
		r.repo = NewKeyValueRepository(db)
	})
	return r.initErr
}

func (r *LazyKeyValueRepository) Get(ctx context.Context, key entity.StoreKey) (string, bool, error) {
	if err := r.init(ctx); err != nil {
		return "", false, err
	}
	return r.repo.Get(ctx, key)
}

func (r *LazyKeyValueRepository) Set(ctx context.Context, key entity.StoreKey, value string) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.repo.Set(ctx, key, value)
}

func (r *LazyKeyValueRepository) Delete(ctx context.Context, key entity.StoreKey) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.repo.Delete(ctx, key)
}

func (r *LazyKeyValueRepository) Take(ctx context.Context, key entity.StoreKey) (string, bool, error) {
	if err := r.init(ctx); err != nil {
		return "", false, err
	}
	return r.repo.Take(ctx, key)
}

// LazyCookieJarRepository opens the database on first use.
type LazyCookieJarRepository struct {
	provider port.DatabaseProvider
	repo     repository.CookieJarRepository
	once     sync.Once
	initErr  error
}

// NewLazyCookieJarRepository creates a lazy-loading cookie jar repository.
func NewLazyCookieJarRepository(provider port.DatabaseProvider) repository.CookieJarRepository {
	return &LazyCookieJarRepository{provider: provider}
}

func (r *LazyCookieJarRepository) init(ctx context.Context) error {
	r.once.Do(func() {
		db, err := r.provider.DB(ctx)
		if err != nil {
			r.initErr = err
			return
		}
		r.repo = NewCookieJarRepository(db)
	})
	return r.initErr
}

func (r *LazyCookieJarRepository) Load(ctx context.Context) (entity.CookieJar, error) {
	if err := r.init(ctx); err != nil {
		return nil, err
	}
	return r.repo.Load(ctx)
}

func (r *LazyCookieJarRepository) Save(ctx context.Context, jar entity.CookieJar) error {
	if err := r.init(ctx); err != nil {
		return err
	}
	return r.repo.Save(ctx, jar)
}
