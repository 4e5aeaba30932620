package usecase

import (
	"context"
	"fmt"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

// CookieSyncUseCase moves cookies between a live surface store and the durable jar.
type CookieSyncUseCase struct {
	jarRepo repository.CookieJarRepository
}

// NewCookieSyncUseCase creates a new cookie sync use case.
func NewCookieSyncUseCase(jarRepo repository.CookieJarRepository) *CookieSyncUseCase {
	return &CookieSyncUseCase{jarRepo: jarRepo}
}

// Persist snapshots every cookie of store, grouped by domain then name,
// and replaces the durable jar with it.
func (uc *CookieSyncUseCase) Persist(ctx context.Context, store port.CookieStore) (int, error) {
	log := logging.FromContext(ctx)

	if store == nil {
		return 0, fmt.Errorf("cookie store cannot be nil")
	}

	records, err := store.AllCookies(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read live cookies: %w", err)
	}

	jar := entity.NewCookieJar(records)
	if err := uc.jarRepo.Save(ctx, jar); err != nil {
		return 0, fmt.Errorf("failed to save cookie jar: %w", err)
	}

	log.Debug().Int("cookies", jar.Len()).Int("domains", len(jar)).Msg("cookie jar persisted")
	return jar.Len(), nil
}

// Restore installs every persisted cookie into store.
// Cookies the store rejects are skipped.
func (uc *CookieSyncUseCase) Restore(ctx context.Context, store port.CookieStore) (int, error) {
	log := logging.FromContext(ctx)

	if store == nil {
		return 0, fmt.Errorf("cookie store cannot be nil")
	}

	jar, err := uc.jarRepo.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load cookie jar: %w", err)
	}

	restored := 0
	for _, record := range jar.Flatten() {
		if err := store.SetCookie(ctx, record); err != nil {
			log.Warn().Err(err).
				Str("domain", record.Domain).
				Str("name", record.Name).
				Msg("failed to restore cookie")
			continue
		}
		restored++
	}

	log.Debug().Int("restored", restored).Int("persisted", jar.Len()).Msg("cookie jar restored")
	return restored, nil
}

// Snapshot returns the persisted jar without touching any live store.
func (uc *CookieSyncUseCase) Snapshot(ctx context.Context) (entity.CookieJar, error) {
	jar, err := uc.jarRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cookie jar: %w", err)
	}
	return jar, nil
}
