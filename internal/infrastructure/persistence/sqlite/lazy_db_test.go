package sqlite_test

import (
	"database/sql"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/infrastructure/persistence/sqlite"
)

func TestLazyDB_OpensOnFirstUseWithSchema(t *testing.T) {
	ctx := testCtx()
	path := filepath.Join(t.TempDir(), "nested", "waypoint.db")
	lazy := sqlite.NewLazyDB(path)
	t.Cleanup(func() { _ = lazy.Close() })

	assert.Equal(t, path, lazy.Path())
	assert.False(t, lazy.IsInitialized())
	assert.NoFileExists(t, path)

	db, err := lazy.DB(ctx)
	require.NoError(t, err)
	assert.True(t, lazy.IsInitialized())
	assert.FileExists(t, path)

	var table string
	require.NoError(t, db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'kv_store'").Scan(&table))
	assert.Equal(t, "kv_store", table)
}

func TestLazyDB_ConcurrentCallersShareOneConnection(t *testing.T) {
	ctx := testCtx()
	lazy := sqlite.NewLazyDB(filepath.Join(t.TempDir(), "waypoint.db"))
	t.Cleanup(func() { _ = lazy.Close() })

	const callers = 8
	got := make([]*sql.DB, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i], errs[i] = lazy.DB(ctx)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, got[0], got[i])
	}
}

func TestLazyDB_CloseBeforeUse(t *testing.T) {
	lazy := sqlite.NewLazyDB(filepath.Join(t.TempDir(), "waypoint.db"))
	assert.NoError(t, lazy.Close())
	assert.False(t, lazy.IsInitialized())
}

func TestLazyDB_InitErrorReachesRepositories(t *testing.T) {
	ctx := testCtx()
	lazy := sqlite.NewLazyDB("")

	_, err := lazy.DB(ctx)
	require.Error(t, err)

	kv := sqlite.NewLazyKeyValueRepository(lazy)
	assert.Error(t, kv.Set(ctx, entity.KeyHasRunBefore, "true"))

	_, err = sqlite.NewLazyCookieJarRepository(lazy).Load(ctx)
	assert.Error(t, err)
}
