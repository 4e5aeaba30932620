package usecase_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	portmocks "github.com/bnema/waypoint/internal/application/port/mocks"
	"github.com/bnema/waypoint/internal/application/usecase"
	"github.com/bnema/waypoint/internal/domain/entity"
	repomocks "github.com/bnema/waypoint/internal/domain/repository/mocks"
)

func cookie(domain, name, value string) entity.CookieRecord {
	return entity.CookieRecord{
		Domain: domain,
		Name:   name,
		Properties: map[string]any{
			entity.CookiePropValue:  value,
			entity.CookiePropPath:   "/",
			entity.CookiePropSecure: true,
		},
	}
}

func TestCookieSync_RoundTrip(t *testing.T) {
	ctx := testContext()
	jar := &memJar{jar: entity.NewCookieJar(nil)}
	uc := usecase.NewCookieSyncUseCase(jar)

	live := newFakeCookieStore()
	for _, c := range []entity.CookieRecord{
		cookie("a.example", "sid", "1"),
		cookie("a.example", "lang", "en"),
		cookie("b.example", "sid", "2"),
	} {
		require.NoError(t, live.SetCookie(ctx, c))
	}

	n, err := uc.Persist(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	fresh := newFakeCookieStore()
	restored, err := uc.Restore(ctx, fresh)
	require.NoError(t, err)
	assert.Equal(t, 3, restored)

	want, _ := live.AllCookies(ctx)
	got, _ := fresh.AllCookies(ctx)
	assert.Equal(t, want, got)
}

func TestCookieSync_OverwritesSameName(t *testing.T) {
	ctx := testContext()
	jar := &memJar{jar: entity.NewCookieJar(nil)}
	uc := usecase.NewCookieSyncUseCase(jar)

	live := newFakeCookieStore()
	require.NoError(t, live.SetCookie(ctx, cookie("a.example", "sid", "old")))
	_, err := uc.Persist(ctx, live)
	require.NoError(t, err)

	require.NoError(t, live.SetCookie(ctx, cookie("a.example", "sid", "new")))
	_, err = uc.Persist(ctx, live)
	require.NoError(t, err)

	snapshot, err := uc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.Len())
	got, ok := snapshot.Get("a.example", "sid")
	require.True(t, ok)
	assert.Equal(t, "new", got.Value())
}

func TestCookieSync_RestoreSkipsRejectedCookies(t *testing.T) {
	ctx := testContext()
	jar := &memJar{jar: entity.NewCookieJar([]entity.CookieRecord{cookie("a.example", "sid", "1")})}
	uc := usecase.NewCookieSyncUseCase(jar)

	store := newFakeCookieStore()
	store.failSet = true

	restored, err := uc.Restore(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, restored)
}

func TestCookieSync_Errors(t *testing.T) {
	ctx := testContext()

	t.Run("live store read fails", func(t *testing.T) {
		repo := repomocks.NewMockCookieJarRepository(t)
		store := portmocks.NewMockCookieStore(t)
		store.On("AllCookies", mock.Anything).Return(nil, errors.New("store gone")).Once()

		_, err := usecase.NewCookieSyncUseCase(repo).Persist(ctx, store)
		require.Error(t, err)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("save fails", func(t *testing.T) {
		repo := repomocks.NewMockCookieJarRepository(t)
		store := portmocks.NewMockCookieStore(t)
		store.On("AllCookies", mock.Anything).Return([]entity.CookieRecord{cookie("a.example", "sid", "1")}, nil).Once()
		repo.On("Save", mock.Anything, mock.AnythingOfType("entity.CookieJar")).Return(errors.New("disk full")).Once()

		_, err := usecase.NewCookieSyncUseCase(repo).Persist(ctx, store)
		assert.ErrorContains(t, err, "disk full")
	})

	t.Run("load fails", func(t *testing.T) {
		repo := repomocks.NewMockCookieJarRepository(t)
		store := portmocks.NewMockCookieStore(t)
		repo.On("Load", mock.Anything).Return(nil, errors.New("locked")).Once()

		_, err := usecase.NewCookieSyncUseCase(repo).Restore(ctx, store)
		require.Error(t, err)
		store.AssertNotCalled(t, "SetCookie", mock.Anything, mock.Anything)
	})

	t.Run("nil store", func(t *testing.T) {
		uc := usecase.NewCookieSyncUseCase(&memJar{})
		_, err := uc.Persist(ctx, nil)
		assert.Error(t, err)
	})
}
