package headless_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/infrastructure/headless"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestCookieStore_RestoreKeepsDomainScope(t *testing.T) {
	ctx := testCtx()
	www := mustURL(t, "https://www.example.com/")
	shop := mustURL(t, "https://shop.example.com/")

	live := headless.NewCookieStore()
	live.SetCookies(www, []*http.Cookie{
		{Name: "sid", Value: "s-1", Domain: "example.com", Path: "/"},
		{Name: "pref", Value: "dark", Path: "/"},
	})
	require.Len(t, live.Cookies(shop), 1)

	records, err := live.AllCookies(ctx)
	require.NoError(t, err)
	jar := entity.NewCookieJar(records)

	sid, ok := jar.Get("example.com", "sid")
	require.True(t, ok)
	assert.Equal(t, false, sid.Properties[entity.CookiePropHostOnly])
	pref, ok := jar.Get("www.example.com", "pref")
	require.True(t, ok)
	assert.Equal(t, true, pref.Properties[entity.CookiePropHostOnly])

	restored := headless.NewCookieStore()
	for _, r := range jar.Flatten() {
		require.NoError(t, restored.SetCookie(ctx, r))
	}

	assert.Len(t, restored.Cookies(www), 2)
	shopCookies := restored.Cookies(shop)
	require.Len(t, shopCookies, 1, "domain cookie reaches sibling subdomains")
	assert.Equal(t, "sid", shopCookies[0].Name)

	again, err := restored.AllCookies(ctx)
	require.NoError(t, err)
	assert.Equal(t, jar, entity.NewCookieJar(again))
}

func TestCookieStore_RecordsWithoutScopeAreHostOnly(t *testing.T) {
	ctx := testCtx()
	store := headless.NewCookieStore()
	require.NoError(t, store.SetCookie(ctx, entity.CookieRecord{
		Domain:     "example.com",
		Name:       "legacy",
		Properties: map[string]any{entity.CookiePropValue: "v"},
	}))

	assert.Len(t, store.Cookies(mustURL(t, "http://example.com/")), 1)
	assert.Empty(t, store.Cookies(mustURL(t, "http://www.example.com/")))
}
