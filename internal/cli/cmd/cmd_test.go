package cmd

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/infrastructure/config"
	"github.com/bnema/waypoint/internal/infrastructure/persistence/sqlite"
	"github.com/bnema/waypoint/internal/infrastructure/runlock"
	"github.com/bnema/waypoint/internal/logging"
)

type testEnv struct {
	configDir string
	dataDir   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{configDir: t.TempDir(), dataDir: t.TempDir()}
	t.Setenv("ENV", "")
	t.Setenv("XDG_DATA_HOME", env.dataDir)
	t.Setenv("XDG_STATE_HOME", t.TempDir())
	t.Setenv("WAYPOINT_LOG_LEVEL", "disabled")
	return env
}

func (e *testEnv) dbPath() string {
	return filepath.Join(e.dataDir, "waypoint", "waypoint.sqlite")
}

func resetFlags() {
	stateJSON = false
	overrideClear = false
	resetCookies = false
	resetAll = false
	cookiesValues = false
	cookiesDomain = ""
	runAttribution = map[string]string{}
	runDeepLink = map[string]string{}
	runPush = pushAsk
	runOnce = false
	app = nil
}

func (e *testEnv) execute(t *testing.T, args ...string) string {
	t.Helper()
	resetFlags()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(append([]string{"--config-dir", e.configDir}, args...))
	require.NoError(t, rootCmd.Execute(), buf.String())
	return buf.String()
}

func (e *testEnv) state(t *testing.T) stateDocument {
	t.Helper()
	var doc stateDocument
	require.NoError(t, sonic.Unmarshal([]byte(e.execute(t, "state", "--json")), &doc))
	return doc
}

func TestOverrideStateAndReset(t *testing.T) {
	env := newTestEnv(t)

	doc := env.state(t)
	assert.Equal(t, "unset", doc.Mode)
	assert.Empty(t, doc.InstallID, "inspecting state must not mint an install id")

	out := env.execute(t, "override", "example.com/promo")
	assert.Contains(t, out, "https://example.com/promo")

	doc = env.state(t)
	assert.Equal(t, "https://example.com/promo", doc.OverrideURL)

	env.execute(t, "reset", "--all")
	doc = env.state(t)
	assert.Empty(t, doc.OverrideURL)
	assert.False(t, doc.HasRunBefore)
}

func TestOverride_RejectsNonWebScheme(t *testing.T) {
	env := newTestEnv(t)
	resetFlags()

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"--config-dir", env.configDir, "override", "mailto:someone@example.com"})
	assert.Error(t, rootCmd.Execute())
}

func TestOverride_Clear(t *testing.T) {
	env := newTestEnv(t)

	env.execute(t, "override", "https://example.com/a")
	out := env.execute(t, "override", "--clear")
	assert.Contains(t, out, "dropped https://example.com/a")
	assert.Empty(t, env.state(t).OverrideURL)
}

func TestCookies_FilterAndValues(t *testing.T) {
	env := newTestEnv(t)
	env.execute(t, "state")

	db := sqlite.NewLazyDB(env.dbPath())
	jar := entity.NewCookieJar([]entity.CookieRecord{
		{Domain: ".example.com", Name: "sid", Properties: map[string]any{entity.CookiePropValue: "abc123"}},
		{Domain: "other.org", Name: "theme", Properties: map[string]any{entity.CookiePropValue: "dark"}},
	})
	require.NoError(t, sqlite.NewLazyCookieJarRepository(db).Save(testCtx(), jar))
	require.NoError(t, db.Close())

	out := env.execute(t, "cookies", "--domain", "https://www.example.com/login", "--values")
	assert.Contains(t, out, "sid")
	assert.Contains(t, out, "abc123")
	assert.NotContains(t, out, "theme")

	out = env.execute(t, "cookies")
	assert.Contains(t, out, "theme")
	assert.NotContains(t, out, "abc123")

	env.execute(t, "reset", "--cookies")
	assert.Zero(t, env.state(t).Cookies)
}

func TestConfigPathAndSchema(t *testing.T) {
	env := newTestEnv(t)

	out := env.execute(t, "config", "path")
	assert.Contains(t, out, filepath.Join(env.configDir, "config.toml"))
	assert.Contains(t, out, env.dbPath())

	out = env.execute(t, "config", "schema")
	assert.Contains(t, out, `"redirect_threshold"`)
}

func TestRun_NoEndpointFallsBackToLegacy(t *testing.T) {
	env := newTestEnv(t)
	t.Setenv("WAYPOINT_CONNECTIVITY_PROBE_ADDRESS", closedAddress(t))

	out := env.execute(t, "run", "--once", "--push", "decline", "--attribution", "af_status=Non-organic")
	assert.Contains(t, out, entity.PhaseLegacyMode.String())

	doc := env.state(t)
	assert.Equal(t, string(entity.ModeLegacy), doc.Mode)
	assert.True(t, doc.HasRunBefore)
	assert.NotZero(t, doc.LastPushPrompt)
}

func TestRun_RemoteRouteOpensPrimaryAndPersistsCookies(t *testing.T) {
	env := newTestEnv(t)

	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "s-1", Path: "/"})
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, "<html><head><title>Landing</title></head></html>")
	}))
	defer site.Close()

	var (
		mu      sync.Mutex
		gotBody map[string]any
	)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		mu.Lock()
		_ = sonic.Unmarshal(raw, &gotBody)
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"ok":true,"url":"`+site.URL+`/landing","expires":3600}`)
	}))
	defer remote.Close()

	t.Setenv("WAYPOINT_REMOTE_CONFIG_ENDPOINT", remote.URL)
	t.Setenv("WAYPOINT_CONNECTIVITY_PROBE_ADDRESS", site.Listener.Addr().String())
	t.Setenv("WAYPOINT_APP_BUNDLE_ID", "com.example.app")

	out := env.execute(t, "run", "--once", "--push", "decline",
		"--attribution", "af_status=Non-organic,campaign=spring")
	assert.Contains(t, out, entity.PhaseWebContainer.String())
	assert.Contains(t, out, site.URL+"/landing")

	mu.Lock()
	assert.Equal(t, "spring", gotBody["campaign"])
	assert.Equal(t, "com.example.app", gotBody["bundle_id"])
	mu.Unlock()

	doc := env.state(t)
	assert.Equal(t, string(entity.ModePrimary), doc.Mode)
	assert.Equal(t, site.URL+"/landing", doc.Destination)
	assert.False(t, doc.Expired)
	assert.Equal(t, 1, doc.Cookies)
}

func TestRun_RefusesWhileAnotherRunHoldsTheLock(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("advisory locks need flock")
	}
	env := newTestEnv(t)
	stateDir, err := config.GetStateDir()
	require.NoError(t, err)

	lock, err := runlock.Acquire(stateDir)
	require.NoError(t, err)
	defer func() { _ = lock.Release() }()

	resetFlags()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs([]string{"--config-dir", env.configDir, "run", "--once"})
	err = rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another waypoint run is active")
}

func TestToPayload(t *testing.T) {
	p := toPayload(map[string]string{"is_first_launch": "true", "campaign": "1", "flag": "false"})
	assert.Equal(t, entity.Payload{"is_first_launch": true, "campaign": "1", "flag": false}, p)
}

func TestFilterJar(t *testing.T) {
	jar := entity.NewCookieJar([]entity.CookieRecord{
		{Domain: ".example.com", Name: "a"},
		{Domain: "example.com", Name: "b"},
		{Domain: "shop.example.com", Name: "c"},
	})
	assert.Equal(t, 2, filterJar(jar, "example.com").Len())
	assert.Equal(t, 1, filterJar(jar, "shop.example.com").Len())
	assert.Zero(t, filterJar(jar, "nowhere.test").Len())
}

func testCtx() context.Context {
	return logging.WithContext(context.Background(), logging.NewFromConfigValues("disabled", "json"))
}

// closedAddress returns a loopback address nothing listens on.
func closedAddress(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}
