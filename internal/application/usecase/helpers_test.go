package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/logging"
)

func testContext() context.Context {
	logger := logging.NewFromConfigValues("debug", "console")
	return logging.WithContext(context.Background(), logger)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

// memKV is an in-memory KeyValueRepository.
type memKV struct {
	mu     sync.Mutex
	values map[entity.StoreKey]string
}

func newMemKV() *memKV {
	return &memKV{values: make(map[entity.StoreKey]string)}
}

func (s *memKV) Get(_ context.Context, key entity.StoreKey) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *memKV) Set(_ context.Context, key entity.StoreKey, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *memKV) Delete(_ context.Context, key entity.StoreKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *memKV) Take(_ context.Context, key entity.StoreKey) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	delete(s.values, key)
	return v, ok, nil
}

func (s *memKV) value(key entity.StoreKey) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

// memJar is an in-memory CookieJarRepository.
type memJar struct {
	mu    sync.Mutex
	jar   entity.CookieJar
	saves int
}

func (r *memJar) Load(_ context.Context) (entity.CookieJar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return entity.NewCookieJar(r.jar.Flatten()), nil
}

func (r *memJar) Save(_ context.Context, jar entity.CookieJar) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jar = entity.NewCookieJar(jar.Flatten())
	r.saves++
	return nil
}

func (r *memJar) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

// fakeCookieStore is a live cookie store keyed by domain and name.
type fakeCookieStore struct {
	mu      sync.Mutex
	cookies entity.CookieJar
	failSet bool
}

func newFakeCookieStore() *fakeCookieStore {
	return &fakeCookieStore{cookies: entity.NewCookieJar(nil)}
}

func (s *fakeCookieStore) AllCookies(_ context.Context) ([]entity.CookieRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies.Flatten(), nil
}

func (s *fakeCookieStore) SetCookie(_ context.Context, cookie entity.CookieRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet {
		return errors.New("store rejected cookie")
	}
	s.cookies.Put(cookie)
	return nil
}

// fakeSurface records every call made by the surface manager.
type fakeSurface struct {
	mu        sync.Mutex
	id        entity.SurfaceID
	settings  entity.SurfaceSettings
	cookies   *fakeCookieStore
	history   []string
	loads     []string
	stops     int
	callbacks *port.SurfaceCallbacks
	destroyed bool
}

func (s *fakeSurface) ID() entity.SurfaceID { return s.id }

func (s *fakeSurface) LoadURI(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, uri)
	s.loads = append(s.loads, uri)
	return nil
}

func (s *fakeSurface) Stop(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stops++
	return nil
}

func (s *fakeSurface) GoBack(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) > 1 {
		s.history = s.history[:len(s.history)-1]
	}
	return nil
}

func (s *fakeSurface) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) > 1
}

func (s *fakeSurface) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.history) == 0 {
		return ""
	}
	return s.history[len(s.history)-1]
}

func (s *fakeSurface) IsLoading() bool { return false }

func (s *fakeSurface) Settings() entity.SurfaceSettings { return s.settings }

func (s *fakeSurface) Cookies() port.CookieStore { return s.cookies }

func (s *fakeSurface) SetCallbacks(callbacks *port.SurfaceCallbacks) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = callbacks
}

func (s *fakeSurface) IsDestroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyed
}

func (s *fakeSurface) Destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.destroyed = true
}

func (s *fakeSurface) cb() *port.SurfaceCallbacks {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks
}

func (s *fakeSurface) loadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loads)
}

func (s *fakeSurface) stopCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stops
}

// fakeFactory hands out fake surfaces. Related surfaces share the parent's cookie store.
type fakeFactory struct {
	mu       sync.Mutex
	nextID   entity.SurfaceID
	store    *fakeCookieStore
	surfaces []*fakeSurface
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{store: newFakeCookieStore()}
}

func (f *fakeFactory) Create(_ context.Context, settings entity.SurfaceSettings) (port.Surface, error) {
	return f.add(settings, f.store), nil
}

func (f *fakeFactory) CreateRelated(_ context.Context, parent port.Surface, settings entity.SurfaceSettings) (port.Surface, error) {
	return f.add(settings, parent.(*fakeSurface).cookies), nil
}

func (f *fakeFactory) add(settings entity.SurfaceSettings, store *fakeCookieStore) *fakeSurface {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := &fakeSurface{id: f.nextID, settings: settings, cookies: store}
	f.surfaces = append(f.surfaces, s)
	return s
}

// eventRecorder collects bootstrap events in delivery order.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
	phases []entity.PhaseState
}

func (r *eventRecorder) record(ev string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) recordPhase(state entity.PhaseState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phases = append(r.phases, state)
}

func (r *eventRecorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *eventRecorder) has(ev string) bool {
	for _, e := range r.snapshot() {
		if e == ev {
			return true
		}
	}
	return false
}
