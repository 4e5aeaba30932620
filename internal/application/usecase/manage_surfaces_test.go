package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/application/port"
	portmocks "github.com/bnema/waypoint/internal/application/port/mocks"
	"github.com/bnema/waypoint/internal/application/usecase"
	"github.com/bnema/waypoint/internal/domain/entity"
)

type surfaceFixture struct {
	factory *fakeFactory
	jar     *memJar
	kv      *memKV
	opener  *portmocks.MockExternalURLOpener
	manager *usecase.SurfaceManager
}

func newSurfaceFixture(t *testing.T, opts usecase.SurfaceOptions) *surfaceFixture {
	t.Helper()
	f := &surfaceFixture{
		factory: newFakeFactory(),
		jar:     &memJar{jar: entity.NewCookieJar(nil)},
		kv:      newMemKV(),
		opener:  portmocks.NewMockExternalURLOpener(t),
	}
	f.manager = usecase.NewSurfaceManager(
		testContext(),
		f.factory,
		usecase.NewCookieSyncUseCase(f.jar),
		f.opener,
		f.kv,
		opts,
	)
	return f
}

func (f *surfaceFixture) primary(t *testing.T, destination string) *fakeSurface {
	t.Helper()
	surface, err := f.manager.CreatePrimary(testContext(), destination)
	require.NoError(t, err)
	return surface.(*fakeSurface)
}

func popup(uri string) port.PopupRequest {
	return port.PopupRequest{TargetURI: uri, TargetFrameIsNil: true, IsUserGesture: true}
}

func TestSurfaceManager_CreatePrimary(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())

	f.jar.jar.Put(entity.CookieRecord{Domain: "a.example", Name: "sid", Properties: map[string]any{entity.CookiePropValue: "1"}})
	f.jar.jar.Put(entity.CookieRecord{Domain: "b.example", Name: "pref", Properties: map[string]any{entity.CookiePropValue: "dark"}})

	primary := f.primary(t, "https://home.example")

	assert.Equal(t, []string{"https://home.example"}, primary.loads)
	assert.Equal(t, 2, primary.cookies.cookies.Len(), "cookies restored before first load")

	settings := primary.Settings()
	assert.True(t, settings.JavaScriptEnabled)
	assert.True(t, settings.InlineMediaPlayback)
	assert.True(t, settings.AutoplayWithoutGesture)
	assert.Equal(t, entity.FixedZoom, settings.Zoom)
	assert.True(t, settings.ZoomLocked)
	assert.False(t, settings.BounceEnabled)
	assert.True(t, settings.BackForwardGestures)
	require.NotNil(t, primary.cb())

	_, err := f.manager.CreatePrimary(ctx, "https://other.example")
	assert.ErrorIs(t, err, usecase.ErrPrimaryExists)
	assert.Len(t, f.factory.surfaces, 1)
}

func TestSurfaceManager_RequestAuxiliary(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())

	assert.Nil(t, f.manager.RequestAuxiliary(ctx, popup("https://popup.example")), "no primary yet")

	primary := f.primary(t, "https://home.example")

	framed := popup("https://frame.example")
	framed.TargetFrameIsNil = false
	assert.Nil(t, f.manager.RequestAuxiliary(ctx, framed))
	assert.Empty(t, f.manager.Auxiliary())

	aux := f.manager.RequestAuxiliary(ctx, popup("https://popup.example"))
	require.NotNil(t, aux)
	assert.Equal(t, []string{"https://popup.example"}, aux.(*fakeSurface).loads)
	assert.Same(t, primary.cookies, aux.(*fakeSurface).cookies, "popups share the primary cookie store")

	for _, deferred := range []string{"", entity.BlankURL, "myapp://open"} {
		s := f.manager.RequestAuxiliary(ctx, popup(deferred))
		require.NotNil(t, s, deferred)
		assert.Zero(t, s.(*fakeSurface).loadCount(), deferred)
	}
	assert.Len(t, f.manager.Auxiliary(), 4)
}

func TestSurfaceManager_PopupFromContentCallback(t *testing.T) {
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")

	created := primary.cb().OnCreate(popup("https://login.example"))
	require.NotNil(t, created)

	nested := created.(*fakeSurface).cb().OnCreate(popup("https://consent.example"))
	require.NotNil(t, nested)

	aux := f.manager.Auxiliary()
	require.Len(t, aux, 2)
	assert.Equal(t, created.ID(), aux[0].ID())
	assert.Equal(t, nested.ID(), aux[1].ID())
}

func TestSurfaceManager_CloseAllAuxiliary(t *testing.T) {
	t.Run("goes back without returnTo", func(t *testing.T) {
		ctx := testContext()
		f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
		primary := f.primary(t, "https://home.example")
		require.NoError(t, primary.LoadURI(ctx, "https://home.example/page"))

		var aux []port.Surface
		for i := 0; i < 3; i++ {
			aux = append(aux, f.manager.RequestAuxiliary(ctx, popup("https://popup.example")))
		}

		require.NoError(t, f.manager.CloseAllAuxiliary(ctx, ""))

		assert.Empty(t, f.manager.Auxiliary())
		for _, s := range aux {
			assert.True(t, s.IsDestroyed())
		}
		assert.Equal(t, "https://home.example", primary.URI())
	})

	t.Run("loads returnTo without going back", func(t *testing.T) {
		ctx := testContext()
		f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
		primary := f.primary(t, "https://home.example")
		require.NoError(t, primary.LoadURI(ctx, "https://home.example/page"))

		for i := 0; i < 3; i++ {
			f.manager.RequestAuxiliary(ctx, popup("https://popup.example"))
		}

		require.NoError(t, f.manager.CloseAllAuxiliary(ctx, "https://home.example/done"))

		assert.Empty(t, f.manager.Auxiliary())
		assert.Equal(t, "https://home.example/done", primary.URI())
		assert.Equal(t, []string{"https://home.example", "https://home.example/page", "https://home.example/done"}, primary.history)
	})
}

func TestSurfaceManager_RedirectStorm(t *testing.T) {
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")
	cb := primary.cb()

	cb.OnNavigationSettled("https://home.example/good")
	loadsBefore := primary.loadCount()

	for i := 0; i < entity.DefaultRedirectThreshold; i++ {
		cb.OnServerRedirect("https://loop.example")
	}
	assert.Equal(t, 0, primary.stopCount())
	assert.Equal(t, loadsBefore, primary.loadCount())

	state, ok := f.manager.RedirectState(primary.ID())
	require.True(t, ok)
	assert.Equal(t, entity.DefaultRedirectThreshold, state.ConsecutiveRedirects)

	cb.OnServerRedirect("https://loop.example")

	assert.Equal(t, 1, primary.stopCount())
	assert.Equal(t, "https://home.example/good", primary.URI())
	assert.Equal(t, entity.DefaultRedirectThreshold+1, f.jar.saveCount(), "cookies persisted on every redirect")

	state, _ = f.manager.RedirectState(primary.ID())
	assert.Zero(t, state.ConsecutiveRedirects)
	assert.Equal(t, "https://home.example/good", state.LastKnownGood)
}

func TestSurfaceManager_TooManyRedirectsFailure(t *testing.T) {
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")
	cb := primary.cb()

	cb.OnProvisionalFailure(entity.ErrorKindTooManyRedirects, errors.New("stopped after 10 redirects"))
	assert.Equal(t, 0, primary.stopCount(), "nothing to return to yet")

	cb.OnNavigationSettled("https://home.example")
	cb.OnProvisionalFailure(entity.ErrorKindNetwork, errors.New("connection reset"))
	assert.Equal(t, 0, primary.stopCount())

	cb.OnProvisionalFailure(entity.ErrorKindTooManyRedirects, errors.New("stopped after 10 redirects"))
	assert.Equal(t, 1, primary.stopCount())
	assert.Equal(t, "https://home.example", primary.URI())
}

func TestSurfaceManager_NavigationPolicy(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())

	assert.Equal(t, entity.PolicyAllow, f.manager.DecideNavigationPolicy(ctx, port.NavigationAction{URI: "https://a.example"}))
	assert.Equal(t, entity.PolicyAllow, f.manager.DecideNavigationPolicy(ctx, port.NavigationAction{URI: "about:blank"}))

	f.opener.On("Open", mock.Anything, "tg://resolve?domain=x").Return(nil).Once()
	assert.Equal(t, entity.PolicyCancel, f.manager.DecideNavigationPolicy(ctx, port.NavigationAction{URI: "tg://resolve?domain=x"}))

	f.opener.On("Open", mock.Anything, "itms-apps://app").Return(errors.New("no handler")).Once()
	assert.Equal(t, entity.PolicyCancel, f.manager.DecideNavigationPolicy(ctx, port.NavigationAction{URI: "itms-apps://app"}))
}

func TestSurfaceManager_AuthChallenge(t *testing.T) {
	verify := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	assert.Equal(t, entity.DispositionDefault, verify.manager.HandleAuthChallenge(entity.ChallengeServerTrust))

	opts := usecase.DefaultSurfaceOptions()
	opts.TrustPolicy = entity.TrustPolicyAcceptAny
	acceptAny := newSurfaceFixture(t, opts)
	assert.Equal(t, entity.DispositionAcceptServerTrust, acceptAny.manager.HandleAuthChallenge(entity.ChallengeServerTrust))
	assert.Equal(t, entity.DispositionDefault, acceptAny.manager.HandleAuthChallenge(entity.ChallengeHTTPBasic))
	assert.Equal(t, entity.DispositionDefault, acceptAny.manager.HandleAuthChallenge(entity.ChallengeClientCertificate))
}

func TestSurfaceManager_ScriptDialogsAreDismissed(t *testing.T) {
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")

	assert.False(t, primary.cb().OnScriptDialog(port.ScriptDialog{Kind: entity.DialogConfirm, Message: "Leave?"}))
	assert.False(t, primary.cb().OnScriptDialog(port.ScriptDialog{Kind: entity.DialogAlert, Message: "Hi"}))
}

func TestSurfaceManager_EdgeSwipe(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")
	require.NoError(t, primary.LoadURI(ctx, "https://home.example/page"))

	first := f.manager.RequestAuxiliary(ctx, popup("https://one.example")).(*fakeSurface)
	top := f.manager.RequestAuxiliary(ctx, popup("https://two.example")).(*fakeSurface)
	require.NoError(t, top.LoadURI(ctx, "https://two.example/next"))

	top.cb().OnEdgeSwipe()
	assert.Equal(t, "https://two.example", top.URI(), "swipe goes back inside the popup first")
	assert.Len(t, f.manager.Auxiliary(), 2)

	require.NoError(t, f.manager.HandleEdgeSwipe(ctx, first.ID()))
	assert.Len(t, f.manager.Auxiliary(), 2, "only the top popup closes the stack")

	top.cb().OnEdgeSwipe()
	assert.Empty(t, f.manager.Auxiliary())
	assert.True(t, first.IsDestroyed())
	assert.True(t, top.IsDestroyed())
	assert.Equal(t, "https://home.example", primary.URI())
}

func TestSurfaceManager_ContentCloseRemovesAuxiliary(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")

	aux := f.manager.RequestAuxiliary(ctx, popup("https://popup.example")).(*fakeSurface)
	aux.cb().OnClose()

	assert.Empty(t, f.manager.Auxiliary())
	assert.True(t, aux.IsDestroyed())

	primary.cb().OnClose()
	assert.False(t, primary.IsDestroyed())
	assert.NotNil(t, f.manager.Primary())
}

func TestSurfaceManager_ConsumeOverride(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")
	f.manager.RequestAuxiliary(ctx, popup("https://popup.example"))

	_, loaded, err := f.manager.ConsumeOverride(ctx)
	require.NoError(t, err)
	assert.False(t, loaded)

	require.NoError(t, usecase.NewLaunchState(f.kv).SetOverrideURL(ctx, "https://push.example/deal"))

	uri, loaded, err := f.manager.ConsumeOverride(ctx)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "https://push.example/deal", uri)
	assert.Equal(t, "https://push.example/deal", primary.URI())
	assert.Empty(t, f.manager.Auxiliary())

	_, loaded, err = f.manager.ConsumeOverride(ctx)
	require.NoError(t, err)
	assert.False(t, loaded, "override is one-shot")
}

func TestSurfaceManager_Close(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")
	aux := f.manager.RequestAuxiliary(ctx, popup("https://popup.example"))

	require.NoError(t, primary.cookies.SetCookie(ctx, entity.CookieRecord{Domain: "home.example", Name: "sid"}))

	f.manager.Close(ctx)

	assert.True(t, primary.IsDestroyed())
	assert.True(t, aux.IsDestroyed())
	assert.Nil(t, f.manager.Primary())
	_, ok := f.jar.jar.Get("home.example", "sid")
	assert.True(t, ok, "cookies persisted on close")

	_, err := f.manager.CreatePrimary(context.Background(), "https://home.example")
	assert.ErrorIs(t, err, usecase.ErrManagerClosed)
}

func TestSurfaceManager_PersistCookies(t *testing.T) {
	ctx := testContext()
	f := newSurfaceFixture(t, usecase.DefaultSurfaceOptions())
	primary := f.primary(t, "https://home.example")

	require.NoError(t, primary.cookies.SetCookie(ctx, entity.CookieRecord{Domain: "home.example", Name: "sid"}))
	require.NoError(t, f.manager.PersistCookies(ctx, primary.ID()))

	_, ok := f.jar.jar.Get("home.example", "sid")
	assert.True(t, ok)
	assert.Equal(t, 1, f.jar.saveCount())

	assert.Error(t, f.manager.PersistCookies(ctx, entity.SurfaceID(999)))
}
