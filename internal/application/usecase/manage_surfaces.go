package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

var (
	// ErrPrimaryExists is returned when a second primary surface is requested.
	ErrPrimaryExists = errors.New("primary surface already exists")
	// ErrNoPrimary is returned when an operation needs the primary surface before it exists.
	ErrNoPrimary = errors.New("primary surface not created")
	// ErrManagerClosed is returned after Close.
	ErrManagerClosed = errors.New("surface manager closed")
)

// SurfaceOptions configures every surface the manager creates.
type SurfaceOptions struct {
	RedirectThreshold int
	TrustPolicy       entity.TrustPolicy
	Settings          entity.SurfaceSettings
}

// DefaultSurfaceOptions returns the production surface options.
func DefaultSurfaceOptions() SurfaceOptions {
	return SurfaceOptions{
		RedirectThreshold: entity.DefaultRedirectThreshold,
		TrustPolicy:       entity.TrustPolicyVerify,
		Settings:          entity.DefaultSurfaceSettings(),
	}
}

// RedirectState is a read-only view of a surface's redirect guard.
type RedirectState struct {
	ConsecutiveRedirects int
	LastKnownGood        string
}

type managedSurface struct {
	surface port.Surface
	role    entity.SurfaceRole
	guard   *entity.RedirectGuard
}

// SurfaceManager owns the primary surface and the auxiliary popup stack.
// It is the only writer of the surface set.
type SurfaceManager struct {
	factory port.SurfaceFactory
	cookies *CookieSyncUseCase
	opener  port.ExternalURLOpener
	launch  *LaunchState
	opts    SurfaceOptions

	// ctx carries the logger for callbacks raised by surfaces.
	ctx context.Context

	mu        sync.Mutex
	primary   *managedSurface
	auxiliary []*managedSurface
	closed    bool
}

// NewSurfaceManager creates a manager. kv may be nil when no override channel is used.
func NewSurfaceManager(
	ctx context.Context,
	factory port.SurfaceFactory,
	cookies *CookieSyncUseCase,
	opener port.ExternalURLOpener,
	kv repository.KeyValueRepository,
	opts SurfaceOptions,
) *SurfaceManager {
	if opts.RedirectThreshold <= 0 {
		opts.RedirectThreshold = entity.DefaultRedirectThreshold
	}
	if opts.TrustPolicy == "" {
		opts.TrustPolicy = entity.TrustPolicyVerify
	}
	opts.Settings.Zoom = entity.FixedZoom
	opts.Settings.ZoomLocked = true

	var launch *LaunchState
	if kv != nil {
		launch = NewLaunchState(kv)
	}

	ctx = logging.WithComponent(ctx, "surfaces")
	if opts.TrustPolicy == entity.TrustPolicyAcceptAny {
		logging.FromContext(ctx).Warn().Msg("server certificate checks disabled for content surfaces")
	}

	return &SurfaceManager{
		factory: factory,
		cookies: cookies,
		opener:  opener,
		launch:  launch,
		opts:    opts,
		ctx:     ctx,
	}
}

// CreatePrimary creates the primary surface, restores persisted cookies into
// it and loads destination if it is a web URL.
func (m *SurfaceManager) CreatePrimary(ctx context.Context, destination string) (port.Surface, error) {
	log := logging.FromContext(ctx)

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if m.primary != nil {
		m.mu.Unlock()
		return nil, ErrPrimaryExists
	}
	m.mu.Unlock()

	surface, err := m.factory.Create(ctx, m.opts.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary surface: %w", err)
	}

	entry := &managedSurface{
		surface: surface,
		role:    entity.RolePrimary,
		guard:   entity.NewRedirectGuard(m.opts.RedirectThreshold),
	}

	m.mu.Lock()
	if m.primary != nil || m.closed {
		m.mu.Unlock()
		surface.Destroy()
		if m.closed {
			return nil, ErrManagerClosed
		}
		return nil, ErrPrimaryExists
	}
	m.primary = entry
	m.mu.Unlock()

	if m.cookies != nil {
		if _, err := m.cookies.Restore(ctx, surface.Cookies()); err != nil {
			log.Warn().Err(err).Msg("cookie restore failed, starting with empty store")
		}
	}

	surface.SetCallbacks(m.callbacksFor(entry))

	if entity.IsLoadableURL(destination) {
		if err := surface.LoadURI(ctx, destination); err != nil {
			return surface, fmt.Errorf("failed to load destination: %w", err)
		}
	}

	log.Info().
		Uint64("surface_id", uint64(surface.ID())).
		Str("url", logging.TruncateURL(destination, logURLMaxLen)).
		Msg("primary surface created")
	return surface, nil
}

// RequestAuxiliary handles a popup request. It returns nil when the request
// targets an existing frame or no primary surface exists.
func (m *SurfaceManager) RequestAuxiliary(ctx context.Context, req port.PopupRequest) port.Surface {
	log := logging.FromContext(ctx)

	if !req.TargetFrameIsNil {
		log.Debug().Str("url", req.TargetURI).Msg("popup targets an existing frame, rejecting")
		return nil
	}

	m.mu.Lock()
	if m.closed || m.primary == nil {
		m.mu.Unlock()
		return nil
	}
	parent := m.findLocked(req.ParentID)
	if parent == nil {
		parent = m.primary
	}
	m.mu.Unlock()

	surface, err := m.factory.CreateRelated(ctx, parent.surface, m.opts.Settings)
	if err != nil {
		log.Error().Err(err).Msg("failed to create auxiliary surface")
		return nil
	}

	entry := &managedSurface{
		surface: surface,
		role:    entity.RoleAuxiliary,
		guard:   entity.NewRedirectGuard(m.opts.RedirectThreshold),
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		surface.Destroy()
		return nil
	}
	m.auxiliary = append(m.auxiliary, entry)
	depth := len(m.auxiliary)
	m.mu.Unlock()

	surface.SetCallbacks(m.callbacksFor(entry))

	if entity.IsLoadableURL(req.TargetURI) {
		if err := surface.LoadURI(ctx, req.TargetURI); err != nil {
			log.Warn().Err(err).Str("url", req.TargetURI).Msg("auxiliary load failed")
		}
	} else {
		log.Debug().Str("url", req.TargetURI).Msg("auxiliary load deferred")
	}

	log.Info().
		Uint64("surface_id", uint64(surface.ID())).
		Uint64("parent_id", uint64(parent.surface.ID())).
		Int("depth", depth).
		Msg("auxiliary surface created")
	return surface
}

// CloseAllAuxiliary destroys every auxiliary surface, then loads returnTo in
// the primary surface or, when returnTo is empty, goes back one step.
func (m *SurfaceManager) CloseAllAuxiliary(ctx context.Context, returnTo string) error {
	log := logging.FromContext(ctx)

	m.mu.Lock()
	aux := m.auxiliary
	m.auxiliary = nil
	primary := m.primary
	m.mu.Unlock()

	for i := len(aux) - 1; i >= 0; i-- {
		aux[i].surface.SetCallbacks(nil)
		aux[i].surface.Destroy()
	}
	if len(aux) > 0 {
		log.Info().Int("closed", len(aux)).Msg("auxiliary surfaces closed")
	}

	if primary == nil {
		return ErrNoPrimary
	}

	if returnTo != "" {
		if err := primary.surface.LoadURI(ctx, returnTo); err != nil {
			return fmt.Errorf("failed to load return url: %w", err)
		}
		return nil
	}
	if primary.surface.CanGoBack() {
		if err := primary.surface.GoBack(ctx); err != nil {
			return fmt.Errorf("failed to go back: %w", err)
		}
	}
	return nil
}

// HandleEdgeSwipe goes back in the swiped surface's history, or closes the
// popup stack when the top auxiliary surface has nowhere to go back to.
func (m *SurfaceManager) HandleEdgeSwipe(ctx context.Context, id entity.SurfaceID) error {
	m.mu.Lock()
	entry := m.findLocked(id)
	isTop := len(m.auxiliary) > 0 && m.auxiliary[len(m.auxiliary)-1] == entry
	m.mu.Unlock()

	if entry == nil {
		return nil
	}
	if entry.surface.CanGoBack() {
		return entry.surface.GoBack(ctx)
	}
	if isTop {
		return m.CloseAllAuxiliary(ctx, "")
	}
	return nil
}

// DecideNavigationPolicy keeps web navigations in the surface and hands other
// schemes to the platform opener.
func (m *SurfaceManager) DecideNavigationPolicy(ctx context.Context, action port.NavigationAction) entity.NavigationPolicy {
	if entity.IsInSurfaceScheme(action.URI) {
		return entity.PolicyAllow
	}

	log := logging.FromContext(ctx)
	if m.opener != nil {
		if err := m.opener.Open(ctx, action.URI); err != nil {
			log.Warn().Err(err).Str("url", action.URI).Msg("external open failed")
		} else {
			log.Info().Str("url", action.URI).Msg("handed off to external opener")
		}
	}
	return entity.PolicyCancel
}

// HandleAuthChallenge answers server-trust challenges according to the trust
// policy. Every other challenge kind gets default handling.
func (m *SurfaceManager) HandleAuthChallenge(kind entity.ChallengeKind) entity.ChallengeDisposition {
	if kind == entity.ChallengeServerTrust && m.opts.TrustPolicy == entity.TrustPolicyAcceptAny {
		return entity.DispositionAcceptServerTrust
	}
	return entity.DispositionDefault
}

// HandleScriptDialog dismisses content dialogs without showing them.
// Confirm dialogs answer false.
func (m *SurfaceManager) HandleScriptDialog(ctx context.Context, dialog port.ScriptDialog) bool {
	logging.FromContext(ctx).Debug().
		Str("kind", dialog.Kind.String()).
		Str("message", logging.TruncateURL(dialog.Message, logURLMaxLen)).
		Msg("script dialog dismissed")
	return false
}

// ConsumeOverride loads a pending one-shot override destination into the
// primary surface. It reports whether a navigation happened.
func (m *SurfaceManager) ConsumeOverride(ctx context.Context) (string, bool, error) {
	if m.launch == nil {
		return "", false, nil
	}

	m.mu.Lock()
	primary := m.primary
	m.mu.Unlock()
	if primary == nil {
		return "", false, nil
	}

	override := m.launch.TakeOverrideURL(ctx)
	if override == "" {
		return "", false, nil
	}
	if !entity.IsWebScheme(override) {
		logging.FromContext(ctx).Warn().Str("url", override).Msg("ignoring override with unsupported scheme")
		return "", false, nil
	}

	if err := m.CloseAllAuxiliary(ctx, override); err != nil {
		return override, false, err
	}
	logging.FromContext(ctx).Info().Str("url", logging.TruncateURL(override, logURLMaxLen)).Msg("override destination loaded")
	return override, true, nil
}

// PersistCookies snapshots the cookies of the given surface into the jar.
func (m *SurfaceManager) PersistCookies(ctx context.Context, id entity.SurfaceID) error {
	m.mu.Lock()
	entry := m.findLocked(id)
	m.mu.Unlock()
	if entry == nil {
		return fmt.Errorf("surface %d not managed", id)
	}
	if m.cookies == nil {
		return nil
	}
	_, err := m.cookies.Persist(ctx, entry.surface.Cookies())
	return err
}

// Primary returns the primary surface, or nil.
func (m *SurfaceManager) Primary() port.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.primary == nil {
		return nil
	}
	return m.primary.surface
}

// Auxiliary returns the auxiliary stack, oldest first.
func (m *SurfaceManager) Auxiliary() []port.Surface {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]port.Surface, 0, len(m.auxiliary))
	for _, entry := range m.auxiliary {
		out = append(out, entry.surface)
	}
	return out
}

// RedirectState returns the guard state of a managed surface.
func (m *SurfaceManager) RedirectState(id entity.SurfaceID) (RedirectState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry := m.findLocked(id)
	if entry == nil {
		return RedirectState{}, false
	}
	return RedirectState{
		ConsecutiveRedirects: entry.guard.ConsecutiveRedirects(),
		LastKnownGood:        entry.guard.LastKnownGood(),
	}, true
}

// Close persists the primary cookies and destroys every surface.
func (m *SurfaceManager) Close(ctx context.Context) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	aux := m.auxiliary
	primary := m.primary
	m.auxiliary = nil
	m.primary = nil
	m.mu.Unlock()

	for i := len(aux) - 1; i >= 0; i-- {
		aux[i].surface.SetCallbacks(nil)
		aux[i].surface.Destroy()
	}
	if primary == nil {
		return
	}
	if m.cookies != nil {
		if _, err := m.cookies.Persist(ctx, primary.surface.Cookies()); err != nil {
			logging.FromContext(ctx).Warn().Err(err).Msg("failed to persist cookies on close")
		}
	}
	primary.surface.SetCallbacks(nil)
	primary.surface.Destroy()
}

func (m *SurfaceManager) callbacksFor(entry *managedSurface) *port.SurfaceCallbacks {
	ctx := logging.WithSurfaceID(m.ctx, uint64(entry.surface.ID()))

	return &port.SurfaceCallbacks{
		OnServerRedirect: func(uri string) {
			m.onServerRedirect(ctx, entry, uri)
		},
		OnNavigationSettled: func(uri string) {
			m.mu.Lock()
			entry.guard.OnNavigationSettled(uri)
			m.mu.Unlock()
		},
		OnProvisionalFailure: func(kind entity.NavigationErrorKind, err error) {
			m.onProvisionalFailure(ctx, entry, kind, err)
		},
		OnNavigationAction: func(action port.NavigationAction) entity.NavigationPolicy {
			return m.DecideNavigationPolicy(ctx, action)
		},
		OnCreate: func(req port.PopupRequest) port.Surface {
			req.ParentID = entry.surface.ID()
			return m.RequestAuxiliary(ctx, req)
		},
		OnAuthChallenge: m.HandleAuthChallenge,
		OnScriptDialog: func(dialog port.ScriptDialog) bool {
			return m.HandleScriptDialog(ctx, dialog)
		},
		OnEdgeSwipe: func() {
			if err := m.HandleEdgeSwipe(ctx, entry.surface.ID()); err != nil {
				logging.FromContext(ctx).Warn().Err(err).Msg("edge swipe failed")
			}
		},
		OnClose: func() {
			m.onContentClose(ctx, entry)
		},
	}
}

func (m *SurfaceManager) onServerRedirect(ctx context.Context, entry *managedSurface, uri string) {
	log := logging.FromContext(ctx)

	m.mu.Lock()
	decision := entry.guard.OnServerRedirect()
	count := entry.guard.ConsecutiveRedirects()
	m.mu.Unlock()

	log.Trace().Int("consecutive", count).Str("url", logging.TruncateURL(uri, logURLMaxLen)).Msg("server redirect")

	if m.cookies != nil {
		if _, err := m.cookies.Persist(ctx, entry.surface.Cookies()); err != nil {
			log.Warn().Err(err).Msg("failed to persist cookies on redirect")
		}
	}

	m.applyDecision(ctx, entry, decision)
}

func (m *SurfaceManager) onProvisionalFailure(ctx context.Context, entry *managedSurface, kind entity.NavigationErrorKind, err error) {
	log := logging.FromContext(ctx)
	log.Debug().Err(err).Str("kind", kind.String()).Msg("provisional navigation failure")

	m.mu.Lock()
	decision := entry.guard.OnProvisionalFailure(kind)
	m.mu.Unlock()

	m.applyDecision(ctx, entry, decision)
}

func (m *SurfaceManager) applyDecision(ctx context.Context, entry *managedSurface, decision entity.RedirectDecision) {
	if decision.Action != entity.ActionForceSafeNavigation {
		return
	}
	log := logging.FromContext(ctx)
	log.Warn().Str("url", logging.TruncateURL(decision.URL, logURLMaxLen)).Msg("redirect storm, returning to last known good url")

	if err := entry.surface.Stop(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to stop loading")
	}
	if err := entry.surface.LoadURI(ctx, decision.URL); err != nil {
		log.Error().Err(err).Msg("failed to load last known good url")
	}
}

func (m *SurfaceManager) onContentClose(ctx context.Context, entry *managedSurface) {
	if entry.role == entity.RolePrimary {
		logging.FromContext(ctx).Debug().Msg("content asked to close the primary surface, ignoring")
		return
	}

	m.mu.Lock()
	removed := false
	for i, aux := range m.auxiliary {
		if aux == entry {
			m.auxiliary = append(m.auxiliary[:i], m.auxiliary[i+1:]...)
			removed = true
			break
		}
	}
	m.mu.Unlock()

	if !removed {
		return
	}
	entry.surface.SetCallbacks(nil)
	entry.surface.Destroy()
	logging.FromContext(ctx).Info().Msg("auxiliary surface closed by content")
}

func (m *SurfaceManager) findLocked(id entity.SurfaceID) *managedSurface {
	if m.primary != nil && m.primary.surface.ID() == id {
		return m.primary
	}
	for _, entry := range m.auxiliary {
		if entry.surface.ID() == id {
			return entry
		}
	}
	return nil
}
