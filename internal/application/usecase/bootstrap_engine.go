// Package usecase contains application use cases that orchestrate domain logic.
package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

const (
	// DefaultOrganicDebounce lets a concurrently arriving deep link merge in
	// before the organic verification request is issued.
	DefaultOrganicDebounce = 5 * time.Second

	// DefaultPushPromptCooldown is the minimum time between two push permission asks.
	DefaultPushPromptCooldown = 259200 * time.Second

	// DefaultAttributionTimeout bounds how long a cold start waits for attribution.
	DefaultAttributionTimeout = 15 * time.Second

	logURLMaxLen = 96
)

// ErrNoPendingPrompt is returned when a push prompt is resolved without being requested.
var ErrNoPendingPrompt = errors.New("no push prompt pending")

// BootstrapConfig holds the tunable timings of the decision engine.
type BootstrapConfig struct {
	OrganicDebounce    time.Duration
	PushPromptCooldown time.Duration
	AttributionTimeout time.Duration
	// EnforceRouteExpiry drops an expired cached route instead of resuming it.
	EnforceRouteExpiry bool
}

// DefaultBootstrapConfig returns the production timings.
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		OrganicDebounce:    DefaultOrganicDebounce,
		PushPromptCooldown: DefaultPushPromptCooldown,
		AttributionTimeout: DefaultAttributionTimeout,
		EnforceRouteExpiry: true,
	}
}

// BootstrapDeps are the collaborators of the decision engine.
type BootstrapDeps struct {
	Store        repository.KeyValueRepository
	RemoteConfig port.RemoteConfigClient
	Verifier     port.OrganicVerifier
	Device       port.DeviceInfoProvider
	Push         port.PushPermission
	// Now defaults to time.Now.
	Now func() time.Time
}

// BootstrapEventKind classifies engine output signals.
type BootstrapEventKind int

const (
	// EventPhaseChanged carries a new phase/destination pair.
	EventPhaseChanged BootstrapEventKind = iota
	// EventPushPromptRequested asks the presentation layer to show the push prompt.
	EventPushPromptRequested
	// EventPushPromptResolved reports that the prompt was answered.
	EventPushPromptResolved
)

func (k BootstrapEventKind) String() string {
	switch k {
	case EventPhaseChanged:
		return "phase_changed"
	case EventPushPromptRequested:
		return "push_prompt_requested"
	case EventPushPromptResolved:
		return "push_prompt_resolved"
	default:
		return "unknown"
	}
}

// BootstrapEvent is delivered to subscribers in emission order.
type BootstrapEvent struct {
	Kind  BootstrapEventKind
	State entity.PhaseState
}

// BootstrapEngine aggregates attribution, deep-link, connectivity and remote
// configuration signals into the current AppPhase.
//
// All state lives behind mu. Network calls run on tracked goroutines and post
// their results back through transition. Subscribers are called from a single
// dispatcher goroutine, so they may call back into the engine.
type BootstrapEngine struct {
	launch   *LaunchState
	remote   port.RemoteConfigClient
	verifier port.OrganicVerifier
	device   port.DeviceInfoProvider
	push     port.PushPermission
	now      func() time.Time

	cfgMu sync.RWMutex
	cfg   BootstrapConfig

	mu              sync.Mutex
	state           entity.PhaseState
	attribution     entity.Payload
	deepLink        entity.Payload
	attributionSeen bool
	deepLinkSeen    bool
	decided         bool
	promptPending   bool
	connectivity    entity.ConnectivityStatus
	closed          bool
	listeners       []func(BootstrapEvent)
	pending         []BootstrapEvent

	wake   chan struct{}
	done   chan struct{}
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBootstrapEngine creates an engine in PhaseInitializing and starts its dispatcher.
// Close must be called to release it.
func NewBootstrapEngine(deps BootstrapDeps, cfg BootstrapConfig) *BootstrapEngine {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	base, cancel := context.WithCancel(context.Background())

	e := &BootstrapEngine{
		launch:   NewLaunchState(deps.Store),
		remote:   deps.RemoteConfig,
		verifier: deps.Verifier,
		device:   deps.Device,
		push:     deps.Push,
		now:      now,
		cfg:      normalizeBootstrapConfig(cfg),
		state:    entity.PhaseState{Phase: entity.PhaseInitializing},
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		base:     base,
		cancel:   cancel,
	}

	e.wg.Add(1)
	go e.dispatch()

	return e
}

func normalizeBootstrapConfig(cfg BootstrapConfig) BootstrapConfig {
	defaults := DefaultBootstrapConfig()
	if cfg.OrganicDebounce < 0 {
		cfg.OrganicDebounce = defaults.OrganicDebounce
	}
	if cfg.PushPromptCooldown <= 0 {
		cfg.PushPromptCooldown = defaults.PushPromptCooldown
	}
	if cfg.AttributionTimeout <= 0 {
		cfg.AttributionTimeout = defaults.AttributionTimeout
	}
	return cfg
}

// UpdateConfig replaces the engine timings. Running timers keep their old value.
func (e *BootstrapEngine) UpdateConfig(cfg BootstrapConfig) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.cfg = normalizeBootstrapConfig(cfg)
}

func (e *BootstrapEngine) config() BootstrapConfig {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// Subscribe registers a listener for engine events.
func (e *BootstrapEngine) Subscribe(listener func(BootstrapEvent)) {
	if listener == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, listener)
}

// State returns the current phase and destination.
func (e *BootstrapEngine) State() entity.PhaseState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// PushPromptPending reports whether the engine is waiting for a prompt answer.
func (e *BootstrapEngine) PushPromptPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.promptPending
}

// Attribution returns a copy of the current attribution payload.
func (e *BootstrapEngine) Attribution() entity.Payload {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.attribution.Clone()
}

// Close stops the dispatcher and abandons in-flight work.
// Results arriving after Close are dropped.
func (e *BootstrapEngine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.cancel()
	close(e.done)
	e.wg.Wait()
}

// Run consumes the attribution inbox until ctx is done. If no attribution
// arrives within the attribution timeout, the launch strategy is decided
// with an empty payload.
func (e *BootstrapEngine) Run(ctx context.Context, inbox *AttributionInbox) error {
	log := logging.FromContext(ctx)
	timeout := time.NewTimer(e.config().AttributionTimeout)
	defer timeout.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-e.done:
			return nil
		case ev := <-inbox.Events():
			switch ev.Kind {
			case KindAttribution:
				e.ReceiveAttribution(ctx, ev.Payload)
			case KindDeepLink:
				e.ReceiveDeepLink(ctx, ev.Payload)
			}
		case <-timeout.C:
			log.Info().Msg("attribution wait timed out, deciding without payload")
			e.DecideLaunchStrategy(ctx)
		}
	}
}

// ReceiveAttribution stores the attribution payload and decides the launch strategy.
// Only the first payload of a session is kept.
func (e *BootstrapEngine) ReceiveAttribution(ctx context.Context, payload entity.Payload) {
	log := logging.FromContext(ctx)

	e.mu.Lock()
	if e.attributionSeen {
		e.mu.Unlock()
		log.Debug().Msg("attribution already received, ignoring")
		return
	}
	e.attributionSeen = true
	e.attribution = payload.Clone()
	e.mu.Unlock()

	log.Info().Int("keys", len(payload)).Bool("organic", payload.IsOrganic()).Msg("attribution received")
	e.DecideLaunchStrategy(ctx)
}

// ReceiveDeepLink caches the deep-link payload for later merging.
func (e *BootstrapEngine) ReceiveDeepLink(ctx context.Context, payload entity.Payload) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deepLinkSeen {
		return
	}
	e.deepLinkSeen = true
	e.deepLink = payload.Clone()
	logging.FromContext(ctx).Debug().Int("keys", len(payload)).Msg("deep link cached")
}

// DecideLaunchStrategy routes the cold start. It runs at most once per engine.
func (e *BootstrapEngine) DecideLaunchStrategy(ctx context.Context) {
	log := logging.FromContext(ctx).With().Str("component", "bootstrap").Logger()

	e.mu.Lock()
	if e.decided || e.closed {
		e.mu.Unlock()
		return
	}
	e.decided = true
	attribution := e.attribution.Clone()
	e.mu.Unlock()

	// Legacy is sticky and checked before anything that could touch the network.
	if e.launch.Mode(ctx) == entity.ModeLegacy {
		log.Info().Msg("persisted legacy mode, skipping network")
		e.switchToLegacy(ctx)
		return
	}

	if attribution.IsEmpty() {
		log.Info().Msg("no attribution payload, using cached route")
		e.fallbackToCachedOrLegacy(ctx)
		return
	}

	if !e.launch.HasRunBefore(ctx) && attribution.IsOrganic() {
		log.Info().Msg("first organic launch, scheduling verification")
		e.startOrganicVerification(ctx)
		return
	}

	if override := e.launch.TakeOverrideURL(ctx); override != "" {
		if entity.IsWebScheme(override) {
			log.Info().Str("url", logging.TruncateURL(override, logURLMaxLen)).Msg("using override destination")
			e.transition(ctx, entity.PhaseWebContainer, override)
			return
		}
		log.Warn().Str("url", override).Msg("ignoring override with unsupported scheme")
	}

	if e.shouldRequestPushPermission(ctx) {
		e.requestPushPrompt(ctx)
		return
	}

	e.RequestRemoteConfiguration(ctx)
}

// RequestRemoteConfiguration performs the remote configuration round trip asynchronously.
func (e *BootstrapEngine) RequestRemoteConfiguration(ctx context.Context) {
	e.goAsync(ctx, e.requestRemoteConfiguration)
}

// FallbackToCachedOrLegacy resumes a cached destination or enters legacy mode.
func (e *BootstrapEngine) FallbackToCachedOrLegacy(ctx context.Context) {
	e.fallbackToCachedOrLegacy(ctx)
}

// AcceptPushPrompt answers the pending push prompt positively.
// The ask is recorded and remote configuration follows whatever the platform grants.
func (e *BootstrapEngine) AcceptPushPrompt(ctx context.Context) error {
	if !e.resolvePrompt() {
		return ErrNoPendingPrompt
	}
	e.goAsync(ctx, func(ctx context.Context) {
		log := logging.FromContext(ctx)
		e.recordPushAsk(ctx)

		granted := false
		if e.push != nil {
			var err error
			granted, err = e.push.RequestAuthorization(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("push authorization failed")
				granted = false
			}
		}
		if err := e.launch.SetPushGranted(ctx, granted); err != nil {
			log.Warn().Err(err).Msg("failed to record push permission")
		}
		if granted && e.push != nil {
			if err := e.push.RegisterForRemoteNotifications(ctx); err != nil {
				log.Warn().Err(err).Msg("push registration failed")
			}
		}
		log.Info().Bool("granted", granted).Msg("push prompt accepted")

		e.requestRemoteConfiguration(ctx)
	})
	return nil
}

// DeclinePushPrompt answers the pending push prompt negatively.
func (e *BootstrapEngine) DeclinePushPrompt(ctx context.Context) error {
	if !e.resolvePrompt() {
		return ErrNoPendingPrompt
	}
	e.goAsync(ctx, func(ctx context.Context) {
		e.recordPushAsk(ctx)
		logging.FromContext(ctx).Info().Msg("push prompt declined")
		e.requestRemoteConfiguration(ctx)
	})
	return nil
}

// HandleConnectivity applies a connectivity observation. It is ignored while
// the engine is still initializing; afterwards the latest status wins.
func (e *BootstrapEngine) HandleConnectivity(ctx context.Context, status entity.ConnectivityStatus) {
	log := logging.FromContext(ctx)

	e.mu.Lock()
	e.connectivity = status
	current := e.state
	e.mu.Unlock()

	if current.Phase == entity.PhaseInitializing {
		log.Debug().Str("status", status.String()).Msg("connectivity change before decision, ignoring")
		return
	}

	switch status {
	case entity.StatusUnsatisfied:
		if e.launch.Mode(ctx) == entity.ModePrimary {
			log.Info().Msg("connectivity lost, entering no-connection phase")
			e.transition(ctx, entity.PhaseNoConnection, current.Destination)
			return
		}
		log.Info().Msg("connectivity lost without primary mode, switching to legacy mode")
		e.switchToLegacy(ctx)
	case entity.StatusSatisfied:
		if current.Phase == entity.PhaseNoConnection && current.Destination != "" {
			log.Info().Msg("connectivity restored, resuming web container")
			e.transitionFrom(ctx, entity.PhaseNoConnection, entity.PhaseWebContainer, current.Destination)
		}
	}
}

func (e *BootstrapEngine) requestRemoteConfiguration(ctx context.Context) {
	log := logging.FromContext(ctx).With().Str("component", "remote-config").Logger()

	if e.remote == nil {
		log.Warn().Msg("no remote config client, falling back")
		e.fallbackToCachedOrLegacy(ctx)
		return
	}

	req := e.buildRouteRequest(ctx)
	resp, err := e.remote.FetchRoute(ctx, req)
	if err != nil {
		log.Warn().Err(err).Msg("remote configuration failed, falling back")
		e.fallbackToCachedOrLegacy(ctx)
		return
	}

	route := entity.NewRouteConfig(resp.URL, resp.ExpiresIn, e.now())
	if err := e.launch.SaveRoute(ctx, route); err != nil {
		log.Warn().Err(err).Msg("failed to persist route")
	}

	log.Info().
		Str("url", logging.TruncateURL(resp.URL, logURLMaxLen)).
		Time("expires_at", route.ExpiresAt).
		Msg("remote configuration accepted")
	e.transition(ctx, entity.PhaseWebContainer, resp.URL)
}

func (e *BootstrapEngine) buildRouteRequest(ctx context.Context) port.RouteRequest {
	e.mu.Lock()
	payload := entity.MergePayloads(e.attribution, e.deepLink)
	e.mu.Unlock()

	var info port.DeviceInfo
	if e.device != nil {
		info = e.device.DeviceInfo(ctx)
	}
	installID := e.launch.InstallID(ctx)
	if info.AttributionID == "" {
		info.AttributionID = installID
	}
	if info.PushToken == "" {
		info.PushToken = e.launch.PushToken(ctx)
	}

	return port.RouteRequest{
		Payload:           payload,
		AttributionID:     info.AttributionID,
		BundleID:          info.BundleID,
		OS:                info.OS,
		StoreID:           info.StoreID,
		Locale:            info.Locale,
		PushToken:         info.PushToken,
		FirebaseProjectID: info.FirebaseProjectID,
		InstallID:         installID,
	}
}

func (e *BootstrapEngine) fallbackToCachedOrLegacy(ctx context.Context) {
	log := logging.FromContext(ctx)

	if route := e.launch.Route(ctx); route != nil {
		if e.config().EnforceRouteExpiry && route.IsExpired(e.now()) {
			log.Info().Time("expired_at", route.ExpiresAt).Msg("cached route expired")
		} else {
			log.Info().Str("url", logging.TruncateURL(route.DestinationURL, logURLMaxLen)).Msg("resuming cached route")
			e.transition(ctx, entity.PhaseWebContainer, route.DestinationURL)
			return
		}
	}

	e.switchToLegacy(ctx)
}

func (e *BootstrapEngine) switchToLegacy(ctx context.Context) {
	log := logging.FromContext(ctx)
	if err := e.launch.SetMode(ctx, entity.ModeLegacy); err != nil {
		log.Warn().Err(err).Msg("failed to persist legacy mode")
	}
	if err := e.launch.MarkRunBefore(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to mark run before")
	}
	e.transition(ctx, entity.PhaseLegacyMode, "")
}

func (e *BootstrapEngine) startOrganicVerification(ctx context.Context) {
	debounce := e.config().OrganicDebounce

	e.goAsync(ctx, func(ctx context.Context) {
		log := logging.FromContext(ctx).With().Str("component", "organic-check").Logger()

		timer := time.NewTimer(debounce)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			log.Debug().Msg("engine closed before organic verification fired")
			return
		}

		if e.verifier == nil {
			log.Warn().Msg("no organic verifier configured")
			e.switchToLegacy(ctx)
			return
		}

		attributionID := ""
		if e.device != nil {
			attributionID = e.device.DeviceInfo(ctx).AttributionID
		}
		if attributionID == "" {
			attributionID = e.launch.InstallID(ctx)
		}

		if err := e.verifier.Verify(ctx, attributionID); err != nil {
			log.Warn().Err(err).Msg("organic verification failed")
			e.switchToLegacy(ctx)
			return
		}

		e.mu.Lock()
		e.attribution = entity.MergePayloads(e.attribution, e.deepLink)
		e.mu.Unlock()

		log.Info().Msg("organic verification passed")
		e.requestRemoteConfiguration(ctx)
	})
}

func (e *BootstrapEngine) shouldRequestPushPermission(ctx context.Context) bool {
	last, ok := e.launch.LastPushPromptAt(ctx)
	if !ok {
		return true
	}
	return e.now().Sub(last) >= e.config().PushPromptCooldown
}

func (e *BootstrapEngine) requestPushPrompt(ctx context.Context) {
	logging.FromContext(ctx).Info().Msg("requesting push permission prompt")

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.promptPending = true
	e.emitLocked(BootstrapEvent{Kind: EventPushPromptRequested, State: e.state})
}

func (e *BootstrapEngine) resolvePrompt() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.promptPending || e.closed {
		return false
	}
	e.promptPending = false
	e.emitLocked(BootstrapEvent{Kind: EventPushPromptResolved, State: e.state})
	return true
}

func (e *BootstrapEngine) recordPushAsk(ctx context.Context) {
	if err := e.launch.RecordPushPrompt(ctx, e.now()); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("failed to record push prompt time")
	}
}

// transition atomically replaces the phase/destination pair.
func (e *BootstrapEngine) transition(ctx context.Context, phase entity.AppPhase, destination string) {
	e.apply(ctx, nil, entity.PhaseState{Phase: phase, Destination: destination})
}

// transitionFrom applies the transition only if the current phase is still from.
func (e *BootstrapEngine) transitionFrom(ctx context.Context, from, phase entity.AppPhase, destination string) {
	e.apply(ctx, &from, entity.PhaseState{Phase: phase, Destination: destination})
}

func (e *BootstrapEngine) apply(ctx context.Context, from *entity.AppPhase, next entity.PhaseState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return
	}
	if from != nil && e.state.Phase != *from {
		return
	}
	if e.state == next {
		return
	}

	prev := e.state
	e.state = next
	logging.FromContext(ctx).Info().
		Str("from", prev.Phase.String()).
		Str("to", next.Phase.String()).
		Msg("phase transition")
	e.emitLocked(BootstrapEvent{Kind: EventPhaseChanged, State: next})
}

func (e *BootstrapEngine) emitLocked(ev BootstrapEvent) {
	e.pending = append(e.pending, ev)
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *BootstrapEngine) dispatch() {
	defer e.wg.Done()
	for {
		select {
		case <-e.wake:
			e.flush()
		case <-e.done:
			e.flush()
			return
		}
	}
}

func (e *BootstrapEngine) flush() {
	for {
		e.mu.Lock()
		if len(e.pending) == 0 {
			e.mu.Unlock()
			return
		}
		batch := e.pending
		e.pending = nil
		listeners := make([]func(BootstrapEvent), len(e.listeners))
		copy(listeners, e.listeners)
		e.mu.Unlock()

		for _, ev := range batch {
			for _, listener := range listeners {
				listener(ev)
			}
		}
	}
}

// goAsync runs fn on a tracked goroutine bound to the engine lifetime.
// The caller's logger is carried over; its cancellation is not.
func (e *BootstrapEngine) goAsync(ctx context.Context, fn func(ctx context.Context)) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.wg.Add(1)
	e.mu.Unlock()

	asyncCtx := logging.WithContext(e.base, *logging.FromContext(ctx))

	go func() {
		defer e.wg.Done()
		fn(asyncCtx)
	}()
}
