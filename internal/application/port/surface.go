// Package port defines application-layer interfaces for external capabilities.
// Ports keep the use cases independent of the browsing engine, the network
// and the platform push service.
package port

import (
	"context"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// PopupRequest describes a new-window request raised by loaded content.
type PopupRequest struct {
	TargetURI string
	// TargetFrameIsNil is true for genuine new-window requests, false for
	// loads aimed at an existing frame of the page.
	TargetFrameIsNil bool
	IsUserGesture    bool
	ParentID         entity.SurfaceID
}

// NavigationAction is a navigation the surface is about to perform.
type NavigationAction struct {
	URI         string
	IsRedirect  bool
	IsMainFrame bool
}

// ScriptDialog is an alert/confirm/prompt raised by loaded content.
type ScriptDialog struct {
	Kind    entity.ScriptDialogKind
	Message string
}

// SurfaceCallbacks defines handlers for browsing surface events.
// Implementations invoke them from their own event goroutine.
type SurfaceCallbacks struct {
	// OnServerRedirect is called when the in-flight navigation was redirected by the server.
	OnServerRedirect func(uri string)
	// OnNavigationSettled is called when a navigation completed without a redirect.
	OnNavigationSettled func(uri string)
	// OnProvisionalFailure is called when a navigation failed before committing.
	OnProvisionalFailure func(kind entity.NavigationErrorKind, err error)
	// OnNavigationAction decides whether a navigation proceeds in the surface.
	OnNavigationAction func(action NavigationAction) entity.NavigationPolicy
	// OnCreate is called for popup requests. Return nil to block the popup.
	OnCreate func(request PopupRequest) Surface
	// OnAuthChallenge answers authentication challenges.
	OnAuthChallenge func(kind entity.ChallengeKind) entity.ChallengeDisposition
	// OnScriptDialog answers content dialogs. The return value is the confirm result.
	OnScriptDialog func(dialog ScriptDialog) bool
	// OnEdgeSwipe is called when the back edge-swipe gesture fires.
	OnEdgeSwipe func()
	// OnClose is called when content asks the surface to close.
	OnClose func()
}

// CookieStore is the live cookie store behind a surface.
type CookieStore interface {
	// AllCookies returns every cookie currently held by the store.
	AllCookies(ctx context.Context) ([]entity.CookieRecord, error)
	// SetCookie installs a single cookie.
	SetCookie(ctx context.Context, cookie entity.CookieRecord) error
}

// Surface is an embedded content-rendering surface.
type Surface interface {
	ID() entity.SurfaceID

	// LoadURI navigates to uri.
	LoadURI(ctx context.Context, uri string) error
	// Stop stops the current load.
	Stop(ctx context.Context) error
	// GoBack navigates back in history.
	GoBack(ctx context.Context) error
	// CanGoBack returns true if back navigation is available.
	CanGoBack() bool
	// URI returns the current URI.
	URI() string
	// IsLoading returns true while a navigation is in flight.
	IsLoading() bool

	// Settings returns the settings the surface was created with.
	Settings() entity.SurfaceSettings
	// Cookies returns the live cookie store used by the surface.
	Cookies() CookieStore

	// SetCallbacks registers event handlers. Pass nil to clear them.
	SetCallbacks(callbacks *SurfaceCallbacks)

	IsDestroyed() bool
	// Destroy releases the surface. It must not be used afterwards.
	Destroy()
}

// SurfaceFactory creates browsing surfaces.
type SurfaceFactory interface {
	// Create creates a standalone surface.
	Create(ctx context.Context, settings entity.SurfaceSettings) (Surface, error)
	// CreateRelated creates a surface sharing session and cookies with parent.
	CreateRelated(ctx context.Context, parent Surface, settings entity.SurfaceSettings) (Surface, error)
}

// ExternalURLOpener hands non-web URLs to the platform.
type ExternalURLOpener interface {
	Open(ctx context.Context, uri string) error
}
