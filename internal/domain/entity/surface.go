package entity

import (
	"net/url"
	"strings"
)

// SurfaceID uniquely identifies a browsing surface within a session.
type SurfaceID uint64

// SurfaceRole distinguishes the primary surface from popups.
type SurfaceRole int

const (
	RolePrimary SurfaceRole = iota
	RoleAuxiliary
)

func (r SurfaceRole) String() string {
	if r == RoleAuxiliary {
		return "auxiliary"
	}
	return "primary"
}

// BlankURL is the sentinel destination of a popup that its opener fills by script.
const BlankURL = "about:blank"

// FixedZoom is the locked page scale of every surface.
const FixedZoom = 1.0

// SurfaceSettings is the appearance and behaviour applied to every surface.
type SurfaceSettings struct {
	JavaScriptEnabled      bool
	InlineMediaPlayback    bool
	AutoplayWithoutGesture bool
	Zoom                   float64
	ZoomLocked             bool
	BounceEnabled          bool
	BackForwardGestures    bool
	UserAgent              string
}

// DefaultSurfaceSettings returns the settings shared by primary and auxiliary surfaces.
func DefaultSurfaceSettings() SurfaceSettings {
	return SurfaceSettings{
		JavaScriptEnabled:      true,
		InlineMediaPlayback:    true,
		AutoplayWithoutGesture: true,
		Zoom:                   FixedZoom,
		ZoomLocked:             true,
		BounceEnabled:          false,
		BackForwardGestures:    true,
	}
}

// IsWebScheme reports whether raw uses http or https.
func IsWebScheme(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

// IsLoadableURL reports whether a surface should load raw on creation.
// Empty, about:blank and non-http(s) destinations are deferred.
func IsLoadableURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, BlankURL) {
		return false
	}
	return IsWebScheme(raw)
}

// IsInSurfaceScheme reports whether a navigation to raw stays inside the surface.
// Anything else is handed to the platform URL opener.
func IsInSurfaceScheme(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return true
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "about", "data", "blob", "javascript":
		return true
	default:
		return false
	}
}

// TrustPolicy decides how server-trust challenges are answered on embedded surfaces.
type TrustPolicy string

const (
	// TrustPolicyVerify performs default certificate validation.
	TrustPolicyVerify TrustPolicy = "verify"
	// TrustPolicyAcceptAny accepts any presented server certificate.
	TrustPolicyAcceptAny TrustPolicy = "accept_any"
)

// ChallengeKind is the authentication challenge type raised by a surface.
type ChallengeKind int

const (
	ChallengeServerTrust ChallengeKind = iota
	ChallengeHTTPBasic
	ChallengeClientCertificate
	ChallengeOther
)

// ChallengeDisposition is the answer to an authentication challenge.
type ChallengeDisposition int

const (
	DispositionDefault ChallengeDisposition = iota
	DispositionAcceptServerTrust
)

// ScriptDialogKind is the type of a dialog raised by loaded content.
type ScriptDialogKind int

const (
	DialogAlert ScriptDialogKind = iota
	DialogConfirm
	DialogPrompt
)

func (k ScriptDialogKind) String() string {
	switch k {
	case DialogConfirm:
		return "confirm"
	case DialogPrompt:
		return "prompt"
	default:
		return "alert"
	}
}

// NavigationPolicy is the decision for a pending navigation action.
type NavigationPolicy int

const (
	PolicyAllow NavigationPolicy = iota
	PolicyCancel
)
