package entity

// AppPhase is the single current top-level mode of the application.
type AppPhase int

const (
	// PhaseInitializing is the cold-start phase before any routing decision.
	PhaseInitializing AppPhase = iota
	// PhaseWebContainer presents the embedded browsing surface.
	PhaseWebContainer
	// PhaseLegacyMode presents the native surface.
	PhaseLegacyMode
	// PhaseNoConnection presents the offline screen.
	PhaseNoConnection
)

// String returns a human-readable representation of the phase.
func (p AppPhase) String() string {
	switch p {
	case PhaseInitializing:
		return "initializing"
	case PhaseWebContainer:
		return "web_container"
	case PhaseLegacyMode:
		return "legacy_mode"
	case PhaseNoConnection:
		return "no_connection"
	default:
		return "unknown"
	}
}

// PhaseState is the phase and destination pair observed by the presentation layer.
// It is always replaced as a whole.
type PhaseState struct {
	Phase       AppPhase
	Destination string
}

// AppMode is the persisted routing mode of an install.
type AppMode string

const (
	// ModeUnset means no routing decision has been persisted yet.
	ModeUnset AppMode = ""
	// ModePrimary means the install may resume the embedded surface.
	ModePrimary AppMode = "primary"
	// ModeLegacy is sticky: the install stays on the native surface.
	ModeLegacy AppMode = "legacy"
)

// ParseAppMode maps a stored value to an AppMode. Unknown values read as unset.
func ParseAppMode(raw string) AppMode {
	switch AppMode(raw) {
	case ModePrimary:
		return ModePrimary
	case ModeLegacy:
		return ModeLegacy
	default:
		return ModeUnset
	}
}

// ConnectivityStatus is the last observed network path status.
type ConnectivityStatus int

const (
	StatusUnknown ConnectivityStatus = iota
	StatusSatisfied
	StatusUnsatisfied
)

func (s ConnectivityStatus) String() string {
	switch s {
	case StatusSatisfied:
		return "satisfied"
	case StatusUnsatisfied:
		return "unsatisfied"
	default:
		return "unknown"
	}
}
