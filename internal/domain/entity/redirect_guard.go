package entity

// DefaultRedirectThreshold is the number of consecutive server redirects tolerated
// on one surface before a safe navigation is forced.
const DefaultRedirectThreshold = 70

// NavigationErrorKind classifies provisional navigation failures.
type NavigationErrorKind int

const (
	ErrorKindOther NavigationErrorKind = iota
	ErrorKindTooManyRedirects
	ErrorKindCancelled
	ErrorKindNetwork
	ErrorKindTLS
)

func (k NavigationErrorKind) String() string {
	switch k {
	case ErrorKindTooManyRedirects:
		return "too_many_redirects"
	case ErrorKindCancelled:
		return "cancelled"
	case ErrorKindNetwork:
		return "network"
	case ErrorKindTLS:
		return "tls"
	default:
		return "other"
	}
}

// RedirectAction is what the owning surface must do after a guard transition.
type RedirectAction int

const (
	// ActionNone leaves the navigation alone.
	ActionNone RedirectAction = iota
	// ActionForceSafeNavigation stops loading and loads the decision URL.
	ActionForceSafeNavigation
)

// RedirectDecision is the output of a guard transition.
type RedirectDecision struct {
	Action RedirectAction
	URL    string
}

// RedirectGuard tracks consecutive server redirects on a single surface.
// It is not safe for concurrent use; the owning surface serializes access.
type RedirectGuard struct {
	threshold     int
	consecutive   int
	lastKnownGood string
}

// NewRedirectGuard creates a guard. A non-positive threshold uses DefaultRedirectThreshold.
func NewRedirectGuard(threshold int) *RedirectGuard {
	if threshold <= 0 {
		threshold = DefaultRedirectThreshold
	}
	return &RedirectGuard{threshold: threshold}
}

// OnServerRedirect records a server redirect of the in-flight navigation.
func (g *RedirectGuard) OnServerRedirect() RedirectDecision {
	g.consecutive++
	if g.consecutive > g.threshold {
		return g.forceSafe()
	}
	return RedirectDecision{}
}

// OnNavigationSettled records a navigation that completed without a redirect.
func (g *RedirectGuard) OnNavigationSettled(url string) {
	g.consecutive = 0
	if url != "" {
		g.lastKnownGood = url
	}
}

// OnProvisionalFailure handles a navigation that failed before committing.
// Only a transport-level redirect abort forces a safe navigation.
func (g *RedirectGuard) OnProvisionalFailure(kind NavigationErrorKind) RedirectDecision {
	if kind != ErrorKindTooManyRedirects {
		return RedirectDecision{}
	}
	return g.forceSafe()
}

// ConsecutiveRedirects returns the current redirect count.
func (g *RedirectGuard) ConsecutiveRedirects() int {
	return g.consecutive
}

// LastKnownGood returns the last settled URL, or "".
func (g *RedirectGuard) LastKnownGood() string {
	return g.lastKnownGood
}

// Threshold returns the configured threshold.
func (g *RedirectGuard) Threshold() int {
	return g.threshold
}

func (g *RedirectGuard) forceSafe() RedirectDecision {
	if g.lastKnownGood == "" {
		return RedirectDecision{}
	}
	g.consecutive = 0
	return RedirectDecision{Action: ActionForceSafeNavigation, URL: g.lastKnownGood}
}
