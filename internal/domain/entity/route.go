package entity

import "time"

// RouteConfig is the destination chosen by the last successful remote configuration.
type RouteConfig struct {
	DestinationURL string
	ExpiresAt      time.Time
	Mode           AppMode
}

// NewRouteConfig builds a primary route expiring expiresIn after now.
func NewRouteConfig(destination string, expiresIn time.Duration, now time.Time) *RouteConfig {
	return &RouteConfig{
		DestinationURL: destination,
		ExpiresAt:      now.Add(expiresIn),
		Mode:           ModePrimary,
	}
}

// IsExpired reports whether the route is past its expiry.
// A zero expiry never expires.
func (r *RouteConfig) IsExpired(now time.Time) bool {
	if r == nil {
		return true
	}
	if r.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(r.ExpiresAt)
}
