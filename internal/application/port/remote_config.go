package port

import (
	"context"
	"time"

	"github.com/bnema/waypoint/internal/domain/entity"
)

// RouteRequest is the body of the remote configuration request.
// Payload carries the merged attribution keys; metadata keys override them.
type RouteRequest struct {
	Payload           entity.Payload
	AttributionID     string
	BundleID          string
	OS                string
	StoreID           string
	Locale            string
	PushToken         string
	FirebaseProjectID string
	InstallID         string
}

// RouteResponse is a validated remote configuration answer.
type RouteResponse struct {
	URL       string
	ExpiresIn time.Duration
}

// RemoteConfigClient performs the remote configuration round trip.
// Any error means the caller must fall back; no retries are performed.
type RemoteConfigClient interface {
	FetchRoute(ctx context.Context, req RouteRequest) (*RouteResponse, error)
}

// OrganicVerifier performs the out-of-band install identity check.
type OrganicVerifier interface {
	Verify(ctx context.Context, attributionID string) error
}
