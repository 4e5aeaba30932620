// Package remoteconfig implements the remote configuration round trip and the
// organic install verification over HTTP.
package remoteconfig

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/logging"
)

const defaultTimeout = 15 * time.Second

var (
	// ErrRejected is returned when the endpoint answers with ok != true.
	ErrRejected = errors.New("remote configuration rejected")
	// ErrMalformedResponse is returned for bodies missing required fields.
	ErrMalformedResponse = errors.New("malformed remote configuration response")
	// ErrNotConfigured is returned when an endpoint or identifier is missing.
	ErrNotConfigured = errors.New("remote endpoint not configured")
)

// Config holds the endpoints and identifiers used by the client.
type Config struct {
	Endpoint            string
	Timeout             time.Duration
	VerificationBaseURL string
	VerificationTimeout time.Duration
	DevKey              string
	AppID               string
	UserAgent           string
}

// Client performs single-shot requests; it never retries.
type Client struct {
	cfg    Config
	config *resty.Client
	verify *resty.Client
}

var (
	_ port.RemoteConfigClient = (*Client)(nil)
	_ port.OrganicVerifier    = (*Client)(nil)
)

// New creates a client. Zero timeouts use a 15s default.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.VerificationTimeout <= 0 {
		cfg.VerificationTimeout = cfg.Timeout
	}
	return &Client{
		cfg:    cfg,
		config: newResty(cfg.Timeout, cfg.UserAgent),
		verify: newResty(cfg.VerificationTimeout, cfg.UserAgent),
	}
}

func newResty(timeout time.Duration, userAgent string) *resty.Client {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if userAgent != "" {
		client.SetHeader("User-Agent", userAgent)
	}
	client.JSONMarshal = sonic.Marshal
	client.JSONUnmarshal = sonic.Unmarshal
	return client
}

type routeResponse struct {
	OK      *bool    `json:"ok"`
	URL     *string  `json:"url"`
	Expires *float64 `json:"expires"`
}

// FetchRoute POSTs the request body and validates the answer.
// Success needs status 200, ok == true, a string url and a numeric expires.
func (c *Client) FetchRoute(ctx context.Context, req port.RouteRequest) (*port.RouteResponse, error) {
	log := logging.FromContext(ctx)

	if strings.TrimSpace(c.cfg.Endpoint) == "" {
		return nil, fmt.Errorf("%w: remote_config.endpoint is empty", ErrNotConfigured)
	}

	body := BuildRequestBody(req)
	log.Debug().Int("keys", len(body)).Str("endpoint", c.cfg.Endpoint).Msg("requesting remote configuration")

	resp, err := c.config.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("remote configuration request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("remote configuration returned status %d", resp.StatusCode())
	}

	return parseRouteResponse(resp.Body())
}

func parseRouteResponse(raw []byte) (*port.RouteResponse, error) {
	var parsed routeResponse
	if err := sonic.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if parsed.OK == nil || !*parsed.OK {
		return nil, ErrRejected
	}
	if parsed.URL == nil || strings.TrimSpace(*parsed.URL) == "" {
		return nil, fmt.Errorf("%w: missing url", ErrMalformedResponse)
	}
	if parsed.Expires == nil {
		return nil, fmt.Errorf("%w: missing expires", ErrMalformedResponse)
	}
	if *parsed.Expires < 0 {
		return nil, fmt.Errorf("%w: negative expires", ErrMalformedResponse)
	}

	return &port.RouteResponse{
		URL:       strings.TrimSpace(*parsed.URL),
		ExpiresIn: expiresIn(*parsed.Expires),
	}, nil
}

// maxExpiresSeconds is the largest offset a time.Duration can carry.
const maxExpiresSeconds = float64(math.MaxInt64 / int64(time.Second))

// expiresIn converts the wire offset in seconds, saturating at the largest
// representable duration so "never" values stay in the future.
func expiresIn(seconds float64) time.Duration {
	if seconds >= maxExpiresSeconds {
		return time.Duration(math.MaxInt64 / int64(time.Second) * int64(time.Second))
	}
	return time.Duration(seconds * float64(time.Second))
}

// BuildRequestBody flattens a route request into the wire body.
// Metadata keys override payload keys of the same name; optional keys are
// omitted when empty.
func BuildRequestBody(req port.RouteRequest) map[string]any {
	body := make(map[string]any, len(req.Payload)+9)
	for k, v := range req.Payload {
		body[k] = v
	}

	body["af_id"] = req.AttributionID
	body["bundle_id"] = req.BundleID
	body["os"] = req.OS
	body["store_id"] = req.StoreID
	body["locale"] = req.Locale

	optional := map[string]string{
		"push_token":          req.PushToken,
		"firebase_project_id": req.FirebaseProjectID,
		"install_id":          req.InstallID,
	}
	for k, v := range optional {
		if v != "" {
			body[k] = v
		}
	}
	return body
}

// Verify performs the organic install check. Any non-200 status or
// unparseable body is a failure.
func (c *Client) Verify(ctx context.Context, attributionID string) error {
	log := logging.FromContext(ctx)

	target, err := c.VerificationURL(attributionID)
	if err != nil {
		return err
	}

	resp, err := c.verify.R().SetContext(ctx).Get(target)
	if err != nil {
		return fmt.Errorf("verification request failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("verification returned status %d", resp.StatusCode())
	}

	var parsed any
	if err := sonic.Unmarshal(resp.Body(), &parsed); err != nil {
		return fmt.Errorf("%w: verification body: %v", ErrMalformedResponse, err)
	}

	log.Debug().Msg("organic verification succeeded")
	return nil
}

// VerificationURL builds `<base>id<app_id>?devkey=<key>&device_id=<id>`.
func (c *Client) VerificationURL(attributionID string) (string, error) {
	switch {
	case strings.TrimSpace(c.cfg.VerificationBaseURL) == "":
		return "", fmt.Errorf("%w: verification.base_url is empty", ErrNotConfigured)
	case c.cfg.AppID == "":
		return "", fmt.Errorf("%w: app.app_id is empty", ErrNotConfigured)
	case c.cfg.DevKey == "":
		return "", fmt.Errorf("%w: verification.dev_key is empty", ErrNotConfigured)
	case attributionID == "":
		return "", fmt.Errorf("%w: device id is empty", ErrNotConfigured)
	}

	query := url.Values{}
	query.Set("devkey", c.cfg.DevKey)
	query.Set("device_id", attributionID)
	return c.cfg.VerificationBaseURL + "id" + c.cfg.AppID + "?" + query.Encode(), nil
}
