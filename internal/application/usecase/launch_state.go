package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

// LaunchState is a typed view over the persisted launch keys.
// Read failures and undecodable values are treated as absent.
type LaunchState struct {
	kv repository.KeyValueRepository
}

// NewLaunchState wraps a key/value repository.
func NewLaunchState(kv repository.KeyValueRepository) *LaunchState {
	return &LaunchState{kv: kv}
}

// Mode returns the persisted app mode.
func (s *LaunchState) Mode(ctx context.Context) entity.AppMode {
	raw, _ := s.get(ctx, entity.KeyAppMode)
	return entity.ParseAppMode(raw)
}

// SetMode persists the app mode.
func (s *LaunchState) SetMode(ctx context.Context, mode entity.AppMode) error {
	return s.set(ctx, entity.KeyAppMode, string(mode))
}

// HasRunBefore reports whether a routing decision was ever persisted.
func (s *LaunchState) HasRunBefore(ctx context.Context) bool {
	return s.getBool(ctx, entity.KeyHasRunBefore)
}

// MarkRunBefore records that a routing decision was persisted.
func (s *LaunchState) MarkRunBefore(ctx context.Context) error {
	return s.set(ctx, entity.KeyHasRunBefore, strconv.FormatBool(true))
}

// Route returns the persisted route, or nil when no destination was saved.
func (s *LaunchState) Route(ctx context.Context) *entity.RouteConfig {
	dest, ok := s.get(ctx, entity.KeySavedDestination)
	if !ok || strings.TrimSpace(dest) == "" {
		return nil
	}
	route := &entity.RouteConfig{DestinationURL: dest, Mode: s.Mode(ctx)}
	if at, ok := s.getTime(ctx, entity.KeySavedExpiresAt); ok {
		route.ExpiresAt = at
	}
	return route
}

// SaveRoute persists a route from a successful remote configuration.
// It also records the route's mode and marks the install as run before.
func (s *LaunchState) SaveRoute(ctx context.Context, route *entity.RouteConfig) error {
	if route == nil {
		return fmt.Errorf("route cannot be nil")
	}
	if err := s.set(ctx, entity.KeySavedDestination, route.DestinationURL); err != nil {
		return err
	}
	if err := s.setTime(ctx, entity.KeySavedExpiresAt, route.ExpiresAt); err != nil {
		return err
	}
	if err := s.SetMode(ctx, route.Mode); err != nil {
		return err
	}
	return s.MarkRunBefore(ctx)
}

// LastPushPromptAt returns when push permission was last asked.
func (s *LaunchState) LastPushPromptAt(ctx context.Context) (time.Time, bool) {
	return s.getTime(ctx, entity.KeyLastPushPromptAt)
}

// RecordPushPrompt stores the time push permission was asked.
func (s *LaunchState) RecordPushPrompt(ctx context.Context, at time.Time) error {
	return s.setTime(ctx, entity.KeyLastPushPromptAt, at)
}

// PushGranted reports the last recorded push permission outcome.
func (s *LaunchState) PushGranted(ctx context.Context) bool {
	return s.getBool(ctx, entity.KeyPushPermissionGranted)
}

// SetPushGranted records the push permission outcome.
func (s *LaunchState) SetPushGranted(ctx context.Context, granted bool) error {
	return s.set(ctx, entity.KeyPushPermissionGranted, strconv.FormatBool(granted))
}

// PushToken returns the registered push token, or "".
func (s *LaunchState) PushToken(ctx context.Context) string {
	token, _ := s.get(ctx, entity.KeyPushToken)
	return token
}

// SetPushToken stores the registered push token.
func (s *LaunchState) SetPushToken(ctx context.Context, token string) error {
	return s.set(ctx, entity.KeyPushToken, token)
}

// SetOverrideURL writes the one-shot override destination.
func (s *LaunchState) SetOverrideURL(ctx context.Context, uri string) error {
	return s.set(ctx, entity.KeyOverrideURL, strings.TrimSpace(uri))
}

// PeekOverrideURL returns the pending override destination without consuming it.
func (s *LaunchState) PeekOverrideURL(ctx context.Context) string {
	uri, _ := s.get(ctx, entity.KeyOverrideURL)
	return uri
}

// TakeOverrideURL consumes the one-shot override destination.
func (s *LaunchState) TakeOverrideURL(ctx context.Context) string {
	uri, ok, err := s.kv.Take(ctx, entity.KeyOverrideURL)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("failed to consume override url")
		return ""
	}
	if !ok {
		return ""
	}
	return strings.TrimSpace(uri)
}

// InstallID returns the per-install identifier, generating it on first use.
func (s *LaunchState) InstallID(ctx context.Context) string {
	if id, ok := s.get(ctx, entity.KeyInstallID); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	if err := s.set(ctx, entity.KeyInstallID, id); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("failed to persist install id")
	}
	return id
}

// Reset clears the routing decision so the next cold start decides again.
func (s *LaunchState) Reset(ctx context.Context) error {
	for _, key := range []entity.StoreKey{
		entity.KeyAppMode,
		entity.KeyHasRunBefore,
		entity.KeySavedDestination,
		entity.KeySavedExpiresAt,
	} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w", key, err)
		}
	}
	return nil
}

func (s *LaunchState) get(ctx context.Context, key entity.StoreKey) (string, bool) {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		logging.FromContext(ctx).Warn().Err(err).Str("key", key.String()).Msg("failed to read launch state, treating as absent")
		return "", false
	}
	return value, ok
}

func (s *LaunchState) set(ctx context.Context, key entity.StoreKey, value string) error {
	if err := s.kv.Set(ctx, key, value); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (s *LaunchState) getBool(ctx context.Context, key entity.StoreKey) bool {
	raw, ok := s.get(ctx, key)
	if !ok {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		logging.FromContext(ctx).Warn().Str("key", key.String()).Str("value", raw).Msg("corrupt boolean in launch state")
		return false
	}
	return v
}

func (s *LaunchState) getTime(ctx context.Context, key entity.StoreKey) (time.Time, bool) {
	raw, ok := s.get(ctx, key)
	if !ok || raw == "" {
		return time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		logging.FromContext(ctx).Warn().Str("key", key.String()).Str("value", raw).Msg("corrupt timestamp in launch state")
		return time.Time{}, false
	}
	return at, true
}

func (s *LaunchState) setTime(ctx context.Context, key entity.StoreKey, at time.Time) error {
	if at.IsZero() {
		return s.kv.Delete(ctx, key)
	}
	return s.set(ctx, key, at.UTC().Format(time.RFC3339Nano))
}
