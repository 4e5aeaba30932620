// Package push implements notification permission for terminal sessions.
package push

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

// PromptMessage is the question shown to the user.
const PromptMessage = "Allow notifications?"

// Prompter asks a yes/no question interactively.
type Prompter interface {
	Confirm(ctx context.Context, message string, defaultYes bool) (bool, error)
}

// Console asks for permission through a Prompter, or answers a fixed default
// when none is attached. A granted registration mints a device token.
type Console struct {
	prompt   Prompter
	fallback bool
	kv       repository.KeyValueRepository
}

var _ port.PushPermission = (*Console)(nil)

// NewConsole creates a console permission prompt. prompt may be nil.
func NewConsole(prompt Prompter, fallback bool, kv repository.KeyValueRepository) *Console {
	return &Console{prompt: prompt, fallback: fallback, kv: kv}
}

// RequestAuthorization asks the prompter, preselecting the default answer.
func (c *Console) RequestAuthorization(ctx context.Context) (bool, error) {
	if c.prompt == nil {
		return c.fallback, nil
	}
	granted, err := c.prompt.Confirm(ctx, PromptMessage, c.fallback)
	if err != nil {
		return false, fmt.Errorf("push prompt: %w", err)
	}
	logging.FromContext(ctx).Debug().Bool("granted", granted).Msg("push prompt answered")
	return granted, nil
}

// RegisterForRemoteNotifications stores a device token if none exists yet.
func (c *Console) RegisterForRemoteNotifications(ctx context.Context) error {
	if c.kv == nil {
		return nil
	}
	if token, ok, err := c.kv.Get(ctx, entity.KeyPushToken); err != nil {
		return fmt.Errorf("failed to read push token: %w", err)
	} else if ok && token != "" {
		return nil
	}

	token := uuid.NewString()
	if err := c.kv.Set(ctx, entity.KeyPushToken, token); err != nil {
		return fmt.Errorf("failed to store push token: %w", err)
	}
	logging.FromContext(ctx).Debug().Msg("registered push token")
	return nil
}
