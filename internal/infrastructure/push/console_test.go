package push_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/cli/styles"
	"github.com/bnema/waypoint/internal/domain/entity"
	repomocks "github.com/bnema/waypoint/internal/domain/repository/mocks"
	"github.com/bnema/waypoint/internal/infrastructure/push"
)

type stubPrompter struct {
	answer     bool
	err        error
	message    string
	defaultYes bool
}

func (p *stubPrompter) Confirm(_ context.Context, message string, defaultYes bool) (bool, error) {
	p.message, p.defaultYes = message, defaultYes
	return p.answer, p.err
}

func TestConsole_RequestAuthorization(t *testing.T) {
	ctx := context.Background()

	t.Run("no terminal uses default", func(t *testing.T) {
		got, err := push.NewConsole(nil, true, nil).RequestAuthorization(ctx)
		require.NoError(t, err)
		assert.True(t, got)
	})

	t.Run("prompt preselects default", func(t *testing.T) {
		p := &stubPrompter{answer: false}
		got, err := push.NewConsole(p, true, nil).RequestAuthorization(ctx)
		require.NoError(t, err)
		assert.False(t, got)
		assert.Equal(t, push.PromptMessage, p.message)
		assert.True(t, p.defaultYes)
	})

	t.Run("prompt error denies", func(t *testing.T) {
		p := &stubPrompter{answer: true, err: context.Canceled}
		got, err := push.NewConsole(p, true, nil).RequestAuthorization(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, got)
	})
}

func TestConsole_TerminalDialog(t *testing.T) {
	tests := []struct {
		name     string
		keys     string
		fallback bool
		want     bool
	}{
		{name: "y then enter", keys: "y\r", want: true},
		{name: "enter keeps default yes", keys: "\r", fallback: true, want: true},
		{name: "enter keeps default no", keys: "\r", want: false},
		{name: "n overrides default", keys: "n\r", fallback: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			prompt := styles.ConfirmPrompt{In: strings.NewReader(tt.keys), Out: &out}
			got, err := push.NewConsole(prompt, tt.fallback, nil).RequestAuthorization(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), push.PromptMessage)
		})
	}
}

func TestConsole_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("mints a token once", func(t *testing.T) {
		kv := repomocks.NewMockKeyValueRepository(t)
		kv.On("Get", mock.Anything, entity.KeyPushToken).Return("", false, nil).Once()
		kv.On("Set", mock.Anything, entity.KeyPushToken, mock.AnythingOfType("string")).Return(nil).Once()
		require.NoError(t, push.NewConsole(nil, true, kv).RegisterForRemoteNotifications(ctx))
	})

	t.Run("keeps existing token", func(t *testing.T) {
		kv := repomocks.NewMockKeyValueRepository(t)
		kv.On("Get", mock.Anything, entity.KeyPushToken).Return("tok", true, nil).Once()
		require.NoError(t, push.NewConsole(nil, true, kv).RegisterForRemoteNotifications(ctx))
		kv.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("read error", func(t *testing.T) {
		kv := repomocks.NewMockKeyValueRepository(t)
		kv.On("Get", mock.Anything, entity.KeyPushToken).Return("", false, errors.New("locked")).Once()
		assert.Error(t, push.NewConsole(nil, true, kv).RegisterForRemoteNotifications(ctx))
	})
}
