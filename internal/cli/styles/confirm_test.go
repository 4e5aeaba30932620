package styles

import (
	"bytes"
	"context"
	"io"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func press(t *testing.T, m ConfirmModel, msgs ...tea.Msg) (ConfirmModel, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(ConfirmModel)
	}
	return m, cmd
}

func TestConfirmModel_Keys(t *testing.T) {
	runes := func(r rune) tea.Msg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}} }

	tests := []struct {
		name       string
		defaultYes bool
		msgs       []tea.Msg
		result     bool
		canceled   bool
	}{
		{name: "y confirms yes", msgs: []tea.Msg{runes('y'), tea.KeyMsg{Type: tea.KeyEnter}}, result: true},
		{name: "right selects yes", msgs: []tea.Msg{tea.KeyMsg{Type: tea.KeyRight}, tea.KeyMsg{Type: tea.KeyEnter}}, result: true},
		{name: "h selects no", defaultYes: true, msgs: []tea.Msg{runes('h'), tea.KeyMsg{Type: tea.KeyEnter}}},
		{name: "enter keeps default", defaultYes: true, msgs: []tea.Msg{tea.KeyMsg{Type: tea.KeyEnter}}, result: true},
		{name: "esc cancels", defaultYes: true, msgs: []tea.Msg{tea.KeyMsg{Type: tea.KeyEsc}}, canceled: true},
		{name: "ctrl+c cancels", msgs: []tea.Msg{tea.KeyMsg{Type: tea.KeyCtrlC}}, canceled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd := press(t, NewConfirm(nil, "Allow?", tt.defaultYes), tt.msgs...)
			assert.True(t, m.Done())
			assert.Equal(t, tt.canceled, m.Canceled)
			assert.Equal(t, tt.result, m.Result())
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
		})
	}
}

func TestConfirmModel_ViewAndPending(t *testing.T) {
	m, cmd := press(t, NewConfirm(nil, "Allow notifications?", false), tea.KeyMsg{Type: tea.KeyRight})
	assert.Nil(t, cmd)
	assert.False(t, m.Done())
	assert.True(t, m.Yes)

	view := m.View()
	assert.Contains(t, view, "Allow notifications?")
	assert.Contains(t, view, "Yes")
	assert.Contains(t, view, "No")
}

func TestConfirmPrompt_Confirm(t *testing.T) {
	var out bytes.Buffer
	p := ConfirmPrompt{Theme: NewTheme(), In: bytes.NewBufferString("l\r"), Out: &out}

	got, err := p.Confirm(context.Background(), "Allow notifications?", false)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestConfirmPrompt_ContextCancelled(t *testing.T) {
	r, w := io.Pipe()
	defer func() { _ = w.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ConfirmPrompt{In: r, Out: io.Discard}.Confirm(ctx, "Allow?", true)
	assert.ErrorIs(t, err, context.Canceled)
}
