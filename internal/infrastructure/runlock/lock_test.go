//go:build linux || darwin

package runlock_test

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/waypoint/internal/infrastructure/runlock"
)

func TestAcquire_ExclusiveUntilReleased(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	first, err := runlock.Acquire(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, runlock.FileName), first.Path())

	raw, err := os.ReadFile(first.Path())
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid()), strings.TrimSpace(string(raw)))

	// flock locks belong to the open file description, so a second open
	// in the same process conflicts.
	_, err = runlock.Acquire(dir)
	assert.ErrorIs(t, err, runlock.ErrHeld)

	require.NoError(t, first.Release())
	require.NoError(t, first.Release())

	second, err := runlock.Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, second.Release())
}

func TestAcquire_EmptyDir(t *testing.T) {
	_, err := runlock.Acquire("")
	assert.Error(t, err)
}
