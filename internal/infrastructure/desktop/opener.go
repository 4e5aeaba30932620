// Package desktop hands URLs the surfaces must not load to the desktop.
package desktop

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/logging"
)

// ErrNoOpener is returned when no URL handler is installed.
var ErrNoOpener = errors.New("no desktop url opener found")

// Opener implements port.ExternalURLOpener with xdg-open.
type Opener struct {
	path string
	run  func(ctx context.Context, name string, args ...string) error
}

var _ port.ExternalURLOpener = (*Opener)(nil)

// NewOpener looks up xdg-open. A missing binary is reported on Open.
func NewOpener() *Opener {
	o := &Opener{run: runCommand}
	for _, candidate := range []string{"xdg-open", "open"} {
		if path, err := exec.LookPath(candidate); err == nil {
			o.path = path
			break
		}
	}
	return o
}

// Open launches the handler for uri without waiting for it to exit.
func (o *Opener) Open(ctx context.Context, uri string) error {
	if o.path == "" {
		return ErrNoOpener
	}
	logging.FromContext(ctx).Debug().Str("url", uri).Str("handler", o.path).Msg("opening externally")
	if err := o.run(ctx, o.path, uri); err != nil {
		return fmt.Errorf("failed to open %q: %w", uri, err)
	}
	return nil
}

func runCommand(_ context.Context, name string, args ...string) error {
	// The handler outlives the request context.
	cmd := exec.Command(name, args...) //nolint:gosec // uri is passed as a single argument
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
