package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// LogFileName is the active log file inside FileConfig.LogDir.
const LogFileName = "waypoint.log"

// FileConfig controls the rotating log file.
type FileConfig struct {
	Enabled bool
	LogDir  string
	// SessionID is attached to every line so interleaved runs can be told apart.
	SessionID     string
	WriteToStderr bool
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
	Compress      bool
}

// NewWithFile creates a logger that writes JSON lines to a rotating file and,
// when WriteToStderr is set, to stderr in cfg.Format. The cleanup func closes
// the file. With file logging disabled it behaves like New.
func NewWithFile(cfg Config, fc FileConfig) (zerolog.Logger, func(), error) {
	if !fc.Enabled {
		return New(cfg), func() {}, nil
	}

	rotator, err := NewLogRotator(fc.LogDir, LogFileName, fc.MaxSizeMB, fc.MaxBackups, fc.MaxAgeDays, fc.Compress)
	if err != nil {
		return New(cfg), func() {}, err
	}

	writers := []io.Writer{rotator}
	if fc.WriteToStderr {
		var stderr io.Writer = os.Stderr
		if cfg.Format == "console" {
			stderr = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: cfg.TimeFormat}
		}
		writers = append(writers, stderr)
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(cfg.Level).
		With().
		Timestamp()
	if fc.SessionID != "" {
		ctx = ctx.Str("session", fc.SessionID)
	}

	cleanup := func() { _ = rotator.Close() }
	return ctx.Logger(), cleanup, nil
}
