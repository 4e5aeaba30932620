// Package cli wires the waypoint command line to the launch engine.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bnema/waypoint/internal/application/usecase"
	"github.com/bnema/waypoint/internal/cli/styles"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/infrastructure/config"
	"github.com/bnema/waypoint/internal/infrastructure/persistence/sqlite"
	"github.com/bnema/waypoint/internal/logging"
)

const dataDirPerm = 0o755

// App holds CLI dependencies.
type App struct {
	Config        *config.Config
	ConfigManager *config.Manager
	Theme         *styles.Theme
	Renderer      *styles.LaunchRenderer

	db      *sqlite.LazyDB
	KV      repository.KeyValueRepository
	Cookies repository.CookieJarRepository
	Launch  *usecase.LaunchState

	// Context with logger
	ctx context.Context
}

// NewApp loads configuration from configDir (empty uses XDG) and prepares
// the lazily opened store.
func NewApp(configDir string) (*App, error) {
	mgr, err := config.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("config manager: %w", err)
	}
	if err := mgr.Load(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg := mgr.Get()

	logger := logging.NewFromConfigValues(cfg.Logging.Level, cfg.Logging.Format)
	ctx := logging.WithContext(context.Background(), logger)

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), dataDirPerm); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db := sqlite.NewLazyDB(cfg.Database.Path)
	kv := sqlite.NewLazyKeyValueRepository(db)
	theme := styles.NewTheme()

	logger.Debug().
		Str("config", mgr.ConfigFile()).
		Str("db_path", cfg.Database.Path).
		Msg("cli initialized")

	return &App{
		Config:        cfg,
		ConfigManager: mgr,
		Theme:         theme,
		Renderer:      styles.NewLaunchRenderer(theme),
		db:            db,
		KV:            kv,
		Cookies:       sqlite.NewLazyCookieJarRepository(db),
		Launch:        usecase.NewLaunchState(kv),
		ctx:           ctx,
	}, nil
}

// Close releases all resources.
func (a *App) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ctx returns the application context with logger.
func (a *App) Ctx() context.Context {
	return a.ctx
}

// EnableFileLogging switches the app logger to the rotating log file when
// logging.file is set. The returned func closes the file.
func (a *App) EnableFileLogging() (func(), error) {
	lc := a.Config.Logging
	if !lc.File {
		return func() {}, nil
	}

	sessionID := logging.GenerateSessionID()
	logger, cleanup, err := logging.NewWithFile(
		logging.Config{Level: logging.ParseLevel(lc.Level), Format: lc.Format, TimeFormat: time.RFC3339},
		logging.FileConfig{
			Enabled:       true,
			LogDir:        lc.Dir,
			SessionID:     sessionID,
			WriteToStderr: true,
			MaxSizeMB:     lc.MaxSizeMB,
			MaxBackups:    lc.MaxBackups,
			MaxAgeDays:    lc.MaxAgeDays,
			Compress:      lc.Compress,
		},
	)
	if err != nil {
		return func() {}, fmt.Errorf("open log file: %w", err)
	}
	a.ctx = logging.WithContext(context.Background(), logger)
	logger.Debug().Str("dir", lc.Dir).Msg("file logging enabled")
	return cleanup, nil
}

// DatabasePath returns the resolved sqlite file.
func (a *App) DatabasePath() string {
	return a.db.Path()
}
