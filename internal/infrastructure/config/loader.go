package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const configFileName = "config.toml"

// Manager handles configuration loading, watching, and reloading.
type Manager struct {
	config    *Config
	viper     *viper.Viper
	dir       string
	mu        sync.RWMutex
	callbacks []func(*Config)
	watching  bool
}

// NewManager creates a configuration manager rooted at dir. An empty dir
// uses the XDG config directory.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		var err error
		dir, err = GetConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to determine config directory: %w\nCheck XDG_CONFIG_HOME environment variable or HOME directory", err)
		}
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(dir)

	// WAYPOINT_REMOTE_CONFIG_ENDPOINT, WAYPOINT_SURFACE_TRUST_POLICY, ...
	v.SetEnvPrefix("WAYPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("logging.level", "WAYPOINT_LOG_LEVEL"); err != nil {
		return nil, fmt.Errorf("failed to bind WAYPOINT_LOG_LEVEL: %w", err)
	}
	if err := v.BindEnv("logging.format", "WAYPOINT_LOG_FORMAT"); err != nil {
		return nil, fmt.Errorf("failed to bind WAYPOINT_LOG_FORMAT: %w", err)
	}

	return &Manager{viper: v, dir: dir}, nil
}

// Load reads the config file, creating it with defaults on first run, then
// applies environment overrides, normalizes and validates.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	setDefaults(m.viper)

	if err := m.readConfigFile(); err != nil {
		return err
	}

	config, err := m.unmarshalConfig()
	if err != nil {
		return err
	}
	if err := finalize(config); err != nil {
		return err
	}

	m.config = config
	return nil
}

func (m *Manager) readConfigFile() error {
	err := m.viper.ReadInConfig()
	if err == nil {
		return nil
	}

	var notFound viper.ConfigFileNotFoundError
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to read config file at %s: %w\nCheck the file format (must be valid TOML) and permissions", m.ConfigFile(), err)
	}

	if err := m.createDefaultConfig(); err != nil {
		return fmt.Errorf("failed to create default config at %s: %w\nTry creating the directory manually or check permissions", m.dir, err)
	}
	if err := m.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read newly created config file: %w", err)
	}
	return nil
}

func (m *Manager) unmarshalConfig() (*Config, error) {
	config := &Config{}
	if err := m.viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf(
			"failed to parse config file at %s: %w\nCheck for syntax errors, invalid values, or type mismatches",
			m.ConfigFile(),
			err,
		)
	}
	return config, nil
}

func finalize(config *Config) error {
	if config.Database.Path == "" {
		dbPath, err := GetDatabaseFile()
		if err != nil {
			return fmt.Errorf("failed to get database path: %w", err)
		}
		config.Database.Path = dbPath
	}
	if config.Logging.Dir == "" {
		stateDir, err := GetStateDir()
		if err != nil {
			return fmt.Errorf("failed to get state dir: %w", err)
		}
		config.Logging.Dir = filepath.Join(stateDir, "logs")
	}
	normalizeConfig(config)

	if err := validateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func normalizeConfig(config *Config) {
	switch TrustPolicy(strings.ToLower(strings.TrimSpace(string(config.Surface.TrustPolicy)))) {
	case "", TrustPolicyVerify:
		config.Surface.TrustPolicy = TrustPolicyVerify
	case TrustPolicyAcceptAny:
		config.Surface.TrustPolicy = TrustPolicyAcceptAny
	}

	config.Logging.Level = strings.ToLower(strings.TrimSpace(config.Logging.Level))
	config.Logging.Format = strings.ToLower(strings.TrimSpace(config.Logging.Format))
	if config.Logging.Level == "" {
		config.Logging.Level = "info"
	}
	if config.Logging.Format == "" {
		config.Logging.Format = "console"
	}

	config.RemoteConfig.Endpoint = strings.TrimSpace(config.RemoteConfig.Endpoint)
	config.Verification.BaseURL = strings.TrimSpace(config.Verification.BaseURL)
	config.App.AppID = strings.TrimPrefix(strings.TrimSpace(config.App.AppID), "id")
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return DefaultConfig()
	}
	configCopy := *m.config
	return &configCopy
}

// ConfigFile returns the path of the configuration file.
func (m *Manager) ConfigFile() string {
	if used := m.viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(m.dir, configFileName)
}

// Dir returns the configuration directory.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) createDefaultConfig() error {
	if err := os.MkdirAll(m.dir, dirPerm); err != nil {
		return err
	}

	// A fresh viper keeps environment overrides out of the written file.
	defaults := viper.New()
	setDefaults(defaults)

	path := filepath.Join(m.dir, configFileName)
	if err := WriteConfigOrdered(defaults.AllSettings(), path); err != nil {
		return err
	}
	if err := GenerateSchemaFile(m.dir); err != nil {
		return err
	}
	return nil
}

// setDefaults registers every key so env overrides work without a file entry.
// Durations are registered as strings so the written file stays readable.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	dur := func(v time.Duration) string { return v.String() }

	v.SetDefault("app.bundle_id", d.App.BundleID)
	v.SetDefault("app.app_id", d.App.AppID)
	v.SetDefault("app.os", d.App.OS)
	v.SetDefault("app.firebase_project_id", d.App.FirebaseProjectID)
	v.SetDefault("app.locale", d.App.Locale)

	v.SetDefault("remote_config.endpoint", d.RemoteConfig.Endpoint)
	v.SetDefault("remote_config.timeout", dur(d.RemoteConfig.Timeout))

	v.SetDefault("verification.base_url", d.Verification.BaseURL)
	v.SetDefault("verification.dev_key", d.Verification.DevKey)
	v.SetDefault("verification.timeout", dur(d.Verification.Timeout))

	v.SetDefault("bootstrap.organic_debounce", dur(d.Bootstrap.OrganicDebounce))
	v.SetDefault("bootstrap.push_prompt_cooldown", dur(d.Bootstrap.PushPromptCooldown))
	v.SetDefault("bootstrap.attribution_timeout", dur(d.Bootstrap.AttributionTimeout))
	v.SetDefault("bootstrap.enforce_route_expiry", d.Bootstrap.EnforceRouteExpiry)
	v.SetDefault("bootstrap.accept_push", d.Bootstrap.AcceptPush)

	v.SetDefault("surface.redirect_threshold", d.Surface.RedirectThreshold)
	v.SetDefault("surface.trust_policy", string(d.Surface.TrustPolicy))
	v.SetDefault("surface.override_poll_interval", dur(d.Surface.OverridePollInterval))
	v.SetDefault("surface.user_agent", d.Surface.UserAgent)
	v.SetDefault("surface.request_timeout", dur(d.Surface.RequestTimeout))

	v.SetDefault("connectivity.probe_address", d.Connectivity.ProbeAddress)
	v.SetDefault("connectivity.interval", dur(d.Connectivity.Interval))
	v.SetDefault("connectivity.timeout", dur(d.Connectivity.Timeout))

	v.SetDefault("database.path", d.Database.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.dir", d.Logging.Dir)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}
