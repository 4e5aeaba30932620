// Package config loads the waypoint configuration with viper.
package config

import "time"

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Config is the complete waypoint configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app" json:"app"`
	RemoteConfig RemoteConfigConfig `mapstructure:"remote_config" json:"remote_config"`
	Verification VerificationConfig `mapstructure:"verification" json:"verification"`
	Bootstrap    BootstrapConfig    `mapstructure:"bootstrap" json:"bootstrap"`
	Surface      SurfaceConfig      `mapstructure:"surface" json:"surface"`
	Connectivity ConnectivityConfig `mapstructure:"connectivity" json:"connectivity"`
	Database     DatabaseConfig     `mapstructure:"database" json:"database"`
	Logging      LoggingConfig      `mapstructure:"logging" json:"logging"`
}

// AppConfig identifies the app to the remote configuration service.
type AppConfig struct {
	BundleID          string `mapstructure:"bundle_id" json:"bundle_id"`
	AppID             string `mapstructure:"app_id" json:"app_id" jsonschema:"description=Store app id without the id prefix"`
	OS                string `mapstructure:"os" json:"os" jsonschema:"description=Reported OS tag; empty uses the build OS"`
	FirebaseProjectID string `mapstructure:"firebase_project_id" json:"firebase_project_id"`
	Locale            string `mapstructure:"locale" json:"locale" jsonschema:"description=Overrides LC_ALL and LANG"`
}

// RemoteConfigConfig configures the remote configuration round trip.
type RemoteConfigConfig struct {
	Endpoint string        `mapstructure:"endpoint" json:"endpoint" jsonschema:"description=POST endpoint; empty disables remote configuration"`
	Timeout  time.Duration `mapstructure:"timeout" json:"timeout"`
}

// VerificationConfig configures the organic install check.
type VerificationConfig struct {
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	DevKey  string        `mapstructure:"dev_key" json:"dev_key"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// BootstrapConfig tunes the launch decision.
type BootstrapConfig struct {
	OrganicDebounce    time.Duration `mapstructure:"organic_debounce" json:"organic_debounce"`
	PushPromptCooldown time.Duration `mapstructure:"push_prompt_cooldown" json:"push_prompt_cooldown"`
	AttributionTimeout time.Duration `mapstructure:"attribution_timeout" json:"attribution_timeout"`
	EnforceRouteExpiry bool          `mapstructure:"enforce_route_expiry" json:"enforce_route_expiry"`
	// AcceptPush answers push prompts when no terminal is attached.
	AcceptPush bool `mapstructure:"accept_push" json:"accept_push"`
}

// TrustPolicy is the server-trust answer for surfaces.
type TrustPolicy string

const (
	TrustPolicyVerify    TrustPolicy = "verify"
	TrustPolicyAcceptAny TrustPolicy = "accept_any"
)

// SurfaceConfig configures the browsing surfaces.
type SurfaceConfig struct {
	RedirectThreshold    int           `mapstructure:"redirect_threshold" json:"redirect_threshold"`
	TrustPolicy          TrustPolicy   `mapstructure:"trust_policy" json:"trust_policy" jsonschema:"enum=verify,enum=accept_any"`
	OverridePollInterval time.Duration `mapstructure:"override_poll_interval" json:"override_poll_interval"`
	UserAgent            string        `mapstructure:"user_agent" json:"user_agent"`
	RequestTimeout       time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
}

// ConnectivityConfig configures the network probe.
type ConnectivityConfig struct {
	ProbeAddress string        `mapstructure:"probe_address" json:"probe_address"`
	Interval     time.Duration `mapstructure:"interval" json:"interval"`
	Timeout      time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path" json:"path" jsonschema:"description=Empty uses the XDG data directory"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error"`
	Format string `mapstructure:"format" json:"format" jsonschema:"enum=console,enum=json"`
	// File enables the rotating log file written by long-running commands.
	File       bool   `mapstructure:"file" json:"file"`
	Dir        string `mapstructure:"dir" json:"dir" jsonschema:"description=Log directory; empty uses the XDG state directory"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" json:"max_age_days"`
	Compress   bool   `mapstructure:"compress" json:"compress"`
}
