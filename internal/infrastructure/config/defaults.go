package config

import "time"

const (
	defaultRemoteTimeout        = 30 * time.Second
	defaultVerificationTimeout  = 15 * time.Second
	defaultOrganicDebounce      = 5 * time.Second
	defaultPushPromptCooldown   = 259200 * time.Second
	defaultAttributionTimeout   = 15 * time.Second
	defaultRedirectThreshold    = 70
	defaultOverridePollInterval = 2 * time.Second
	defaultSurfaceTimeout       = 30 * time.Second
	defaultProbeAddress         = "1.1.1.1:443"
	defaultProbeInterval        = 5 * time.Second
	defaultProbeTimeout         = 3 * time.Second
)

// DefaultConfig returns the built-in configuration. Endpoints have no default.
func DefaultConfig() *Config {
	return &Config{
		RemoteConfig: RemoteConfigConfig{
			Timeout: defaultRemoteTimeout,
		},
		Verification: VerificationConfig{
			Timeout: defaultVerificationTimeout,
		},
		Bootstrap: BootstrapConfig{
			OrganicDebounce:    defaultOrganicDebounce,
			PushPromptCooldown: defaultPushPromptCooldown,
			AttributionTimeout: defaultAttributionTimeout,
			EnforceRouteExpiry: true,
		},
		Surface: SurfaceConfig{
			RedirectThreshold:    defaultRedirectThreshold,
			TrustPolicy:          TrustPolicyVerify,
			OverridePollInterval: defaultOverridePollInterval,
			RequestTimeout:       defaultSurfaceTimeout,
		},
		Connectivity: ConnectivityConfig{
			ProbeAddress: defaultProbeAddress,
			Interval:     defaultProbeInterval,
			Timeout:      defaultProbeTimeout,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 14,
			Compress:   true,
		},
	}
}
