package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// validateConfig collects every problem into a single error.
func validateConfig(config *Config) error {
	var validationErrors []string

	validationErrors = append(validationErrors, validateEndpoints(config)...)
	validationErrors = append(validationErrors, validateBootstrap(config)...)
	validationErrors = append(validationErrors, validateSurface(config)...)
	validationErrors = append(validationErrors, validateConnectivity(config)...)
	validationErrors = append(validationErrors, validateLogging(config)...)

	if len(validationErrors) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(validationErrors, "\n  - "))
	}
	return nil
}

func validateEndpoints(config *Config) []string {
	var validationErrors []string
	if msg := validateOptionalURL("remote_config.endpoint", config.RemoteConfig.Endpoint); msg != "" {
		validationErrors = append(validationErrors, msg)
	}
	if msg := validateOptionalURL("verification.base_url", config.Verification.BaseURL); msg != "" {
		validationErrors = append(validationErrors, msg)
	}
	validationErrors = append(validationErrors, positive("remote_config.timeout", config.RemoteConfig.Timeout)...)
	validationErrors = append(validationErrors, positive("verification.timeout", config.Verification.Timeout)...)
	return validationErrors
}

func validateOptionalURL(key, raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Sprintf("%s must be an absolute http(s) URL", key)
	}
	return ""
}

func validateBootstrap(config *Config) []string {
	var validationErrors []string
	if config.Bootstrap.OrganicDebounce < 0 {
		validationErrors = append(validationErrors, "bootstrap.organic_debounce must be non-negative")
	}
	if config.Bootstrap.PushPromptCooldown < 0 {
		validationErrors = append(validationErrors, "bootstrap.push_prompt_cooldown must be non-negative")
	}
	validationErrors = append(validationErrors, positive("bootstrap.attribution_timeout", config.Bootstrap.AttributionTimeout)...)
	return validationErrors
}

func validateSurface(config *Config) []string {
	var validationErrors []string
	if config.Surface.RedirectThreshold < 1 {
		validationErrors = append(validationErrors, "surface.redirect_threshold must be at least 1")
	}
	switch config.Surface.TrustPolicy {
	case TrustPolicyVerify, TrustPolicyAcceptAny:
	default:
		validationErrors = append(validationErrors,
			fmt.Sprintf("surface.trust_policy must be %q or %q", TrustPolicyVerify, TrustPolicyAcceptAny))
	}
	validationErrors = append(validationErrors, positive("surface.override_poll_interval", config.Surface.OverridePollInterval)...)
	validationErrors = append(validationErrors, positive("surface.request_timeout", config.Surface.RequestTimeout)...)
	return validationErrors
}

func validateConnectivity(config *Config) []string {
	var validationErrors []string
	if _, port, err := net.SplitHostPort(config.Connectivity.ProbeAddress); err != nil || port == "" {
		validationErrors = append(validationErrors, "connectivity.probe_address must be host:port")
	}
	validationErrors = append(validationErrors, positive("connectivity.interval", config.Connectivity.Interval)...)
	validationErrors = append(validationErrors, positive("connectivity.timeout", config.Connectivity.Timeout)...)
	return validationErrors
}

func validateLogging(config *Config) []string {
	var validationErrors []string
	switch config.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "disabled":
	default:
		validationErrors = append(validationErrors, "logging.level must be one of trace, debug, info, warn, error, disabled")
	}
	switch config.Logging.Format {
	case "console", "json":
	default:
		validationErrors = append(validationErrors, "logging.format must be console or json")
	}
	if config.Logging.File && config.Logging.MaxSizeMB < 1 {
		validationErrors = append(validationErrors, "logging.max_size_mb must be at least 1")
	}
	if config.Logging.MaxBackups < 0 || config.Logging.MaxAgeDays < 0 {
		validationErrors = append(validationErrors, "logging.max_backups and logging.max_age_days must not be negative")
	}
	return validationErrors
}

func positive(key string, d time.Duration) []string {
	if d <= 0 {
		return []string{key + " must be positive"}
	}
	return nil
}
