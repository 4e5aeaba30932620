// Package device supplies the device and app metadata sent with remote
// configuration requests.
package device

import (
	"context"
	"os"
	"runtime"
	"strings"

	"golang.org/x/text/language"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
	"github.com/bnema/waypoint/internal/domain/repository"
	"github.com/bnema/waypoint/internal/logging"
)

// DefaultLocale is reported when no locale can be determined.
const DefaultLocale = "EN"

// Config is the static app metadata.
type Config struct {
	BundleID          string
	AppID             string
	FirebaseProjectID string
	// Locale overrides the environment. Any BCP 47 tag or POSIX locale.
	Locale string
	// OS overrides runtime.GOOS.
	OS string
}

// Provider implements port.DeviceInfoProvider.
type Provider struct {
	cfg    Config
	kv     repository.KeyValueRepository
	getenv func(string) string
}

var _ port.DeviceInfoProvider = (*Provider)(nil)

// NewProvider creates a provider. kv holds the push token and may be nil.
func NewProvider(cfg Config, kv repository.KeyValueRepository) *Provider {
	return &Provider{cfg: cfg, kv: kv, getenv: os.Getenv}
}

// WithEnv replaces the environment lookup.
func (p *Provider) WithEnv(getenv func(string) string) *Provider {
	p.getenv = getenv
	return p
}

// DeviceInfo returns the current metadata. AttributionID is filled by the engine.
func (p *Provider) DeviceInfo(ctx context.Context) port.DeviceInfo {
	info := port.DeviceInfo{
		BundleID:          p.cfg.BundleID,
		OS:                p.cfg.OS,
		FirebaseProjectID: p.cfg.FirebaseProjectID,
		Locale:            p.Locale(),
	}
	if info.OS == "" {
		info.OS = runtime.GOOS
	}
	if p.cfg.AppID != "" {
		info.StoreID = "id" + p.cfg.AppID
	}

	if p.kv != nil {
		token, ok, err := p.kv.Get(ctx, entity.KeyPushToken)
		switch {
		case err != nil:
			logging.FromContext(ctx).Warn().Err(err).Msg("failed to read push token")
		case ok:
			info.PushToken = token
		}
	}
	return info
}

// Locale returns the two-letter uppercase language code.
func (p *Provider) Locale() string {
	for _, candidate := range []string{p.cfg.Locale, p.getenv("LC_ALL"), p.getenv("LANG")} {
		if code, ok := languageCode(candidate); ok {
			return code
		}
	}
	return DefaultLocale
}

func languageCode(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	// POSIX locales look like en_US.UTF-8@euro.
	if i := strings.IndexAny(raw, ".@"); i >= 0 {
		raw = raw[:i]
	}
	raw = strings.ReplaceAll(raw, "_", "-")
	if raw == "" || raw == "C" || raw == "POSIX" {
		return "", false
	}

	tag, err := language.Parse(raw)
	if err != nil {
		return "", false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", false
	}
	code := base.String()
	if len(code) != 2 {
		return "", false
	}
	return strings.ToUpper(code), true
}
