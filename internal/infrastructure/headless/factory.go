package headless

import (
	"context"
	"crypto/x509"
	"sync/atomic"
	"time"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 100
	defaultMaxBodyBytes = 1 << 20
)

// Options configures surfaces created by a Factory.
type Options struct {
	// UserAgent is used when the surface settings do not carry one.
	UserAgent    string
	Timeout      time.Duration
	MaxRedirects int
	// RootCAs overrides the system roots. Nil uses the system pool.
	RootCAs      *x509.CertPool
	MaxBodyBytes int64
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRedirects <= 0 {
		o.MaxRedirects = defaultMaxRedirects
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = defaultMaxBodyBytes
	}
	return o
}

// Factory creates headless surfaces.
type Factory struct {
	opts   Options
	nextID atomic.Uint64
}

var _ port.SurfaceFactory = (*Factory)(nil)

// NewFactory creates a surface factory.
func NewFactory(opts Options) *Factory {
	return &Factory{opts: opts.withDefaults()}
}

// Create creates a surface with its own cookie store.
func (f *Factory) Create(_ context.Context, settings entity.SurfaceSettings) (port.Surface, error) {
	return f.build(settings, NewCookieStore()), nil
}

// CreateRelated creates a surface sharing the parent's cookie store.
func (f *Factory) CreateRelated(_ context.Context, parent port.Surface, settings entity.SurfaceSettings) (port.Surface, error) {
	store := NewCookieStore()
	if p, ok := parent.(*Surface); ok && p != nil {
		store = p.cookies
	}
	return f.build(settings, store), nil
}

func (f *Factory) build(settings entity.SurfaceSettings, store *CookieStore) *Surface {
	if settings.UserAgent == "" {
		settings.UserAgent = f.opts.UserAgent
	}
	id := entity.SurfaceID(f.nextID.Add(1))
	return newSurface(id, settings, store, f.opts)
}
