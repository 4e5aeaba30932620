package headless

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/bnema/waypoint/internal/application/port"
	"github.com/bnema/waypoint/internal/domain/entity"
)

// CookieStore is an http.CookieJar that can also enumerate its cookies.
// Matching is delegated to net/http/cookiejar; a shadow index keyed by
// domain and name keeps what the jar cannot list.
type CookieStore struct {
	mu    sync.Mutex
	jar   *cookiejar.Jar
	index map[string]map[string]http.Cookie
	now   func() time.Time
}

var (
	_ http.CookieJar   = (*CookieStore)(nil)
	_ port.CookieStore = (*CookieStore)(nil)
)

// NewCookieStore creates an empty store using the public suffix list.
func NewCookieStore() *CookieStore {
	// cookiejar.New never fails.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &CookieStore{
		jar:   jar,
		index: make(map[string]map[string]http.Cookie),
		now:   time.Now,
	}
}

// SetCookies implements http.CookieJar.
func (s *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar.SetCookies(u, cookies)

	now := s.now()
	for _, c := range cookies {
		domain, ok := cookieDomain(u, c)
		if !ok || c.Name == "" {
			continue
		}
		if c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now)) {
			delete(s.index[domain], c.Name)
			continue
		}

		// The index key carries the domain; an empty Domain marks host-only.
		stored := *c
		stored.Domain = ""
		if strings.TrimPrefix(c.Domain, ".") != "" {
			stored.Domain = domain
		}
		stored.Raw = ""
		stored.Unparsed = nil
		if c.MaxAge > 0 {
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
			stored.MaxAge = 0
		}
		if stored.Path == "" {
			stored.Path = "/"
		}

		byName, ok := s.index[domain]
		if !ok {
			byName = make(map[string]http.Cookie)
			s.index[domain] = byName
		}
		byName[c.Name] = stored
	}
}

// Cookies implements http.CookieJar.
func (s *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jar.Cookies(u)
}

// AllCookies returns every unexpired cookie as a record.
func (s *CookieStore) AllCookies(_ context.Context) ([]entity.CookieRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var records []entity.CookieRecord
	for domain, byName := range s.index {
		for name, c := range byName {
			if !c.Expires.IsZero() && !c.Expires.After(now) {
				continue
			}
			records = append(records, entity.CookieRecord{
				Domain:     domain,
				Name:       name,
				Properties: cookieProperties(c),
			})
		}
	}
	return records, nil
}

// SetCookie installs a record on its domain. Records with host_only false
// are installed as domain cookies so subdomains see them again.
func (s *CookieStore) SetCookie(_ context.Context, record entity.CookieRecord) error {
	domain := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(record.Domain)), ".")
	if domain == "" || record.Name == "" {
		return fmt.Errorf("cookie needs a domain and a name")
	}

	c := cookieFromProperties(record.Name, record.Properties)
	if hostOnly, ok := record.Properties[entity.CookiePropHostOnly].(bool); ok && !hostOnly {
		c.Domain = domain
	}
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	u := &url.URL{Scheme: scheme, Host: domain, Path: c.Path}

	s.SetCookies(u, []*http.Cookie{c})
	return nil
}

func cookieDomain(u *url.URL, c *http.Cookie) (string, bool) {
	host := strings.ToLower(u.Hostname())
	domain := strings.TrimPrefix(strings.ToLower(c.Domain), ".")
	if domain == "" {
		return host, host != ""
	}
	if domain == host {
		return domain, true
	}
	if ps, _ := publicsuffix.PublicSuffix(domain); ps == domain {
		return "", false
	}
	if !strings.HasSuffix(host, "."+domain) {
		return "", false
	}
	return domain, true
}

func cookieProperties(c http.Cookie) map[string]any {
	props := map[string]any{
		entity.CookiePropValue:    c.Value,
		entity.CookiePropPath:     c.Path,
		entity.CookiePropSecure:   c.Secure,
		entity.CookiePropHTTPOnly: c.HttpOnly,
		entity.CookiePropHostOnly: c.Domain == "",
	}
	if !c.Expires.IsZero() {
		props[entity.CookiePropExpires] = c.Expires.UTC().Format(time.RFC3339)
	}
	switch c.SameSite {
	case http.SameSiteLaxMode:
		props[entity.CookiePropSameSite] = "lax"
	case http.SameSiteStrictMode:
		props[entity.CookiePropSameSite] = "strict"
	case http.SameSiteNoneMode:
		props[entity.CookiePropSameSite] = "none"
	}
	return props
}

func cookieFromProperties(name string, props map[string]any) *http.Cookie {
	c := &http.Cookie{Name: name, Path: "/"}

	if v, ok := props[entity.CookiePropValue].(string); ok {
		c.Value = v
	}
	if v, ok := props[entity.CookiePropPath].(string); ok && v != "" {
		c.Path = v
	}
	if v, ok := props[entity.CookiePropSecure].(bool); ok {
		c.Secure = v
	}
	if v, ok := props[entity.CookiePropHTTPOnly].(bool); ok {
		c.HttpOnly = v
	}
	c.Expires = parseExpires(props[entity.CookiePropExpires])

	if v, ok := props[entity.CookiePropSameSite].(string); ok {
		switch strings.ToLower(v) {
		case "lax":
			c.SameSite = http.SameSiteLaxMode
		case "strict":
			c.SameSite = http.SameSiteStrictMode
		case "none":
			c.SameSite = http.SameSiteNoneMode
		}
	}
	return c
}

func parseExpires(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, err := time.Parse(time.RFC3339, t); err == nil {
			return parsed
		}
	case float64:
		return time.Unix(int64(t), 0)
	case int64:
		return time.Unix(t, 0)
	}
	return time.Time{}
}
