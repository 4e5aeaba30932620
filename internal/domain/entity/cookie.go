package entity

import (
	"sort"
	"strings"
)

// Cookie property keys used when exchanging cookies with a live store.
const (
	CookiePropValue    = "value"
	CookiePropPath     = "path"
	CookiePropExpires  = "expires"
	CookiePropSecure   = "secure"
	CookiePropHTTPOnly = "http_only"
	CookiePropSameSite = "same_site"
	// CookiePropHostOnly is false for cookies set with a Domain attribute,
	// which also match subdomains. Records without it are host-only.
	CookiePropHostOnly = "host_only"
)

// CookieRecord is one cookie as exchanged between a live cookie store and the jar.
type CookieRecord struct {
	Domain     string         `json:"domain"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

// Value returns the cookie value property, or "" when absent.
func (c CookieRecord) Value() string {
	v, _ := c.Properties[CookiePropValue].(string)
	return v
}

// CookieJar groups cookies by domain, then by name.
// Writing an existing (domain, name) pair replaces the prior record.
type CookieJar map[string]map[string]CookieRecord

// NewCookieJar groups the given records. Later records win on conflicts.
func NewCookieJar(records []CookieRecord) CookieJar {
	jar := make(CookieJar)
	for _, r := range records {
		jar.Put(r)
	}
	return jar
}

// Put stores a record, overwriting any cookie with the same domain and name.
// Records without a domain or name are ignored.
func (j CookieJar) Put(r CookieRecord) {
	domain := strings.ToLower(strings.TrimSpace(r.Domain))
	if domain == "" || r.Name == "" {
		return
	}
	r.Domain = domain
	if r.Properties == nil {
		r.Properties = map[string]any{}
	}
	byName, ok := j[domain]
	if !ok {
		byName = make(map[string]CookieRecord)
		j[domain] = byName
	}
	byName[r.Name] = r
}

// Get returns the cookie stored for domain and name.
func (j CookieJar) Get(domain, name string) (CookieRecord, bool) {
	r, ok := j[strings.ToLower(domain)][name]
	return r, ok
}

// Len returns the number of cookies across all domains.
func (j CookieJar) Len() int {
	n := 0
	for _, byName := range j {
		n += len(byName)
	}
	return n
}

// Domains returns the grouped domains in sorted order.
func (j CookieJar) Domains() []string {
	domains := make([]string, 0, len(j))
	for d := range j {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}

// Flatten returns every record ordered by domain then name.
func (j CookieJar) Flatten() []CookieRecord {
	records := make([]CookieRecord, 0, j.Len())
	for _, domain := range j.Domains() {
		names := make([]string, 0, len(j[domain]))
		for name := range j[domain] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			records = append(records, j[domain][name])
		}
	}
	return records
}
