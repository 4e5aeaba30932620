// Package url normalizes URLs typed on the command line.
package url

import (
	"net/url"
	"strings"
)

// Normalize adds an https:// prefix to bare host inputs such as
// "example.com/path". Inputs with an explicit scheme are returned trimmed.
func Normalize(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if hasScheme(input) {
		return input
	}
	if LooksLikeURL(input) {
		return "https://" + input
	}
	return input
}

// LooksLikeURL reports whether input is a URL or a bare host with a dot and no spaces.
func LooksLikeURL(input string) bool {
	if input == "" {
		return false
	}
	if hasScheme(input) {
		return true
	}
	return strings.Contains(input, ".") && !strings.ContainsAny(input, " \t")
}

// ExtractDomain returns the host of rawURL without port and without a
// leading "www." so example.com and www.example.com compare equal.
func ExtractDomain(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(parsed.Hostname()), "www.")
}

func hasScheme(input string) bool {
	switch {
	case strings.HasPrefix(input, "http://"),
		strings.HasPrefix(input, "https://"),
		strings.HasPrefix(input, "file://"),
		strings.HasPrefix(input, "about:"):
		return true
	}
	return false
}
