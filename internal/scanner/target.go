package scanner

import (
	"fmt"
	"net/url"
	"strings"

	errs "github.com/venrisk/posturescan/internal/shared/errors"
)

// ScanTarget is the normalized form of a raw scan input.
type ScanTarget struct {
	Original string // raw input as given
	Scheme   string // http or https
	Host     string // hostname without port
	Port     string // explicit port, if any
	BaseURL  string // scheme://host[:port], no path
}

// ParseTarget normalizes a bare hostname or full URL into a ScanTarget.
// When no scheme is given, https is assumed. Handles the usual input
// shapes:
//   - vendor.example.com
//   - vendor.example.com:8443
//   - http://vendor.example.com/some/path
func ParseTarget(raw string) (*ScanTarget, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errs.ErrInvalidTarget
	}

	parsed, err := url.Parse(trimmed)
	// A scheme containing dots means url.Parse mistook "host:port" or a bare
	// domain for a scheme-qualified URL; reparse with the default scheme.
	if err != nil || parsed.Scheme == "" || strings.Contains(parsed.Scheme, ".") || parsed.Host == "" {
		parsed, err = url.Parse("https://" + trimmed)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", errs.ErrInvalidTarget, raw)
		}
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", errs.ErrInvalidTarget, parsed.Scheme)
	}
	if parsed.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidTarget, raw)
	}

	target := &ScanTarget{
		Original: raw,
		Scheme:   parsed.Scheme,
		Host:     parsed.Hostname(),
		Port:     parsed.Port(),
	}

	hostport := target.Host
	if target.Port != "" {
		hostport = target.Host + ":" + target.Port
	}
	target.BaseURL = target.Scheme + "://" + hostport

	return target, nil
}

// URL joins a candidate path onto the target's base URL.
func (t *ScanTarget) URL(path string) string {
	if path == "" {
		return t.BaseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.BaseURL + path
}

// TLSPort returns the port to use for TLS inspection.
func (t *ScanTarget) TLSPort() string {
	if t.Port != "" {
		return t.Port
	}
	return "443"
}
