package scanner

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	errs "github.com/venrisk/posturescan/internal/shared/errors"
)

// metadataHosts are cloud metadata endpoints that must never be reached,
// whatever they happen to resolve to.
var metadataHosts = map[string]struct{}{
	"169.254.169.254":          {},
	"metadata.google.internal": {},
	"metadata":                 {},
}

// blockedCIDRs covers loopback, RFC1918, link-local, CGNAT, and their IPv6
// equivalents. net.IP helpers catch most of these; the explicit table keeps
// the policy reviewable in one place.
var blockedCIDRs = func() []*net.IPNet {
	cidrs := []string{
		"127.0.0.0/8",
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"169.254.0.0/16",
		"100.64.0.0/10",
		"0.0.0.0/8",
		"::1/128",
		"fc00::/7",
		"fe80::/10",
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, n, _ := net.ParseCIDR(c)
		nets = append(nets, n)
	}
	return nets
}()

// Guard validates outbound destinations before any socket is opened,
// blocking requests that would land inside private, loopback, link-local,
// or metadata address space. Every fetch, every redirect hop, and every
// raw TLS dial goes through it.
type Guard struct {
	// LookupIP resolves a hostname to its addresses. Nil means the default
	// resolver; tests substitute scripted answers.
	LookupIP func(ctx context.Context, host string) ([]net.IPAddr, error)

	// AllowPrivate disables the policy entirely. It exists so test
	// fixtures can probe httptest servers on 127.0.0.1 and must never be
	// set in production use.
	AllowPrivate bool

	// ResolveTimeout bounds hostname resolution. Zero means 5s.
	ResolveTimeout time.Duration
}

// ValidateHost checks that host (an IP literal or a DNS name) does not land
// on a blocked address. DNS names are resolved and every returned address
// must pass. The returned error wraps errs.ErrPolicyBlocked on rejection,
// and errs.ErrUnreachable when the name does not resolve at all.
func (g *Guard) ValidateHost(ctx context.Context, host string) error {
	if g.AllowPrivate {
		return nil
	}

	lowered := strings.ToLower(strings.TrimSuffix(host, "."))
	if lowered == "localhost" || strings.HasSuffix(lowered, ".localhost") || strings.HasSuffix(lowered, ".internal") {
		return fmt.Errorf("%w: %s is a local hostname", errs.ErrPolicyBlocked, host)
	}
	if _, ok := metadataHosts[lowered]; ok {
		return fmt.Errorf("%w: %s is a metadata service", errs.ErrPolicyBlocked, host)
	}

	if ip := net.ParseIP(lowered); ip != nil {
		return g.validateIP(host, ip)
	}

	timeout := g.ResolveTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	resolveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	lookup := g.LookupIP
	if lookup == nil {
		lookup = net.DefaultResolver.LookupIPAddr
	}
	addrs, err := lookup(resolveCtx, lowered)
	if err != nil {
		return fmt.Errorf("%w: resolve %s: %v", errs.ErrUnreachable, host, err)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("%w: %s has no addresses", errs.ErrUnreachable, host)
	}

	// All resolved addresses must be public. A name with one private A
	// record is treated as hostile (DNS-rebinding style split answers).
	for _, addr := range addrs {
		if err := g.validateIP(host, addr.IP); err != nil {
			return err
		}
	}
	return nil
}

// ValidateURL parses rawURL and validates its host.
func (g *Guard) ValidateURL(ctx context.Context, rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Hostname() == "" {
		return fmt.Errorf("%w: %q", errs.ErrInvalidTarget, rawURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q", errs.ErrPolicyBlocked, parsed.Scheme)
	}
	return g.ValidateHost(ctx, parsed.Hostname())
}

func (g *Guard) validateIP(host string, ip net.IP) error {
	switch {
	case ip.IsLoopback():
		return fmt.Errorf("%w: %s resolves to loopback %s", errs.ErrPolicyBlocked, host, ip)
	case ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast():
		return fmt.Errorf("%w: %s resolves to link-local %s", errs.ErrPolicyBlocked, host, ip)
	case ip.IsPrivate():
		return fmt.Errorf("%w: %s resolves to private %s", errs.ErrPolicyBlocked, host, ip)
	case ip.IsMulticast():
		return fmt.Errorf("%w: %s resolves to multicast %s", errs.ErrPolicyBlocked, host, ip)
	case ip.IsUnspecified():
		return fmt.Errorf("%w: %s resolves to unspecified %s", errs.ErrPolicyBlocked, host, ip)
	}
	for _, n := range blockedCIDRs {
		if n.Contains(ip) {
			return fmt.Errorf("%w: %s resolves to blocked range %s (%s)", errs.ErrPolicyBlocked, host, ip, n)
		}
	}
	return nil
}
