package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/venrisk/posturescan/internal/shared/constants"
)

// TLSInfo reports the TLS health of a target.
type TLSInfo struct {
	Enabled bool   `json:"enabled"`
	Issuer  string `json:"issuer,omitempty"`

	// Expiry is nil when no handshake completed, so degraded results
	// omit it instead of serializing the zero time.
	Expiry               *time.Time `json:"expiry,omitempty"`
	DaysUntilExpiry      int        `json:"days_until_expiry"`
	Grade                string     `json:"grade"`
	HTTPRedirectsToHTTPS bool       `json:"http_redirects_to_https"`
}

// Inspector opens a raw TLS connection to the target, extracts the leaf
// certificate, and computes a coarse reproducible grade. It also probes
// plain HTTP to see whether the host upgrades to HTTPS.
type Inspector struct {
	Guard   *Guard
	Fetcher *Fetcher // used for the port-80 redirect probe
	Log     *zap.SugaredLogger

	// InsecureSkipChainVerify disables certificate-chain validation during
	// the handshake. Off by default; the override exists for known
	// self-signed external targets and is loudly logged whenever active.
	// The grade still reflects whether the chain actually verifies.
	InsecureSkipChainVerify bool

	// RootCAs overrides the trust store. Tests inject a locally generated
	// certificate here; nil means system roots.
	RootCAs *x509.CertPool

	// HandshakeTimeout bounds dial plus handshake. Zero means the default.
	HandshakeTimeout time.Duration

	// HTTPPort is the plain-HTTP port probed for the HTTPS upgrade check.
	// Empty means 80; tests point it at an httptest listener.
	HTTPPort string
}

// Inspect connects to host:port over TLS and reports certificate health.
// Every socket or handshake failure degrades to the disabled result; this
// is best-effort probing of an arbitrary third party.
func (i *Inspector) Inspect(ctx context.Context, host, port string) TLSInfo {
	info := TLSInfo{Enabled: false, Grade: "N/A"}

	if err := i.Guard.ValidateHost(ctx, host); err != nil {
		i.warn("tls inspection blocked or unreachable", host, err)
		return info
	}

	timeout := i.HandshakeTimeout
	if timeout <= 0 {
		timeout = constants.DefaultTLSHandshakeTimeout
	}

	if i.InsecureSkipChainVerify {
		i.warnLoud(host)
	}

	cfg := &tls.Config{
		ServerName:         serverName(host),
		InsecureSkipVerify: i.InsecureSkipChainVerify,
		RootCAs:            i.RootCAs,
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", net.JoinHostPort(host, port), cfg)
	if err != nil {
		i.warn("tls handshake failed", host, err)
		info.HTTPRedirectsToHTTPS = i.checkHTTPRedirect(ctx, host)
		return info
	}
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		info.HTTPRedirectsToHTTPS = i.checkHTTPRedirect(ctx, host)
		return info
	}
	leaf := state.PeerCertificates[0]

	// With verification on, a completed handshake already proved the
	// chain. With the override active the handshake proves nothing, so
	// authorization is recomputed manually against the trust store.
	authorized := true
	if i.InsecureSkipChainVerify {
		authorized = i.verifyChain(host, state.PeerCertificates)
	}

	now := time.Now()
	info.Enabled = true
	info.Issuer = issuerName(leaf)
	expiry := leaf.NotAfter
	info.Expiry = &expiry
	info.DaysUntilExpiry = daysUntil(leaf.NotAfter, now)
	info.Grade = certGrade(authorized, info.DaysUntilExpiry)
	info.HTTPRedirectsToHTTPS = i.checkHTTPRedirect(ctx, host)

	return info
}

// certGrade is a pure function of chain authorization and days until
// expiry: unauthorized or expired F, expiring within the warn window C,
// otherwise A.
func certGrade(authorized bool, daysUntilExpiry int) string {
	switch {
	case !authorized:
		return "F"
	case daysUntilExpiry < 0:
		return "F"
	case daysUntilExpiry < constants.CertExpiryWarnDays:
		return "C"
	default:
		return "A"
	}
}

// daysUntil floors, so a certificate expired by any amount under a day is
// already day -1, and one expiring later today is day 0.
func daysUntil(expiry, now time.Time) int {
	return int(math.Floor(expiry.Sub(now).Seconds() / 86400))
}

// issuerName prefers the issuer CN and falls back to its organization.
func issuerName(cert *x509.Certificate) string {
	if cert.Issuer.CommonName != "" {
		return cert.Issuer.CommonName
	}
	if len(cert.Issuer.Organization) > 0 {
		return strings.Join(cert.Issuer.Organization, ", ")
	}
	return cert.Issuer.String()
}

func (i *Inspector) verifyChain(host string, certs []*x509.Certificate) bool {
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}
	_, err := certs[0].Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         i.RootCAs,
		Intermediates: intermediates,
	})
	return err == nil
}

// checkHTTPRedirect probes plain HTTP on port 80 with a single HEAD and
// reports whether it answers with a redirect straight to HTTPS. Any
// failure resolves to false.
func (i *Inspector) checkHTTPRedirect(ctx context.Context, host string) bool {
	probeURL := "http://" + host
	if i.HTTPPort != "" && i.HTTPPort != "80" {
		probeURL = "http://" + net.JoinHostPort(host, i.HTTPPort)
	}
	res, err := i.Fetcher.Fetch(ctx, probeURL, FetchOptions{
		Method:   http.MethodHead,
		NoFollow: true,
	})
	if err != nil {
		return false
	}
	if res.StatusCode < 300 || res.StatusCode >= 400 {
		return false
	}
	return strings.HasPrefix(res.Header.Get("Location"), "https://")
}

// serverName strips anything SNI cannot carry (IP literals).
func serverName(host string) string {
	if net.ParseIP(host) != nil {
		return ""
	}
	return host
}

func (i *Inspector) warn(msg, host string, err error) {
	if i.Log != nil {
		i.Log.Warnw(msg, "host", host, "error", err)
	}
}

func (i *Inspector) warnLoud(host string) {
	if i.Log != nil {
		i.Log.Warnw("TLS CERTIFICATE CHAIN VALIDATION IS DISABLED for this inspection; results do not attest chain trust", "host", host)
	}
}
