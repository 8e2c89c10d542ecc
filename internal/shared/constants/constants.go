package constants

import "time"

const (
	// DefaultFetchTimeout bounds a single outbound HTTP request.
	DefaultFetchTimeout = 10 * time.Second
	// DefaultTLSHandshakeTimeout bounds a raw TLS handshake against the target.
	DefaultTLSHandshakeTimeout = 10 * time.Second
	// ComplianceFanOutDeadline caps the whole concurrent path-probe phase.
	// It is a soft deadline: slow probes are abandoned, not cancelled.
	ComplianceFanOutDeadline = 25 * time.Second
)

const (
	// MaxRedirectHops is the redirect-chain ceiling per fetch.
	MaxRedirectHops = 3
	// ComplianceBodyLimitBytes caps bodies read by compliance path probes.
	ComplianceBodyLimitBytes = 300 * 1024
	// ProbeBodyLimitBytes caps bodies read by web-presence and header probes.
	ProbeBodyLimitBytes = 500 * 1024
)

const (
	// MinClassifiablePageBytes filters out generic placeholder pages: a probe
	// body shorter than this is never classified as trust or privacy content.
	MinClassifiablePageBytes = 500
	// MinBountyPageBytes is the minimum body length for a bug-bounty probe
	// response to count as a real page.
	MinBountyPageBytes = 100
	// CertExpiryWarnDays is the expiry window that downgrades a TLS grade to C.
	CertExpiryWarnDays = 30
)

const (
	// DefaultRateLimit is the per-second ceiling on outbound requests per scan.
	DefaultRateLimit = 20
	// DefaultUserAgent identifies the scanner to probed hosts.
	DefaultUserAgent = "posturescan/1.0 (+https://github.com/venrisk/posturescan)"
)
