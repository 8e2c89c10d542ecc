package errors

import "errors"

// Probe error taxonomy. Collectors never let these cross their public
// boundary: each catches and degrades its own result, but callers inside
// the scanner distinguish the categories with errors.Is, most importantly
// a policy block (never retried, never conflated with an unreachable host).
var (
	// ErrPolicyBlocked means the SSRF guard rejected the target before any
	// socket was opened.
	ErrPolicyBlocked = errors.New("target blocked by outbound network policy")

	// ErrUnreachable covers DNS failure, connection refusal, and timeouts.
	ErrUnreachable = errors.New("target unreachable")

	// ErrProtocol covers malformed responses, broken redirect chains, and
	// handshake failures.
	ErrProtocol = errors.New("protocol error")

	// ErrTooManyRedirects means a redirect chain exceeded the hop ceiling.
	ErrTooManyRedirects = errors.New("too many redirects")

	// ErrInvalidTarget means the raw scan input could not be normalized
	// into a host or URL at all.
	ErrInvalidTarget = errors.New("invalid scan target")
)
