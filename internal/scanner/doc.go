// Package scanner probes a vendor's public domain for security and
// compliance posture signals without credentials.
//
// Architecture overview:
//
//   - Guard validates every outbound destination before any socket is
//     opened, blocking private, loopback, link-local, and metadata
//     address space (SSRF defense). The initial fetch, every redirect
//     hop, and every raw TLS dial pass through it.
//   - Fetcher performs one bounded HTTP request: per-request timeout,
//     capped body, and an explicit hop-counted redirect loop.
//   - Inspector, HeadersAnalyzer, WebProber, and ComplianceScanner are
//     the four collectors. Each degrades its own failures to default
//     results with a warning log; probing an unreachable or blocked
//     domain still completes with weaker signals.
//   - Scanner runs the four collectors in parallel and merges them into
//     a Report for the caller to persist or present.
//
// The compliance scanner is the involved part: it fans out one fetch per
// fixed candidate path, races the whole batch against a single shared
// soft deadline, and classifies whatever completed in candidate order so
// results are reproducible given identical server responses.
package scanner
