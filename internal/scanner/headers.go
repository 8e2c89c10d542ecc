package scanner

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// securityHeaderSpec names one recognized response header. Baseline
// headers are expected on any hardened site and their absence is
// reported; advisory headers are recorded when present but never flagged.
type securityHeaderSpec struct {
	Canonical string
	Baseline  bool
}

// recognizedHeaders is ordered: missing baseline headers are reported in
// this declaration order.
var recognizedHeaders = []securityHeaderSpec{
	{Canonical: "Strict-Transport-Security", Baseline: true},
	{Canonical: "Content-Security-Policy", Baseline: true},
	{Canonical: "X-Frame-Options", Baseline: true},
	{Canonical: "X-Content-Type-Options", Baseline: true},
	{Canonical: "X-XSS-Protection"},
	{Canonical: "Referrer-Policy"},
	{Canonical: "Permissions-Policy"},
}

// SecurityHeaders is the sparse map of recognized header names to their
// observed values.
type SecurityHeaders map[string]string

// HeadersAnalyzer issues one HEAD request and maps the recognized
// security headers.
type HeadersAnalyzer struct {
	Fetcher *Fetcher
	Log     *zap.SugaredLogger
}

// Collect returns the recognized headers present on targetURL and the
// baseline headers absent from it, in canonical order. An unreachable or
// blocked target yields an empty map and no missing list: absence is only
// asserted from an actual response.
func (a *HeadersAnalyzer) Collect(ctx context.Context, targetURL string) (SecurityHeaders, []string) {
	headers := SecurityHeaders{}

	res, err := a.Fetcher.Fetch(ctx, targetURL, FetchOptions{Method: http.MethodHead})
	if err != nil {
		if a.Log != nil {
			a.Log.Warnw("security header probe failed", "url", targetURL, "error", err)
		}
		return headers, nil
	}

	var missing []string
	for _, spec := range recognizedHeaders {
		values := res.Header.Values(spec.Canonical)
		if len(values) > 0 {
			headers[spec.Canonical] = strings.Join(values, ", ")
		} else if spec.Baseline {
			missing = append(missing, spec.Canonical)
		}
	}
	return headers, missing
}
