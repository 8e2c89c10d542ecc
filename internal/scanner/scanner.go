package scanner

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/venrisk/posturescan/internal/config"
)

// Report merges the four collector results for one scan invocation.
// Everything in it is produced fresh per scan; nothing is cached between
// calls.
type Report struct {
	Target          string               `json:"target"`
	ScannedAt       time.Time            `json:"scanned_at"`
	TLS             TLSInfo              `json:"tls"`
	SecurityHeaders SecurityHeaders      `json:"security_headers"`
	MissingHeaders  []string             `json:"missing_headers,omitempty"`
	WebPresence     WebPresenceInfo      `json:"web_presence"`
	Compliance      ComplianceIndicators `json:"compliance"`
}

// Scanner runs the four posture collectors against one vendor domain. The
// collectors share no mutable state, so they run fully in parallel; a
// degraded or unreachable target produces weaker signals, never a failed
// scan.
type Scanner struct {
	TLS        *Inspector
	Headers    *HeadersAnalyzer
	Web        *WebProber
	Compliance *ComplianceScanner
	Log        *zap.SugaredLogger
}

// New wires a Scanner from configuration: one SSRF guard and one
// rate-limited fetcher shared by every collector.
func New(cfg *config.Config, log *zap.SugaredLogger) *Scanner {
	if cfg == nil {
		cfg = config.Default()
	}

	guard := &Guard{}
	limiter := rate.NewLimiter(rate.Limit(cfg.Scan.RateLimit), cfg.Scan.RateLimit)
	fetcher := &Fetcher{
		Guard:        guard,
		Limiter:      limiter,
		UserAgent:    cfg.Scan.UserAgent,
		Log:          log,
		FetchTimeout: cfg.Scan.FetchTimeout,
		MaxBodyBytes: cfg.Scan.ProbeBodyLimit,
		MaxRedirects: cfg.Scan.MaxRedirects,
	}

	return &Scanner{
		TLS: &Inspector{
			Guard:                   guard,
			Fetcher:                 fetcher,
			Log:                     log,
			InsecureSkipChainVerify: !cfg.TLS.VerifyChain,
			HandshakeTimeout:        cfg.TLS.HandshakeTimeout,
		},
		Headers: &HeadersAnalyzer{Fetcher: fetcher, Log: log},
		Web:     &WebProber{Fetcher: fetcher, Log: log},
		Compliance: &ComplianceScanner{
			Fetcher:        fetcher,
			Log:            log,
			FanOutDeadline: cfg.Scan.FanOutDeadline,
			BodyLimit:      cfg.Scan.ComplianceLimit,
		},
		Log: log,
	}
}

// Scan probes rawTarget (bare hostname or URL, https assumed) and returns
// the merged report. The only error condition is an input that cannot be
// normalized into a target at all; every network-level failure degrades
// inside its collector.
func (s *Scanner) Scan(ctx context.Context, rawTarget string) (*Report, error) {
	target, err := ParseTarget(rawTarget)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Target:    target.BaseURL,
		ScannedAt: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		report.TLS = s.TLS.Inspect(ctx, target.Host, target.TLSPort())
	}()
	go func() {
		defer wg.Done()
		report.SecurityHeaders, report.MissingHeaders = s.Headers.Collect(ctx, target.BaseURL)
	}()
	go func() {
		defer wg.Done()
		report.WebPresence = s.Web.Collect(ctx, target.BaseURL)
	}()
	go func() {
		defer wg.Done()
		report.Compliance = s.Compliance.Collect(ctx, target)
	}()

	wg.Wait()

	if s.Log != nil {
		s.Log.Infow("posture scan complete",
			"target", target.BaseURL,
			"tls_grade", report.TLS.Grade,
			"missing_headers", len(report.MissingHeaders),
			"trust_portal", report.Compliance.HasTrustPortal,
		)
	}
	return report, nil
}
