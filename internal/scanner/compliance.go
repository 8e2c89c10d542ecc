package scanner

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/venrisk/posturescan/internal/shared/constants"
)

// ComplianceIndicators are the public compliance signals discovered for a
// vendor domain. Every boolean is positive-evidence-only: false means
// "not observed", never "confirmed absent".
type ComplianceIndicators struct {
	HasTrustPortal      bool   `json:"has_trust_portal"`
	TrustPortalURL      string `json:"trust_portal_url,omitempty"`
	TrustPortalProvider string `json:"trust_portal_provider,omitempty"`

	HasSOC2     bool   `json:"has_soc2"`
	SOC2Type    string `json:"soc2_type,omitempty"`
	HasISO27001 bool   `json:"has_iso27001"`
	HasGDPR     bool   `json:"has_gdpr"`
	HasHIPAA    bool   `json:"has_hipaa"`
	HasPCIDSS   bool   `json:"has_pci_dss"`

	// Certifications is deduplicated and insertion-ordered.
	Certifications []string `json:"certifications,omitempty"`

	HasSecurityWhitepaper bool   `json:"has_security_whitepaper"`
	HasBugBounty          bool   `json:"has_bug_bounty"`
	BugBountyURL          string `json:"bug_bounty_url,omitempty"`
	HasPrivacyPolicy      bool   `json:"has_privacy_policy"`
	PrivacyPolicyURL      string `json:"privacy_policy_url,omitempty"`
}

func (c *ComplianceIndicators) addCertification(label string) {
	for _, existing := range c.Certifications {
		if existing == label {
			return
		}
	}
	c.Certifications = append(c.Certifications, label)
}

// ComplianceScanner probes a vendor's public compliance surface: the root
// page, a fixed set of trust-portal and privacy-policy paths fanned out
// concurrently under one shared soft deadline, and a short sequential
// bug-bounty list.
type ComplianceScanner struct {
	Fetcher *Fetcher
	Log     *zap.SugaredLogger

	// FanOutDeadline caps the whole concurrent path-probe phase. It is a
	// wall-clock ceiling shared by the batch, not a per-request timeout:
	// when it elapses, classification proceeds with whatever finished and
	// in-flight probes are abandoned to their own timeouts. Zero means
	// constants.ComplianceFanOutDeadline.
	FanOutDeadline time.Duration

	// BodyLimit caps each probe body. Zero means
	// constants.ComplianceBodyLimitBytes.
	BodyLimit int64
}

// Collect runs the full compliance probe against target. It never fails
// the enclosing scan: any panic is caught once here, logged at warning
// level, and the partial result is returned.
func (s *ComplianceScanner) Collect(ctx context.Context, target *ScanTarget) (indicators ComplianceIndicators) {
	defer func() {
		if r := recover(); r != nil {
			if s.Log != nil {
				s.Log.Warnw("compliance scan aborted, returning partial result", "host", target.Host, "panic", r)
			}
		}
	}()

	bodyLimit := s.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = constants.ComplianceBodyLimitBytes
	}

	s.analyzeRoot(ctx, target, bodyLimit, &indicators)

	completed := s.probeCandidates(ctx, target, bodyLimit)
	s.classify(completed, &indicators)

	s.probeBugBounty(ctx, target, bodyLimit, &indicators)

	return indicators
}

// analyzeRoot fetches the landing page and mines it for certification
// claims and whitepaper / bug-bounty mentions.
func (s *ComplianceScanner) analyzeRoot(ctx context.Context, target *ScanTarget, bodyLimit int64, indicators *ComplianceIndicators) {
	res, err := s.Fetcher.Fetch(ctx, target.BaseURL, FetchOptions{MaxBodyBytes: bodyLimit})
	if err != nil {
		if s.Log != nil {
			s.Log.Warnw("compliance root fetch failed", "host", target.Host, "error", err)
		}
		return
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return
	}
	analyzePageContent(strings.ToLower(res.Body), indicators)
}

// probeCandidates fans out one fetch per candidate path and races the
// batch against the shared soft deadline. The returned slice is indexed
// by candidate declaration order; nil entries did not complete in time.
func (s *ComplianceScanner) probeCandidates(ctx context.Context, target *ScanTarget, bodyLimit int64) []*FetchResult {
	deadline := s.FanOutDeadline
	if deadline <= 0 {
		deadline = constants.ComplianceFanOutDeadline
	}

	results := make([]*FetchResult, len(complianceCandidates))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for idx, cand := range complianceCandidates {
		wg.Add(1)
		go func(idx int, cand pathCandidate) {
			defer wg.Done()
			res, err := s.Fetcher.Fetch(ctx, target.URL(cand.Path), FetchOptions{MaxBodyBytes: bodyLimit})
			if err != nil {
				return
			}
			mu.Lock()
			results[idx] = res
			mu.Unlock()
		}(idx, cand)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		if s.Log != nil {
			s.Log.Warnw("compliance fan-out deadline elapsed, classifying completed probes only",
				"host", target.Host, "deadline", deadline)
		}
	case <-ctx.Done():
	}

	// Snapshot under the lock: abandoned goroutines may still be writing.
	mu.Lock()
	snapshot := make([]*FetchResult, len(results))
	copy(snapshot, results)
	mu.Unlock()
	return snapshot
}

// classify walks completed probes in candidate-declaration order so that
// "first match wins" is reproducible regardless of fetch completion order.
// The loop deliberately never exits early: trust-tagged pages after the
// first still feed certification and whitepaper analysis.
func (s *ComplianceScanner) classify(completed []*FetchResult, indicators *ComplianceIndicators) {
	for idx, cand := range complianceCandidates {
		res := completed[idx]
		if res == nil || res.StatusCode < 200 || res.StatusCode >= 300 {
			continue
		}
		// Short bodies are almost always catch-all 200 placeholder pages.
		if len(res.Body) < constants.MinClassifiablePageBytes {
			continue
		}

		lower := strings.ToLower(res.Body)

		switch cand.Purpose {
		case purposeTrust:
			if !containsAny(lower, trustKeywords) {
				continue
			}
			if !indicators.HasTrustPortal {
				indicators.HasTrustPortal = true
				indicators.TrustPortalURL = res.FinalURL
			}
			analyzePageContent(lower, indicators)
			if indicators.TrustPortalProvider == "" {
				indicators.TrustPortalProvider = matchTrustProvider(lower, strings.ToLower(res.FinalURL))
			}
		case purposePrivacy:
			if indicators.HasPrivacyPolicy || !containsAny(lower, privacyKeywords) {
				continue
			}
			indicators.HasPrivacyPolicy = true
			indicators.PrivacyPolicyURL = res.FinalURL
		}
	}
}

// probeBugBounty checks the fixed disclosure locations one at a time,
// stopping at the first response that looks like a real page. Failures
// are swallowed and probing continues with the next candidate.
func (s *ComplianceScanner) probeBugBounty(ctx context.Context, target *ScanTarget, bodyLimit int64, indicators *ComplianceIndicators) {
	for _, path := range bountyCandidates {
		res, err := s.Fetcher.Fetch(ctx, target.URL(path), FetchOptions{MaxBodyBytes: bodyLimit})
		if err != nil || res.StatusCode < 200 || res.StatusCode >= 300 {
			continue
		}
		if len(res.Body) > constants.MinBountyPageBytes {
			indicators.HasBugBounty = true
			indicators.BugBountyURL = res.FinalURL
			return
		}
	}
}

// analyzePageContent applies the certification pattern table plus the
// whitepaper and bug-bounty mention checks to one page. Family
// exclusivity is per page: "SOC 2 Type II" on a page suppresses the
// page's own generic "SOC 2" match, while a different page may still
// contribute other labels.
func analyzePageContent(lowerBody string, indicators *ComplianceIndicators) {
	matchedFamilies := make(map[string]bool)
	for _, pattern := range certPatterns {
		if pattern.Family != "" && matchedFamilies[pattern.Family] {
			continue
		}
		if !containsAny(lowerBody, pattern.Keywords) {
			continue
		}
		if pattern.Family != "" {
			matchedFamilies[pattern.Family] = true
		}
		if pattern.Apply != nil {
			pattern.Apply(indicators)
		}
		indicators.addCertification(pattern.Label)
	}

	if containsAny(lowerBody, whitepaperKeywords) {
		indicators.HasSecurityWhitepaper = true
	}
	if containsAny(lowerBody, bountyKeywords) {
		indicators.HasBugBounty = true
	}
}

// matchTrustProvider returns the first provider whose signature appears
// in the page body or its URL.
func matchTrustProvider(lowerBody, lowerURL string) string {
	for _, provider := range trustProviders {
		if strings.Contains(lowerBody, provider.Keyword) || strings.Contains(lowerURL, provider.Keyword) {
			return provider.Name
		}
	}
	return ""
}
