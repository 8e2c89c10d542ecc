package scanner

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// WebPresenceInfo summarizes what a vendor's public root page reveals.
type WebPresenceInfo struct {
	Accessible        bool   `json:"accessible"`
	StatusCode        int    `json:"status_code,omitempty"`
	Title             string `json:"title,omitempty"`
	HasContactInfo    bool   `json:"has_contact_info"`
	ContactEmail      string `json:"contact_email,omitempty"`
	HasPrivacyPolicy  bool   `json:"has_privacy_policy"`
	PrivacyPolicyURL  string `json:"privacy_policy_url,omitempty"`
	HasTermsOfService bool   `json:"has_terms_of_service"`
}

var (
	emailPattern       = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	privacyHrefPattern = regexp.MustCompile(`(?i)privacy`)
	termsHrefPattern   = regexp.MustCompile(`(?i)terms([-_/]?of[-_/]?(service|use))?|(^|/)tos($|[/.?])`)
)

// WebProber fetches the root page and extracts presence signals with
// lightweight heuristics. These are best-effort: the compliance scanner
// performs the authoritative multi-path privacy check.
type WebProber struct {
	Fetcher *Fetcher
	Log     *zap.SugaredLogger
}

// Collect GETs the root of targetURL and classifies its contents. Fetch
// failures degrade to an inaccessible result, never an error.
func (p *WebProber) Collect(ctx context.Context, targetURL string) WebPresenceInfo {
	info := WebPresenceInfo{}

	res, err := p.Fetcher.Fetch(ctx, targetURL, FetchOptions{})
	if err != nil {
		if p.Log != nil {
			p.Log.Warnw("web presence probe failed", "url", targetURL, "error", err)
		}
		return info
	}

	info.StatusCode = res.StatusCode
	info.Accessible = res.StatusCode >= 200 && res.StatusCode < 400

	lower := strings.ToLower(res.Body)

	if email := emailPattern.FindString(res.Body); email != "" {
		info.HasContactInfo = true
		info.ContactEmail = email
	} else if strings.Contains(lower, "contact") || strings.Contains(lower, "mailto:") {
		info.HasContactInfo = true
	}

	page := parsePage(res.Body, res.FinalURL)
	info.Title = page.title

	if page.privacyHref != "" {
		info.HasPrivacyPolicy = true
		info.PrivacyPolicyURL = page.privacyHref
	} else if strings.Contains(lower, "privacy policy") {
		info.HasPrivacyPolicy = true
	}

	if page.termsHref != "" || strings.Contains(lower, "terms of service") || strings.Contains(lower, "terms of use") {
		info.HasTermsOfService = true
	}

	return info
}

// pageSignals is what one pass over the parsed HTML yields.
type pageSignals struct {
	title       string
	privacyHref string // absolute, first match
	termsHref   string // absolute, first match
}

// parsePage walks the HTML tree once, picking up the first <title> and the
// first privacy- and terms-looking anchors, resolved against baseURL.
// html.Parse is tolerant of broken markup and never fails on real pages.
func parsePage(body, baseURL string) pageSignals {
	var signals pageSignals

	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return signals
	}
	base, _ := url.Parse(baseURL)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if signals.title == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					signals.title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "a":
				href := attrValue(n, "href")
				if href != "" && !strings.HasPrefix(href, "#") && !strings.HasPrefix(href, "javascript:") {
					if signals.privacyHref == "" && privacyHrefPattern.MatchString(href) {
						signals.privacyHref = resolveHref(base, href)
					}
					if signals.termsHref == "" && termsHrefPattern.MatchString(href) {
						signals.termsHref = resolveHref(base, href)
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return signals
}

func attrValue(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

// resolveHref makes href absolute against base; a relative href with no
// usable base is returned as-is rather than dropped.
func resolveHref(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	if base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
