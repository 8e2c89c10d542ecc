package scanner

import "strings"

// Pattern tables for compliance classification. Kept as ordered static
// data so matching stays declarative and independently testable.

// certPattern maps lowercase keywords to a certification label and its
// effect on the indicators. Entries sharing a Family are mutually
// exclusive, most specific first: once one member matches a page, later
// members of the same family are skipped for that page.
type certPattern struct {
	Label    string
	Family   string
	Keywords []string
	Apply    func(*ComplianceIndicators)
}

var certPatterns = []certPattern{
	{
		Label:    "SOC 2 Type II",
		Family:   "soc2",
		Keywords: []string{"soc 2 type ii", "soc2 type ii", "soc 2 type 2", "soc2 type 2"},
		Apply: func(c *ComplianceIndicators) {
			c.HasSOC2 = true
			c.SOC2Type = "Type II"
		},
	},
	{
		Label:    "SOC 2 Type I",
		Family:   "soc2",
		Keywords: []string{"soc 2 type i", "soc2 type i", "soc 2 type 1", "soc2 type 1"},
		Apply: func(c *ComplianceIndicators) {
			c.HasSOC2 = true
			// A Type II claim seen on another page is the stronger signal.
			if c.SOC2Type == "" {
				c.SOC2Type = "Type I"
			}
		},
	},
	{
		Label:    "SOC 2",
		Family:   "soc2",
		Keywords: []string{"soc 2", "soc2", "soc-2"},
		Apply: func(c *ComplianceIndicators) {
			c.HasSOC2 = true
		},
	},
	{
		Label:    "ISO 27001",
		Keywords: []string{"iso 27001", "iso27001", "iso/iec 27001", "iso-27001"},
		Apply: func(c *ComplianceIndicators) {
			c.HasISO27001 = true
		},
	},
	{
		// Label-only: the privacy extension has no dedicated flag.
		Label:    "ISO 27701",
		Keywords: []string{"iso 27701", "iso27701", "iso/iec 27701"},
	},
	{
		Label:    "GDPR",
		Keywords: []string{"gdpr", "general data protection regulation"},
		Apply: func(c *ComplianceIndicators) {
			c.HasGDPR = true
		},
	},
	{
		Label:    "HIPAA",
		Keywords: []string{"hipaa", "health insurance portability"},
		Apply: func(c *ComplianceIndicators) {
			c.HasHIPAA = true
		},
	},
	{
		Label:    "PCI DSS",
		Keywords: []string{"pci dss", "pci-dss", "pci compliant", "pci compliance"},
		Apply: func(c *ComplianceIndicators) {
			c.HasPCIDSS = true
		},
	},
	{
		Label:    "FedRAMP",
		Keywords: []string{"fedramp"},
	},
	{
		Label:    "CSA STAR",
		Keywords: []string{"csa star", "csa-star"},
	},
}

// trustProviderPattern identifies the SaaS platform hosting a trust
// portal. Checked in priority order; first match wins.
type trustProviderPattern struct {
	Name    string
	Keyword string // lowercase signature in page content or URL
}

var trustProviders = []trustProviderPattern{
	{Name: "SafeBase", Keyword: "safebase"},
	{Name: "Vanta", Keyword: "vanta"},
	{Name: "Drata", Keyword: "drata"},
	{Name: "Secureframe", Keyword: "secureframe"},
	{Name: "Conveyor", Keyword: "conveyor"},
	{Name: "Whistic", Keyword: "whistic"},
	{Name: "OneTrust", Keyword: "onetrust"},
	{Name: "Tugboat Logic", Keyword: "tugboat"},
}

// probePurpose tags a candidate path with what a hit there would mean.
type probePurpose int

const (
	purposeTrust probePurpose = iota
	purposePrivacy
)

type pathCandidate struct {
	Path    string
	Purpose probePurpose
}

// complianceCandidates is the fixed probe list, in classification order.
// Declaration order matters: "first match wins" is reproducible only
// because results are classified in this order regardless of which fetch
// finishes first.
var complianceCandidates = []pathCandidate{
	{Path: "/trust", Purpose: purposeTrust},
	{Path: "/security", Purpose: purposeTrust},
	{Path: "/trust-center", Purpose: purposeTrust},
	{Path: "/compliance", Purpose: purposeTrust},
	{Path: "/trust.html", Purpose: purposeTrust},
	{Path: "/security.html", Purpose: purposeTrust},
	{Path: "/legal/security", Purpose: purposeTrust},
	{Path: "/privacy", Purpose: purposePrivacy},
	{Path: "/privacy-policy", Purpose: purposePrivacy},
	{Path: "/legal/privacy", Purpose: purposePrivacy},
	{Path: "/privacy.html", Purpose: purposePrivacy},
	{Path: "/policies/privacy", Purpose: purposePrivacy},
}

// bountyCandidates are probed sequentially, well-known locations first.
var bountyCandidates = []string{
	"/.well-known/security.txt",
	"/security.txt",
	"/bug-bounty",
	"/security/bug-bounty",
	"/responsible-disclosure",
}

// Content keywords used by the classification pass.
var (
	trustKeywords = []string{"trust", "security", "compliance", "soc", "iso"}

	privacyKeywords = []string{
		"privacy policy", "privacy notice", "personal data",
		"personal information", "data protection",
	}

	whitepaperKeywords = []string{"security whitepaper", "security white paper"}

	bountyKeywords = []string{"bug bounty", "responsible disclosure", "vulnerability disclosure"}
)

func containsAny(lowerBody string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowerBody, kw) {
			return true
		}
	}
	return false
}
