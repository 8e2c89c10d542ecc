package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// filler is keyword-free padding that pushes fixture pages over the
// placeholder threshold.
func filler(n int) string {
	return strings.Repeat("lorem ipsum dolor sit amet, consetetur sadipscing elitr. ", n/57+1)[:n]
}

func complianceScanner(fanOut time.Duration) *ComplianceScanner {
	return &ComplianceScanner{Fetcher: testFetcher(), FanOutDeadline: fanOut}
}

func TestComplianceCollect_SOC2TypeII(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, "welcome to acme vendor")
	})
	mux.HandleFunc("/trust", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filler(600)+" We maintain SOC 2 Type II attestation and publish our trust posture here.")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if !indicators.HasTrustPortal {
		t.Fatal("expected trust portal detected")
	}
	if indicators.TrustPortalURL != server.URL+"/trust" {
		t.Errorf("unexpected trust portal URL %q", indicators.TrustPortalURL)
	}
	if !indicators.HasSOC2 {
		t.Error("expected SOC2 flag")
	}
	if indicators.SOC2Type != "Type II" {
		t.Errorf("expected SOC2 type %q, got %q", "Type II", indicators.SOC2Type)
	}
	if len(indicators.Certifications) != 1 || indicators.Certifications[0] != "SOC 2 Type II" {
		t.Errorf("expected certifications [SOC 2 Type II] with no generic duplicate, got %v", indicators.Certifications)
	}
}

func TestComplianceCollect_ShortTrustPageIgnored(t *testing.T) {
	// 400 chars of trust keywords: under the placeholder threshold, so it
	// must not count as a trust portal.
	shortBody := strings.Repeat("trust security compliance ", 16)[:400]
	mux := http.NewServeMux()
	mux.HandleFunc("/trust", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, shortBody)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if indicators.HasTrustPortal {
		t.Error("400-char page must not be classified as a trust portal")
	}
}

func TestComplianceCollect_FirstPrivacyCandidateWins(t *testing.T) {
	body := filler(600) + " Our privacy policy explains how we handle personal data."
	mux := http.NewServeMux()
	mux.HandleFunc("/privacy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/privacy-policy", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, body)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if !indicators.HasPrivacyPolicy {
		t.Fatal("expected privacy policy detected")
	}
	// /privacy is declared before /privacy-policy, so it must win no
	// matter which fetch completed first.
	if indicators.PrivacyPolicyURL != server.URL+"/privacy" {
		t.Errorf("expected first candidate to win, got %q", indicators.PrivacyPolicyURL)
	}
}

func TestComplianceCollect_RootPageCertifications(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, filler(200)+" ISO 27001 certified. GDPR compliant. Download our security whitepaper.")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if !indicators.HasISO27001 {
		t.Error("expected ISO 27001 flag from root page")
	}
	if !indicators.HasGDPR {
		t.Error("expected GDPR flag from root page")
	}
	if !indicators.HasSecurityWhitepaper {
		t.Error("expected whitepaper mention detected")
	}
	want := []string{"ISO 27001", "GDPR"}
	if len(indicators.Certifications) != len(want) {
		t.Fatalf("expected certifications %v, got %v", want, indicators.Certifications)
	}
	for i := range want {
		if indicators.Certifications[i] != want[i] {
			t.Errorf("certifications[%d] = %q, want %q (table order)", i, indicators.Certifications[i], want[i])
		}
	}
}

func TestComplianceCollect_TrustProviderSignature(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trust", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filler(600)+` This trust center is powered by SafeBase. <script src="https://app.safebase.io/embed.js"></script>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if indicators.TrustPortalProvider != "SafeBase" {
		t.Errorf("expected provider SafeBase, got %q", indicators.TrustPortalProvider)
	}
}

func TestComplianceCollect_LaterTrustPagesStillFeedCertifications(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/trust", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filler(600)+" Our trust center covers security practices.")
	})
	mux.HandleFunc("/compliance", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filler(600)+" Compliance: HIPAA and PCI DSS attested.")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if indicators.TrustPortalURL != server.URL+"/trust" {
		t.Errorf("first trust candidate should be the portal, got %q", indicators.TrustPortalURL)
	}
	// The classification loop must not early-exit after the first trust
	// hit: the /compliance page still contributes certifications.
	if !indicators.HasHIPAA || !indicators.HasPCIDSS {
		t.Errorf("expected HIPAA and PCI DSS from later candidate, got %+v", indicators)
	}
}

func TestComplianceCollect_BugBountySequentialFirstHit(t *testing.T) {
	var mu sync.Mutex
	var seen []string

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Path)
		mu.Unlock()
		http.NotFound(w, r)
	})
	mux.HandleFunc("/.well-known/security.txt", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.URL.Path)
		mu.Unlock()
		fmt.Fprint(w, "Contact: mailto:security@acme-vendor.example\nPolicy: https://acme-vendor.example/disclosure\nExpires: 2027-01-01T00:00:00Z\n")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if !indicators.HasBugBounty {
		t.Fatal("expected bug bounty detected from security.txt")
	}
	if indicators.BugBountyURL != server.URL+"/.well-known/security.txt" {
		t.Errorf("unexpected bounty URL %q", indicators.BugBountyURL)
	}

	mu.Lock()
	defer mu.Unlock()
	for _, path := range seen {
		if path == "/bug-bounty" || path == "/security/bug-bounty" || path == "/responsible-disclosure" {
			t.Errorf("probing should stop at the first hit, but %s was requested", path)
		}
	}
}

func TestComplianceCollect_TinySecurityTxtSkipped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/security.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok") // under the 100-char minimum
	})
	mux.HandleFunc("/bug-bounty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, filler(300)+" Our bug bounty program rewards reports.")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	indicators := complianceScanner(0).Collect(context.Background(), target)

	if !indicators.HasBugBounty {
		t.Fatal("expected bounty from the later candidate")
	}
	if indicators.BugBountyURL != server.URL+"/bug-bounty" {
		t.Errorf("tiny security.txt should be skipped, got %q", indicators.BugBountyURL)
	}
}

func TestComplianceCollect_DeadlineBoundsReturn(t *testing.T) {
	trustBody := filler(600) + " Trust center: SOC 2 attested."
	slow := 2 * time.Second

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/", "/.well-known/security.txt", "/security.txt", "/bug-bounty",
			"/security/bug-bounty", "/responsible-disclosure":
			http.NotFound(w, r)
		case "/trust":
			fmt.Fprint(w, trustBody)
		default:
			// Every other candidate hangs past the deadline.
			time.Sleep(slow)
			http.NotFound(w, r)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	target, _ := ParseTarget(server.URL)
	scanner := complianceScanner(300 * time.Millisecond)

	start := time.Now()
	indicators := scanner.Collect(context.Background(), target)
	elapsed := time.Since(start)

	if elapsed >= slow {
		t.Fatalf("collect took %v, expected the soft deadline to bound it", elapsed)
	}
	if elapsed > 1500*time.Millisecond {
		t.Errorf("collect took %v, expected return shortly after the 300ms deadline", elapsed)
	}
	if !indicators.HasTrustPortal {
		t.Error("completed probes must still be classified after the deadline")
	}
	if indicators.HasPrivacyPolicy {
		t.Error("abandoned probes must not contribute results")
	}
}

func TestComplianceCollect_RecoversFromPanic(t *testing.T) {
	// A nil fetcher panics on first use; the top-level recover must turn
	// that into an empty result instead of failing the scan.
	scanner := &ComplianceScanner{}
	target, _ := ParseTarget("vendor.example.com")

	indicators := scanner.Collect(context.Background(), target)
	if indicators.HasTrustPortal || len(indicators.Certifications) != 0 {
		t.Errorf("expected zero-value indicators, got %+v", indicators)
	}
}
