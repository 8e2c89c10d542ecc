package scanner

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveHTML(t *testing.T, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	}))
}

func TestWebCollect_TitleAndContact(t *testing.T) {
	server := serveHTML(t, `<html><head><title>  Acme Vendor Portal  </title></head>
<body>Reach us at security@acme-vendor.example for questions.</body></html>`)
	defer server.Close()

	prober := &WebProber{Fetcher: testFetcher()}
	info := prober.Collect(context.Background(), server.URL)

	if !info.Accessible {
		t.Error("expected accessible=true")
	}
	if info.StatusCode != http.StatusOK {
		t.Errorf("unexpected status %d", info.StatusCode)
	}
	if info.Title != "Acme Vendor Portal" {
		t.Errorf("expected trimmed title, got %q", info.Title)
	}
	if !info.HasContactInfo {
		t.Error("expected contact info from email token")
	}
	if info.ContactEmail != "security@acme-vendor.example" {
		t.Errorf("unexpected contact email %q", info.ContactEmail)
	}
}

func TestWebCollect_ContactWithoutEmail(t *testing.T) {
	server := serveHTML(t, `<html><body><a href="/about">Contact Us</a></body></html>`)
	defer server.Close()

	prober := &WebProber{Fetcher: testFetcher()}
	info := prober.Collect(context.Background(), server.URL)

	if !info.HasContactInfo {
		t.Error("expected contact info from literal substring")
	}
	if info.ContactEmail != "" {
		t.Errorf("no email on page, got %q", info.ContactEmail)
	}
}

func TestWebCollect_PrivacyHrefResolvedAbsolute(t *testing.T) {
	server := serveHTML(t, `<html><body>
<a href="/legal/privacy-policy">Privacy</a>
<a href="/legal/terms-of-service">Terms of Service</a>
</body></html>`)
	defer server.Close()

	prober := &WebProber{Fetcher: testFetcher()}
	info := prober.Collect(context.Background(), server.URL)

	if !info.HasPrivacyPolicy {
		t.Fatal("expected privacy policy detected")
	}
	if want := server.URL + "/legal/privacy-policy"; info.PrivacyPolicyURL != want {
		t.Errorf("expected resolved URL %q, got %q", want, info.PrivacyPolicyURL)
	}
	if !info.HasTermsOfService {
		t.Error("expected terms of service detected")
	}
}

func TestWebCollect_PhraseOnlyDetection(t *testing.T) {
	server := serveHTML(t, `<html><body>
<p>Read our Privacy Policy and Terms of Use before signing up.</p>
</body></html>`)
	defer server.Close()

	prober := &WebProber{Fetcher: testFetcher()}
	info := prober.Collect(context.Background(), server.URL)

	if !info.HasPrivacyPolicy {
		t.Error("expected privacy policy from literal phrase")
	}
	if info.PrivacyPolicyURL != "" {
		t.Errorf("phrase match carries no URL, got %q", info.PrivacyPolicyURL)
	}
	if !info.HasTermsOfService {
		t.Error("expected terms from literal phrase")
	}
}

func TestWebCollect_NoSignals(t *testing.T) {
	server := serveHTML(t, `<html><body><p>hello world</p></body></html>`)
	defer server.Close()

	prober := &WebProber{Fetcher: testFetcher()}
	info := prober.Collect(context.Background(), server.URL)

	if info.HasContactInfo || info.HasPrivacyPolicy || info.HasTermsOfService {
		t.Errorf("expected all signals false, got %+v", info)
	}
	if info.Title != "" {
		t.Errorf("expected empty title, got %q", info.Title)
	}
}

func TestWebCollect_UnreachableDegrades(t *testing.T) {
	server := serveHTML(t, "x")
	dead := server.URL
	server.Close()

	prober := &WebProber{Fetcher: testFetcher()}
	info := prober.Collect(context.Background(), dead)

	if info.Accessible {
		t.Error("expected accessible=false for dead server")
	}
	if info.StatusCode != 0 {
		t.Errorf("expected zero status, got %d", info.StatusCode)
	}
}
