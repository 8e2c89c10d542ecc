package scanner

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/venrisk/posturescan/internal/shared/constants"
	errs "github.com/venrisk/posturescan/internal/shared/errors"
)

// FetchOptions tunes a single bounded fetch.
type FetchOptions struct {
	Method       string        // default GET
	Timeout      time.Duration // per-request ceiling, default constants.DefaultFetchTimeout
	MaxBodyBytes int64         // default constants.ProbeBodyLimitBytes
	MaxRedirects int           // default constants.MaxRedirectHops
	NoFollow     bool          // return the first response even when it is a 3xx
}

// FetchResult is the ephemeral outcome of one fetch.
type FetchResult struct {
	StatusCode int
	FinalURL   string // URL after redirects
	Body       string // length-capped
	Header     http.Header
}

// Fetcher performs one bounded HTTP request: SSRF-validated, capped body,
// capped redirect following. Redirects are handled by an explicit loop with
// a hop counter rather than the client's automatic following, so every hop
// passes the guard and the hop-limit invariant is mechanically obvious.
type Fetcher struct {
	Guard     *Guard
	Limiter   *rate.Limiter // optional outbound rate limiter shared per scan
	UserAgent string
	Log       *zap.SugaredLogger

	// Configured per-request defaults, applied when the corresponding
	// FetchOptions field is zero. Zero values here fall back to the
	// package constants.
	FetchTimeout time.Duration
	MaxBodyBytes int64
	MaxRedirects int

	// TLSClientConfig overrides the transport TLS config. Tests use it to
	// trust a locally generated certificate.
	TLSClientConfig *tls.Config

	// Transport overrides the whole transport when set. Tests use it to
	// script responses or to prove that no connection was attempted.
	Transport http.RoundTripper

	once   sync.Once
	client *http.Client
}

// httpClient builds the no-follow client on first use. Redirect following
// is disabled so the explicit hop loop stays in control.
func (f *Fetcher) httpClient() *http.Client {
	f.once.Do(func() {
		var transport http.RoundTripper = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   constants.DefaultFetchTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   constants.DefaultTLSHandshakeTimeout,
			ResponseHeaderTimeout: constants.DefaultFetchTimeout,
			TLSClientConfig:       f.TLSClientConfig,
			MaxIdleConnsPerHost:   4,
		}
		if f.Transport != nil {
			transport = f.Transport
		}
		f.client = &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})
	return f.client
}

// Fetch performs one guarded request against rawURL, following at most
// MaxRedirects guard-validated hops. Expected failures (policy block,
// timeout, refusal, broken redirect chain) come back as errors the caller
// degrades from; policy blocks are distinguishable with
// errors.Is(err, errs.ErrPolicyBlocked).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string, opts FetchOptions) (*FetchResult, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = f.FetchTimeout
	}
	if timeout <= 0 {
		timeout = constants.DefaultFetchTimeout
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = f.MaxBodyBytes
	}
	if maxBody <= 0 {
		maxBody = constants.ProbeBodyLimitBytes
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = f.MaxRedirects
	}
	if maxRedirects <= 0 {
		maxRedirects = constants.MaxRedirectHops
	}

	current := rawURL
	for hops := 0; ; {
		if err := f.Guard.ValidateURL(ctx, current); err != nil {
			return nil, err
		}
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("%w: %v", errs.ErrUnreachable, err)
			}
		}

		resp, err := f.doOnce(ctx, method, current, timeout)
		if err != nil {
			return nil, err
		}

		// 3xx with a Location header: validate and follow. A 3xx without
		// Location is treated as the final response.
		if !opts.NoFollow && resp.StatusCode >= 300 && resp.StatusCode < 400 {
			location := resp.Header.Get("Location")
			if location != "" {
				drain(resp)
				hops++
				if hops > maxRedirects {
					return nil, fmt.Errorf("%w: %d hops from %s", errs.ErrTooManyRedirects, hops, rawURL)
				}
				next, err := resolveLocation(current, location)
				if err != nil {
					return nil, fmt.Errorf("%w: bad redirect location %q", errs.ErrProtocol, location)
				}
				current = next
				continue
			}
		}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBody))
		// Closing with bytes still queued tears the connection down, which
		// is exactly what we want once the cap is reached.
		resp.Body.Close()
		if readErr != nil && len(body) == 0 {
			return nil, fmt.Errorf("%w: read body from %s: %v", errs.ErrProtocol, current, readErr)
		}

		return &FetchResult{
			StatusCode: resp.StatusCode,
			FinalURL:   current,
			Body:       string(body),
			Header:     resp.Header,
		}, nil
	}
}

func (f *Fetcher) doOnce(ctx context.Context, method, target string, timeout time.Duration) (*http.Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	req, err := http.NewRequestWithContext(reqCtx, method, target, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: build request for %s: %v", errs.ErrProtocol, target, err)
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	resp, err := f.httpClient().Do(req)
	if err != nil {
		cancel()
		if f.Log != nil {
			f.Log.Debugw("probe request failed", "method", method, "url", target, "error", err)
		}
		if strings.Contains(err.Error(), "tls:") {
			return nil, fmt.Errorf("%w: %s: %v", errs.ErrProtocol, target, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrUnreachable, target, err)
	}
	// The cancel travels with the body: releasing it when the body closes
	// keeps the per-request timeout scoped to this hop only.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

// resolveLocation resolves a possibly relative redirect Location against
// the URL that issued it.
func resolveLocation(current, location string) (string, error) {
	locURL, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(locURL).String(), nil
}

// drain discards a small amount of the body and closes it so the
// connection can be reused between redirect hops.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4*1024))
	resp.Body.Close()
}
