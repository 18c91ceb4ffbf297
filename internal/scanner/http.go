package scanner

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"time"

	"github.com/Sla0ui/secheaders/internal/models"
)

// maxDrainBytes bounds how much of a body is read before closing so the
// connection can be reused.
const maxDrainBytes = 64 << 10

// Response is the part of an HTTP response the analyzer needs
type Response struct {
	StatusCode int
	Header     http.Header
	FinalURL   string
}

// Fetcher retrieves the response headers of a single URL.
// Errors returned are *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Response, error)
}

// HTTPFetcher fetches URLs with net/http
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
}

// NewHTTPFetcher creates a fetcher honoring the timeout, TLS and redirect settings of config
func NewHTTPFetcher(config *models.Config) *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: !config.VerifyTLS,
		},
		DisableKeepAlives:   false,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	followRedirects := config.FollowRedirects
	maxRedirects := config.MaxRedirects

	client := &http.Client{
		Timeout:   config.Timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !followRedirects || len(via) >= maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:    client,
		userAgent: config.UserAgent,
		timeout:   config.Timeout,
	}
}

// Fetch performs a single GET request. No retries are attempted.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Kind: ErrUnexpected, URL: url, Timeout: f.timeout, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Kind: classifyError(err), URL: url, Timeout: f.timeout, Err: err}
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		FinalURL:   resp.Request.URL.String(),
	}, nil
}

// CloseIdleConnections releases pooled connections
func (f *HTTPFetcher) CloseIdleConnections() {
	f.client.CloseIdleConnections()
}
