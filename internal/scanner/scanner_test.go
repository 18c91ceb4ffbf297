package scanner

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sla0ui/secheaders/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher returns canned responses after a per-URL delay and records the
// peak number of concurrent calls.
type fakeFetcher struct {
	delays   map[string]time.Duration
	failures map[string]error
	headers  http.Header

	inFlight int32
	peak     int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&f.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&f.peak, peak, n) {
			break
		}
	}

	time.Sleep(f.delays[url])

	if err, ok := f.failures[url]; ok {
		return nil, err
	}

	header := f.headers
	if header == nil {
		header = http.Header{}
	}
	return &Response{StatusCode: http.StatusOK, Header: header, FinalURL: url}, nil
}

func newTestScanner(t *testing.T, mutate func(*models.Config), opts ...Option) *Scanner {
	t.Helper()
	config := models.DefaultConfig()
	config.Timeout = 2 * time.Second
	if mutate != nil {
		mutate(config)
	}
	s, err := New(config, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func secureHandler(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("Content-Security-Policy", "default-src 'self'")
	h.Set("Strict-Transport-Security", "max-age=31536000")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("Permissions-Policy", "geolocation=()")
	h.Set("Cross-Origin-Embedder-Policy", "require-corp")
	h.Set("Cross-Origin-Opener-Policy", "same-origin")
	h.Set("Cross-Origin-Resource-Policy", "same-origin")
	w.WriteHeader(http.StatusOK)
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"https://example.com/path/", "https://example.com/path/"},
		{"example.com:8443/x", "https://example.com:8443/x"},
		{"ftp://example.com", "https://ftp://example.com"},
		{"HTTP://example.com", "https://HTTP://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.input))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	config := models.DefaultConfig()
	config.MaxConcurrent = 0

	_, err := New(config)
	assert.Error(t, err)
}

func TestScanURL_SecureSite(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(secureHandler))
	defer server.Close()

	result := newTestScanner(t, nil).ScanURL(context.Background(), server.URL)

	require.True(t, result.IsSuccess(), "unexpected error: %s", result.Error)
	assert.Equal(t, http.StatusOK, *result.StatusCode)
	assert.Equal(t, 100.0, result.Score)
	assert.Empty(t, result.MissingHeaders)
	assert.Empty(t, result.InsecureValues)
	assert.Empty(t, result.DeprecatedHeaders)
	assert.False(t, result.ScanTime.IsZero())
}

func TestScanURL_InsecureAndDeprecated(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self' 'unsafe-inline'")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Server", "nginx/1.18.0")
	}))
	defer server.Close()

	result := newTestScanner(t, nil).ScanURL(context.Background(), server.URL)

	require.True(t, result.IsSuccess())
	assert.Contains(t, result.InsecureValues["Content-Security-Policy"], "unsafe-inline")
	assert.Equal(t, map[string]string{"X-XSS-Protection": "1; mode=block"}, result.DeprecatedHeaders)
	assert.NotContains(t, result.MissingHeaders, "X-XSS-Protection")
	assert.Len(t, result.MissingHeaders, 8)
	assert.Equal(t, "nginx/1.18.0", result.Disclosures["Server"])
	// 1/9 present, minus 5 insecure and 3 deprecated
	assert.Equal(t, 3.11, result.Score)
}

func TestScanURL_SetsUserAgent(t *testing.T) {
	agents := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agents <- r.Header.Get("User-Agent")
	}))
	defer server.Close()

	s := newTestScanner(t, func(c *models.Config) { c.UserAgent = "probe/2.0" })
	result := s.ScanURL(context.Background(), server.URL)

	require.True(t, result.IsSuccess())
	assert.Equal(t, "probe/2.0", <-agents)
}

func TestScanURL_Redirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", secureHandler)
	server := httptest.NewServer(mux)
	defer server.Close()

	t.Run("follow", func(t *testing.T) {
		result := newTestScanner(t, nil).ScanURL(context.Background(), server.URL+"/start")
		require.True(t, result.IsSuccess())
		assert.Equal(t, http.StatusOK, *result.StatusCode)
		assert.Equal(t, 100.0, result.Score)
		assert.Equal(t, server.URL+"/final", result.FinalURL)
	})

	t.Run("no follow", func(t *testing.T) {
		s := newTestScanner(t, func(c *models.Config) { c.FollowRedirects = false })
		result := s.ScanURL(context.Background(), server.URL+"/start")
		require.True(t, result.IsSuccess())
		assert.Equal(t, http.StatusFound, *result.StatusCode)
		assert.Equal(t, 0.0, result.Score)
	})
}

func TestScanURL_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	s := newTestScanner(t, func(c *models.Config) { c.Timeout = 100 * time.Millisecond })
	result := s.ScanURL(context.Background(), server.URL)

	assert.False(t, result.IsSuccess())
	assert.Nil(t, result.StatusCode)
	assert.Equal(t, string(ErrTimeout), result.ErrorKind)
	assert.Equal(t, "Timeout after 100ms", result.Error)
	assert.Equal(t, 0.0, result.Score)
}

func TestScanURL_TLSVerification(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(secureHandler))
	defer server.Close()

	t.Run("verify", func(t *testing.T) {
		result := newTestScanner(t, nil).ScanURL(context.Background(), server.URL)
		assert.False(t, result.IsSuccess())
		assert.Equal(t, string(ErrTLS), result.ErrorKind)
		assert.True(t, strings.HasPrefix(result.Error, "SSL error: "), result.Error)
	})

	t.Run("insecure", func(t *testing.T) {
		s := newTestScanner(t, func(c *models.Config) { c.VerifyTLS = false })
		result := s.ScanURL(context.Background(), server.URL)
		require.True(t, result.IsSuccess(), result.Error)
		assert.Equal(t, 100.0, result.Score)
	})
}

func TestScanURLs_FailureIsolation(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(secureHandler))
	defer good.Close()

	down := httptest.NewServer(http.NotFoundHandler())
	downURL := down.URL
	down.Close()

	urls := []string{good.URL, downURL, good.URL + "/again"}
	results := newTestScanner(t, nil).ScanURLs(context.Background(), urls, 3)

	require.Len(t, results, 3)

	assert.True(t, results[0].IsSuccess())
	assert.Equal(t, 100.0, results[0].Score)

	assert.False(t, results[1].IsSuccess())
	assert.Equal(t, string(ErrConnection), results[1].ErrorKind)
	assert.True(t, strings.HasPrefix(results[1].Error, "Connection error: "), results[1].Error)
	assert.Empty(t, results[1].PresentHeaders)
	assert.Empty(t, results[1].MissingHeaders)
	assert.Equal(t, 0.0, results[1].Score)

	assert.True(t, results[2].IsSuccess())
	assert.Equal(t, 100.0, results[2].Score)
}

func TestScanURLs_PreservesOrder(t *testing.T) {
	fetcher := &fakeFetcher{delays: map[string]time.Duration{
		"https://a": 80 * time.Millisecond,
		"https://b": 0,
		"https://c": 40 * time.Millisecond,
	}}
	s := newTestScanner(t, nil, WithFetcher(fetcher))

	results := s.ScanURLs(context.Background(), []string{"a", "b", "c"}, 2)

	require.Len(t, results, 3)
	assert.Equal(t, "https://a", results[0].URL)
	assert.Equal(t, "https://b", results[1].URL)
	assert.Equal(t, "https://c", results[2].URL)
}

func TestScanURLs_BoundsConcurrency(t *testing.T) {
	tests := []struct {
		name          string
		maxConcurrent int
		wantPeak      int32
	}{
		{"limit 3", 3, 3},
		{"limit 1", 1, 1},
		{"zero floors to 1", 0, 1},
		{"negative floors to 1", -4, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			urls := make([]string, 9)
			delays := make(map[string]time.Duration)
			for i := range urls {
				urls[i] = "host" + string(rune('a'+i))
				delays["https://"+urls[i]] = 20 * time.Millisecond
			}

			fetcher := &fakeFetcher{delays: delays}
			s := newTestScanner(t, nil, WithFetcher(fetcher))

			results := s.ScanURLs(context.Background(), urls, tt.maxConcurrent)

			assert.Len(t, results, len(urls))
			assert.LessOrEqual(t, atomic.LoadInt32(&fetcher.peak), tt.wantPeak)
			for i, r := range results {
				assert.Equal(t, "https://"+urls[i], r.URL)
			}
		})
	}
}

func TestScanURLs_Empty(t *testing.T) {
	results := newTestScanner(t, nil, WithFetcher(&fakeFetcher{})).ScanURLs(context.Background(), nil, 5)
	assert.Empty(t, results)
}

func TestScanURLs_NonFetchErrorIsUnexpected(t *testing.T) {
	fetcher := &fakeFetcher{failures: map[string]error{"https://x": assert.AnError}}
	s := newTestScanner(t, nil, WithFetcher(fetcher))

	results := s.ScanURLs(context.Background(), []string{"x"}, 1)

	require.Len(t, results, 1)
	assert.Equal(t, string(ErrUnexpected), results[0].ErrorKind)
	assert.True(t, strings.HasPrefix(results[0].Error, "Unexpected error: "))
}

func TestScanURLs_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := newTestScanner(t, nil, WithFetcher(&fakeFetcher{}))
	results := s.ScanURLs(ctx, []string{"a", "b", "c"}, 2)

	require.Len(t, results, 3)
	for _, r := range results {
		require.NotNil(t, r)
		assert.False(t, r.IsSuccess())
	}
}

func TestScanURL_MatchesBatchOfOne(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	headers := http.Header{
		"Content-Security-Policy": {"default-src 'self' 'unsafe-eval'"},
		"X-Frame-Options":         {"DENY"},
	}

	s := newTestScanner(t, nil, WithFetcher(&fakeFetcher{headers: headers}))
	s.now = func() time.Time { return fixed }

	single := s.ScanURL(context.Background(), "example.com")
	batch := s.ScanURLs(context.Background(), []string{"example.com"}, 1)

	require.Len(t, batch, 1)
	assert.Equal(t, single, batch[0])
}

func TestScanURLs_RateLimited(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	s := newTestScanner(t, func(c *models.Config) { c.RateLimit = 10 })
	urls := make([]string, 12)
	for i := range urls {
		urls[i] = server.URL
	}

	start := time.Now()
	results := s.ScanURLs(context.Background(), urls, 12)

	assert.Len(t, results, 12)
	assert.Equal(t, int32(12), atomic.LoadInt32(&calls))
	// burst of 10, then two more at 100ms spacing
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}

func TestScanURLs_Progress(t *testing.T) {
	var buf strings.Builder
	s := newTestScanner(t, nil, WithFetcher(&fakeFetcher{}), WithProgress(&buf))

	results := s.ScanURLs(context.Background(), []string{"a", "b"}, 2)

	assert.Len(t, results, 2)
	assert.Contains(t, buf.String(), "Scanning URLs")
}
