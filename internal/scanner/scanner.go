package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/Sla0ui/secheaders/internal/analyzer"
	"github.com/Sla0ui/secheaders/internal/catalog"
	"github.com/Sla0ui/secheaders/internal/detector"
	"github.com/Sla0ui/secheaders/internal/models"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Scanner checks the security headers of URLs
type Scanner struct {
	config   *models.Config
	catalog  *catalog.Catalog
	fetcher  Fetcher
	limiter  *rate.Limiter
	logger   *zap.Logger
	progress io.Writer
	now      func() time.Time
}

// Option customizes a Scanner
type Option func(*Scanner)

// WithCatalog replaces the built-in header catalog
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Scanner) { s.catalog = c }
}

// WithFetcher replaces the default HTTP fetcher
func WithFetcher(f Fetcher) Option {
	return func(s *Scanner) { s.fetcher = f }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

// WithProgress renders a progress bar on w during batch scans
func WithProgress(w io.Writer) Option {
	return func(s *Scanner) { s.progress = w }
}

// New creates a new Scanner instance. The config is copied; later changes by
// the caller have no effect.
func New(config *models.Config, opts ...Option) (*Scanner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := &Scanner{
		config:  config.Clone(),
		catalog: catalog.Default(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.fetcher == nil {
		if s.config.UseBrowser {
			bf, err := NewBrowserFetcher(s.config)
			if err != nil {
				return nil, err
			}
			s.fetcher = bf
		} else {
			s.fetcher = NewHTTPFetcher(s.config)
		}
	}

	if s.config.RateLimit > 0 {
		burst := int(s.config.RateLimit)
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(s.config.RateLimit), burst)
	}

	return s, nil
}

// Catalog returns the header catalog the scanner analyzes against
func (s *Scanner) Catalog() *catalog.Catalog {
	return s.catalog
}

// Close releases resources held by the fetcher
func (s *Scanner) Close() error {
	switch f := s.fetcher.(type) {
	case io.Closer:
		return f.Close()
	case interface{ CloseIdleConnections() }:
		f.CloseIdleConnections()
	}
	return nil
}

// NormalizeURL prefixes https:// unless the URL already starts with
// http:// or https://. Nothing else is changed.
func NormalizeURL(url string) string {
	if strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://") {
		return url
	}
	return "https://" + url
}

// ScanURL fetches and analyzes a single URL. Failures are reported in the
// returned result, never as an error.
func (s *Scanner) ScanURL(ctx context.Context, url string) *models.Result {
	url = NormalizeURL(url)
	log := s.logger.With(zap.String("url", url))

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return s.failed(log, url, &FetchError{Kind: ErrUnexpected, URL: url, Err: err})
		}
	}

	if err := ctx.Err(); err != nil {
		return s.failed(log, url, &FetchError{Kind: ErrUnexpected, URL: url, Err: err})
	}

	start := s.now()
	resp, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return s.failed(log, url, err)
	}

	analysis := analyzer.AnalyzeHeaders(s.catalog, resp.Header)
	disclosure := detector.DetectDisclosures(resp.Header)
	status := resp.StatusCode

	result := &models.Result{
		URL:               url,
		StatusCode:        &status,
		Score:             analyzer.Score(analysis, s.catalog),
		PresentHeaders:    analysis.PresentHeaders,
		MissingHeaders:    analysis.MissingHeaders,
		DeprecatedHeaders: analysis.DeprecatedHeaders,
		InsecureValues:    analysis.InsecureValues,
		ScanTime:          s.now(),
		FinalURL:          resp.FinalURL,
		Disclosures:       disclosure.Headers,
	}

	log.Debug("scan complete",
		zap.Int("status", status),
		zap.Float64("score", result.Score),
		zap.Int("present", len(result.PresentHeaders)),
		zap.Int("missing", len(result.MissingHeaders)),
		zap.Duration("duration", s.now().Sub(start)),
	)

	return result
}

func (s *Scanner) failed(log *zap.Logger, url string, err error) *models.Result {
	kind := ErrUnexpected
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		kind = fetchErr.Kind
	} else {
		err = &FetchError{Kind: kind, URL: url, Err: err}
	}

	log.Debug("scan failed", zap.String("kind", string(kind)), zap.Error(err))
	return models.NewFailedResult(url, string(kind), err.Error(), s.now())
}

// ScanURLs scans urls with at most maxConcurrent requests in flight. Values
// below 1 are treated as 1. The returned slice has one result per input URL,
// in input order.
func (s *Scanner) ScanURLs(ctx context.Context, urls []string, maxConcurrent int) []*models.Result {
	results := make([]*models.Result, len(urls))
	if len(urls) == 0 {
		return results
	}

	numWorkers := maxConcurrent
	if numWorkers < 1 {
		numWorkers = 1
	}
	if numWorkers > len(urls) {
		numWorkers = len(urls)
	}

	type job struct {
		index int
		url   string
	}

	workCh := make(chan job, len(urls))
	for i, url := range urls {
		workCh <- job{index: i, url: url}
	}
	close(workCh)

	var bar *progressbar.ProgressBar
	if s.progress != nil {
		bar = progressbar.NewOptions(len(urls),
			progressbar.OptionSetWriter(s.progress),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionSetWidth(50),
			progressbar.OptionShowCount(),
			progressbar.OptionSetDescription("[cyan]Scanning URLs[reset]"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]=[reset]",
				SaucerHead:    "[green]>[reset]",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}))
	}

	s.logger.Debug("starting batch scan",
		zap.Int("urls", len(urls)),
		zap.Int("workers", numWorkers),
	)

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			for j := range workCh {
				results[j.index] = s.ScanURL(ctx, j.url)

				if bar != nil {
					bar.Add(1)
				}
			}
		}()
	}

	wg.Wait()

	if bar != nil {
		bar.Finish()
		fmt.Fprintln(s.progress)
	}

	return results
}
