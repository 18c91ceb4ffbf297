package scanner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Sla0ui/secheaders/internal/models"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

// BrowserFetcher loads URLs in headless Chrome and reports the headers of the
// main document response, as the browser received them. Redirects are always
// followed.
type BrowserFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	timeout       time.Duration
}

// NewBrowserFetcher starts a shared headless browser with secure defaults
func NewBrowserFetcher(config *models.Config) (*BrowserFetcher, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("ignore-certificate-errors", !config.VerifyTLS),
		chromedp.UserAgent(config.UserAgent),
		chromedp.DisableGPU,
		chromedp.WindowSize(1280, 800),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// the first Run launches the browser process
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &BrowserFetcher{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		timeout:       config.BrowserTimeout,
	}, nil
}

// Fetch opens url in a new tab of the shared browser
func (f *BrowserFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	tabCtx, cancelTab := chromedp.NewContext(f.browserCtx)
	defer cancelTab()

	runCtx, cancel := context.WithTimeout(tabCtx, f.timeout)
	defer cancel()

	// propagate caller cancellation into the tab
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var (
		mu        sync.Mutex
		document  *network.Response
		loadError string
	)

	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		mu.Lock()
		defer mu.Unlock()

		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if e.Type == network.ResourceTypeDocument && document == nil {
				document = e.Response
			}
		case *network.EventLoadingFailed:
			if e.Type == network.ResourceTypeDocument && document == nil && loadError == "" {
				loadError = e.ErrorText
			}
		}
	})

	err := chromedp.Run(runCtx,
		network.Enable(),
		chromedp.Navigate(url),
	)

	mu.Lock()
	defer mu.Unlock()

	if document == nil {
		if err == nil {
			err = errors.New("no document response received")
		}
		if loadError != "" {
			err = fmt.Errorf("%s: %w", loadError, err)
		}
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return nil, &FetchError{Kind: ErrTimeout, URL: url, Timeout: f.timeout, Err: err}
		}
		return nil, &FetchError{Kind: classifyBrowserError(err, loadError), URL: url, Timeout: f.timeout, Err: err}
	}

	return &Response{
		StatusCode: int(document.Status),
		Header:     browserHeaders(document.Headers),
		FinalURL:   document.URL,
	}, nil
}

// Close shuts the browser down
func (f *BrowserFetcher) Close() error {
	f.browserCancel()
	f.allocCancel()
	return nil
}

// browserHeaders converts DevTools headers, where repeated headers are joined
// by newlines, into an http.Header.
func browserHeaders(headers network.Headers) http.Header {
	h := make(http.Header, len(headers))
	for name, raw := range headers {
		value, ok := raw.(string)
		if !ok {
			value = fmt.Sprint(raw)
		}
		for _, v := range strings.Split(value, "\n") {
			h.Add(name, v)
		}
	}
	return h
}
