package scanner

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrorKind classifies why a fetch failed
type ErrorKind string

const (
	ErrTimeout    ErrorKind = "timeout"
	ErrTLS        ErrorKind = "tls"
	ErrConnection ErrorKind = "connection"
	ErrUnexpected ErrorKind = "unexpected"
)

// FetchError is returned by a Fetcher when a URL cannot be retrieved
type FetchError struct {
	Kind    ErrorKind
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case ErrTimeout:
		return fmt.Sprintf("Timeout after %s", e.Timeout)
	case ErrTLS:
		return fmt.Sprintf("SSL error: %v", e.Err)
	case ErrConnection:
		return fmt.Sprintf("Connection error: %v", e.Err)
	default:
		return fmt.Sprintf("Unexpected error: %v", e.Err)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// classifyError maps an http.Client error onto an ErrorKind
func classifyError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return ErrUnexpected
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout
	}

	if isTLSError(err) {
		return ErrTLS
	}

	var opErr *net.OpError
	var dnsErr *net.DNSError
	var urlErr *url.Error
	switch {
	case errors.As(err, &dnsErr), errors.As(err, &opErr):
		return ErrConnection
	case errors.As(err, &urlErr):
		return ErrConnection
	}

	return ErrUnexpected
}

func isTLSError(err error) bool {
	var (
		verifyErr   *tls.CertificateVerificationError
		recordErr   tls.RecordHeaderError
		unknownAuth x509.UnknownAuthorityError
		hostnameErr x509.HostnameError
		invalidCert x509.CertificateInvalidError
		alertErr    tls.AlertError
	)
	if errors.As(err, &verifyErr) || errors.As(err, &recordErr) ||
		errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) ||
		errors.As(err, &invalidCert) || errors.As(err, &alertErr) {
		return true
	}

	// handshake failures from the server side only surface as text
	return strings.Contains(err.Error(), "tls: ")
}

// classifyBrowserError maps a chromedp navigation error onto an ErrorKind
func classifyBrowserError(err error, text string) ErrorKind {
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if err != nil && text == "" {
		text = err.Error()
	}

	switch {
	case strings.Contains(text, "ERR_TIMED_OUT"):
		return ErrTimeout
	case strings.Contains(text, "ERR_CERT_"), strings.Contains(text, "ERR_SSL_"):
		return ErrTLS
	case strings.Contains(text, "net::ERR_"):
		return ErrConnection
	default:
		return ErrUnexpected
	}
}
