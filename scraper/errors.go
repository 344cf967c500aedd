package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// Error kinds used as metric labels and in FetchResult.ErrorsByType.
const (
	KindTimeout     = "timeout"
	KindConnection  = "connection"
	KindForbidden   = "forbidden"
	KindNotFound    = "not_found"
	KindRateLimited = "rate_limited"
	KindServer      = "server"
	KindOther       = "other"
)

// FetchError is a classified retrieval failure.
type FetchError struct {
	Kind       string
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %s (status %d): %v", e.URL, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt could succeed.
func (e *FetchError) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindConnection, KindRateLimited, KindServer:
		return true
	}
	return false
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return KindOther
}

func classifyError(url string, err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}
	if err == nil {
		err = fmt.Errorf("http status %d", statusCode)
	}
	wrap := func(kind string) error {
		return &FetchError{Kind: kind, URL: url, StatusCode: statusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return wrap(KindTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return wrap(KindTimeout)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return wrap(KindConnection)
	}

	switch {
	case statusCode == http.StatusForbidden:
		return wrap(KindForbidden)
	case statusCode == http.StatusNotFound:
		return wrap(KindNotFound)
	case statusCode == http.StatusTooManyRequests:
		return wrap(KindRateLimited)
	case statusCode >= http.StatusInternalServerError:
		return wrap(KindServer)
	}
	return wrap(KindOther)
}
