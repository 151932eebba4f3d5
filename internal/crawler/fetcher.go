package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/nao1215/webrecon/internal/model"
)

// errTooManyRedirects is installed as the CheckRedirect error so redirect
// loops can be classified distinctly from other transport failures.
var errTooManyRedirects = errors.New("stopped after too many redirects")

// FetchResult holds a successful page fetch.
type FetchResult struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// ContentType is the media type from the Content-Type header,
	// without parameters.
	ContentType string

	// Body is the response body, truncated to the configured limit.
	Body []byte

	// Latency is the wall-clock duration of the successful attempt.
	Latency time.Duration
}

// FetchError is a classified, terminal fetch failure. It is returned only
// after the retry policy is exhausted (or immediately for kinds that are
// never retried).
type FetchError struct {
	// Kind classifies the failure.
	Kind model.ErrorKind

	// StatusCode is the HTTP status when the failure happened above the
	// transport layer, zero otherwise.
	StatusCode int

	// Latency is the duration of the final attempt.
	Latency time.Duration

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s): status %d", e.Kind, e.StatusCode)
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *FetchError) Unwrap() error { return e.Err }

// Fetcher issues single HTTP GET requests with a per-request timeout,
// classifies every outcome, and retries transient failures with exponential
// backoff. The politeness limiter is consulted before every attempt,
// including retries, so backoff never bypasses pacing.
type Fetcher struct {
	// client performs the requests. Redirect limiting is installed by
	// NewFetcher.
	client *http.Client

	// limiter is the global politeness gate. May pace to zero (disabled).
	limiter *Limiter

	// timeout bounds each individual attempt.
	timeout time.Duration

	// userAgent is sent with every request.
	userAgent string

	// maxBodySize truncates response bodies to bound memory use.
	maxBodySize int64

	// maxRetries is the number of retries after the first attempt for
	// transient failures. Zero means a single attempt.
	maxRetries int

	// backoffBase is the delay before the first retry; it doubles on
	// each subsequent retry up to backoffCap.
	backoffBase time.Duration
	backoffCap  time.Duration

	// rng adds jitter to backoff delays. Guarded by rngMu because
	// rand.Rand is not safe for concurrent use.
	rng   *rand.Rand
	rngMu sync.Mutex
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the response body size limit.
func WithMaxBodySize(size int64) FetcherOption {
	return func(f *Fetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithMaxRetries sets how many times a transient failure is retried after
// the initial attempt.
func WithMaxRetries(n int) FetcherOption {
	return func(f *Fetcher) {
		if n >= 0 {
			f.maxRetries = n
		}
	}
}

// WithBackoff sets the base delay before the first retry and the cap the
// doubling delay never exceeds.
func WithBackoff(base, cap time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if base > 0 {
			f.backoffBase = base
		}
		if cap > 0 {
			f.backoffCap = cap
		}
	}
}

// maxRedirects bounds redirect chains per request.
const maxRedirects = 10

// NewFetcher creates a Fetcher. A nil transport uses http.DefaultTransport.
//
// Design decision: We accept an http.RoundTripper rather than a fully built
// client because the fetcher must own the redirect policy to classify
// redirect loops, and we do not want callers installing a conflicting
// client-level timeout next to our per-attempt context deadline.
func NewFetcher(transport http.RoundTripper, limiter *Limiter, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		limiter:     limiter,
		timeout:     10 * time.Second,
		userAgent:   "webrecon/1.0 (+https://github.com/nao1215/webrecon)",
		maxBodySize: 5 * 1024 * 1024,
		maxRetries:  3,
		backoffBase: 500 * time.Millisecond,
		backoffCap:  10 * time.Second,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
	return f
}

// Fetch retrieves one URL, applying the retry policy for transient
// failures. On success it returns a FetchResult; on terminal failure it
// returns a *FetchError carrying the last classified error kind. A context
// cancellation surfaces as the context's error, not a FetchError.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*FetchResult, error) {
	var last *FetchError
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			if err := f.sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		// Politeness pacing applies to every attempt, retries included.
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		result, ferr := f.fetchOnce(ctx, pageURL)
		if ferr == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		last = ferr
		if !ferr.Kind.Retryable() {
			break
		}
	}
	return nil, last
}

// fetchOnce performs a single attempt with its own deadline.
func (f *Fetcher) fetchOnce(ctx context.Context, pageURL string) (*FetchResult, *FetchError) {
	attemptCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Kind: model.ErrConnection, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.1")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{
			Kind:    classifyTransportError(err),
			Latency: time.Since(start),
			Err:     err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	latency := time.Since(start)
	if err != nil {
		return nil, &FetchError{Kind: classifyTransportError(err), Latency: latency, Err: err}
	}

	switch {
	case resp.StatusCode >= 500:
		return nil, &FetchError{Kind: model.ErrHTTP5xx, StatusCode: resp.StatusCode, Latency: latency}
	case resp.StatusCode >= 400:
		return nil, &FetchError{Kind: model.ErrHTTP4xx, StatusCode: resp.StatusCode, Latency: latency}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		// 1xx/3xx leaking through the redirect policy; terminal like 4xx.
		return nil, &FetchError{Kind: model.ErrHTTP4xx, StatusCode: resp.StatusCode, Latency: latency}
	}

	contentType := mediaType(resp.Header.Get("Content-Type"))
	if !isParseableType(contentType) {
		return nil, &FetchError{Kind: model.ErrContentType, StatusCode: resp.StatusCode, Latency: latency}
	}

	return &FetchResult{
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
		Latency:     latency,
	}, nil
}

// sleepBackoff waits the exponential backoff delay before retry n (1-based),
// with up to 25% random jitter added so retrying workers do not line up on
// the politeness gate at the same instant.
func (f *Fetcher) sleepBackoff(ctx context.Context, attempt int) error {
	delay := f.backoffBase << (attempt - 1)
	if delay > f.backoffCap || delay <= 0 {
		delay = f.backoffCap
	}

	f.rngMu.Lock()
	jitter := time.Duration(f.rng.Int63n(int64(delay)/4 + 1))
	f.rngMu.Unlock()
	delay += jitter

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// classifyTransportError maps a transport-level error to an error kind.
func classifyTransportError(err error) model.ErrorKind {
	if errors.Is(err, errTooManyRedirects) {
		return model.ErrTooManyRedirects
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.ErrTimeout
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return model.ErrTimeout
	}
	return model.ErrConnection
}

// mediaType strips parameters such as charset from a Content-Type value.
func mediaType(contentType string) string {
	if i := strings.Index(contentType, ";"); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

// isParseableType reports whether a content type can yield links.
func isParseableType(contentType string) bool {
	return contentType == "text/html" || contentType == "application/xhtml+xml"
}
