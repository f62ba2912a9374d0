package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// StatusError is the final answer for a response outside 2xx. Header and Body
// are kept so callers can look at what the server sent back.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("httpx: %s %s: %d %s", e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	if b := excerpt(e.Body, 200); b != "" {
		msg += ": " + b
	}
	return msg
}

func excerpt(b []byte, max int) string {
	s := strings.Join(strings.Fields(string(b)), " ")
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// RetryConfig says how often and how patiently a request is repeated.
type RetryConfig struct {
	// MaxAttempts counts the first try. Zero or less means DefaultRetryConfig.
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retry5xx repeats on any server error.
	Retry5xx bool
	// RetryStatuses lists further statuses worth repeating.
	RetryStatuses map[int]bool
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 8,
		BaseDelay:   700 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusRequestTimeout:     true,
			http.StatusTooEarly:           true,
			http.StatusTooManyRequests:    true,
			http.StatusBadGateway:         true,
			http.StatusServiceUnavailable: true,
			http.StatusGatewayTimeout:     true,
		},
	}
}

// SingleAttempt keeps the default classification but never repeats.
func SingleAttempt() RetryConfig {
	cfg := DefaultRetryConfig()
	cfg.MaxAttempts = 1
	return cfg
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		return def
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	if c.RetryStatuses == nil {
		c.RetryStatuses = def.RetryStatuses
	}
	return c
}

func (c RetryConfig) retryStatus(code int) bool {
	if c.RetryStatuses[code] {
		return true
	}
	return c.Retry5xx && code >= 500 && code <= 599
}

// delay is how long to wait after the given failed attempt (1-based). A server
// hint (Retry-After) wins over the exponential schedule.
func (c RetryConfig) delay(attempt int, hint time.Duration) time.Duration {
	if hint > 0 {
		return hint
	}
	d := c.BaseDelay << (attempt - 1)
	if d <= 0 || d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d + time.Duration(rand.Int63n(int64(400*time.Millisecond)))
}

// outcome is one round trip. retry is set when a later attempt could succeed.
type outcome struct {
	resp  *http.Response
	body  []byte
	err   error
	retry bool
	hint  time.Duration
}

// Do sends the request built by newReq, repeating it per cfg. The body is always
// read to the end so the connection goes back to the pool. A non-2xx response is
// returned together with a *StatusError.
func Do(
	ctx context.Context,
	client *http.Client,
	newReq func(context.Context) (*http.Request, error),
	cfg RetryConfig,
) (*http.Response, []byte, error) {
	cfg = cfg.withDefaults()
	log := zerolog.Ctx(ctx)

	for attempt := 1; ; attempt++ {
		req, err := newReq(ctx)
		if err != nil {
			return nil, nil, err
		}

		o := roundTrip(client, req, cfg)
		if o.err == nil || !o.retry || attempt >= cfg.MaxAttempts || ctx.Err() != nil {
			return o.resp, o.body, o.err
		}

		log.Debug().Err(o.err).Str("url", req.URL.String()).Int("attempt", attempt).Msg("retrying request")
		if err := wait(ctx, cfg.delay(attempt, o.hint)); err != nil {
			return nil, nil, err
		}
	}
}

func roundTrip(client *http.Client, req *http.Request, cfg RetryConfig) outcome {
	resp, err := client.Do(req)
	if err != nil {
		return outcome{err: err, retry: transient(err)}
	}

	body, err := drain(resp.Body)
	if err != nil {
		return outcome{resp: resp, body: body, err: err, retry: transient(err)}
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return outcome{resp: resp, body: body}
	}

	return outcome{
		resp: resp,
		body: body,
		err: &StatusError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		},
		retry: cfg.retryStatus(resp.StatusCode),
		hint:  RetryAfter(resp.Header),
	}
}

// Get fetches rawURL and returns its body. Any failure, a non-2xx status included,
// yields a nil body.
func Get(ctx context.Context, client *http.Client, rawURL string, cfg RetryConfig) ([]byte, error) {
	_, body, err := Do(ctx, client, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	}, cfg)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func drain(rc io.ReadCloser) ([]byte, error) {
	defer rc.Close()
	return io.ReadAll(rc)
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// transient reports whether a transport error is worth another attempt.
// Cancellation never is; timeouts and dropped connections are.
func transient(err error) bool {
	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	}

	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection reset", "broken pipe", "eof"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// RetryAfter reads a Retry-After header given in seconds or as an HTTP date.
// Missing, malformed and past values give 0.
func RetryAfter(h http.Header) time.Duration {
	v := strings.TrimSpace(h.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
