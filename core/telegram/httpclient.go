package telegram

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/postbot/core/logger"
	"github.com/m3rciful/postbot/core/telegram/netutil"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultClientTimeout     = 30 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
	defaultRetryAttempts     = 3
	defaultRetryBackoff      = time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Bot API calls.
// The response header timeout must outlive the long-poll window, so only the
// overall client timeout bounds a request.
func BuildHTTPClient() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ExpectContinueTimeout: time.Second,
	}

	return &http.Client{
		Timeout: defaultClientTimeout,
		Transport: &retryTransport{
			base:       transport,
			maxRetries: defaultRetryAttempts,
			backoff:    defaultRetryBackoff,
		},
	}
}

// retryTransport repeats requests that failed before a response arrived or
// that the gateway rejected with a transient status.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.maxRetries + 1

	var (
		resp *http.Response
		err  error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		curr := req
		if attempt > 1 {
			if curr, err = rewind(req); err != nil {
				return nil, err
			}
		}

		resp, err = base.RoundTrip(curr)
		retry := false
		switch {
		case err != nil:
			retry = netutil.ShouldRetry(err)
		case netutil.RetryableStatus(resp.StatusCode):
			retry = true
		}
		if !retry || attempt == attempts {
			return resp, err
		}
		if resp != nil {
			_ = resp.Body.Close()
		}

		delay := t.backoff * time.Duration(attempt)
		logRetry(req.Context(), req, attempt, delay, resp, err)
		if delay <= 0 {
			continue
		}
		timer := time.NewTimer(delay)
		select {
		case <-req.Context().Done():
			timer.Stop()
			return nil, req.Context().Err()
		case <-timer.C:
		}
	}
	return resp, err
}

// rewind clones req with a fresh body. Requests without GetBody cannot be replayed.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, netutil.ErrNotReplayable
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

func logRetry(ctx context.Context, req *http.Request, attempt int, delay time.Duration, resp *http.Response, err error) {
	if logger.TWire == nil {
		return
	}
	attrs := []slog.Attr{
		slog.String("event", "http.retry"),
		slog.String("method", netutil.MethodFromPath(req.URL.Path)),
		slog.Int("attempt", attempt),
		slog.Duration("duration", delay),
	}
	if resp != nil {
		attrs = append(attrs, slog.Int("status", resp.StatusCode))
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
	}
	logger.TWire.LogAttrs(ctx, slog.LevelWarn, "bot api request retried", attrs...)
}
