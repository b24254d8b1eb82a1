package netutil

import (
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// ErrNotReplayable marks a request whose body cannot be rewound for another attempt.
var ErrNotReplayable = errors.New("netutil: request body cannot be replayed")

// ShouldRetry reports whether a transport error is worth retrying.
// It covers transient dial, reset and timeout failures produced by net/http
// while contacting the Bot API.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil && urlErr.Err != err {
		return ShouldRetry(urlErr.Err)
	}
	return false
}

// RetryableStatus reports gateway statuses that usually clear up on their own.
// 429 is left to the caller because the Bot API attaches its own retry_after.
func RetryableStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// MethodFromPath extracts the Bot API method name from "/bot<token>/<method>"
// without leaking the token into logs.
func MethodFromPath(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
