package client

import (
	"net"
	"net/http"
	"time"
)

// NewHTTPClient creates an HTTP client for sequential benchmark requests.
// A single idle connection is kept so successive trials reuse it.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: NewHTTPTransport(),
	}
}

// NewHTTPTransport leaves compression to the caller: a gzip request sets
// Accept-Encoding itself and the body is read as sent.
func NewHTTPTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true,
		ForceAttemptHTTP2:   false,
	}
}
