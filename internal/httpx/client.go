// Package httpx holds the outbound HTTP plumbing shared by the article
// fetchers and the HTTP-based LLM providers.
package httpx

import (
	"net"
	"net/http"
	"time"
)

const DefaultTimeout = 120 * time.Second

// DefaultUserAgent is sent on article downloads; some publishers refuse the
// Go default.
const DefaultUserAgent = "Mozilla/5.0 (compatible; newsbot/1.0; +https://github.com/newsbot)"

// NewClient returns an HTTP client with connection pooling.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
