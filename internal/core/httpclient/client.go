// Package httpclient configures the HTTP client used for catalog queries and bulk downloads.
package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewOutbound creates the client shared by catalog and download calls.
// A zero timeout leaves requests unbounded; point-cloud tiles can take minutes.
func NewOutbound(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
