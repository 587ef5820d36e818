package client

import (
	"net"
	"net/http"
	"time"

	"github.com/opensearch-project/notifications-sub002/internal/settings"
)

// NewHTTPClient builds the shared webhook client from the HTTP settings.
// Redirects are never followed; a webhook that moved gets its 3xx status
// reported back instead of being chased.
func NewHTTPClient(cfg settings.HTTPSettings) *http.Client {
	connectTimeout := time.Duration(cfg.ConnectionTimeoutMS) * time.Millisecond
	socketTimeout := time.Duration(cfg.SocketTimeoutMS) * time.Millisecond

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		MaxIdleConns:          cfg.MaxConnections,
		MaxConnsPerHost:       cfg.MaxConnectionsPerRoute,
		MaxIdleConnsPerHost:   cfg.MaxConnectionsPerRoute,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: socketTimeout,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   connectTimeout + socketTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
