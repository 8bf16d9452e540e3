package provider

import (
	"net/http"
	"time"
)

// NewHTTPClient returns a client that never follows redirects. A 3xx is
// handed back to the caller as-is, so credential headers such as xi-api-key
// or X-API-Key are only ever sent to the configured host.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
