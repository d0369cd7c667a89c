package fetcher

import (
	"time"

	"resty.dev/v3"
)

const (
	// DefaultTimeout bounds a single upstream call.
	DefaultTimeout = 30 * time.Second

	userAgent = "commodityapi/2.0"
)

// NewHTTPClient creates the resty client shared by the upstream adapters.
// Retries are disabled: every refresh is a single upstream attempt, and a
// failed attempt surfaces to the caller rather than being repeated here.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", userAgent)
}
