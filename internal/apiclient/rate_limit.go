package apiclient

import (
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitedTransport waits on a token bucket before delegating each request.
type RateLimitedTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

// NewRateLimitedTransport wraps the base transport. A nil base falls back to http.DefaultTransport.
func NewRateLimitedTransport(base http.RoundTripper, limiter *rate.Limiter) *RateLimitedTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &RateLimitedTransport{base: base, limiter: limiter}
}

// RoundTrip implements http.RoundTripper.
func (transport *RateLimitedTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	if transport.limiter != nil {
		if waitError := transport.limiter.Wait(request.Context()); waitError != nil {
			return nil, waitError
		}
	}
	return transport.base.RoundTrip(request)
}
