package apiclient

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	defaultRequestTimeoutConstant     = 60 * time.Second
	rateLimiterBurstConstant          = 1
	missingAccessTokenMessageConstant = "api client access token not provided"
	invalidRequestRateMessageConstant = "api client requests per second must not be negative"
	bearerTokenTypeConstant           = "Bearer"
)

var (
	// ErrAccessTokenMissing indicates a token-authenticated client was requested without a token.
	ErrAccessTokenMissing = errors.New(missingAccessTokenMessageConstant)
	// ErrInvalidRequestRate indicates a negative request rate.
	ErrInvalidRequestRate = errors.New(invalidRequestRateMessageConstant)
)

// Options configure HTTP client construction.
type Options struct {
	RequestTimeout     time.Duration
	InsecureSkipVerify bool
	RequestsPerSecond  float64
}

// NewHTTPClient constructs a plain HTTP client honoring the timeout, TLS and throttling options.
func NewHTTPClient(options Options) (*http.Client, error) {
	transport, transportError := buildTransport(options)
	if transportError != nil {
		return nil, transportError
	}
	return &http.Client{Transport: transport, Timeout: resolveTimeout(options.RequestTimeout)}, nil
}

// NewTokenHTTPClient constructs an HTTP client that authenticates every request with the bearer token.
func NewTokenHTTPClient(executionContext context.Context, accessToken string, options Options) (*http.Client, error) {
	trimmedAccessToken := strings.TrimSpace(accessToken)
	if len(trimmedAccessToken) == 0 {
		return nil, ErrAccessTokenMissing
	}

	baseClient, clientError := NewHTTPClient(options)
	if clientError != nil {
		return nil, clientError
	}

	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: trimmedAccessToken, TokenType: bearerTokenTypeConstant})
	clientContext := context.WithValue(executionContext, oauth2.HTTPClient, baseClient)
	authenticatedClient := oauth2.NewClient(clientContext, tokenSource)
	authenticatedClient.Timeout = baseClient.Timeout
	return authenticatedClient, nil
}

func buildTransport(options Options) (http.RoundTripper, error) {
	if options.RequestsPerSecond < 0 {
		return nil, ErrInvalidRequestRate
	}

	baseTransport := http.DefaultTransport.(*http.Transport).Clone()
	if options.InsecureSkipVerify {
		baseTransport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	if options.RequestsPerSecond == 0 {
		return baseTransport, nil
	}
	return NewRateLimitedTransport(baseTransport, rate.NewLimiter(rate.Limit(options.RequestsPerSecond), rateLimiterBurstConstant)), nil
}

func resolveTimeout(requestTimeout time.Duration) time.Duration {
	if requestTimeout <= 0 {
		return defaultRequestTimeoutConstant
	}
	return requestTimeout
}
