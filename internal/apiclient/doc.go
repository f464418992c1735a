// Package apiclient builds the HTTP clients used to talk to the source and destination hosting APIs.
//
// Clients carry a request timeout, optionally skip TLS verification for self-hosted instances, attach
// bearer tokens through golang.org/x/oauth2, and throttle requests with golang.org/x/time/rate.
package apiclient
