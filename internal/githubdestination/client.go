package githubdestination

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v61/github"
)

const (
	urlPathSeparatorConstant           = "/"
	baseURLParseErrorTemplateConstant  = "parse github api url %q: %w"
	missingClientMessageConstant       = "github client not configured"
	missingOrganizationMessageConstant = "github organization not configured"
)

var (
	// ErrClientMissing indicates a component was built without a GitHub client.
	ErrClientMissing = errors.New(missingClientMessageConstant)
	// ErrOrganizationMissing indicates a component was built without an organization.
	ErrOrganizationMissing = errors.New(missingOrganizationMessageConstant)
)

// NewClient constructs a go-github client on top of an authenticated HTTP client.
// An empty apiURL keeps the public api.github.com endpoint.
func NewClient(httpClient *http.Client, apiURL string) (*github.Client, error) {
	client := github.NewClient(httpClient)

	trimmedAPIURL := strings.TrimSpace(apiURL)
	if len(trimmedAPIURL) == 0 {
		return client, nil
	}
	if !strings.HasSuffix(trimmedAPIURL, urlPathSeparatorConstant) {
		trimmedAPIURL += urlPathSeparatorConstant
	}

	baseURL, parseError := url.Parse(trimmedAPIURL)
	if parseError != nil {
		return nil, fmt.Errorf(baseURLParseErrorTemplateConstant, apiURL, parseError)
	}
	client.BaseURL = baseURL
	return client, nil
}

func responseStatusCode(response *github.Response) int {
	if response == nil || response.Response == nil {
		return 0
	}
	return response.StatusCode
}
