package gitlabsource

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/temirov/gitlab2github/internal/projects"
)

const (
	// SelfHostedSnapshotLabel names the audit snapshot of the self-hosted listing.
	SelfHostedSnapshotLabel = "self_hosted"
	// GroupSnapshotLabel names the audit snapshot of the gitlab.com listing.
	GroupSnapshotLabel = "gitlab_com"

	defaultPerPageConstant              = 100
	missingAPIURLMessageConstant        = "gitlab api url not configured"
	missingTokenMessageConstant         = "gitlab access token not configured"
	missingClientMessageConstant        = "gitlab client not configured"
	missingNamespacesMessageConstant    = "gitlab group namespaces not configured"
	clientCreationErrorTemplateConstant = "create gitlab client for %s: %w"
	logFieldHostConstant                = "host"
	logFieldPageConstant                = "page"
	logFieldPageSizeConstant            = "page_size"
	logFieldNamespaceConstant           = "namespace"
	logFieldProjectCountConstant        = "project_count"
	pageListedMessageConstant           = "listed source page"
	listingCompletedMessageConstant     = "source listing completed"
)

var (
	// ErrAPIURLMissing indicates the lister was built without an API base URL.
	ErrAPIURLMissing = errors.New(missingAPIURLMessageConstant)
	// ErrTokenMissing indicates the lister was built without an access token.
	ErrTokenMissing = errors.New(missingTokenMessageConstant)
	// ErrClientMissing indicates the lister was built without a client.
	ErrClientMissing = errors.New(missingClientMessageConstant)
	// ErrNamespacesMissing indicates a group lister without namespaces.
	ErrNamespacesMissing = errors.New(missingNamespacesMessageConstant)
)

// ClientOptions describe how to reach a GitLab API.
type ClientOptions struct {
	APIURL      string
	AccessToken string
	HTTPClient  *http.Client
}

// NewClient constructs a GitLab API client authenticated with a private token.
func NewClient(options ClientOptions) (*gitlab.Client, error) {
	trimmedAPIURL := strings.TrimSpace(options.APIURL)
	if len(trimmedAPIURL) == 0 {
		return nil, ErrAPIURLMissing
	}
	trimmedToken := strings.TrimSpace(options.AccessToken)
	if len(trimmedToken) == 0 {
		return nil, ErrTokenMissing
	}

	clientOptions := []gitlab.ClientOptionFunc{gitlab.WithBaseURL(trimmedAPIURL)}
	if options.HTTPClient != nil {
		clientOptions = append(clientOptions, gitlab.WithHTTPClient(options.HTTPClient))
	}

	client, clientError := gitlab.NewClient(trimmedToken, clientOptions...)
	if clientError != nil {
		return nil, fmt.Errorf(clientCreationErrorTemplateConstant, trimmedAPIURL, clientError)
	}
	return client, nil
}

// HostName extracts the host of an API URL for log fields and errors.
func HostName(apiURL string) string {
	parsedURL, parseError := url.Parse(strings.TrimSpace(apiURL))
	if parseError != nil || len(parsedURL.Host) == 0 {
		return strings.TrimSpace(apiURL)
	}
	return parsedURL.Host
}

func describeProject(project *gitlab.Project) projects.Descriptor {
	return projects.Descriptor{
		Name:          project.Name,
		HTTPCloneURL:  project.HTTPURLToRepo,
		DefaultBranch: project.DefaultBranch,
		Archived:      project.Archived,
		Description:   project.Description,
		Raw:           project,
	}
}

func resolvePerPage(perPage int) int {
	if perPage <= 0 {
		return defaultPerPageConstant
	}
	return perPage
}
