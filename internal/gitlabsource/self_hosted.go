package gitlabsource

import (
	"context"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	"github.com/temirov/gitlab2github/internal/projects"
)

const firstPageNumberConstant = 1

// SelfHostedLister lists every project visible to the token on a self-hosted GitLab instance.
type SelfHostedLister struct {
	client         *gitlab.Client
	host           string
	perPage        int
	snapshotWriter *projects.SnapshotWriter
	logger         *zap.Logger
}

// SelfHostedListerDependencies wires a SelfHostedLister.
type SelfHostedListerDependencies struct {
	Client         *gitlab.Client
	Host           string
	PerPage        int
	SnapshotWriter *projects.SnapshotWriter
	Logger         *zap.Logger
}

// NewSelfHostedLister validates dependencies and constructs the lister.
func NewSelfHostedLister(dependencies SelfHostedListerDependencies) (*SelfHostedLister, error) {
	if dependencies.Client == nil {
		return nil, ErrClientMissing
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelfHostedLister{
		client:         dependencies.Client,
		host:           dependencies.Host,
		perPage:        resolvePerPage(dependencies.PerPage),
		snapshotWriter: dependencies.SnapshotWriter,
		logger:         logger,
	}, nil
}

// ListProjects walks /projects page by page until the current page is the last one.
// Hosts that omit the total page count are walked until no next page is advertised.
func (lister *SelfHostedLister) ListProjects(executionContext context.Context) ([]projects.Descriptor, error) {
	descriptors := make([]projects.Descriptor, 0)
	pageNumber := firstPageNumberConstant

	for {
		listOptions := &gitlab.ListProjectsOptions{
			ListOptions: gitlab.ListOptions{Page: pageNumber, PerPage: lister.perPage},
		}
		pageProjects, response, listError := lister.client.Projects.ListProjects(listOptions, gitlab.WithContext(executionContext))
		if listError != nil {
			return nil, projects.ListingError{Host: lister.host, Page: pageNumber, Cause: listError}
		}

		for _, project := range pageProjects {
			descriptors = append(descriptors, describeProject(project))
		}

		lister.logger.Debug(
			pageListedMessageConstant,
			zap.String(logFieldHostConstant, lister.host),
			zap.Int(logFieldPageConstant, pageNumber),
			zap.Int(logFieldPageSizeConstant, len(pageProjects)),
		)

		if isLastPage(response, pageNumber) {
			break
		}
		pageNumber++
	}

	published, publishError := projects.Publish(lister.host, SelfHostedSnapshotLabel, descriptors, lister.snapshotWriter)
	if publishError != nil {
		return nil, publishError
	}

	lister.logger.Info(listingCompletedMessageConstant, zap.String(logFieldHostConstant, lister.host), zap.Int(logFieldProjectCountConstant, len(published)))
	return published, nil
}

func isLastPage(response *gitlab.Response, pageNumber int) bool {
	if response == nil {
		return true
	}
	if response.TotalPages > 0 {
		currentPage := response.CurrentPage
		if currentPage == 0 {
			currentPage = pageNumber
		}
		return currentPage >= response.TotalPages
	}
	return response.NextPage == 0
}
