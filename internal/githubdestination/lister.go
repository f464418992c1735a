package githubdestination

import (
	"context"
	"strings"

	"github.com/google/go-github/v61/github"
	"go.uber.org/zap"

	"github.com/temirov/gitlab2github/internal/projects"
)

const (
	// SnapshotLabel names the audit snapshot of the destination listing.
	SnapshotLabel = "github"

	defaultPerPageConstant          = 100
	firstPageNumberConstant         = 1
	pageListedMessageConstant       = "listed destination page"
	listingCompletedMessageConstant = "destination listing completed"
	logFieldOrganizationConstant    = "organization"
	logFieldPageConstant            = "page"
	logFieldPageSizeConstant        = "page_size"
	logFieldProjectCountConstant    = "project_count"
)

// OrganizationLister lists every repository of a GitHub organization.
type OrganizationLister struct {
	client         *github.Client
	host           string
	organization   string
	perPage        int
	snapshotWriter *projects.SnapshotWriter
	logger         *zap.Logger
}

// OrganizationListerDependencies wires an OrganizationLister.
type OrganizationListerDependencies struct {
	Client         *github.Client
	Host           string
	Organization   string
	PerPage        int
	SnapshotWriter *projects.SnapshotWriter
	Logger         *zap.Logger
}

// NewOrganizationLister validates dependencies and constructs the lister.
func NewOrganizationLister(dependencies OrganizationListerDependencies) (*OrganizationLister, error) {
	if dependencies.Client == nil {
		return nil, ErrClientMissing
	}
	organization := strings.TrimSpace(dependencies.Organization)
	if len(organization) == 0 {
		return nil, ErrOrganizationMissing
	}

	perPage := dependencies.PerPage
	if perPage <= 0 {
		perPage = defaultPerPageConstant
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	host := dependencies.Host
	if len(host) == 0 {
		host = dependencies.Client.BaseURL.Host
	}

	return &OrganizationLister{
		client:         dependencies.Client,
		host:           host,
		organization:   organization,
		perPage:        perPage,
		snapshotWriter: dependencies.SnapshotWriter,
		logger:         logger,
	}, nil
}

// ListProjects walks /orgs/{org}/repos until an empty page is returned.
func (lister *OrganizationLister) ListProjects(executionContext context.Context) ([]projects.Descriptor, error) {
	descriptors := make([]projects.Descriptor, 0)

	for pageNumber := firstPageNumberConstant; ; pageNumber++ {
		listOptions := &github.RepositoryListByOrgOptions{
			ListOptions: github.ListOptions{Page: pageNumber, PerPage: lister.perPage},
		}
		repositories, _, listError := lister.client.Repositories.ListByOrg(executionContext, lister.organization, listOptions)
		if listError != nil {
			return nil, projects.ListingError{Host: lister.host, Page: pageNumber, Cause: listError}
		}

		lister.logger.Debug(
			pageListedMessageConstant,
			zap.String(logFieldOrganizationConstant, lister.organization),
			zap.Int(logFieldPageConstant, pageNumber),
			zap.Int(logFieldPageSizeConstant, len(repositories)),
		)

		if len(repositories) == 0 {
			break
		}
		for _, repository := range repositories {
			descriptors = append(descriptors, describeRepository(repository))
		}
	}

	published, publishError := projects.Publish(lister.host, SnapshotLabel, descriptors, lister.snapshotWriter)
	if publishError != nil {
		return nil, publishError
	}

	lister.logger.Info(listingCompletedMessageConstant, zap.String(logFieldOrganizationConstant, lister.organization), zap.Int(logFieldProjectCountConstant, len(published)))
	return published, nil
}

func describeRepository(repository *github.Repository) projects.Descriptor {
	return projects.Descriptor{
		Name:          repository.GetName(),
		HTTPCloneURL:  repository.GetCloneURL(),
		DefaultBranch: repository.GetDefaultBranch(),
		Archived:      repository.GetArchived(),
		Description:   repository.GetDescription(),
		Raw:           repository,
	}
}
