package gitlabsource

import (
	"context"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	"github.com/temirov/gitlab2github/internal/projects"
)

// GroupLister lists the projects of one or more gitlab.com group namespaces.
type GroupLister struct {
	client         *gitlab.Client
	host           string
	namespaces     []string
	perPage        int
	snapshotWriter *projects.SnapshotWriter
	logger         *zap.Logger
}

// GroupListerDependencies wires a GroupLister.
type GroupListerDependencies struct {
	Client         *gitlab.Client
	Host           string
	Namespaces     []string
	PerPage        int
	SnapshotWriter *projects.SnapshotWriter
	Logger         *zap.Logger
}

// NewGroupLister validates dependencies and constructs the lister.
func NewGroupLister(dependencies GroupListerDependencies) (*GroupLister, error) {
	if dependencies.Client == nil {
		return nil, ErrClientMissing
	}

	namespaces := make([]string, 0, len(dependencies.Namespaces))
	for _, namespace := range dependencies.Namespaces {
		trimmedNamespace := strings.TrimSpace(namespace)
		if len(trimmedNamespace) > 0 {
			namespaces = append(namespaces, trimmedNamespace)
		}
	}
	if len(namespaces) == 0 {
		return nil, ErrNamespacesMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GroupLister{
		client:         dependencies.Client,
		host:           dependencies.Host,
		namespaces:     namespaces,
		perPage:        resolvePerPage(dependencies.PerPage),
		snapshotWriter: dependencies.SnapshotWriter,
		logger:         logger,
	}, nil
}

// ListProjects walks each namespace page by page until an empty page is returned.
func (lister *GroupLister) ListProjects(executionContext context.Context) ([]projects.Descriptor, error) {
	descriptors := make([]projects.Descriptor, 0)

	for _, namespace := range lister.namespaces {
		for pageNumber := firstPageNumberConstant; ; pageNumber++ {
			listOptions := &gitlab.ListGroupProjectsOptions{
				ListOptions: gitlab.ListOptions{Page: pageNumber, PerPage: lister.perPage},
			}
			pageProjects, _, listError := lister.client.Groups.ListGroupProjects(namespace, listOptions, gitlab.WithContext(executionContext))
			if listError != nil {
				return nil, projects.ListingError{Host: lister.host, Page: pageNumber, Cause: listError}
			}

			lister.logger.Debug(
				pageListedMessageConstant,
				zap.String(logFieldHostConstant, lister.host),
				zap.String(logFieldNamespaceConstant, namespace),
				zap.Int(logFieldPageConstant, pageNumber),
				zap.Int(logFieldPageSizeConstant, len(pageProjects)),
			)

			if len(pageProjects) == 0 {
				break
			}
			for _, project := range pageProjects {
				descriptors = append(descriptors, describeProject(project))
			}
		}
	}

	published, publishError := projects.Publish(lister.host, GroupSnapshotLabel, descriptors, lister.snapshotWriter)
	if publishError != nil {
		return nil, publishError
	}

	lister.logger.Info(listingCompletedMessageConstant, zap.String(logFieldHostConstant, lister.host), zap.Int(logFieldProjectCountConstant, len(published)))
	return published, nil
}
