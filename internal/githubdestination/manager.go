package githubdestination

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v61/github"
	"github.com/juju/clock"
	"github.com/juju/retry"
	"go.uber.org/zap"

	"github.com/temirov/gitlab2github/internal/projects"
)

const (
	// MasterBranchName is the legacy primary branch that gets renamed.
	MasterBranchName = "master"
	// MainBranchName is the primary branch every migrated repository converges to.
	MainBranchName = "main"

	defaultGitBaseURLConstant             = "https://github.com"
	pushURLTemplateConstant               = "%s/%s/%s.git"
	defaultConvergenceAttemptsConstant    = 10
	defaultConvergenceDelayConstant       = 2 * time.Second
	defaultConvergenceMaxDelayConstant    = 30 * time.Second
	operationSetVisibilityConstant        = "set visibility"
	operationGetDefaultBranchConstant     = "read default branch"
	operationSetDefaultBranchConstant     = "set default branch"
	operationRenameBranchConstant         = "rename branch"
	branchNotConvergedMessageConstant     = "default branch not converged"
	repositoryCreatedMessageConstant      = "destination repository created"
	visibilityUpdatedMessageConstant      = "destination repository set private"
	defaultBranchUpdatedMessageConstant   = "destination default branch updated"
	branchRenamedMessageConstant          = "destination branch renamed"
	convergenceAttemptMessageConstant     = "waiting for default branch to propagate"
	primaryBranchConvergedMessageConstant = "primary branch already converged"
	logFieldRepositoryConstant            = "repository"
	logFieldBranchConstant                = "branch"
	logFieldObservedBranchConstant        = "observed_branch"
	logFieldAttemptConstant               = "attempt"
	logFieldFromBranchConstant            = "from_branch"
	logFieldToBranchConstant              = "to_branch"
)

var errBranchNotConverged = errors.New(branchNotConvergedMessageConstant)

// ConvergencePolicy bounds the polling that follows every default branch mutation.
type ConvergencePolicy struct {
	Attempts int
	Delay    time.Duration
	MaxDelay time.Duration
}

func (policy ConvergencePolicy) withDefaults() ConvergencePolicy {
	resolved := policy
	if resolved.Attempts <= 0 {
		resolved.Attempts = defaultConvergenceAttemptsConstant
	}
	if resolved.Delay <= 0 {
		resolved.Delay = defaultConvergenceDelayConstant
	}
	if resolved.MaxDelay <= 0 {
		resolved.MaxDelay = defaultConvergenceMaxDelayConstant
	}
	if resolved.MaxDelay < resolved.Delay {
		resolved.MaxDelay = resolved.Delay
	}
	return resolved
}

// ManagerDependencies wires a RepositoryManager.
type ManagerDependencies struct {
	Client       *github.Client
	Organization string
	GitBaseURL   string
	Convergence  ConvergencePolicy
	Clock        clock.Clock
	Logger       *zap.Logger
}

// RepositoryManager mutates repositories inside the destination organization.
type RepositoryManager struct {
	client       *github.Client
	organization string
	gitBaseURL   string
	convergence  ConvergencePolicy
	clock        clock.Clock
	logger       *zap.Logger
}

// NewRepositoryManager validates dependencies and constructs the manager.
func NewRepositoryManager(dependencies ManagerDependencies) (*RepositoryManager, error) {
	if dependencies.Client == nil {
		return nil, ErrClientMissing
	}
	organization := strings.TrimSpace(dependencies.Organization)
	if len(organization) == 0 {
		return nil, ErrOrganizationMissing
	}

	gitBaseURL := strings.TrimRight(strings.TrimSpace(dependencies.GitBaseURL), urlPathSeparatorConstant)
	if len(gitBaseURL) == 0 {
		gitBaseURL = defaultGitBaseURLConstant
	}
	managerClock := dependencies.Clock
	if managerClock == nil {
		managerClock = clock.WallClock
	}
	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RepositoryManager{
		client:       dependencies.Client,
		organization: organization,
		gitBaseURL:   gitBaseURL,
		convergence:  dependencies.Convergence.withDefaults(),
		clock:        managerClock,
		logger:       logger,
	}, nil
}

// PushURL returns the git URL a repository is mirrored to.
func (manager *RepositoryManager) PushURL(repositoryName string) string {
	return fmt.Sprintf(pushURLTemplateConstant, manager.gitBaseURL, manager.organization, repositoryName)
}

// RepositoryExists checks the pre-fetched destination index. It never calls the API.
func (manager *RepositoryManager) RepositoryExists(repositoryName string, destinationIndex projects.NameIndex) bool {
	return destinationIndex.Contains(repositoryName)
}

// CreateRepository creates a private repository with issues, wiki and projects disabled.
func (manager *RepositoryManager) CreateRepository(executionContext context.Context, descriptor projects.Descriptor) error {
	repository := &github.Repository{
		Name:        github.String(descriptor.Name),
		Private:     github.Bool(true),
		HasIssues:   github.Bool(false),
		HasWiki:     github.Bool(false),
		HasProjects: github.Bool(false),
	}
	if len(descriptor.Description) > 0 {
		repository.Description = github.String(descriptor.Description)
	}

	_, response, createError := manager.client.Repositories.Create(executionContext, manager.organization, repository)
	statusCode := responseStatusCode(response)
	if createError != nil {
		return CreateError{RepositoryName: descriptor.Name, StatusCode: statusCode, Cause: createError}
	}
	if statusCode != http.StatusCreated {
		return CreateError{RepositoryName: descriptor.Name, StatusCode: statusCode}
	}

	manager.logger.Info(repositoryCreatedMessageConstant, zap.String(logFieldRepositoryConstant, descriptor.Name))
	return nil
}

// SetVisibilityPrivate marks the repository private.
func (manager *RepositoryManager) SetVisibilityPrivate(executionContext context.Context, repositoryName string) error {
	_, response, editError := manager.client.Repositories.Edit(executionContext, manager.organization, repositoryName, &github.Repository{Private: github.Bool(true)})
	if editError != nil {
		return ConfigError{RepositoryName: repositoryName, Operation: operationSetVisibilityConstant, StatusCode: responseStatusCode(response), Cause: editError}
	}

	manager.logger.Info(visibilityUpdatedMessageConstant, zap.String(logFieldRepositoryConstant, repositoryName))
	return nil
}

// GetDefaultBranch reads the live default branch. The value is never cached.
func (manager *RepositoryManager) GetDefaultBranch(executionContext context.Context, repositoryName string) (string, error) {
	repository, response, getError := manager.client.Repositories.Get(executionContext, manager.organization, repositoryName)
	if getError != nil {
		return "", ConfigError{RepositoryName: repositoryName, Operation: operationGetDefaultBranchConstant, StatusCode: responseStatusCode(response), Cause: getError}
	}
	return repository.GetDefaultBranch(), nil
}

// SetDefaultBranch updates the default branch and waits until the live value reports it.
func (manager *RepositoryManager) SetDefaultBranch(executionContext context.Context, repositoryName string, branchName string) error {
	_, response, editError := manager.client.Repositories.Edit(executionContext, manager.organization, repositoryName, &github.Repository{DefaultBranch: github.String(branchName)})
	if editError != nil {
		return ConfigError{RepositoryName: repositoryName, Operation: operationSetDefaultBranchConstant, StatusCode: responseStatusCode(response), Cause: editError}
	}

	if awaitError := manager.awaitDefaultBranch(executionContext, repositoryName, branchName); awaitError != nil {
		return awaitError
	}

	manager.logger.Info(defaultBranchUpdatedMessageConstant, zap.String(logFieldRepositoryConstant, repositoryName), zap.String(logFieldBranchConstant, branchName))
	return nil
}

// RenameBranch waits until oldName is the live default, then renames it to newName.
func (manager *RepositoryManager) RenameBranch(executionContext context.Context, repositoryName string, oldName string, newName string) error {
	if awaitError := manager.awaitDefaultBranch(executionContext, repositoryName, oldName); awaitError != nil {
		return awaitError
	}

	_, response, renameError := manager.client.Repositories.RenameBranch(executionContext, manager.organization, repositoryName, oldName, newName)
	if renameError != nil {
		return ConfigError{RepositoryName: repositoryName, Operation: operationRenameBranchConstant, StatusCode: responseStatusCode(response), Cause: renameError}
	}

	manager.logger.Info(
		branchRenamedMessageConstant,
		zap.String(logFieldRepositoryConstant, repositoryName),
		zap.String(logFieldFromBranchConstant, oldName),
		zap.String(logFieldToBranchConstant, newName),
	)
	return nil
}

// ConfigurePrimaryBranch drives the default branch to main.
//
// A repository that existed before the run keeps its live default as the starting point; a freshly
// created one starts from the source default, since its live value may still be the organization
// default until the pushed refs land. The starting branch is made default first because GitHub only
// renames the current default and only accepts defaults that exist as refs. A master start is renamed
// to main. Nothing is changed when both the starting branch and the live default are already main.
func (manager *RepositoryManager) ConfigurePrimaryBranch(executionContext context.Context, descriptor projects.Descriptor, destinationAlreadyHadRepository bool) error {
	liveBranch, readError := manager.GetDefaultBranch(executionContext, descriptor.Name)
	if readError != nil {
		return readError
	}

	startingBranch := descriptor.DefaultBranch
	if destinationAlreadyHadRepository || len(strings.TrimSpace(startingBranch)) == 0 {
		startingBranch = liveBranch
	}
	if startingBranch == MainBranchName && liveBranch == MainBranchName {
		manager.logger.Info(primaryBranchConvergedMessageConstant, zap.String(logFieldRepositoryConstant, descriptor.Name))
		return nil
	}

	if setError := manager.SetDefaultBranch(executionContext, descriptor.Name, startingBranch); setError != nil {
		return setError
	}
	if startingBranch == MasterBranchName {
		if renameError := manager.RenameBranch(executionContext, descriptor.Name, MasterBranchName, MainBranchName); renameError != nil {
			return renameError
		}
	}
	return manager.SetDefaultBranch(executionContext, descriptor.Name, MainBranchName)
}

func (manager *RepositoryManager) awaitDefaultBranch(executionContext context.Context, repositoryName string, expectedBranch string) error {
	observedBranch := ""
	callError := retry.Call(retry.CallArgs{
		Func: func() error {
			liveBranch, readError := manager.GetDefaultBranch(executionContext, repositoryName)
			if readError != nil {
				return readError
			}
			observedBranch = liveBranch
			if liveBranch != expectedBranch {
				return errBranchNotConverged
			}
			return nil
		},
		IsFatalError: func(candidate error) bool {
			return !errors.Is(candidate, errBranchNotConverged)
		},
		NotifyFunc: func(lastError error, attempt int) {
			manager.logger.Debug(
				convergenceAttemptMessageConstant,
				zap.String(logFieldRepositoryConstant, repositoryName),
				zap.String(logFieldBranchConstant, expectedBranch),
				zap.String(logFieldObservedBranchConstant, observedBranch),
				zap.Int(logFieldAttemptConstant, attempt),
			)
		},
		Attempts:    manager.convergence.Attempts,
		Delay:       manager.convergence.Delay,
		MaxDelay:    manager.convergence.MaxDelay,
		BackoffFunc: retry.DoubleDelay,
		Clock:       manager.clock,
		Stop:        executionContext.Done(),
	})
	if callError == nil {
		return nil
	}

	if retry.IsAttemptsExceeded(callError) {
		return ConvergenceTimeoutError{
			RepositoryName: repositoryName,
			ExpectedBranch: expectedBranch,
			ObservedBranch: observedBranch,
			Attempts:       manager.convergence.Attempts,
		}
	}
	if retry.IsRetryStopped(callError) && executionContext.Err() != nil {
		return executionContext.Err()
	}

	var configError ConfigError
	if errors.As(callError, &configError) {
		return configError
	}
	return callError
}
