package migrate_test

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/temirov/gitlab2github/internal/githubdestination"
	githubfake "github.com/temirov/gitlab2github/internal/githubdestination/testsupport"
	"github.com/temirov/gitlab2github/internal/migrate"
	"github.com/temirov/gitlab2github/internal/migrate/testsupport"
	"github.com/temirov/gitlab2github/internal/projects"
	"github.com/temirov/gitlab2github/internal/transfer"
)

const (
	testOrganizationConstant  = "library-org"
	testAlphaCloneURLConstant = "https://gitlab.example.com/library/alpha.git"
	testBetaCloneURLConstant  = "https://gitlab.example.com/library/beta.git"
	testGammaCloneURLConstant = "https://gitlab.example.com/library/gamma.git"
	testAlphaPushURLConstant  = "https://github.com/library-org/alpha.git"
	testStageMessageConstant  = "migration stage"
	testCreatePathConstant    = "/orgs/library-org/repos"
	testDevelopBranchConstant = "develop"
)

type stubLister struct {
	descriptors []projects.Descriptor
	listError   error
	onList      func()
	calls       int
}

func (lister *stubLister) ListProjects(context.Context) ([]projects.Descriptor, error) {
	lister.calls++
	if lister.onList != nil {
		lister.onList()
	}
	if lister.listError != nil {
		return nil, lister.listError
	}
	return append([]projects.Descriptor{}, lister.descriptors...), nil
}

type migrationHarness struct {
	service           *migrate.Service
	destination       *githubfake.FakeGitHub
	gitExecutor       *testsupport.GitExecutorStub
	sourceLister      *stubLister
	destinationLister *stubLister
	repositoriesRoot  string
	logs              *observer.ObservedLogs
}

func newMigrationHarness(testInstance *testing.T, sourceProjects []projects.Descriptor, existingRepositories []githubfake.FakeRepository) *migrationHarness {
	testInstance.Helper()

	destination := githubfake.NewFakeGitHub(testOrganizationConstant)
	testInstance.Cleanup(destination.Close)
	destinationDescriptors := make([]projects.Descriptor, 0, len(existingRepositories))
	for _, repository := range existingRepositories {
		destination.AddRepository(repository)
		destinationDescriptors = append(destinationDescriptors, projects.Descriptor{Name: repository.Name, DefaultBranch: repository.DefaultBranch})
	}

	client, clientError := githubdestination.NewClient(http.DefaultClient, destination.URL())
	require.NoError(testInstance, clientError)

	observerCore, observedLogs := observer.New(zap.DebugLevel)
	logger := zap.New(observerCore)

	manager, managerError := githubdestination.NewRepositoryManager(githubdestination.ManagerDependencies{
		Client:       client,
		Organization: testOrganizationConstant,
		Convergence:  githubdestination.ConvergencePolicy{Attempts: 5, Delay: time.Millisecond, MaxDelay: 4 * time.Millisecond},
		Logger:       logger,
	})
	require.NoError(testInstance, managerError)

	gitExecutor := &testsupport.GitExecutorStub{
		Destination: destination,
		SourceRepositories: map[string]testsupport.SourceRepository{
			testAlphaCloneURLConstant: {DefaultBranch: githubdestination.MasterBranchName, Branches: []string{githubdestination.MasterBranchName, testDevelopBranchConstant}},
			testBetaCloneURLConstant:  {DefaultBranch: testDevelopBranchConstant, Branches: []string{testDevelopBranchConstant, githubdestination.MainBranchName}},
			testGammaCloneURLConstant: {DefaultBranch: githubdestination.MainBranchName, Branches: []string{githubdestination.MainBranchName}},
		},
	}
	transferrer, transferError := transfer.NewTransferrer(transfer.Dependencies{
		GitExecutor:            gitExecutor,
		SourceCredentials:      transfer.TokenCredentials(transfer.GitLabTokenUsername, "source-token"),
		DestinationCredentials: transfer.TokenCredentials(transfer.GitHubTokenUsername, "destination-token"),
	})
	require.NoError(testInstance, transferError)

	sourceLister := &stubLister{descriptors: sourceProjects}
	destinationLister := &stubLister{descriptors: destinationDescriptors}

	service, serviceError := migrate.NewService(migrate.ServiceDependencies{
		Logger:             logger,
		SourceLister:       sourceLister,
		DestinationLister:  destinationLister,
		DestinationManager: manager,
		RepositoryTransfer: transferrer,
	})
	require.NoError(testInstance, serviceError)

	return &migrationHarness{
		service:           service,
		destination:       destination,
		gitExecutor:       gitExecutor,
		sourceLister:      sourceLister,
		destinationLister: destinationLister,
		repositoriesRoot:  filepath.Join(testInstance.TempDir(), "repos"),
		logs:              observedLogs,
	}
}

func (harness *migrationHarness) stagesOf(projectName string) []migrate.Stage {
	stages := []migrate.Stage{}
	for _, entry := range harness.logs.FilterMessage(testStageMessageConstant).FilterField(zap.String("project", projectName)).All() {
		stages = append(stages, migrate.Stage(entry.ContextMap()["stage"].(string)))
	}
	return stages
}

func alphaDescriptor() projects.Descriptor {
	return projects.Descriptor{Name: "alpha", HTTPCloneURL: testAlphaCloneURLConstant, DefaultBranch: githubdestination.MasterBranchName, Description: "catalog"}
}

func betaDescriptor() projects.Descriptor {
	return projects.Descriptor{Name: "beta", HTTPCloneURL: testBetaCloneURLConstant, DefaultBranch: testDevelopBranchConstant}
}

func gammaDescriptor() projects.Descriptor {
	return projects.Descriptor{Name: "gamma", HTTPCloneURL: testGammaCloneURLConstant, DefaultBranch: githubdestination.MainBranchName, Archived: true}
}

func TestRunMigratesNewProjectEndToEnd(testInstance *testing.T) {
	harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor()}, nil)

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{"alpha"}, report.CompletedNames())
	require.Empty(testInstance, report.Failed)
	require.Equal(testInstance, migrate.StageDone, report.Completed[0].FinalStage)

	repository, exists := harness.destination.Repository("alpha")
	require.True(testInstance, exists)
	require.True(testInstance, repository.Private)
	require.False(testInstance, repository.HasIssues)
	require.Equal(testInstance, "catalog", repository.Description)
	require.Equal(testInstance, githubdestination.MainBranchName, repository.DefaultBranch)
	require.Equal(testInstance, []string{testDevelopBranchConstant, githubdestination.MainBranchName}, repository.Branches)

	commands := harness.gitExecutor.ExecutedCommands()
	require.Len(testInstance, commands, 2)
	require.Equal(testInstance, []string{"push", "--mirror", testAlphaPushURLConstant}, commands[1].Arguments)
	require.NoDirExists(testInstance, filepath.Join(harness.repositoriesRoot, "alpha.git"))

	require.Equal(testInstance, []migrate.Stage{
		migrate.StagePending,
		migrate.StageExistsChecked,
		migrate.StageCreated,
		migrate.StageCloned,
		migrate.StagePushed,
		migrate.StageConfigured,
		migrate.StageCleaned,
		migrate.StageDone,
	}, harness.stagesOf("alpha"))
}

func TestRunRejectsExistingRepositoryOutsideDuplicateSet(testInstance *testing.T) {
	harness := newMigrationHarness(
		testInstance,
		[]projects.Descriptor{alphaDescriptor(), betaDescriptor()},
		[]githubfake.FakeRepository{{Name: "beta", DefaultBranch: testDevelopBranchConstant, Branches: []string{testDevelopBranchConstant}}},
	)

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})

	var runFailedError migrate.RunFailedError
	require.True(testInstance, errors.As(runError, &runFailedError))
	require.Equal(testInstance, []string{"beta"}, runFailedError.FailedProjects)
	require.Equal(testInstance, 2, runFailedError.TotalProjects)

	require.Equal(testInstance, []string{"alpha"}, report.CompletedNames())
	require.Equal(testInstance, []string{"beta"}, report.FailedNames())
	var duplicateError migrate.DuplicateExistsError
	require.True(testInstance, errors.As(report.Failed[0].Error, &duplicateError))
	require.Equal(testInstance, "beta", duplicateError.ProjectName)
	require.Equal(testInstance, migrate.StageSkipExisting, report.Failed[0].FinalStage)

	for _, details := range harness.gitExecutor.ExecutedCommands() {
		require.NotContains(testInstance, details.Arguments, testBetaCloneURLConstant)
	}
	require.Equal(testInstance, 1, harness.destination.CountRequests(http.MethodPost, testCreatePathConstant))

	repository, _ := harness.destination.Repository("beta")
	require.Equal(testInstance, []string{testDevelopBranchConstant}, repository.Branches)
	require.False(testInstance, repository.Private)
}

func TestRunOverwritesRepositoryInDuplicateSet(testInstance *testing.T) {
	harness := newMigrationHarness(
		testInstance,
		[]projects.Descriptor{betaDescriptor()},
		[]githubfake.FakeRepository{{Name: "beta", DefaultBranch: testDevelopBranchConstant, Branches: []string{testDevelopBranchConstant}}},
	)
	harness.destination.PropagationReads = 2

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{
		RepositoriesRoot:      harness.repositoriesRoot,
		DuplicateRepositories: []string{"beta"},
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{"beta"}, report.CompletedNames())

	require.Zero(testInstance, harness.destination.CountRequests(http.MethodPost, testCreatePathConstant))
	repository, _ := harness.destination.Repository("beta")
	require.True(testInstance, repository.Private)
	require.Equal(testInstance, githubdestination.MainBranchName, repository.DefaultBranch)
	require.Equal(testInstance, []string{testDevelopBranchConstant, githubdestination.MainBranchName}, repository.Branches)
	require.Contains(testInstance, harness.stagesOf("beta"), migrate.StageOverwriteForced)
}

func TestRunReleasesWorkspaceWhenPushFails(testInstance *testing.T) {
	harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor(), gammaDescriptor()}, nil)
	harness.gitExecutor.PushFailures = map[string]string{testAlphaPushURLConstant: "remote rejected"}

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})
	require.Error(testInstance, runError)

	require.Equal(testInstance, []string{"gamma"}, report.CompletedNames())
	require.Equal(testInstance, []string{"alpha"}, report.FailedNames())
	failure := report.Failed[0]
	require.Equal(testInstance, migrate.StageCloned, failure.FinalStage)
	var transferError transfer.TransferError
	require.True(testInstance, errors.As(failure.Error, &transferError))
	require.Equal(testInstance, transfer.OperationPush, transferError.Operation)
	require.Equal(testInstance, "remote rejected", transferError.Diagnostic)

	require.NoDirExists(testInstance, filepath.Join(harness.repositoriesRoot, "alpha.git"))
	require.NoDirExists(testInstance, filepath.Join(harness.repositoriesRoot, "gamma.git"))
	alphaStages := harness.stagesOf("alpha")
	require.Equal(testInstance, []migrate.Stage{migrate.StageCleaned, migrate.StageFailed}, alphaStages[len(alphaStages)-2:])
	require.NotContains(testInstance, alphaStages, migrate.StagePushed)

	failureLogs := harness.logs.FilterMessage("project migration failed").All()
	require.Len(testInstance, failureLogs, 1)
	require.Equal(testInstance, "alpha", failureLogs[0].ContextMap()["project"])
}

func TestRunReportsCloneFailure(testInstance *testing.T) {
	harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor()}, nil)
	harness.gitExecutor.CloneFailures = map[string]string{testAlphaCloneURLConstant: "fatal: repository not found"}

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})
	require.Error(testInstance, runError)

	var transferError transfer.TransferError
	require.True(testInstance, errors.As(report.Failed[0].Error, &transferError))
	require.Equal(testInstance, transfer.OperationClone, transferError.Operation)
	require.Equal(testInstance, migrate.StageCreated, report.Failed[0].FinalStage)
	require.Equal(testInstance, 0, harness.gitExecutor.CountSubcommand("push"))
}

func TestRunAddsCreatedRepositoriesToDestinationIndex(testInstance *testing.T) {
	sameNameInAnotherGroup := alphaDescriptor()
	sameNameInAnotherGroup.HTTPCloneURL = "https://gitlab.example.com/archive/alpha.git"
	harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor(), sameNameInAnotherGroup}, nil)

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})
	require.Error(testInstance, runError)

	require.Equal(testInstance, []string{"alpha"}, report.CompletedNames())
	require.Len(testInstance, report.Failed, 1)
	var duplicateError migrate.DuplicateExistsError
	require.True(testInstance, errors.As(report.Failed[0].Error, &duplicateError))
	require.Equal(testInstance, 1, harness.destination.CountRequests(http.MethodPost, testCreatePathConstant))
}

func TestRunDryRunPerformsNoMutations(testInstance *testing.T) {
	harness := newMigrationHarness(
		testInstance,
		[]projects.Descriptor{alphaDescriptor(), betaDescriptor()},
		[]githubfake.FakeRepository{{Name: "beta", DefaultBranch: testDevelopBranchConstant, Branches: []string{testDevelopBranchConstant}}},
	)

	report, runError := harness.service.Run(context.Background(), migrate.RunOptions{
		RepositoriesRoot:      harness.repositoriesRoot,
		DuplicateRepositories: []string{"beta"},
		DryRun:                true,
	})
	require.NoError(testInstance, runError)
	require.Equal(testInstance, []string{"alpha", "beta"}, report.CompletedNames())

	require.Empty(testInstance, harness.destination.Requests())
	require.Empty(testInstance, harness.gitExecutor.ExecutedCommands())
	require.NoDirExists(testInstance, harness.repositoriesRoot)

	planned := harness.logs.FilterMessage("dry run: planned migration").All()
	require.Len(testInstance, planned, 2)
	require.Equal(testInstance, string(migrate.StageCreated), planned[0].ContextMap()["stage"])
	require.Equal(testInstance, string(migrate.StageOverwriteForced), planned[1].ContextMap()["stage"])
}

func TestRunAppliesSourceFilters(testInstance *testing.T) {
	testCases := []struct {
		name             string
		options          migrate.RunOptions
		expectedMigrated []string
	}{
		{name: "no_filters", options: migrate.RunOptions{}, expectedMigrated: []string{"alpha", "gamma"}},
		{name: "only_archived", options: migrate.RunOptions{OnlyArchived: true}, expectedMigrated: []string{"gamma"}},
		{name: "include_projects", options: migrate.RunOptions{IncludeProjects: []string{"alpha"}}, expectedMigrated: []string{"alpha"}},
		{name: "both_filters", options: migrate.RunOptions{OnlyArchived: true, IncludeProjects: []string{"alpha"}}, expectedMigrated: []string{}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor(), gammaDescriptor()}, nil)
			options := testCase.options
			options.RepositoriesRoot = harness.repositoriesRoot
			options.DryRun = true

			report, runError := harness.service.Run(context.Background(), options)
			require.NoError(testInstance, runError)
			require.Equal(testInstance, testCase.expectedMigrated, report.CompletedNames())
		})
	}
}

func TestRunStopsWhenContextCancelled(testInstance *testing.T) {
	harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor(), gammaDescriptor()}, nil)
	executionContext, cancel := context.WithCancel(context.Background())
	defer cancel()
	harness.destinationLister.onList = cancel

	report, runError := harness.service.Run(executionContext, migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})

	require.ErrorIs(testInstance, runError, context.Canceled)
	require.Empty(testInstance, report.Completed)
	require.Empty(testInstance, report.Failed)
	require.Empty(testInstance, harness.gitExecutor.ExecutedCommands())
}

func TestRunAbortsOnListingFailure(testInstance *testing.T) {
	harness := newMigrationHarness(testInstance, []projects.Descriptor{alphaDescriptor()}, nil)
	listingFailure := projects.ListingError{Host: "gitlab.example.com", Page: 2, Cause: errors.New("status 500")}
	harness.sourceLister.listError = listingFailure

	_, runError := harness.service.Run(context.Background(), migrate.RunOptions{RepositoriesRoot: harness.repositoriesRoot})

	var listingError projects.ListingError
	require.True(testInstance, errors.As(runError, &listingError))
	require.Equal(testInstance, 2, listingError.Page)
	require.Zero(testInstance, harness.destinationLister.calls)
}

func TestNewServiceValidatesDependencies(testInstance *testing.T) {
	lister := &stubLister{}
	testCases := []struct {
		name         string
		dependencies migrate.ServiceDependencies
	}{
		{name: "missing_source", dependencies: migrate.ServiceDependencies{}},
		{name: "missing_destination_lister", dependencies: migrate.ServiceDependencies{SourceLister: lister}},
		{name: "missing_manager", dependencies: migrate.ServiceDependencies{SourceLister: lister, DestinationLister: lister}},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			service, serviceError := migrate.NewService(testCase.dependencies)
			require.Error(testInstance, serviceError)
			require.Nil(testInstance, service)
		})
	}
}
