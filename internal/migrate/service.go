package migrate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/temirov/gitlab2github/internal/projects"
	"github.com/temirov/gitlab2github/internal/transfer"
)

const (
	sourceListerMissingMessageConstant       = "source lister not configured"
	destinationListerMissingMessageConstant  = "destination lister not configured"
	destinationManagerMissingMessageConstant = "destination manager not configured"
	repositoryTransferMissingMessageConstant = "repository transfer not configured"
	runStartedMessageConstant                = "migration run started"
	stageTransitionMessageConstant           = "migration stage"
	plannedStageMessageConstant              = "dry run: planned migration"
	projectFailedMessageConstant             = "project migration failed"
	projectSkippedByFilterMessageConstant    = "project excluded by filters"
	workspaceReleaseFailedMessageConstant    = "unable to remove local clone"
	runInterruptedMessageConstant            = "migration run interrupted"
	runCompletedMessageConstant              = "migration run completed"
	logFieldProjectConstant                  = "project"
	logFieldStageConstant                    = "stage"
	logFieldSourceProjectCountConstant       = "source_projects"
	logFieldDestinationCountConstant         = "destination_projects"
	logFieldSelectedCountConstant            = "selected_projects"
	logFieldDryRunConstant                   = "dry_run"
	logFieldCompletedConstant                = "completed"
	logFieldFailedConstant                   = "failed"
	logFieldRemainingConstant                = "remaining_projects"
	logFieldLocalPathConstant                = "local_path"
)

// Stage is a step of the per-project migration state machine.
type Stage string

// Stages a project passes through, in order; a project ends in StageDone or StageFailed.
const (
	StagePending         Stage = "PENDING"
	StageExistsChecked   Stage = "EXISTS_CHECKED"
	StageCreated         Stage = "CREATED"
	StageSkipExisting    Stage = "SKIP_EXISTING"
	StageOverwriteForced Stage = "OVERWRITE_FORCED"
	StageCloned          Stage = "CLONED"
	StagePushed          Stage = "PUSHED"
	StageConfigured      Stage = "CONFIGURED"
	StageCleaned         Stage = "CLEANED"
	StageDone            Stage = "DONE"
	StageFailed          Stage = "FAILED"
)

var (
	errSourceListerMissing       = errors.New(sourceListerMissingMessageConstant)
	errDestinationListerMissing  = errors.New(destinationListerMissingMessageConstant)
	errDestinationManagerMissing = errors.New(destinationManagerMissingMessageConstant)
	errRepositoryTransferMissing = errors.New(repositoryTransferMissingMessageConstant)
)

// DestinationManager mutates repositories in the destination organization.
type DestinationManager interface {
	RepositoryExists(repositoryName string, destinationIndex projects.NameIndex) bool
	CreateRepository(executionContext context.Context, descriptor projects.Descriptor) error
	PushURL(repositoryName string) string
	SetVisibilityPrivate(executionContext context.Context, repositoryName string) error
	ConfigurePrimaryBranch(executionContext context.Context, descriptor projects.Descriptor, destinationAlreadyHadRepository bool) error
}

// RepositoryTransfer copies repository content between hosts.
type RepositoryTransfer interface {
	CloneBare(executionContext context.Context, cloneURL string, workspace *transfer.Workspace) (string, error)
	PushMirror(executionContext context.Context, localBarePath string, destinationURL string) error
}

// WorkspaceAcquirer prepares the local clone location of one project.
type WorkspaceAcquirer func(repositoriesRoot string, projectName string) (*transfer.Workspace, error)

// ServiceDependencies describes required collaborators for a migration run.
type ServiceDependencies struct {
	Logger             *zap.Logger
	SourceLister       projects.Lister
	DestinationLister  projects.Lister
	DestinationManager DestinationManager
	RepositoryTransfer RepositoryTransfer
	WorkspaceAcquirer  WorkspaceAcquirer
}

// RunOptions configures one migration run.
type RunOptions struct {
	RepositoriesRoot      string
	DuplicateRepositories []string
	OnlyArchived          bool
	IncludeProjects       []string
	DryRun                bool
}

// MigrationOutcome records how far one project progressed. FinalStage is the last stage reached;
// a failed project reports the stage it failed after, even when its workspace was cleaned afterwards.
type MigrationOutcome struct {
	ProjectName string
	Succeeded   bool
	FinalStage  Stage
	Error       error
}

// RunReport collects the outcome of every attempted project.
type RunReport struct {
	Completed []MigrationOutcome
	Failed    []MigrationOutcome
}

// CompletedNames lists the successfully migrated projects in run order.
func (report RunReport) CompletedNames() []string {
	return outcomeNames(report.Completed)
}

// FailedNames lists the failed projects in run order.
func (report RunReport) FailedNames() []string {
	return outcomeNames(report.Failed)
}

func outcomeNames(outcomes []MigrationOutcome) []string {
	names := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		names = append(names, outcome.ProjectName)
	}
	return names
}

// Service orchestrates a migration run.
type Service struct {
	logger             *zap.Logger
	sourceLister       projects.Lister
	destinationLister  projects.Lister
	destinationManager DestinationManager
	repositoryTransfer RepositoryTransfer
	workspaceAcquirer  WorkspaceAcquirer
}

// NewService constructs a Service with the provided dependencies.
func NewService(dependencies ServiceDependencies) (*Service, error) {
	if dependencies.SourceLister == nil {
		return nil, errSourceListerMissing
	}
	if dependencies.DestinationLister == nil {
		return nil, errDestinationListerMissing
	}
	if dependencies.DestinationManager == nil {
		return nil, errDestinationManagerMissing
	}
	if dependencies.RepositoryTransfer == nil {
		return nil, errRepositoryTransferMissing
	}

	logger := dependencies.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workspaceAcquirer := dependencies.WorkspaceAcquirer
	if workspaceAcquirer == nil {
		workspaceAcquirer = transfer.AcquireWorkspace
	}

	return &Service{
		logger:             logger,
		sourceLister:       dependencies.SourceLister,
		destinationLister:  dependencies.DestinationLister,
		destinationManager: dependencies.DestinationManager,
		repositoryTransfer: dependencies.RepositoryTransfer,
		workspaceAcquirer:  workspaceAcquirer,
	}, nil
}

// Run lists both hosts and migrates every selected source project sequentially.
//
// Listing failures abort the run. Project failures are recorded and the run continues; the
// returned error is a RunFailedError when any project failed. Cancelling the context stops the
// loop before the next project.
func (service *Service) Run(executionContext context.Context, options RunOptions) (RunReport, error) {
	sourceProjects, sourceError := service.sourceLister.ListProjects(executionContext)
	if sourceError != nil {
		return RunReport{}, sourceError
	}
	destinationProjects, destinationError := service.destinationLister.ListProjects(executionContext)
	if destinationError != nil {
		return RunReport{}, destinationError
	}

	destinationIndex := projects.NewNameIndex(destinationProjects)
	duplicateSet := projects.NewNameIndex(namesAsDescriptors(options.DuplicateRepositories))
	selectedProjects := service.selectProjects(sourceProjects, options)

	service.logger.Info(
		runStartedMessageConstant,
		zap.Int(logFieldSourceProjectCountConstant, len(sourceProjects)),
		zap.Int(logFieldDestinationCountConstant, len(destinationProjects)),
		zap.Int(logFieldSelectedCountConstant, len(selectedProjects)),
		zap.Bool(logFieldDryRunConstant, options.DryRun),
	)

	report := RunReport{}
	for projectIndex, descriptor := range selectedProjects {
		if contextError := executionContext.Err(); contextError != nil {
			service.logger.Warn(runInterruptedMessageConstant, zap.Int(logFieldRemainingConstant, len(selectedProjects)-projectIndex), zap.Error(contextError))
			service.logSummary(report)
			return report, contextError
		}

		outcome := service.migrateProject(executionContext, descriptor, destinationIndex, duplicateSet, options)
		if outcome.Succeeded {
			report.Completed = append(report.Completed, outcome)
		} else {
			report.Failed = append(report.Failed, outcome)
		}
	}

	service.logSummary(report)
	if len(report.Failed) > 0 {
		return report, RunFailedError{FailedProjects: report.FailedNames(), TotalProjects: len(selectedProjects)}
	}
	return report, nil
}

func (service *Service) selectProjects(sourceProjects []projects.Descriptor, options RunOptions) []projects.Descriptor {
	includeIndex := projects.NewNameIndex(namesAsDescriptors(options.IncludeProjects))
	selected := make([]projects.Descriptor, 0, len(sourceProjects))
	for _, descriptor := range sourceProjects {
		if options.OnlyArchived && !descriptor.Archived {
			service.logger.Debug(projectSkippedByFilterMessageConstant, zap.String(logFieldProjectConstant, descriptor.Name))
			continue
		}
		if len(options.IncludeProjects) > 0 && !includeIndex.Contains(descriptor.Name) {
			service.logger.Debug(projectSkippedByFilterMessageConstant, zap.String(logFieldProjectConstant, descriptor.Name))
			continue
		}
		selected = append(selected, descriptor)
	}
	return selected
}

func (service *Service) migrateProject(executionContext context.Context, descriptor projects.Descriptor, destinationIndex projects.NameIndex, duplicateSet projects.NameIndex, options RunOptions) MigrationOutcome {
	progress := projectProgress{service: service, projectName: descriptor.Name}
	progress.advance(StagePending)

	destinationAlreadyHadRepository := service.destinationManager.RepositoryExists(descriptor.Name, destinationIndex)
	progress.advance(StageExistsChecked)

	var plannedStage Stage
	switch {
	case !destinationAlreadyHadRepository:
		plannedStage = StageCreated
	case duplicateSet.Contains(descriptor.Name):
		plannedStage = StageOverwriteForced
	default:
		progress.advance(StageSkipExisting)
		return progress.fail(DuplicateExistsError{ProjectName: descriptor.Name})
	}

	if options.DryRun {
		service.logger.Info(plannedStageMessageConstant, zap.String(logFieldProjectConstant, descriptor.Name), zap.String(logFieldStageConstant, string(plannedStage)))
		return progress.succeed()
	}

	if plannedStage == StageCreated {
		if createError := service.destinationManager.CreateRepository(executionContext, descriptor); createError != nil {
			return progress.fail(createError)
		}
		destinationIndex.Add(descriptor.Name)
	}
	progress.advance(plannedStage)

	workspace, workspaceError := service.workspaceAcquirer(options.RepositoriesRoot, descriptor.Name)
	if workspaceError != nil {
		return progress.fail(workspaceError)
	}

	if stageError := service.runInWorkspace(executionContext, descriptor, workspace, destinationAlreadyHadRepository, &progress); stageError != nil {
		return progress.fail(stageError)
	}
	return progress.succeed()
}

// runInWorkspace runs the stages that own a local clone and removes the clone on every exit path.
func (service *Service) runInWorkspace(executionContext context.Context, descriptor projects.Descriptor, workspace *transfer.Workspace, destinationAlreadyHadRepository bool, progress *projectProgress) (stageError error) {
	defer func() {
		if releaseError := workspace.Release(); releaseError != nil {
			service.logger.Warn(
				workspaceReleaseFailedMessageConstant,
				zap.String(logFieldProjectConstant, descriptor.Name),
				zap.String(logFieldLocalPathConstant, workspace.Path()),
				zap.Error(releaseError),
			)
			return
		}
		progress.markCleaned()
	}()

	localPath, cloneError := service.repositoryTransfer.CloneBare(executionContext, descriptor.HTTPCloneURL, workspace)
	if cloneError != nil {
		return cloneError
	}
	progress.advance(StageCloned)

	if pushError := service.repositoryTransfer.PushMirror(executionContext, localPath, service.destinationManager.PushURL(descriptor.Name)); pushError != nil {
		return pushError
	}
	progress.advance(StagePushed)

	if visibilityError := service.destinationManager.SetVisibilityPrivate(executionContext, descriptor.Name); visibilityError != nil {
		return visibilityError
	}
	if branchError := service.destinationManager.ConfigurePrimaryBranch(executionContext, descriptor, destinationAlreadyHadRepository); branchError != nil {
		return branchError
	}
	progress.advance(StageConfigured)
	return nil
}

func (service *Service) logSummary(report RunReport) {
	service.logger.Info(
		runCompletedMessageConstant,
		zap.Strings(logFieldCompletedConstant, report.CompletedNames()),
		zap.Strings(logFieldFailedConstant, report.FailedNames()),
	)
}

type projectProgress struct {
	service     *Service
	projectName string
	stage       Stage
}

func (progress *projectProgress) advance(stage Stage) {
	progress.stage = stage
	progress.service.logger.Info(stageTransitionMessageConstant, zap.String(logFieldProjectConstant, progress.projectName), zap.String(logFieldStageConstant, string(stage)))
}

// markCleaned logs CLEANED without replacing the stage a failure is reported against.
func (progress *projectProgress) markCleaned() {
	progress.service.logger.Info(stageTransitionMessageConstant, zap.String(logFieldProjectConstant, progress.projectName), zap.String(logFieldStageConstant, string(StageCleaned)))
}

func (progress *projectProgress) succeed() MigrationOutcome {
	progress.advance(StageDone)
	return MigrationOutcome{ProjectName: progress.projectName, Succeeded: true, FinalStage: StageDone}
}

func (progress *projectProgress) fail(failure error) MigrationOutcome {
	lastStage := progress.stage
	progress.service.logger.Error(
		projectFailedMessageConstant,
		zap.String(logFieldProjectConstant, progress.projectName),
		zap.String(logFieldStageConstant, string(lastStage)),
		zap.Error(failure),
	)
	progress.advance(StageFailed)
	return MigrationOutcome{ProjectName: progress.projectName, Succeeded: false, FinalStage: lastStage, Error: failure}
}

func namesAsDescriptors(names []string) []projects.Descriptor {
	descriptors := make([]projects.Descriptor, 0, len(names))
	for _, name := range names {
		descriptors = append(descriptors, projects.Descriptor{Name: name})
	}
	return descriptors
}
