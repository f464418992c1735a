package migrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"

	"github.com/temirov/gitlab2github/internal/apiclient"
	"github.com/temirov/gitlab2github/internal/execshell"
	"github.com/temirov/gitlab2github/internal/githubdestination"
	"github.com/temirov/gitlab2github/internal/gitlabsource"
	"github.com/temirov/gitlab2github/internal/projects"
	"github.com/temirov/gitlab2github/internal/transfer"
	"github.com/temirov/gitlab2github/internal/utils/flags"
	pathutils "github.com/temirov/gitlab2github/internal/utils/path"
)

const (
	commandUseConstant                     = "migrate"
	commandShortDescriptionConstant        = "Migrate GitLab projects into a GitHub organization"
	commandLongDescriptionConstant         = "migrate lists the source GitLab projects and the destination GitHub repositories, then creates, mirrors, makes private and renames master to main for every selected project. A failing project does not stop the run."
	sourceFlagNameConstant                 = "source"
	sourceFlagUsageConstant                = "Source host to migrate from"
	onlyArchivedFlagNameConstant           = "only-archived"
	onlyArchivedFlagUsageConstant          = "Migrate only archived source projects"
	projectFlagNameConstant                = "project"
	projectFlagUsageConstant               = "Migrate only the named project (repeatable)"
	secretsFlagNameConstant                = "secrets"
	secretsFlagUsageConstant               = "Path to the dotenv file holding access tokens (default .env)"
	repositoriesRootErrorTemplateConstant  = "invalid repositories_root: %w"
	outputDirectoryErrorTemplateConstant   = "invalid output_directory: %w"
	destinationClientErrorTemplateConstant = "unable to construct GitHub client: %w"
	sourceClientErrorTemplateConstant      = "unable to construct GitLab client: %w"
	organizationMissingMessageConstant     = "migration.destination.organization is required"
	sourceAPIURLMissingTemplateConstant    = "migration.sources.%s.api_url is required"
	selfHostedConfigurationSectionConstant = "self_hosted"
	gitLabComConfigurationSectionConstant  = "gitlab_com"
	executorCreationErrorTemplateConstant  = "unable to construct git executor: %w"
	logMessageSecretsLoadedConstant        = "secrets loaded"
	logMessageDependenciesReadyConstant    = "migration dependencies ready"
	logFieldSourceConstant                 = "source"
	logFieldOrganizationConstant           = "organization"
	logFieldSecretsFileConstant            = "secrets_file"
)

var errOrganizationMissing = errors.New(organizationMissingMessageConstant)

// LoggerProvider supplies a zap logger instance.
type LoggerProvider func() *zap.Logger

// MigrationRunner executes a migration run.
type MigrationRunner interface {
	Run(executionContext context.Context, options RunOptions) (RunReport, error)
}

// ServiceProvider constructs a MigrationRunner from dependencies.
type ServiceProvider func(dependencies ServiceDependencies) (MigrationRunner, error)

type commandFlagValues struct {
	source          string
	onlyArchived    bool
	includeProjects []string
	secretsPath     string
	execution       *flags.ExecutionFlagValues
}

type commandOptions struct {
	source          SourceKind
	dryRun          bool
	onlyArchived    bool
	includeProjects []string
	secretsPath     string
}

// CommandBuilder assembles the migrate Cobra command.
type CommandBuilder struct {
	LoggerProvider        LoggerProvider
	ConfigurationProvider func() CommandConfiguration
	SecretsLoader         SecretsLoader
	GitExecutor           transfer.GitExecutor
	ServiceProvider       ServiceProvider
}

// Build constructs the migrate command.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	flagValues := &commandFlagValues{}

	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runMigrate(command, flagValues)
		},
	}

	command.Flags().StringVar(&flagValues.source, sourceFlagNameConstant, "", flags.FormatChoiceUsage(string(SourceSelfHosted), SupportedSources(), sourceFlagUsageConstant))
	flags.AddToggleFlag(command.Flags(), &flagValues.onlyArchived, onlyArchivedFlagNameConstant, "", false, onlyArchivedFlagUsageConstant)
	command.Flags().StringSliceVar(&flagValues.includeProjects, projectFlagNameConstant, nil, projectFlagUsageConstant)
	command.Flags().StringVar(&flagValues.secretsPath, secretsFlagNameConstant, "", secretsFlagUsageConstant)
	flagValues.execution = flags.BindExecutionFlags(command, flags.ExecutionDefaults{}, flags.ExecutionFlagDefinitions{
		DryRun: flags.ExecutionFlagDefinition{Enabled: true},
	})

	return command, nil
}

func (builder *CommandBuilder) runMigrate(command *cobra.Command, flagValues *commandFlagValues) error {
	configuration := builder.resolveConfiguration()
	options, optionsError := builder.parseOptions(command, flagValues, configuration)
	if optionsError != nil {
		return optionsError
	}

	logger := builder.resolveLogger()

	secrets, secretsError := builder.resolveSecretsLoader()(options.secretsPath)
	if secretsError != nil {
		return secretsError
	}
	if validationError := secrets.Validate(options.source); validationError != nil {
		return validationError
	}
	logger.Debug(logMessageSecretsLoadedConstant, zap.String(logFieldSecretsFileConstant, options.secretsPath), zap.String(logFieldSourceConstant, string(options.source)))

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	dependencies, dependenciesError := builder.buildDependencies(executionContext, logger, configuration, options.source, secrets)
	if dependenciesError != nil {
		return dependenciesError
	}

	service, serviceError := builder.resolveService(dependencies)
	if serviceError != nil {
		return serviceError
	}

	repositoriesRoot, rootError := pathutils.NewHomeExpander().ResolveDirectory(configuration.RepositoriesRoot)
	if rootError != nil {
		return fmt.Errorf(repositoriesRootErrorTemplateConstant, rootError)
	}

	_, runError := service.Run(executionContext, RunOptions{
		RepositoriesRoot:      repositoriesRoot,
		DuplicateRepositories: configuration.DuplicateRepositories,
		OnlyArchived:          options.onlyArchived,
		IncludeProjects:       options.includeProjects,
		DryRun:                options.dryRun,
	})
	return runError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, flagValues *commandFlagValues, configuration CommandConfiguration) (commandOptions, error) {
	sourceValue := configuration.Source
	if command.Flags().Changed(sourceFlagNameConstant) {
		sourceValue = flagValues.source
	}
	if len(strings.TrimSpace(sourceValue)) == 0 {
		sourceValue = string(SourceSelfHosted)
	}
	source, sourceError := ParseSourceKind(sourceValue)
	if sourceError != nil {
		return commandOptions{}, sourceError
	}

	onlyArchived := configuration.OnlyArchived
	if command.Flags().Changed(onlyArchivedFlagNameConstant) {
		onlyArchived = flagValues.onlyArchived
	}

	includeProjects := configuration.IncludeProjects
	if command.Flags().Changed(projectFlagNameConstant) {
		includeProjects = sanitizeList(flagValues.includeProjects)
	}

	dryRun := false
	if flagValues.execution != nil {
		dryRun = flagValues.execution.DryRun
	}

	return commandOptions{
		source:          source,
		dryRun:          dryRun,
		onlyArchived:    onlyArchived,
		includeProjects: includeProjects,
		secretsPath:     strings.TrimSpace(flagValues.secretsPath),
	}, nil
}

func (builder *CommandBuilder) buildDependencies(executionContext context.Context, logger *zap.Logger, configuration CommandConfiguration, source SourceKind, secrets Secrets) (ServiceDependencies, error) {
	destination := configuration.Destination
	if len(destination.Organization) == 0 {
		return ServiceDependencies{}, errOrganizationMissing
	}

	outputDirectory, outputError := pathutils.NewHomeExpander().ResolveDirectory(configuration.OutputDirectory)
	if outputError != nil {
		return ServiceDependencies{}, fmt.Errorf(outputDirectoryErrorTemplateConstant, outputError)
	}
	snapshotWriter := projects.NewSnapshotWriter(outputDirectory)

	gitHubHTTPClient, gitHubHTTPError := apiclient.NewTokenHTTPClient(executionContext, secrets.GitHubToken, apiclient.Options{
		RequestTimeout:    destination.RequestTimeout,
		RequestsPerSecond: destination.RequestsPerSecond,
	})
	if gitHubHTTPError != nil {
		return ServiceDependencies{}, fmt.Errorf(destinationClientErrorTemplateConstant, gitHubHTTPError)
	}
	gitHubClient, gitHubClientError := githubdestination.NewClient(gitHubHTTPClient, destination.APIURL)
	if gitHubClientError != nil {
		return ServiceDependencies{}, fmt.Errorf(destinationClientErrorTemplateConstant, gitHubClientError)
	}

	destinationLister, destinationListerError := githubdestination.NewOrganizationLister(githubdestination.OrganizationListerDependencies{
		Client:         gitHubClient,
		Organization:   destination.Organization,
		PerPage:        destination.PerPage,
		SnapshotWriter: snapshotWriter,
		Logger:         logger,
	})
	if destinationListerError != nil {
		return ServiceDependencies{}, destinationListerError
	}

	destinationManager, managerError := githubdestination.NewRepositoryManager(githubdestination.ManagerDependencies{
		Client:       gitHubClient,
		Organization: destination.Organization,
		GitBaseURL:   destination.GitURL,
		Convergence: githubdestination.ConvergencePolicy{
			Attempts: destination.Convergence.Attempts,
			Delay:    destination.Convergence.Delay,
			MaxDelay: destination.Convergence.MaxDelay,
		},
		Logger: logger,
	})
	if managerError != nil {
		return ServiceDependencies{}, managerError
	}

	sourceLister, sourceListerError := builder.buildSourceLister(logger, configuration.Sources, source, secrets, snapshotWriter)
	if sourceListerError != nil {
		return ServiceDependencies{}, sourceListerError
	}

	gitExecutor, executorError := builder.resolveGitExecutor(logger)
	if executorError != nil {
		return ServiceDependencies{}, executorError
	}
	repositoryTransfer, transferError := transfer.NewTransferrer(transfer.Dependencies{
		GitExecutor:            gitExecutor,
		SourceCredentials:      secrets.SourceCredentials(source),
		DestinationCredentials: secrets.DestinationCredentials(),
	})
	if transferError != nil {
		return ServiceDependencies{}, transferError
	}

	logger.Info(logMessageDependenciesReadyConstant, zap.String(logFieldSourceConstant, string(source)), zap.String(logFieldOrganizationConstant, destination.Organization))

	return ServiceDependencies{
		Logger:             logger,
		SourceLister:       sourceLister,
		DestinationLister:  destinationLister,
		DestinationManager: destinationManager,
		RepositoryTransfer: repositoryTransfer,
	}, nil
}

func (builder *CommandBuilder) buildSourceLister(logger *zap.Logger, sources SourcesConfiguration, source SourceKind, secrets Secrets, snapshotWriter *projects.SnapshotWriter) (projects.Lister, error) {
	switch source {
	case SourceGitLabCom:
		gitLabComConfiguration := sources.GitLabCom
		client, clientError := buildGitLabClient(gitLabComConfiguration.APIURL, gitLabComConfigurationSectionConstant, secrets.SourceToken(source), apiclient.Options{
			RequestTimeout: gitLabComConfiguration.RequestTimeout,
		})
		if clientError != nil {
			return nil, clientError
		}
		groupLister, listerError := gitlabsource.NewGroupLister(gitlabsource.GroupListerDependencies{
			Client:         client,
			Host:           gitlabsource.HostName(gitLabComConfiguration.APIURL),
			Namespaces:     gitLabComConfiguration.Namespaces,
			PerPage:        gitLabComConfiguration.PerPage,
			SnapshotWriter: snapshotWriter,
			Logger:         logger,
		})
		if listerError != nil {
			return nil, listerError
		}
		return groupLister, nil
	default:
		selfHostedConfiguration := sources.SelfHosted
		client, clientError := buildGitLabClient(selfHostedConfiguration.APIURL, selfHostedConfigurationSectionConstant, secrets.SourceToken(source), apiclient.Options{
			RequestTimeout:     selfHostedConfiguration.RequestTimeout,
			InsecureSkipVerify: selfHostedConfiguration.InsecureSkipVerify,
		})
		if clientError != nil {
			return nil, clientError
		}
		selfHostedLister, listerError := gitlabsource.NewSelfHostedLister(gitlabsource.SelfHostedListerDependencies{
			Client:         client,
			Host:           gitlabsource.HostName(selfHostedConfiguration.APIURL),
			PerPage:        selfHostedConfiguration.PerPage,
			SnapshotWriter: snapshotWriter,
			Logger:         logger,
		})
		if listerError != nil {
			return nil, listerError
		}
		return selfHostedLister, nil
	}
}

func buildGitLabClient(apiURL string, configurationSection string, token string, options apiclient.Options) (*gitlab.Client, error) {
	if len(apiURL) == 0 {
		return nil, fmt.Errorf(sourceAPIURLMissingTemplateConstant, configurationSection)
	}
	httpClient, httpClientError := apiclient.NewHTTPClient(options)
	if httpClientError != nil {
		return nil, fmt.Errorf(sourceClientErrorTemplateConstant, httpClientError)
	}
	client, clientError := gitlabsource.NewClient(gitlabsource.ClientOptions{APIURL: apiURL, AccessToken: token, HTTPClient: httpClient})
	if clientError != nil {
		return nil, fmt.Errorf(sourceClientErrorTemplateConstant, clientError)
	}
	return client, nil
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	var logger *zap.Logger
	if builder.LoggerProvider != nil {
		logger = builder.LoggerProvider()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

func (builder *CommandBuilder) resolveGitExecutor(logger *zap.Logger) (transfer.GitExecutor, error) {
	if builder.GitExecutor != nil {
		return builder.GitExecutor, nil
	}
	shellExecutor, creationError := execshell.NewShellExecutor(logger, execshell.NewOSCommandRunner())
	if creationError != nil {
		return nil, fmt.Errorf(executorCreationErrorTemplateConstant, creationError)
	}
	return shellExecutor.WithEventObserver(execshell.NewDurationCommandEventObserver(logger, time.Now)), nil
}

func (builder *CommandBuilder) resolveSecretsLoader() SecretsLoader {
	if builder.SecretsLoader != nil {
		return builder.SecretsLoader
	}
	return LoadSecretsFromDotenv
}

func (builder *CommandBuilder) resolveService(dependencies ServiceDependencies) (MigrationRunner, error) {
	if builder.ServiceProvider != nil {
		return builder.ServiceProvider(dependencies)
	}
	return NewService(dependencies)
}

func (builder *CommandBuilder) resolveConfiguration() CommandConfiguration {
	if builder.ConfigurationProvider == nil {
		return DefaultCommandConfiguration().Sanitize()
	}

	provided := builder.ConfigurationProvider()
	return provided.Sanitize()
}
