package migrate

import (
	"strings"
	"time"

	pathutils "github.com/temirov/gitlab2github/internal/utils/path"
)

const (
	defaultRepositoriesRootConstant                 = "repos"
	defaultOutputDirectoryConstant                  = "output"
	defaultGitHubAPIURLConstant                     = "https://api.github.com/"
	defaultGitHubGitURLConstant                     = "https://github.com"
	defaultGitLabComAPIURLConstant                  = "https://gitlab.com/api/v4"
	defaultRequestsPerSecondConstant                = 5.0
	defaultRequestTimeoutConstant                   = 60 * time.Second
	defaultPerPageConstant                          = 100
	defaultConvergenceAttemptsConstant              = 10
	defaultConvergenceDelayConstant                 = 2 * time.Second
	defaultConvergenceMaxDelayConstant              = 30 * time.Second
	configurationKeySeparatorConstant               = "."
	sourceConfigurationKeyConstant                  = "source"
	repositoriesRootConfigurationKeyConstant        = "repositories_root"
	outputDirectoryConfigurationKeyConstant         = "output_directory"
	duplicatesConfigurationKeyConstant              = "duplicate_repositories"
	onlyArchivedConfigurationKeyConstant            = "only_archived"
	includeProjectsConfigurationKeyConstant         = "include_projects"
	destinationAPIURLConfigurationKeyConstant       = "destination.api_url"
	destinationGitURLConfigurationKeyConstant       = "destination.git_url"
	destinationOrganizationConfigurationKeyConstant = "destination.organization"
	destinationRateConfigurationKeyConstant         = "destination.requests_per_second"
	destinationTimeoutConfigurationKeyConstant      = "destination.request_timeout"
	destinationPerPageConfigurationKeyConstant      = "destination.per_page"
	convergenceAttemptsConfigurationKeyConstant     = "destination.convergence.attempts"
	convergenceDelayConfigurationKeyConstant        = "destination.convergence.delay"
	convergenceMaxDelayConfigurationKeyConstant     = "destination.convergence.max_delay"
	selfHostedAPIURLConfigurationKeyConstant        = "sources.self_hosted.api_url"
	selfHostedInsecureConfigurationKeyConstant      = "sources.self_hosted.insecure_skip_verify"
	selfHostedPerPageConfigurationKeyConstant       = "sources.self_hosted.per_page"
	selfHostedTimeoutConfigurationKeyConstant       = "sources.self_hosted.request_timeout"
	gitLabComAPIURLConfigurationKeyConstant         = "sources.gitlab_com.api_url"
	gitLabComNamespacesConfigurationKeyConstant     = "sources.gitlab_com.namespaces"
	gitLabComPerPageConfigurationKeyConstant        = "sources.gitlab_com.per_page"
	gitLabComTimeoutConfigurationKeyConstant        = "sources.gitlab_com.request_timeout"
)

// CommandConfiguration captures persisted configuration for the migrate command.
type CommandConfiguration struct {
	Source                string                   `mapstructure:"source"`
	RepositoriesRoot      string                   `mapstructure:"repositories_root"`
	OutputDirectory       string                   `mapstructure:"output_directory"`
	DuplicateRepositories []string                 `mapstructure:"duplicate_repositories"`
	OnlyArchived          bool                     `mapstructure:"only_archived"`
	IncludeProjects       []string                 `mapstructure:"include_projects"`
	Destination           DestinationConfiguration `mapstructure:"destination"`
	Sources               SourcesConfiguration     `mapstructure:"sources"`
}

// DestinationConfiguration describes the GitHub organization receiving the repositories.
type DestinationConfiguration struct {
	APIURL            string                   `mapstructure:"api_url"`
	GitURL            string                   `mapstructure:"git_url"`
	Organization      string                   `mapstructure:"organization"`
	RequestsPerSecond float64                  `mapstructure:"requests_per_second"`
	RequestTimeout    time.Duration            `mapstructure:"request_timeout"`
	PerPage           int                      `mapstructure:"per_page"`
	Convergence       ConvergenceConfiguration `mapstructure:"convergence"`
}

// ConvergenceConfiguration bounds default branch polling.
type ConvergenceConfiguration struct {
	Attempts int           `mapstructure:"attempts"`
	Delay    time.Duration `mapstructure:"delay"`
	MaxDelay time.Duration `mapstructure:"max_delay"`
}

// SourcesConfiguration holds one section per source variant.
type SourcesConfiguration struct {
	SelfHosted SelfHostedConfiguration `mapstructure:"self_hosted"`
	GitLabCom  GitLabComConfiguration  `mapstructure:"gitlab_com"`
}

// SelfHostedConfiguration describes the self-hosted GitLab instance.
type SelfHostedConfiguration struct {
	APIURL             string        `mapstructure:"api_url"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify"`
	PerPage            int           `mapstructure:"per_page"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
}

// GitLabComConfiguration describes the gitlab.com group namespaces to migrate.
type GitLabComConfiguration struct {
	APIURL         string        `mapstructure:"api_url"`
	Namespaces     []string      `mapstructure:"namespaces"`
	PerPage        int           `mapstructure:"per_page"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DefaultCommandConfiguration returns baseline configuration values for the migrate command.
func DefaultCommandConfiguration() CommandConfiguration {
	return CommandConfiguration{
		Source:           string(SourceSelfHosted),
		RepositoriesRoot: defaultRepositoriesRootConstant,
		OutputDirectory:  defaultOutputDirectoryConstant,
		Destination: DestinationConfiguration{
			APIURL:            defaultGitHubAPIURLConstant,
			GitURL:            defaultGitHubGitURLConstant,
			RequestsPerSecond: defaultRequestsPerSecondConstant,
			RequestTimeout:    defaultRequestTimeoutConstant,
			PerPage:           defaultPerPageConstant,
			Convergence: ConvergenceConfiguration{
				Attempts: defaultConvergenceAttemptsConstant,
				Delay:    defaultConvergenceDelayConstant,
				MaxDelay: defaultConvergenceMaxDelayConstant,
			},
		},
		Sources: SourcesConfiguration{
			SelfHosted: SelfHostedConfiguration{
				PerPage:        defaultPerPageConstant,
				RequestTimeout: defaultRequestTimeoutConstant,
			},
			GitLabCom: GitLabComConfiguration{
				APIURL:         defaultGitLabComAPIURLConstant,
				PerPage:        defaultPerPageConstant,
				RequestTimeout: defaultRequestTimeoutConstant,
			},
		},
	}
}

// DefaultConfigurationValues exposes the defaults as viper keys beneath prefix.
func DefaultConfigurationValues(prefix string) map[string]any {
	defaults := DefaultCommandConfiguration()
	values := map[string]any{
		sourceConfigurationKeyConstant:                  defaults.Source,
		repositoriesRootConfigurationKeyConstant:        defaults.RepositoriesRoot,
		outputDirectoryConfigurationKeyConstant:         defaults.OutputDirectory,
		duplicatesConfigurationKeyConstant:              []string{},
		onlyArchivedConfigurationKeyConstant:            defaults.OnlyArchived,
		includeProjectsConfigurationKeyConstant:         []string{},
		destinationAPIURLConfigurationKeyConstant:       defaults.Destination.APIURL,
		destinationGitURLConfigurationKeyConstant:       defaults.Destination.GitURL,
		destinationOrganizationConfigurationKeyConstant: defaults.Destination.Organization,
		destinationRateConfigurationKeyConstant:         defaults.Destination.RequestsPerSecond,
		destinationTimeoutConfigurationKeyConstant:      defaults.Destination.RequestTimeout,
		destinationPerPageConfigurationKeyConstant:      defaults.Destination.PerPage,
		convergenceAttemptsConfigurationKeyConstant:     defaults.Destination.Convergence.Attempts,
		convergenceDelayConfigurationKeyConstant:        defaults.Destination.Convergence.Delay,
		convergenceMaxDelayConfigurationKeyConstant:     defaults.Destination.Convergence.MaxDelay,
		selfHostedAPIURLConfigurationKeyConstant:        defaults.Sources.SelfHosted.APIURL,
		selfHostedInsecureConfigurationKeyConstant:      defaults.Sources.SelfHosted.InsecureSkipVerify,
		selfHostedPerPageConfigurationKeyConstant:       defaults.Sources.SelfHosted.PerPage,
		selfHostedTimeoutConfigurationKeyConstant:       defaults.Sources.SelfHosted.RequestTimeout,
		gitLabComAPIURLConfigurationKeyConstant:         defaults.Sources.GitLabCom.APIURL,
		gitLabComNamespacesConfigurationKeyConstant:     []string{},
		gitLabComPerPageConfigurationKeyConstant:        defaults.Sources.GitLabCom.PerPage,
		gitLabComTimeoutConfigurationKeyConstant:        defaults.Sources.GitLabCom.RequestTimeout,
	}

	trimmedPrefix := strings.TrimSpace(prefix)
	if len(trimmedPrefix) == 0 {
		return values
	}
	prefixed := make(map[string]any, len(values))
	for key, value := range values {
		prefixed[trimmedPrefix+configurationKeySeparatorConstant+key] = value
	}
	return prefixed
}

// Sanitize trims configured values, drops empty list entries and expands home-relative directories.
func (configuration CommandConfiguration) Sanitize() CommandConfiguration {
	expander := pathutils.NewHomeExpander()

	sanitized := configuration
	sanitized.Source = strings.TrimSpace(configuration.Source)
	sanitized.RepositoriesRoot = expander.Expand(strings.TrimSpace(configuration.RepositoriesRoot))
	sanitized.OutputDirectory = expander.Expand(strings.TrimSpace(configuration.OutputDirectory))
	sanitized.DuplicateRepositories = sanitizeList(configuration.DuplicateRepositories)
	sanitized.IncludeProjects = sanitizeList(configuration.IncludeProjects)
	sanitized.Destination.APIURL = strings.TrimSpace(configuration.Destination.APIURL)
	sanitized.Destination.GitURL = strings.TrimSpace(configuration.Destination.GitURL)
	sanitized.Destination.Organization = strings.TrimSpace(configuration.Destination.Organization)
	sanitized.Sources.SelfHosted.APIURL = strings.TrimSpace(configuration.Sources.SelfHosted.APIURL)
	sanitized.Sources.GitLabCom.APIURL = strings.TrimSpace(configuration.Sources.GitLabCom.APIURL)
	sanitized.Sources.GitLabCom.Namespaces = sanitizeList(configuration.Sources.GitLabCom.Namespaces)
	return sanitized
}

func sanitizeList(values []string) []string {
	sanitized := make([]string, 0, len(values))
	for _, value := range values {
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) == 0 {
			continue
		}
		sanitized = append(sanitized, trimmedValue)
	}
	return sanitized
}
