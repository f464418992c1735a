package migrate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitlab2github/internal/migrate"
)

func TestDefaultConfigurationValuesArePrefixed(testInstance *testing.T) {
	values := migrate.DefaultConfigurationValues("migration")

	require.Equal(testInstance, "self-hosted", values["migration.source"])
	require.Equal(testInstance, "https://api.github.com/", values["migration.destination.api_url"])
	require.Equal(testInstance, 10, values["migration.destination.convergence.attempts"])
	require.Equal(testInstance, 2*time.Second, values["migration.destination.convergence.delay"])
	require.Equal(testInstance, 100, values["migration.sources.self_hosted.per_page"])
	require.NotContains(testInstance, values, "source")

	unprefixed := migrate.DefaultConfigurationValues(" ")
	require.Contains(testInstance, unprefixed, "repositories_root")
}

func TestCommandConfigurationSanitize(testInstance *testing.T) {
	configuration := migrate.CommandConfiguration{
		Source:                " gitlab-com ",
		RepositoriesRoot:      " /srv/repos ",
		DuplicateRepositories: []string{" beta ", "", "  "},
		IncludeProjects:       []string{"alpha"},
		Destination:           migrate.DestinationConfiguration{Organization: " library-org "},
		Sources: migrate.SourcesConfiguration{
			GitLabCom: migrate.GitLabComConfiguration{Namespaces: []string{"group-a", " "}},
		},
	}

	sanitized := configuration.Sanitize()

	require.Equal(testInstance, "gitlab-com", sanitized.Source)
	require.Equal(testInstance, "/srv/repos", sanitized.RepositoriesRoot)
	require.Equal(testInstance, []string{"beta"}, sanitized.DuplicateRepositories)
	require.Equal(testInstance, []string{"alpha"}, sanitized.IncludeProjects)
	require.Equal(testInstance, "library-org", sanitized.Destination.Organization)
	require.Equal(testInstance, []string{"group-a"}, sanitized.Sources.GitLabCom.Namespaces)
}

func TestParseSourceKind(testInstance *testing.T) {
	testCases := []struct {
		value         string
		expectedKind  migrate.SourceKind
		expectFailure bool
	}{
		{value: "self-hosted", expectedKind: migrate.SourceSelfHosted},
		{value: " GitLab-Com ", expectedKind: migrate.SourceGitLabCom},
		{value: "github", expectFailure: true},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.value, func(testInstance *testing.T) {
			kind, parseError := migrate.ParseSourceKind(testCase.value)
			if testCase.expectFailure {
				require.Error(testInstance, parseError)
				return
			}
			require.NoError(testInstance, parseError)
			require.Equal(testInstance, testCase.expectedKind, kind)
		})
	}
}
