package migrate

import (
	"fmt"
	"strings"

	"github.com/temirov/gitlab2github/internal/githubauth"
	"github.com/temirov/gitlab2github/internal/transfer"
	"github.com/temirov/gitlab2github/internal/utils"
)

const (
	// DefaultSecretsFileName is the dotenv file read when --secrets is not provided.
	DefaultSecretsFileName = ".env"

	secretsConfigurationTypeConstant   = "env"
	secretsSearchPathConstant          = "."
	gitHubTokenSecretKeyConstant       = "GITHUB_TOKEN"
	selfHostedTokenSecretKeyConstant   = "SELF_HOSTED_TOKEN"
	gitLabComTokenSecretKeyConstant    = "GITLAB_COM_TOKEN"
	gitLabComUserSecretKeyConstant     = "GITLAB_COM_USER"
	gitLabComPasswordSecretKeyConstant = "GITLAB_COM_PASS"
	secretsLoadErrorTemplateConstant   = "unable to load secrets: %w"
)

// Secrets holds the credentials read from the dotenv file or the environment.
type Secrets struct {
	GitHubToken       string `mapstructure:"github_token"`
	SelfHostedToken   string `mapstructure:"self_hosted_token"`
	GitLabComToken    string `mapstructure:"gitlab_com_token"`
	GitLabComUser     string `mapstructure:"gitlab_com_user"`
	GitLabComPassword string `mapstructure:"gitlab_com_pass"`
}

// SecretsLoader reads Secrets from a dotenv file. An empty path searches the working directory.
type SecretsLoader func(secretsFilePath string) (Secrets, error)

// LoadSecretsFromDotenv reads secrets with viper's env format, letting environment variables override the file.
// A missing GITHUB_TOKEN falls back to GH_TOKEN or GITHUB_API_TOKEN from the environment.
func LoadSecretsFromDotenv(secretsFilePath string) (Secrets, error) {
	return NewDotenvSecretsLoader(githubauth.NewTokenResolver())(secretsFilePath)
}

// NewDotenvSecretsLoader builds a SecretsLoader resolving the GitHub token through resolver.
func NewDotenvSecretsLoader(resolver githubauth.TokenResolver) SecretsLoader {
	return func(secretsFilePath string) (Secrets, error) {
		loader := utils.NewConfigurationLoader(DefaultSecretsFileName, secretsConfigurationTypeConstant, "", []string{secretsSearchPathConstant})

		defaultValues := map[string]any{}
		for _, secretKey := range []string{
			gitHubTokenSecretKeyConstant,
			selfHostedTokenSecretKeyConstant,
			gitLabComTokenSecretKeyConstant,
			gitLabComUserSecretKeyConstant,
			gitLabComPasswordSecretKeyConstant,
		} {
			defaultValues[strings.ToLower(secretKey)] = ""
		}

		var secrets Secrets
		if _, loadError := loader.LoadConfiguration(strings.TrimSpace(secretsFilePath), defaultValues, &secrets); loadError != nil {
			return Secrets{}, fmt.Errorf(secretsLoadErrorTemplateConstant, loadError)
		}

		resolvedSecrets := secrets.trimmed()
		resolvedSecrets.GitHubToken, _ = resolver.Resolve(resolvedSecrets.GitHubToken)
		return resolvedSecrets, nil
	}
}

// Validate reports every secret the selected source requires but lacks.
func (secrets Secrets) Validate(source SourceKind) error {
	missingKeys := make([]string, 0)
	if len(secrets.GitHubToken) == 0 {
		missingKeys = append(missingKeys, gitHubTokenSecretKeyConstant)
	}
	switch source {
	case SourceSelfHosted:
		if len(secrets.SelfHostedToken) == 0 {
			missingKeys = append(missingKeys, selfHostedTokenSecretKeyConstant)
		}
	case SourceGitLabCom:
		if len(secrets.GitLabComToken) == 0 {
			missingKeys = append(missingKeys, gitLabComTokenSecretKeyConstant)
		}
	}

	if len(missingKeys) > 0 {
		return MissingSecretsError{Keys: missingKeys}
	}
	return nil
}

// SourceToken returns the API token of the selected source.
func (secrets Secrets) SourceToken(source SourceKind) string {
	if source == SourceGitLabCom {
		return secrets.GitLabComToken
	}
	return secrets.SelfHostedToken
}

// SourceCredentials returns the credentials git presents to the source host. gitlab.com prefers an
// explicit user and password pair when both are configured.
func (secrets Secrets) SourceCredentials(source SourceKind) transfer.Credentials {
	if source == SourceGitLabCom && len(secrets.GitLabComUser) > 0 && len(secrets.GitLabComPassword) > 0 {
		return transfer.Credentials{Username: secrets.GitLabComUser, Password: secrets.GitLabComPassword}
	}
	return transfer.TokenCredentials(transfer.GitLabTokenUsername, secrets.SourceToken(source))
}

// DestinationCredentials returns the credentials git presents to GitHub.
func (secrets Secrets) DestinationCredentials() transfer.Credentials {
	return transfer.TokenCredentials(transfer.GitHubTokenUsername, secrets.GitHubToken)
}

func (secrets Secrets) trimmed() Secrets {
	return Secrets{
		GitHubToken:       strings.TrimSpace(secrets.GitHubToken),
		SelfHostedToken:   strings.TrimSpace(secrets.SelfHostedToken),
		GitLabComToken:    strings.TrimSpace(secrets.GitLabComToken),
		GitLabComUser:     strings.TrimSpace(secrets.GitLabComUser),
		GitLabComPassword: strings.TrimSpace(secrets.GitLabComPassword),
	}
}
