package transfer

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

const (
	// GitHubTokenUsername is the basic-auth user paired with a GitHub access token.
	GitHubTokenUsername = "x-access-token"
	// GitLabTokenUsername is the basic-auth user paired with a GitLab access token.
	GitLabTokenUsername = "oauth2"

	gitConfigCountVariableConstant           = "GIT_CONFIG_COUNT"
	gitConfigKeyVariableTemplateConstant     = "GIT_CONFIG_KEY_%d"
	gitConfigValueVariableTemplateConstant   = "GIT_CONFIG_VALUE_%d"
	gitTerminalPromptVariableConstant        = "GIT_TERMINAL_PROMPT"
	gitTerminalPromptDisabledConstant        = "0"
	httpExtraHeaderConfigKeyConstant         = "http.extraHeader"
	basicAuthorizationHeaderTemplateConstant = "Authorization: Basic %s"
	basicCredentialsSeparatorConstant        = ":"
	firstConfigurationEntryIndexConstant     = 0
)

// Credentials are HTTP basic credentials presented to a git remote.
type Credentials struct {
	Username string
	Password string
}

// TokenCredentials pairs an access token with the username its host expects.
func TokenCredentials(username string, token string) Credentials {
	return Credentials{Username: username, Password: token}
}

// IsEmpty reports whether no password is configured.
func (credentials Credentials) IsEmpty() bool {
	return len(strings.TrimSpace(credentials.Password)) == 0
}

// authorizationHeader renders the value git sends as an extra HTTP header.
func (credentials Credentials) authorizationHeader() string {
	encoded := base64.StdEncoding.EncodeToString([]byte(credentials.Username + basicCredentialsSeparatorConstant + credentials.Password))
	return fmt.Sprintf(basicAuthorizationHeaderTemplateConstant, encoded)
}

// environment configures git to authenticate without prompting.
func (credentials Credentials) environment() map[string]string {
	environment := map[string]string{
		gitTerminalPromptVariableConstant: gitTerminalPromptDisabledConstant,
	}
	if credentials.IsEmpty() {
		return environment
	}

	environment[gitConfigCountVariableConstant] = strconv.Itoa(firstConfigurationEntryIndexConstant + 1)
	environment[fmt.Sprintf(gitConfigKeyVariableTemplateConstant, firstConfigurationEntryIndexConstant)] = httpExtraHeaderConfigKeyConstant
	environment[fmt.Sprintf(gitConfigValueVariableTemplateConstant, firstConfigurationEntryIndexConstant)] = credentials.authorizationHeader()
	return environment
}
