package githubauth

import (
	"os"
	"strings"
)

// Environment variable names consulted for a GitHub token, in preference order.
const (
	EnvGitHubToken    = "GITHUB_TOKEN"
	EnvGitHubCLIToken = "GH_TOKEN"
	EnvGitHubAPIToken = "GITHUB_API_TOKEN"
)

var tokenPreference = []string{
	EnvGitHubToken,
	EnvGitHubCLIToken,
	EnvGitHubAPIToken,
}

// LookupFunc reports the value of a named variable.
type LookupFunc func(key string) (string, bool)

// TokenResolver picks a GitHub token from an explicitly configured value or from well-known variables.
type TokenResolver struct {
	lookup LookupFunc
}

// NewTokenResolver constructs a resolver reading the process environment.
func NewTokenResolver() TokenResolver {
	return NewTokenResolverWithLookup(os.LookupEnv)
}

// NewTokenResolverWithLookup constructs a resolver reading variables through lookup.
func NewTokenResolverWithLookup(lookup LookupFunc) TokenResolver {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return TokenResolver{lookup: lookup}
}

// Resolve returns configured when it is non-blank, otherwise the first non-blank preferred variable.
// The second result names the source of the token and is empty when nothing was found.
func (resolver TokenResolver) Resolve(configured string) (string, string) {
	trimmedConfigured := strings.TrimSpace(configured)
	if len(trimmedConfigured) > 0 {
		return trimmedConfigured, EnvGitHubToken
	}
	for _, key := range tokenPreference {
		value, exists := resolver.lookup(key)
		if !exists {
			continue
		}
		trimmedValue := strings.TrimSpace(value)
		if len(trimmedValue) > 0 {
			return trimmedValue, key
		}
	}
	return "", ""
}
