package migrate

import (
	"fmt"
	"strings"
)

const unsupportedSourceErrorTemplateConstant = "unsupported source %q (expected %s)"

// SourceKind selects the GitLab host projects are migrated from.
type SourceKind string

const (
	// SourceSelfHosted migrates every project visible on a self-hosted GitLab instance.
	SourceSelfHosted SourceKind = "self-hosted"
	// SourceGitLabCom migrates the projects of configured gitlab.com group namespaces.
	SourceGitLabCom SourceKind = "gitlab-com"
)

// SupportedSources lists the accepted --source values.
func SupportedSources() []string {
	return []string{string(SourceSelfHosted), string(SourceGitLabCom)}
}

// ParseSourceKind validates a --source value.
func ParseSourceKind(value string) (SourceKind, error) {
	normalized := SourceKind(strings.ToLower(strings.TrimSpace(value)))
	switch normalized {
	case SourceSelfHosted, SourceGitLabCom:
		return normalized, nil
	default:
		return "", fmt.Errorf(unsupportedSourceErrorTemplateConstant, value, strings.Join(SupportedSources(), listSeparatorConstant))
	}
}
