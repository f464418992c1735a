package migrate

import (
	"fmt"
	"strings"
)

const (
	duplicateExistsErrorTemplateConstant = "destination repository %s already exists and is not listed in duplicate_repositories"
	missingSecretsErrorTemplateConstant  = "missing required secrets: %s"
	runFailedErrorTemplateConstant       = "%d of %d projects failed to migrate: %s"
	listSeparatorConstant                = ", "
)

// DuplicateExistsError reports a destination repository that may not be overwritten.
type DuplicateExistsError struct {
	ProjectName string
}

// Error describes the conflict.
func (duplicateError DuplicateExistsError) Error() string {
	return fmt.Sprintf(duplicateExistsErrorTemplateConstant, duplicateError.ProjectName)
}

// MissingSecretsError lists the secret keys a run requires but could not find.
type MissingSecretsError struct {
	Keys []string
}

// Error names every missing key.
func (secretsError MissingSecretsError) Error() string {
	return fmt.Sprintf(missingSecretsErrorTemplateConstant, strings.Join(secretsError.Keys, listSeparatorConstant))
}

// RunFailedError is returned after the run summary when at least one project failed.
type RunFailedError struct {
	FailedProjects []string
	TotalProjects  int
}

// Error names the failed projects.
func (runError RunFailedError) Error() string {
	return fmt.Sprintf(runFailedErrorTemplateConstant, len(runError.FailedProjects), runError.TotalProjects, strings.Join(runError.FailedProjects, listSeparatorConstant))
}
