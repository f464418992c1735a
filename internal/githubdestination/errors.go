package githubdestination

import "fmt"

const (
	createErrorTemplateConstant              = "create repository %s: unexpected status %d"
	createErrorWithCauseTemplateConstant     = "create repository %s: %v"
	configErrorTemplateConstant              = "%s for repository %s failed with status %d: %v"
	configErrorWithoutStatusTemplateConstant = "%s for repository %s failed: %v"
	convergenceTimeoutErrorTemplateConstant  = "default branch of %s did not become %q after %d attempts (last observed %q)"
)

// CreateError reports a repository creation that did not yield the created status.
type CreateError struct {
	RepositoryName string
	StatusCode     int
	Cause          error
}

// Error describes the creation failure.
func (createError CreateError) Error() string {
	if createError.Cause != nil {
		return fmt.Sprintf(createErrorWithCauseTemplateConstant, createError.RepositoryName, createError.Cause)
	}
	return fmt.Sprintf(createErrorTemplateConstant, createError.RepositoryName, createError.StatusCode)
}

// Unwrap exposes the transport or API error.
func (createError CreateError) Unwrap() error {
	return createError.Cause
}

// ConfigError reports a rejected repository mutation or read.
type ConfigError struct {
	RepositoryName string
	Operation      string
	StatusCode     int
	Cause          error
}

// Error describes the configuration failure.
func (configError ConfigError) Error() string {
	if configError.StatusCode == 0 {
		return fmt.Sprintf(configErrorWithoutStatusTemplateConstant, configError.Operation, configError.RepositoryName, configError.Cause)
	}
	return fmt.Sprintf(configErrorTemplateConstant, configError.Operation, configError.RepositoryName, configError.StatusCode, configError.Cause)
}

// Unwrap exposes the transport or API error.
func (configError ConfigError) Unwrap() error {
	return configError.Cause
}

// ConvergenceTimeoutError reports a default branch that never reached the expected value.
type ConvergenceTimeoutError struct {
	RepositoryName string
	ExpectedBranch string
	ObservedBranch string
	Attempts       int
}

// Error describes the convergence timeout.
func (timeoutError ConvergenceTimeoutError) Error() string {
	return fmt.Sprintf(convergenceTimeoutErrorTemplateConstant, timeoutError.RepositoryName, timeoutError.ExpectedBranch, timeoutError.Attempts, timeoutError.ObservedBranch)
}
