package transfer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/temirov/gitlab2github/internal/execshell"
)

const (
	gitCloneSubcommandConstant            = "clone"
	gitPushSubcommandConstant             = "push"
	gitBareFlagConstant                   = "--bare"
	gitMirrorFlagConstant                 = "--mirror"
	executorMissingMessageConstant        = "git executor not configured"
	workspaceMissingMessageConstant       = "workspace not provided"
	transferErrorTemplateConstant         = "git %s failed: %s"
	transferErrorNoDetailTemplateConstant = "git %s failed"
)

// Operation names the git step that failed.
type Operation string

const (
	// OperationClone is the bare clone from the source host.
	OperationClone Operation = "clone"
	// OperationPush is the mirror push to the destination host.
	OperationPush Operation = "push"
)

var (
	// ErrGitExecutorMissing indicates the transferrer was built without an executor.
	ErrGitExecutorMissing = errors.New(executorMissingMessageConstant)
	// ErrWorkspaceMissing indicates CloneBare was called without a workspace.
	ErrWorkspaceMissing = errors.New(workspaceMissingMessageConstant)
)

// GitExecutor runs git commands.
type GitExecutor interface {
	ExecuteGit(executionContext context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error)
}

// TransferError reports a failed clone or push with git's diagnostic output.
type TransferError struct {
	Operation  Operation
	Diagnostic string
	Cause      error
}

// Error describes the failed git step.
func (transferError TransferError) Error() string {
	if len(transferError.Diagnostic) == 0 {
		return fmt.Sprintf(transferErrorNoDetailTemplateConstant, transferError.Operation)
	}
	return fmt.Sprintf(transferErrorTemplateConstant, transferError.Operation, transferError.Diagnostic)
}

// Unwrap exposes the executor error.
func (transferError TransferError) Unwrap() error {
	return transferError.Cause
}

// Dependencies wires a Transferrer.
type Dependencies struct {
	GitExecutor            GitExecutor
	SourceCredentials      Credentials
	DestinationCredentials Credentials
}

// Transferrer clones repositories bare and mirrors them to the destination.
type Transferrer struct {
	executor               GitExecutor
	sourceCredentials      Credentials
	destinationCredentials Credentials
}

// NewTransferrer validates dependencies and constructs a Transferrer.
func NewTransferrer(dependencies Dependencies) (*Transferrer, error) {
	if dependencies.GitExecutor == nil {
		return nil, ErrGitExecutorMissing
	}
	return &Transferrer{
		executor:               dependencies.GitExecutor,
		sourceCredentials:      dependencies.SourceCredentials,
		destinationCredentials: dependencies.DestinationCredentials,
	}, nil
}

// CloneBare runs git clone --bare inside the workspace root and returns the clone path.
func (transferrer *Transferrer) CloneBare(executionContext context.Context, cloneURL string, workspace *Workspace) (string, error) {
	if workspace == nil {
		return "", ErrWorkspaceMissing
	}

	details := execshell.CommandDetails{
		Arguments:            []string{gitCloneSubcommandConstant, gitBareFlagConstant, cloneURL, workspace.DirectoryName()},
		WorkingDirectory:     workspace.Root(),
		EnvironmentVariables: transferrer.sourceCredentials.environment(),
	}
	if _, executionError := transferrer.executor.ExecuteGit(executionContext, details); executionError != nil {
		return "", newTransferError(OperationClone, executionError)
	}
	return workspace.Path(), nil
}

// PushMirror runs git push --mirror from the bare clone to destinationURL.
func (transferrer *Transferrer) PushMirror(executionContext context.Context, localBarePath string, destinationURL string) error {
	details := execshell.CommandDetails{
		Arguments:            []string{gitPushSubcommandConstant, gitMirrorFlagConstant, destinationURL},
		WorkingDirectory:     localBarePath,
		EnvironmentVariables: transferrer.destinationCredentials.environment(),
	}
	if _, executionError := transferrer.executor.ExecuteGit(executionContext, details); executionError != nil {
		return newTransferError(OperationPush, executionError)
	}
	return nil
}

func newTransferError(operation Operation, executionError error) TransferError {
	var failedError execshell.CommandFailedError
	if errors.As(executionError, &failedError) {
		return TransferError{Operation: operation, Diagnostic: strings.TrimSpace(failedError.Result.StandardError), Cause: executionError}
	}
	return TransferError{Operation: operation, Diagnostic: executionError.Error(), Cause: executionError}
}
