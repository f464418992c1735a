// Package testsupport provides git and GitLab stand-ins for exercising the migration workflow.
package testsupport

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/temirov/gitlab2github/internal/execshell"
	githubfake "github.com/temirov/gitlab2github/internal/githubdestination/testsupport"
)

const (
	gitCloneSubcommandConstant   = "clone"
	gitPushSubcommandConstant    = "push"
	bareSuffixConstant           = ".git"
	cloneFailureExitCodeConstant = 128
	pushFailureExitCodeConstant  = 1
	directoryPermissionConstant  = 0o755
)

// SourceRepository is the branch layout served for a clone URL.
type SourceRepository struct {
	DefaultBranch string
	Branches      []string
}

// GitExecutorStub imitates git clone --bare and git push --mirror.
//
// Clones create the bare directory on disk. Pushes deliver the cloned repository's branches to
// the Destination fake.
type GitExecutorStub struct {
	Destination        *githubfake.FakeGitHub
	SourceRepositories map[string]SourceRepository
	CloneFailures      map[string]string
	PushFailures       map[string]string

	mutex            sync.Mutex
	executedCommands []execshell.CommandDetails
	clonedURLsByPath map[string]string
}

// ExecuteGit records the invocation and applies its effect.
func (executor *GitExecutorStub) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()

	executor.executedCommands = append(executor.executedCommands, details)
	if executor.clonedURLsByPath == nil {
		executor.clonedURLsByPath = map[string]string{}
	}

	command := execshell.ShellCommand{Name: execshell.CommandGit, Details: details}
	switch details.Arguments[0] {
	case gitCloneSubcommandConstant:
		cloneURL := details.Arguments[2]
		if diagnostic, failing := executor.CloneFailures[cloneURL]; failing {
			return execshell.ExecutionResult{}, execshell.CommandFailedError{
				Command: command,
				Result:  execshell.ExecutionResult{ExitCode: cloneFailureExitCodeConstant, StandardError: diagnostic},
			}
		}
		localPath := filepath.Join(details.WorkingDirectory, details.Arguments[3])
		if mkdirError := os.MkdirAll(localPath, directoryPermissionConstant); mkdirError != nil {
			return execshell.ExecutionResult{}, execshell.CommandExecutionError{Command: command, Cause: mkdirError}
		}
		executor.clonedURLsByPath[localPath] = cloneURL
	case gitPushSubcommandConstant:
		pushURL := details.Arguments[2]
		if diagnostic, failing := executor.PushFailures[pushURL]; failing {
			return execshell.ExecutionResult{}, execshell.CommandFailedError{
				Command: command,
				Result:  execshell.ExecutionResult{ExitCode: pushFailureExitCodeConstant, StandardError: diagnostic},
			}
		}
		sourceRepository := executor.SourceRepositories[executor.clonedURLsByPath[details.WorkingDirectory]]
		if executor.Destination != nil {
			repositoryName := strings.TrimSuffix(path.Base(pushURL), bareSuffixConstant)
			executor.Destination.PushBranches(repositoryName, sourceRepository.Branches, sourceRepository.DefaultBranch)
		}
	}
	return execshell.ExecutionResult{}, nil
}

// ExecutedCommands returns the recorded invocations in order.
func (executor *GitExecutorStub) ExecutedCommands() []execshell.CommandDetails {
	executor.mutex.Lock()
	defer executor.mutex.Unlock()
	return append([]execshell.CommandDetails{}, executor.executedCommands...)
}

// CountSubcommand counts recorded invocations of a git subcommand.
func (executor *GitExecutorStub) CountSubcommand(subcommand string) int {
	count := 0
	for _, details := range executor.ExecutedCommands() {
		if len(details.Arguments) > 0 && details.Arguments[0] == subcommand {
			count++
		}
	}
	return count
}
