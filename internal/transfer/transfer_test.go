package transfer_test

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitlab2github/internal/execshell"
	"github.com/temirov/gitlab2github/internal/transfer"
)

const (
	testSourceURLConstant        = "https://gitlab.example.com/library/alpha.git"
	testDestinationURLConstant   = "https://github.com/library-org/alpha.git"
	testSourceTokenConstant      = "source-secret-token"
	testDestinationTokenConstant = "destination-secret-token"
	testProjectNameConstant      = "alpha"
	testHeaderValueKeyConstant   = "GIT_CONFIG_VALUE_0"
)

type recordingGitExecutor struct {
	executedCommands   []execshell.CommandDetails
	errorsBySubcommand map[string]error
}

func (executor *recordingGitExecutor) ExecuteGit(_ context.Context, details execshell.CommandDetails) (execshell.ExecutionResult, error) {
	executor.executedCommands = append(executor.executedCommands, details)
	if failure, exists := executor.errorsBySubcommand[details.Arguments[0]]; exists {
		return execshell.ExecutionResult{}, failure
	}
	return execshell.ExecutionResult{}, nil
}

func newTestTransferrer(testInstance *testing.T, executor transfer.GitExecutor) *transfer.Transferrer {
	testInstance.Helper()
	transferrer, constructionError := transfer.NewTransferrer(transfer.Dependencies{
		GitExecutor:            executor,
		SourceCredentials:      transfer.TokenCredentials(transfer.GitLabTokenUsername, testSourceTokenConstant),
		DestinationCredentials: transfer.TokenCredentials(transfer.GitHubTokenUsername, testDestinationTokenConstant),
	})
	require.NoError(testInstance, constructionError)
	return transferrer
}

func TestCloneBareAndPushMirrorCommands(testInstance *testing.T) {
	executor := &recordingGitExecutor{}
	transferrer := newTestTransferrer(testInstance, executor)
	workspace, acquireError := transfer.AcquireWorkspace(testInstance.TempDir(), testProjectNameConstant)
	require.NoError(testInstance, acquireError)

	localPath, cloneError := transferrer.CloneBare(context.Background(), testSourceURLConstant, workspace)
	require.NoError(testInstance, cloneError)
	require.Equal(testInstance, filepath.Join(workspace.Root(), "alpha.git"), localPath)

	require.NoError(testInstance, transferrer.PushMirror(context.Background(), localPath, testDestinationURLConstant))

	require.Len(testInstance, executor.executedCommands, 2)
	cloneCommand := executor.executedCommands[0]
	require.Equal(testInstance, []string{"clone", "--bare", testSourceURLConstant, "alpha.git"}, cloneCommand.Arguments)
	require.Equal(testInstance, workspace.Root(), cloneCommand.WorkingDirectory)

	pushCommand := executor.executedCommands[1]
	require.Equal(testInstance, []string{"push", "--mirror", testDestinationURLConstant}, pushCommand.Arguments)
	require.Equal(testInstance, localPath, pushCommand.WorkingDirectory)
}

func TestCredentialsNeverAppearInArguments(testInstance *testing.T) {
	executor := &recordingGitExecutor{}
	transferrer := newTestTransferrer(testInstance, executor)
	workspace, acquireError := transfer.AcquireWorkspace(testInstance.TempDir(), testProjectNameConstant)
	require.NoError(testInstance, acquireError)

	localPath, cloneError := transferrer.CloneBare(context.Background(), testSourceURLConstant, workspace)
	require.NoError(testInstance, cloneError)
	require.NoError(testInstance, transferrer.PushMirror(context.Background(), localPath, testDestinationURLConstant))

	testCases := []struct {
		name             string
		command          execshell.CommandDetails
		expectedUsername string
		expectedToken    string
	}{
		{name: "clone_uses_source_token", command: executor.executedCommands[0], expectedUsername: transfer.GitLabTokenUsername, expectedToken: testSourceTokenConstant},
		{name: "push_uses_destination_token", command: executor.executedCommands[1], expectedUsername: transfer.GitHubTokenUsername, expectedToken: testDestinationTokenConstant},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			for _, argument := range testCase.command.Arguments {
				require.NotContains(testInstance, argument, testCase.expectedToken)
			}

			environment := testCase.command.EnvironmentVariables
			require.Equal(testInstance, "0", environment["GIT_TERMINAL_PROMPT"])
			require.Equal(testInstance, "1", environment["GIT_CONFIG_COUNT"])
			require.Equal(testInstance, "http.extraHeader", environment["GIT_CONFIG_KEY_0"])

			headerValue := environment[testHeaderValueKeyConstant]
			require.True(testInstance, strings.HasPrefix(headerValue, "Authorization: Basic "))
			decoded, decodeError := base64.StdEncoding.DecodeString(strings.TrimPrefix(headerValue, "Authorization: Basic "))
			require.NoError(testInstance, decodeError)
			require.Equal(testInstance, testCase.expectedUsername+":"+testCase.expectedToken, string(decoded))
		})
	}
}

func TestEmptyCredentialsOnlyDisablePrompts(testInstance *testing.T) {
	executor := &recordingGitExecutor{}
	transferrer, constructionError := transfer.NewTransferrer(transfer.Dependencies{GitExecutor: executor})
	require.NoError(testInstance, constructionError)

	require.NoError(testInstance, transferrer.PushMirror(context.Background(), "/tmp/alpha.git", testDestinationURLConstant))
	require.Equal(testInstance, map[string]string{"GIT_TERMINAL_PROMPT": "0"}, executor.executedCommands[0].EnvironmentVariables)
}

func TestTransferFailuresCarryDiagnostics(testInstance *testing.T) {
	runnerFailure := errors.New("executable file not found")
	testCases := []struct {
		name               string
		subcommand         string
		failure            error
		expectedOperation  transfer.Operation
		expectedDiagnostic string
	}{
		{
			name:       "clone_exit_code",
			subcommand: "clone",
			failure: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit},
				Result:  execshell.ExecutionResult{ExitCode: 128, StandardError: "fatal: repository not found\n"},
			},
			expectedOperation:  transfer.OperationClone,
			expectedDiagnostic: "fatal: repository not found",
		},
		{
			name:       "push_exit_code",
			subcommand: "push",
			failure: execshell.CommandFailedError{
				Command: execshell.ShellCommand{Name: execshell.CommandGit},
				Result:  execshell.ExecutionResult{ExitCode: 1, StandardError: "remote rejected"},
			},
			expectedOperation:  transfer.OperationPush,
			expectedDiagnostic: "remote rejected",
		},
		{
			name:               "push_execution_failure",
			subcommand:         "push",
			failure:            execshell.CommandExecutionError{Command: execshell.ShellCommand{Name: execshell.CommandGit}, Cause: runnerFailure},
			expectedOperation:  transfer.OperationPush,
			expectedDiagnostic: "git could not be executed: executable file not found",
		},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			executor := &recordingGitExecutor{errorsBySubcommand: map[string]error{testCase.subcommand: testCase.failure}}
			transferrer := newTestTransferrer(testInstance, executor)
			workspace, acquireError := transfer.AcquireWorkspace(testInstance.TempDir(), testProjectNameConstant)
			require.NoError(testInstance, acquireError)

			var operationError error
			if testCase.subcommand == "clone" {
				_, operationError = transferrer.CloneBare(context.Background(), testSourceURLConstant, workspace)
			} else {
				operationError = transferrer.PushMirror(context.Background(), workspace.Path(), testDestinationURLConstant)
			}

			var transferError transfer.TransferError
			require.True(testInstance, errors.As(operationError, &transferError))
			require.Equal(testInstance, testCase.expectedOperation, transferError.Operation)
			require.Equal(testInstance, testCase.expectedDiagnostic, transferError.Diagnostic)
			require.Equal(testInstance, testCase.failure, transferError.Cause)
		})
	}
}

func TestTransferrerValidation(testInstance *testing.T) {
	_, constructionError := transfer.NewTransferrer(transfer.Dependencies{})
	require.ErrorIs(testInstance, constructionError, transfer.ErrGitExecutorMissing)

	transferrer := newTestTransferrer(testInstance, &recordingGitExecutor{})
	_, cloneError := transferrer.CloneBare(context.Background(), testSourceURLConstant, nil)
	require.ErrorIs(testInstance, cloneError, transfer.ErrWorkspaceMissing)
}

func TestAcquireWorkspaceRemovesStaleClone(testInstance *testing.T) {
	root := filepath.Join(testInstance.TempDir(), "repos")
	stalePath := filepath.Join(root, "alpha.git")
	require.NoError(testInstance, os.MkdirAll(filepath.Join(stalePath, "refs"), 0o755))

	workspace, acquireError := transfer.AcquireWorkspace(root, testProjectNameConstant)
	require.NoError(testInstance, acquireError)
	require.Equal(testInstance, stalePath, workspace.Path())
	require.NoDirExists(testInstance, stalePath)
	require.DirExists(testInstance, root)
}

func TestWorkspaceReleaseRemovesClone(testInstance *testing.T) {
	workspace, acquireError := transfer.AcquireWorkspace(testInstance.TempDir(), testProjectNameConstant)
	require.NoError(testInstance, acquireError)
	require.NoError(testInstance, os.MkdirAll(filepath.Join(workspace.Path(), "objects"), 0o755))

	require.NoError(testInstance, workspace.Release())
	require.NoDirExists(testInstance, workspace.Path())
	require.NoError(testInstance, workspace.Release())
}

func TestAcquireWorkspaceRejectsInvalidInput(testInstance *testing.T) {
	testCases := []struct {
		name        string
		root        string
		projectName string
	}{
		{name: "empty_root", root: " ", projectName: testProjectNameConstant},
		{name: "empty_name", root: testInstance.TempDir(), projectName: ""},
		{name: "nested_name", root: testInstance.TempDir(), projectName: "group/alpha"},
		{name: "parent_name", root: testInstance.TempDir(), projectName: ".."},
	}

	for _, testCase := range testCases {
		testInstance.Run(testCase.name, func(testInstance *testing.T) {
			_, acquireError := transfer.AcquireWorkspace(testCase.root, testCase.projectName)
			require.Error(testInstance, acquireError)
		})
	}
}
