package execshell

import (
	"fmt"
	"net/url"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	flagPrefixConstant                      = "-"
	redactedUserInfoConstant                = "redacted"
)

const (
	gitCloneSubcommandNameConstant = "clone"
	gitPushSubcommandNameConstant  = "push"
	gitBareFlagConstant            = "--bare"
	gitMirrorFlagConstant          = "--mirror"
)

const (
	gitBareCloneStartTemplateConstant             = "Cloning bare repository %s into %s"
	gitBareCloneSuccessTemplateConstant           = "Cloned bare repository %s into %s"
	gitBareCloneFailureTemplateConstant           = "Failed to clone bare repository %s into %s (exit code %d%s)"
	gitBareCloneExecutionFailureTemplateConstant  = "Unable to clone bare repository %s into %s: %s"
	gitMirrorPushStartTemplateConstant            = "Mirroring %s to %s"
	gitMirrorPushSuccessTemplateConstant          = "Mirrored %s to %s"
	gitMirrorPushFailureTemplateConstant          = "Failed to mirror %s to %s (exit code %d%s)"
	gitMirrorPushExecutionFailureTemplateConstant = "Unable to mirror %s to %s: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	arguments := command.Details.Arguments
	switch {
	case arguments[0] == gitCloneSubcommandNameConstant && containsArgument(arguments, gitBareFlagConstant):
		return formatter.describeBareClone(command, result, failure, stage)
	case arguments[0] == gitPushSubcommandNameConstant && containsArgument(arguments, gitMirrorFlagConstant):
		return formatter.describeMirrorPush(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeBareClone(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	sourceURL := formatter.redactURL(formatter.extractFirstNonFlagArgument(command.Details.Arguments[1:]))
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitBareCloneStartTemplateConstant, sourceURL, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitBareCloneSuccessTemplateConstant, sourceURL, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitBareCloneFailureTemplateConstant, sourceURL, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitBareCloneExecutionFailureTemplateConstant, sourceURL, workingDirectory, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) describeMirrorPush(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	destinationURL := formatter.redactURL(formatter.extractFirstNonFlagArgument(command.Details.Arguments[1:]))
	workingDirectory := formatter.describeWorkingDirectory(command)

	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitMirrorPushStartTemplateConstant, workingDirectory, destinationURL)
	case messageStageSuccess:
		return fmt.Sprintf(gitMirrorPushSuccessTemplateConstant, workingDirectory, destinationURL)
	case messageStageFailure:
		return fmt.Sprintf(gitMirrorPushFailureTemplateConstant, workingDirectory, destinationURL, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(gitMirrorPushExecutionFailureTemplateConstant, workingDirectory, destinationURL, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	labelParts := []string{string(command.Name)}
	for _, argument := range command.Details.Arguments {
		labelParts = append(labelParts, formatter.redactURL(argument))
	}
	commandLabel := strings.Join(labelParts, commandArgumentsJoinSeparatorConstant)

	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) extractFirstNonFlagArgument(arguments []string) string {
	for _, argument := range arguments {
		trimmedArgument := strings.TrimSpace(argument)
		if len(trimmedArgument) == 0 || strings.HasPrefix(trimmedArgument, flagPrefixConstant) {
			continue
		}
		return trimmedArgument
	}
	return fallbackUnknownValueLabelConstant
}

// redactURL hides credentials embedded in remote URLs.
func (formatter CommandMessageFormatter) redactURL(candidate string) string {
	parsedURL, parseError := url.Parse(candidate)
	if parseError != nil || parsedURL.User == nil || len(parsedURL.Host) == 0 {
		return candidate
	}
	parsedURL.User = url.User(redactedUserInfoConstant)
	return parsedURL.String()
}

func containsArgument(arguments []string, value string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == value {
			return true
		}
	}
	return false
}
