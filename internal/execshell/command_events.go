package execshell

import (
	"time"

	"go.uber.org/zap"
)

const (
	commandDurationMessageConstant        = "external command finished"
	commandDurationFailureMessageConstant = "external command aborted"
	logFieldDurationConstant              = "duration"
)

// CommandEventObserver receives lifecycle notifications for shell command execution.
type CommandEventObserver interface {
	// CommandStarted notifies observers that command execution is beginning.
	CommandStarted(command ShellCommand)
	// CommandCompleted notifies observers that command execution finished and supplies the result.
	CommandCompleted(command ShellCommand, result ExecutionResult)
	// CommandExecutionFailed reports unexpected failures prior to receiving an execution result.
	CommandExecutionFailed(command ShellCommand, failure error)
}

type noopCommandEventObserver struct{}

func (noopCommandEventObserver) CommandStarted(ShellCommand) {}

func (noopCommandEventObserver) CommandCompleted(ShellCommand, ExecutionResult) {}

func (noopCommandEventObserver) CommandExecutionFailed(ShellCommand, error) {}

// DurationCommandEventObserver logs how long each external command ran at debug level.
// Commands are sequential, so a single start timestamp is sufficient.
type DurationCommandEventObserver struct {
	logger    *zap.Logger
	now       func() time.Time
	startedAt time.Time
}

// NewDurationCommandEventObserver constructs an observer backed by the provided logger and time source.
func NewDurationCommandEventObserver(logger *zap.Logger, now func() time.Time) *DurationCommandEventObserver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &DurationCommandEventObserver{logger: logger, now: now}
}

// CommandStarted records the start time.
func (observer *DurationCommandEventObserver) CommandStarted(ShellCommand) {
	observer.startedAt = observer.now()
}

// CommandCompleted logs the elapsed time together with the exit code.
func (observer *DurationCommandEventObserver) CommandCompleted(command ShellCommand, result ExecutionResult) {
	observer.logger.Debug(
		commandDurationMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Int(logFieldExitCodeConstant, result.ExitCode),
		zap.Duration(logFieldDurationConstant, observer.now().Sub(observer.startedAt)),
	)
}

// CommandExecutionFailed logs the elapsed time before the runner failed.
func (observer *DurationCommandEventObserver) CommandExecutionFailed(command ShellCommand, failure error) {
	observer.logger.Debug(
		commandDurationFailureMessageConstant,
		zap.String(logFieldCommandNameConstant, string(command.Name)),
		zap.Duration(logFieldDurationConstant, observer.now().Sub(observer.startedAt)),
		zap.Error(failure),
	)
}
