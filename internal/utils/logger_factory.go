package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logLevelDebugStringConstant          = "debug"
	logLevelInfoStringConstant           = "info"
	logLevelWarnStringConstant           = "warn"
	logLevelErrorStringConstant          = "error"
	logFormatStructuredStringConstant    = "structured"
	logFormatConsoleStringConstant       = "console"
	unsupportedLogLevelTemplateConstant  = "unsupported log level: %s"
	unsupportedLogFormatTemplateConstant = "unsupported log format: %s"
	logFileNameLayoutConstant            = "output-20060102-15-04-05.log"
	logFileMaximumSizeMegabytesConstant  = 100
	logFileMaximumBackupsConstant        = 5
)

// LogLevel enumerates supported logging granularities.
type LogLevel string

// Exported log level constants for reuse across packages.
const (
	LogLevelDebug LogLevel = LogLevel(logLevelDebugStringConstant)
	LogLevelInfo  LogLevel = LogLevel(logLevelInfoStringConstant)
	LogLevelWarn  LogLevel = LogLevel(logLevelWarnStringConstant)
	LogLevelError LogLevel = LogLevel(logLevelErrorStringConstant)
)

// LogFormat enumerates supported logger output encodings.
type LogFormat string

// Exported log format constants for reuse across packages.
const (
	LogFormatStructured LogFormat = LogFormat(logFormatStructuredStringConstant)
	LogFormatConsole    LogFormat = LogFormat(logFormatConsoleStringConstant)
)

// LoggerFactory builds zap.Logger instances with consistent configuration.
type LoggerFactory struct {
	now func() time.Time
}

// LoggerOutputs bundles a logger with the per-run log file it writes to.
type LoggerOutputs struct {
	Logger      *zap.Logger
	LogFilePath string
	fileSink    io.Closer
}

// Close releases the log file handle, when one was opened.
func (outputs LoggerOutputs) Close() error {
	if outputs.fileSink == nil {
		return nil
	}
	return outputs.fileSink.Close()
}

var logLevelMapping = map[LogLevel]zapcore.Level{
	LogLevelDebug: zapcore.DebugLevel,
	LogLevelInfo:  zapcore.InfoLevel,
	LogLevelWarn:  zapcore.WarnLevel,
	LogLevelError: zapcore.ErrorLevel,
}

// NewLoggerFactory constructs a new logger factory.
func NewLoggerFactory() *LoggerFactory {
	return NewLoggerFactoryWithClock(time.Now)
}

// NewLoggerFactoryWithClock constructs a logger factory naming log files from the provided clock.
func NewLoggerFactoryWithClock(now func() time.Time) *LoggerFactory {
	if now == nil {
		now = time.Now
	}
	return &LoggerFactory{now: now}
}

// CreateLogger produces a zap.Logger writing to stderr and honoring the requested log level and format.
func (factory *LoggerFactory) CreateLogger(requestedLogLevel LogLevel, requestedLogFormat LogFormat) (*zap.Logger, error) {
	outputs, creationError := factory.CreateLoggerOutputs(requestedLogLevel, requestedLogFormat, "")
	if creationError != nil {
		return nil, creationError
	}
	return outputs.Logger, nil
}

// CreateLoggerOutputs produces a logger writing to stderr and, when logsDirectory is set, teeing
// structured entries into logsDirectory/output-YYYYMMDD-HH-MM-SS.log.
func (factory *LoggerFactory) CreateLoggerOutputs(requestedLogLevel LogLevel, requestedLogFormat LogFormat, logsDirectory string) (LoggerOutputs, error) {
	zapLogLevel, levelExists := logLevelMapping[requestedLogLevel]
	if !levelExists {
		return LoggerOutputs{}, fmt.Errorf(unsupportedLogLevelTemplateConstant, requestedLogLevel)
	}

	consoleEncoder, encoderError := buildEncoder(requestedLogFormat)
	if encoderError != nil {
		return LoggerOutputs{}, encoderError
	}

	levelEnabler := zap.NewAtomicLevelAt(zapLogLevel)
	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(zapcore.AddSync(NewFlushingWriter(os.Stderr))), levelEnabler),
	}

	outputs := LoggerOutputs{}
	trimmedLogsDirectory := strings.TrimSpace(logsDirectory)
	if len(trimmedLogsDirectory) > 0 {
		outputs.LogFilePath = filepath.Join(trimmedLogsDirectory, factory.currentTime().Format(logFileNameLayoutConstant))
		fileSink := &lumberjack.Logger{
			Filename:   outputs.LogFilePath,
			MaxSize:    logFileMaximumSizeMegabytesConstant,
			MaxBackups: logFileMaximumBackupsConstant,
		}
		outputs.fileSink = fileSink
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(fileSink), levelEnabler))
	}

	outputs.Logger = zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	return outputs, nil
}

func (factory *LoggerFactory) currentTime() time.Time {
	if factory == nil || factory.now == nil {
		return time.Now()
	}
	return factory.now()
}

func buildEncoder(requestedLogFormat LogFormat) (zapcore.Encoder, error) {
	encoderConfiguration := zap.NewProductionEncoderConfig()
	encoderConfiguration.EncodeTime = zapcore.ISO8601TimeEncoder

	switch requestedLogFormat {
	case LogFormatStructured:
		return zapcore.NewJSONEncoder(encoderConfiguration), nil
	case LogFormatConsole:
		encoderConfiguration.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encoderConfiguration), nil
	default:
		return nil, fmt.Errorf(unsupportedLogFormatTemplateConstant, requestedLogFormat)
	}
}
