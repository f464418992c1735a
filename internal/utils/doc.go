// Package utils exposes reusable helpers consumed by the CLI and the migration workflow.
//
// It houses ConfigurationLoader, which layers embedded defaults, configuration files, dotenv secret
// files and environment variables through Viper, and LoggerFactory, which builds zap loggers that
// write to stderr and, optionally, to a per-run log file.
package utils
