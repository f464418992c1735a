// Package flags provides helpers for binding standardized execution flags to Cobra commands.
package flags

import "github.com/spf13/cobra"

const (
	// DryRunFlagName exposes the shared dry-run flag name.
	DryRunFlagName = "dry-run"
	// DryRunFlagUsage describes the shared dry-run flag purpose.
	DryRunFlagUsage = "Preview the migration plan without mutating any host"
)

// ExecutionDefaults describes default flag values shared across commands.
type ExecutionDefaults struct {
	DryRun bool
}

// ExecutionFlagDefinition captures a single flag's configuration.
type ExecutionFlagDefinition struct {
	Name      string
	Usage     string
	Shorthand string
	Enabled   bool
}

// ExecutionFlagDefinitions groups execution flag definitions.
type ExecutionFlagDefinitions struct {
	DryRun ExecutionFlagDefinition
}

// ExecutionFlagValues stores parsed execution flag values.
type ExecutionFlagValues struct {
	DryRun bool
}

// BindExecutionFlags attaches standardized execution toggles to the provided command.
func BindExecutionFlags(command *cobra.Command, defaults ExecutionDefaults, definitions ExecutionFlagDefinitions) *ExecutionFlagValues {
	values := &ExecutionFlagValues{DryRun: defaults.DryRun}
	if command == nil {
		return values
	}

	definition := definitions.DryRun
	if !definition.Enabled {
		return values
	}
	if len(definition.Name) == 0 {
		definition.Name = DryRunFlagName
	}
	if len(definition.Usage) == 0 {
		definition.Usage = DryRunFlagUsage
	}

	AddToggleFlag(command.Flags(), &values.DryRun, definition.Name, definition.Shorthand, defaults.DryRun, definition.Usage)
	return values
}
