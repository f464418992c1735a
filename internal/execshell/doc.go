// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and typed failures,
// OSCommandRunner runs processes through os/exec, and CommandMessageFormatter
// renders human-readable descriptions of the git clone and push invocations
// used to transfer repositories between hosts.
package execshell
