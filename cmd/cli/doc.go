// Package cli constructs the gitlab2github command-line interface. It wires the
// Cobra command hierarchy, the layered configuration loader (embedded defaults,
// optional config file, GITLAB2GITHUB_ environment overrides) and the zap logger
// that tees console output into a per-run log file, then registers the migrate
// command on top of them.
package cli
