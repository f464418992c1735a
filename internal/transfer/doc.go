// Package transfer copies complete repositories between hosts with the git executable.
//
// A repository is cloned bare into a per-project Workspace and pushed with --mirror, so every
// branch and tag reaches the destination. Credentials travel through git's environment based
// configuration and never appear in process arguments.
package transfer
