// Package migrate moves every project of a GitLab source host into a GitHub organization.
//
// The Service reconciles the source listing against the destination listing and walks each
// project through creation, a bare clone, a mirror push, visibility and primary branch
// configuration, and cleanup. A failing project is recorded and the run continues.
package migrate
