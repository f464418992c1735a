// Package githubdestination talks to the GitHub organization that receives migrated repositories.
//
// OrganizationLister enumerates the organization's repositories so the orchestrator can reconcile
// existence by name. RepositoryManager creates repositories, enforces private visibility and drives
// the default branch to main. GitHub applies default branch changes with a propagation delay, so every
// branch mutation is followed by bounded polling of the live value.
package githubdestination
