// Package githubauth resolves the GitHub token used for the destination organization.
package githubauth
