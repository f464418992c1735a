// Package gitlabsource enumerates migration candidates on GitLab hosts.
//
// SelfHostedLister pages through every project visible on a self-hosted instance and stops when the
// current page equals the reported total. GroupLister pages through the projects of configured
// gitlab.com group namespaces and stops on the first empty page. Both publish a sorted listing and
// write the raw records to an audit snapshot.
package gitlabsource
