// Package projects defines the host-neutral project descriptor shared by source and destination
// listers, name ordering, the listing error, and the JSON audit snapshot written after each listing.
package projects
