package projects

import (
	"context"
	"fmt"
	"sort"
)

const (
	listingErrorTemplateConstant         = "listing projects on %s failed: %v"
	listingErrorWithPageTemplateConstant = "listing projects on %s failed at page %d: %v"
)

// Descriptor is the host-neutral view of a repository. Name is the case-sensitive join key
// between source and destination.
type Descriptor struct {
	Name          string `json:"name"`
	HTTPCloneURL  string `json:"http_url_to_repo"`
	DefaultBranch string `json:"default_branch"`
	Archived      bool   `json:"archived"`
	Description   string `json:"description,omitempty"`
	Raw           any    `json:"-"`
}

// Lister enumerates every project visible on a host, ordered by name.
type Lister interface {
	ListProjects(executionContext context.Context) ([]Descriptor, error)
}

// ListingError reports a failed enumeration. A zero Page means the failure happened after paging.
type ListingError struct {
	Host  string
	Page  int
	Cause error
}

// Error describes the listing failure.
func (listingError ListingError) Error() string {
	if listingError.Page <= 0 {
		return fmt.Sprintf(listingErrorTemplateConstant, listingError.Host, listingError.Cause)
	}
	return fmt.Sprintf(listingErrorWithPageTemplateConstant, listingError.Host, listingError.Page, listingError.Cause)
}

// Unwrap exposes the underlying cause.
func (listingError ListingError) Unwrap() error {
	return listingError.Cause
}

// SortByName orders descriptors ascending by name, keeping host order for equal names.
func SortByName(descriptors []Descriptor) {
	sort.SliceStable(descriptors, func(firstIndex int, secondIndex int) bool {
		return descriptors[firstIndex].Name < descriptors[secondIndex].Name
	})
}

// NameIndex is the set of project names known on a host.
type NameIndex map[string]struct{}

// NewNameIndex builds an index from descriptors.
func NewNameIndex(descriptors []Descriptor) NameIndex {
	index := make(NameIndex, len(descriptors))
	for _, descriptor := range descriptors {
		index[descriptor.Name] = struct{}{}
	}
	return index
}

// Contains reports whether the name is present.
func (index NameIndex) Contains(name string) bool {
	_, exists := index[name]
	return exists
}

// Add records a name.
func (index NameIndex) Add(name string) {
	index[name] = struct{}{}
}
