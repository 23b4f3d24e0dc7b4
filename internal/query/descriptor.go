package query

import "metadesk-backend/internal/filter"

const (
	Asc  = "asc"
	Desc = "desc"

	DefaultSize = 25
)

// SortItem orders results by one property.
type SortItem struct {
	Property  string `json:"property" yaml:"property"`
	Direction string `json:"direction" yaml:"direction"`
}

// ValidDirection reports whether d is "asc" or "desc".
func ValidDirection(d string) bool {
	return d == Asc || d == Desc
}

// Descriptor is the declarative description of what to fetch.
type Descriptor struct {
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	Sort       []SortItem      `json:"sort"`
	Search     string          `json:"search"`
	Filter     []filter.Clause `json:"filter"`
	Properties []string        `json:"properties"`
}

// NewDescriptor returns a descriptor for the first page with empty
// sort/filter/projection.
func NewDescriptor(size int) Descriptor {
	if size < 1 {
		size = DefaultSize
	}
	return Descriptor{
		Page:       1,
		Size:       size,
		Sort:       []SortItem{},
		Filter:     []filter.Clause{},
		Properties: []string{},
	}
}
