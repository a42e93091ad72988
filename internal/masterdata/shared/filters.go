// Package shared holds types common to the masterdata subpackages.
package shared

// ListFilters carries the common listing knobs for masterdata screens.
type ListFilters struct {
	Page       int
	PerPage    int
	Search     string
	ActiveOnly bool
}

// Normalize fills in listing defaults.
func (f ListFilters) Normalize() ListFilters {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 20
	}
	if f.PerPage > 100 {
		f.PerPage = 100
	}
	return f
}
