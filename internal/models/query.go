package models

// SearchFilters narrow a candidate search.
type SearchFilters struct {
	MinYearsExperience int    `json:"min_years_experience,omitempty"`
	Location           string `json:"location,omitempty"`
	Seniority          string `json:"seniority,omitempty"`
}

// SearchQuery represents a candidate search request.
type SearchQuery struct {
	Query        string        `json:"query"`
	HintKeywords []string      `json:"hint_keywords,omitempty"`
	Filters      SearchFilters `json:"filters,omitempty"`
	Page         int           `json:"page,omitempty"`
	PageSize     int           `json:"page_size,omitempty"`
	// StickySeed buckets traffic sampling deterministically per caller.
	// Typically the recruiter's user id. Empty means query-only bucketing.
	StickySeed string `json:"sticky_seed,omitempty"`
}

// Validate normalizes paging fields. An empty query is valid: it returns the
// most recent page of the global candidate pool.
func (q *SearchQuery) Validate() error {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
	return nil
}
