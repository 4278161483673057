package search

// Result is a single search hit.
type Result struct {
	DocID   int64
	URL     string
	Title   string
	Snippet string
	Score   float64
}

// Pagination describes the window a ResultSet covers.
type Pagination struct {
	Offset      int
	PageSize    int
	CurrentPage int
	TotalPages  int
	HasMore     bool
	NextOffset  int
}

// ResultSet is the response of a search. A non-empty Notice marks an
// informative outcome ("no valid terms", "no matching documents") that is
// deliberately distinct from both an error and an empty list.
type ResultSet struct {
	Query          string
	Results        []Result
	TotalAvailable int
	Pagination     Pagination
	Notice         string
}

func paginate(total, offset, pageSize int) Pagination {
	totalPages := (total + pageSize - 1) / pageSize

	p := Pagination{
		Offset:      offset,
		PageSize:    pageSize,
		CurrentPage: offset/pageSize + 1,
		TotalPages:  totalPages,
		HasMore:     offset+pageSize < total,
	}
	if p.HasMore {
		p.NextOffset = offset + pageSize
	}

	return p
}
