package textindex

import "time"

// Field weights applied when accumulating term frequencies. A term hit in
// the title counts three times as much as a hit in the body text.
const (
	titleWeight       = 3.0
	descriptionWeight = 2.0
	contentWeight     = 1.0
)

// Document defines a web page whose content can be indexed. A document
// receives a stable integer DocID the first time it is indexed and keeps
// that ID across re-crawls.
type Document struct {
	// DocID is the stable integer identifier assigned by the index.
	DocID int64

	// URL pointing to the source of the document content.
	URL string

	// Title of the document (if available).
	Title string

	// Description holds the meta description of the document (if available).
	Description string

	// Content holds the visible text of the document.
	Content string

	// Domain is the host the document was fetched from.
	Domain string

	// ContentHash is a hash over the normalized text used for re-crawl
	// change detection.
	ContentHash uint64

	// CrawledAt is the time the document content was last fetched.
	CrawledAt time.Time

	// Language holds the detected content language ("sv" or "und").
	Language string
}

// Posting records the occurrences of a single term inside a single document.
type Posting struct {
	// DocID of the document the term occurred in.
	DocID int64

	// Frequency is the raw number of occurrences across all fields.
	Frequency int

	// FieldWeightSum is the field-weighted term frequency: title hits
	// count ×3, description hits ×2 and content hits ×1.
	FieldWeightSum float64

	// Positions holds the 0-based token positions of each occurrence.
	// Description and content positions are offset past the preceding
	// fields so positions stay unique within the document.
	Positions []int
}

// IndexStats summarizes the outcome of a single IndexDocument call.
type IndexStats struct {
	// DocID assigned to the indexed document.
	DocID int64

	// TermCount is the number of unique terms contributed by the document.
	TermCount int

	// TokenCount is the number of tokens that survived normalization.
	TokenCount int

	// Reindexed reports whether an older version of the document was
	// replaced.
	Reindexed bool
}
