package textindex

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Sane bounds for the unique-terms to documents ratio. An average below the
// lower bound usually means documents were indexed with empty content (a
// silent partial-build failure); an average above the upper bound points at
// runaway tokenization.
const (
	minTermsPerDoc = 2.0
	maxTermsPerDoc = 50000.0
)

// Validation reports the outcome of an index integrity check.
type Validation struct {
	// Valid is true when the index can safely serve searches.
	Valid bool

	// Issues lists hard failures. A non-empty list implies Valid == false.
	Issues []string

	// Warnings lists suspicious but non-fatal findings.
	Warnings []string
}

// Err folds the issues into a single descriptive error, or nil when the
// index is valid.
func (v *Validation) Err() error {
	if v.Valid {
		return nil
	}

	err := fmt.Errorf("%w", ErrInvalidIndex)
	for _, issue := range v.Issues {
		err = multierror.Append(err, fmt.Errorf("%s", issue))
	}

	return err
}

// ValidateIntegrity checks the structural invariants of the index:
// the index is non-empty, every indexed document has at least one posting,
// every posting resolves to a known document and the term / document count
// ratio is within a sane range. It is safe to call concurrently with
// searches and index writes.
func (idx *Index) ValidateIntegrity() *Validation {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	v := &Validation{Valid: true}

	if len(idx.docLengths) == 0 {
		v.Valid = false
		v.Issues = append(v.Issues, "index contains no documents")

		return v
	}

	// Count postings per document while checking for orphaned postings.
	postingsPerDoc := make(map[int64]int, len(idx.docs))
	for term, list := range idx.postings {
		for docID := range list {
			if _, exists := idx.docs[docID]; !exists {
				v.Valid = false
				v.Issues = append(v.Issues, fmt.Sprintf(
					"term %q has a posting for unknown document %d",
					term, docID,
				))

				continue
			}

			postingsPerDoc[docID]++
		}
	}

	for docID := range idx.docLengths {
		if postingsPerDoc[docID] == 0 {
			v.Valid = false
			v.Issues = append(v.Issues, fmt.Sprintf(
				"document %d (%s) is indexed but has no postings",
				docID, idx.idToURL[docID],
			))
		}
	}

	ratio := float64(len(idx.postings)) / float64(len(idx.docLengths))
	if ratio < minTermsPerDoc {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"unique-terms per document ratio %.2f is suspiciously low", ratio,
		))
	} else if ratio > maxTermsPerDoc {
		v.Warnings = append(v.Warnings, fmt.Sprintf(
			"unique-terms per document ratio %.2f is suspiciously high", ratio,
		))
	}

	return v
}
