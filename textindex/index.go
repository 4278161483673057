/*
	textindex package implements the inverted index at the heart of the
	search engine. The index owns document identity (URL → DocID), the
	per-term postings lists and the global statistics (document frequency,
	average document length) required for scale-stable relevance scoring.

	The index favors read-mostly concurrency: searches acquire a read lock
	while writers hold the write lock only for the duration of swapping in
	the postings of a single document. Token normalization happens outside
	the critical section.
*/

package textindex

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sokmotor/sokmotor/textnorm"
)

// idfFloor guarantees idf never reaches zero, preventing multiplicative
// score collapse further down the ranking chain.
const idfFloor = 0.1

// Index implements an in-memory inverted index that can be concurrently
// accessed by multiple readers and writers.
type Index struct {
	mu sync.RWMutex

	// Indexed documents by ID. Only documents that have contributed
	// postings appear here.
	docs map[int64]*Document

	// URL to DocID registry. URLs may be registered (for link graph
	// bookkeeping) before their documents have been crawled and indexed.
	urlToID map[string]int64
	idToURL map[int64]string

	// term → docID → posting.
	postings map[string]map[int64]*Posting

	// Weighted token count per indexed document plus the running total,
	// used for length normalization.
	docLengths  map[int64]float64
	totalLength float64

	nextDocID int64
}

// New creates an empty inverted index.
func New() *Index {
	return &Index{
		docs:       make(map[int64]*Document),
		urlToID:    make(map[string]int64),
		idToURL:    make(map[int64]string),
		postings:   make(map[string]map[int64]*Posting),
		docLengths: make(map[int64]float64),
	}
}

// RegisterURL assigns (or returns the previously assigned) DocID for a URL.
// Registration does not index anything: it exists so the link graph can
// refer to not-yet-crawled pages by integer ID.
func (idx *Index) RegisterURL(url string) int64 {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	return idx.registerURLLocked(url)
}

func (idx *Index) registerURLLocked(url string) int64 {
	if id, exists := idx.urlToID[url]; exists {
		return id
	}

	idx.nextDocID++
	id := idx.nextDocID
	idx.urlToID[url] = id
	idx.idToURL[id] = url

	return id
}

// IndexDocument normalizes the document fields, accumulates weighted term
// frequencies into postings and updates the global statistics. Re-indexing
// an already indexed URL first removes the old postings for its DocID.
func (idx *Index) IndexDocument(doc *Document) (*IndexStats, error) {
	if doc.URL == "" {
		return nil, fmt.Errorf("index document: %w", ErrMissingURL)
	}

	// Normalize all fields before acquiring the write lock to keep the
	// critical section short.
	accum := newTermAccumulator()
	accum.add(textnorm.Normalize(doc.Title), titleWeight)
	accum.add(textnorm.Normalize(doc.Description), descriptionWeight)
	accum.add(textnorm.Normalize(doc.Content), contentWeight)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	docID := idx.registerURLLocked(doc.URL)
	doc.DocID = docID

	_, reindexed := idx.docs[docID]
	if reindexed {
		idx.removeDocLocked(docID)
	}

	dCopy := new(Document)
	*dCopy = *doc
	idx.docs[docID] = dCopy

	for term, occ := range accum.terms {
		list, exists := idx.postings[term]
		if !exists {
			list = make(map[int64]*Posting)
			idx.postings[term] = list
		}

		sort.Ints(occ.positions)
		list[docID] = &Posting{
			DocID:          docID,
			Frequency:      occ.frequency,
			FieldWeightSum: occ.weightSum,
			Positions:      occ.positions,
		}
	}

	idx.docLengths[docID] = accum.weightedLength
	idx.totalLength += accum.weightedLength

	return &IndexStats{
		DocID:      docID,
		TermCount:  len(accum.terms),
		TokenCount: accum.tokenCount,
		Reindexed:  reindexed,
	}, nil
}

// RemoveDocument drops a document and all of its postings from the index.
func (idx *Index) RemoveDocument(docID int64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.docs[docID]; !exists {
		return fmt.Errorf("remove document %d: %w", docID, ErrNotFound)
	}

	idx.removeDocLocked(docID)
	delete(idx.docs, docID)

	return nil
}

// removeDocLocked strips the postings and length bookkeeping for a document
// but keeps its URL registration and document entry.
func (idx *Index) removeDocLocked(docID int64) {
	for term, list := range idx.postings {
		if _, exists := list[docID]; !exists {
			continue
		}

		delete(list, docID)
		if len(list) == 0 {
			delete(idx.postings, term)
		}
	}

	idx.totalLength -= idx.docLengths[docID]
	delete(idx.docLengths, docID)
}

// Document performs a document lookup by ID.
func (idx *Index) Document(docID int64) (*Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	d, exists := idx.docs[docID]
	if !exists {
		return nil, fmt.Errorf("find document %d: %w", docID, ErrNotFound)
	}

	dCopy := new(Document)
	*dCopy = *d

	return dCopy, nil
}

// DocIDForURL returns the DocID registered for a URL.
func (idx *Index) DocIDForURL(url string) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, exists := idx.urlToID[url]

	return id, exists
}

// ContentHash returns the stored content hash for a previously indexed URL.
// It is used by the crawler to short-circuit unchanged re-crawls.
func (idx *Index) ContentHash(url string) (uint64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	id, exists := idx.urlToID[url]
	if !exists {
		return 0, false
	}

	doc, exists := idx.docs[id]
	if !exists {
		return 0, false
	}

	return doc.ContentHash, true
}

// PostingsFor returns a copy of the postings list for a term.
func (idx *Index) PostingsFor(term string) []Posting {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	list := idx.postings[term]
	if len(list) == 0 {
		return nil
	}

	result := make([]Posting, 0, len(list))
	for _, p := range list {
		result = append(result, *p)
	}

	// Postings iterate in map order internally; expose them sorted so
	// callers observe a deterministic sequence.
	sort.Slice(result, func(i, j int) bool {
		return result[i].DocID < result[j].DocID
	})

	return result
}

// Posting returns the posting of a term within a single document. Unlike
// PostingsFor it costs two map lookups, so per-document scoring stays
// independent of how many other documents contain the term.
func (idx *Index) Posting(term string, docID int64) (Posting, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	p, exists := idx.postings[term][docID]
	if !exists {
		return Posting{}, false
	}

	pCopy := *p
	pCopy.Positions = append([]int(nil), p.Positions...)

	return pCopy, true
}

// StaleURLs returns the URLs of indexed documents whose last crawl is older
// than the cutoff, sorted for deterministic re-crawl ordering.
func (idx *Index) StaleURLs(olderThan time.Time) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var urls []string
	for _, doc := range idx.docs {
		if doc.CrawledAt.Before(olderThan) {
			urls = append(urls, doc.URL)
		}
	}
	sort.Strings(urls)

	return urls
}

// DocFrequency returns the number of indexed documents containing the term.
func (idx *Index) DocFrequency(term string) int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.postings[term])
}

// IDF computes the smoothed inverse document frequency for a term:
//
//	idf(term) = log((N - df + 0.5) / (df + 0.5)) + 1, floored at 0.1
//
// The additive constants keep scores in a stable numeric range regardless of
// corpus size and the floor guarantees idf > 0 for every term.
func (idx *Index) IDF(term string) float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := float64(len(idx.docLengths))
	df := float64(len(idx.postings[term]))

	idf := math.Log((n-df+0.5)/(df+0.5)) + 1
	if idf < idfFloor {
		idf = idfFloor
	}

	return idf
}

// DocCount returns the number of indexed documents.
func (idx *Index) DocCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.docLengths)
}

// AvgDocLength returns the average weighted document length.
func (idx *Index) AvgDocLength() float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.docLengths) == 0 {
		return 0
	}

	return idx.totalLength / float64(len(idx.docLengths))
}

// DocLength returns the weighted token length of an indexed document.
func (idx *Index) DocLength(docID int64) float64 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.docLengths[docID]
}

// termOccurrence accumulates the occurrences of one term across fields.
type termOccurrence struct {
	frequency int
	weightSum float64
	positions []int
}

// fieldGap separates the position ranges of consecutive fields so that a
// quoted phrase can never match across a field boundary.
const fieldGap = 100

// termAccumulator merges normalized tokens from multiple weighted fields
// into a single per-term occurrence table. Positions of later fields are
// offset past the preceding ones so positions stay unique per document.
type termAccumulator struct {
	terms          map[string]*termOccurrence
	tokenCount     int
	weightedLength float64
	positionOffset int
}

func newTermAccumulator() *termAccumulator {
	return &termAccumulator{terms: make(map[string]*termOccurrence)}
}

func (a *termAccumulator) add(tokens []textnorm.Token, weight float64) {
	maxPos := -1
	for _, t := range tokens {
		occ, exists := a.terms[t.Lemma]
		if !exists {
			occ = new(termOccurrence)
			a.terms[t.Lemma] = occ
		}

		occ.frequency++
		occ.weightSum += weight
		occ.positions = append(occ.positions, a.positionOffset+t.Position)

		if t.Position > maxPos {
			maxPos = t.Position
		}

		a.tokenCount++
		a.weightedLength += weight
	}

	a.positionOffset += maxPos + 1 + fieldGap
}
