/*
	search package implements the read path of the engine: it parses and
	normalizes the query with the exact same pipeline used at index time,
	validates the index before serving, bounds the candidate set, scores
	candidates through the ranker and paginates the final list.

	Outcomes are three-valued by design: a ResultSet with results, a
	ResultSet carrying an informative Notice ("no valid terms", "no
	matching documents"), or an error when the index itself cannot be
	trusted. An empty list is never used to express any of these.
*/

package search

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/sirupsen/logrus"

	"github.com/sokmotor/sokmotor/rank"
	"github.com/sokmotor/sokmotor/textindex"
	"github.com/sokmotor/sokmotor/textnorm"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Config encapsulates the settings for creating a new Searcher.
type Config struct {
	// Index answers postings, document and document-frequency lookups.
	Index *textindex.Index

	// Ranker scores the candidate documents.
	Ranker *rank.Ranker

	// Logger receives diagnostics about partially missing terms. A nil
	// value discards them.
	Logger *logrus.Entry

	// MaxCandidates bounds the number of documents scored per query.
	// Defaults to 1000.
	MaxCandidates int

	// CacheSize is the maximum number of cached result sets. Defaults to
	// 512. A negative value disables caching.
	CacheSize int

	// CacheTTL is how long cached result sets stay valid. Defaults to 1h.
	CacheTTL time.Duration

	// SnippetLen caps result snippet length in runes. Defaults to 200.
	SnippetLen int
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Index == nil {
		err = multierror.Append(err, fmt.Errorf("index has not been provided"))
	}

	if cfg.Ranker == nil {
		err = multierror.Append(err, fmt.Errorf("ranker has not been provided"))
	}

	if cfg.Logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		cfg.Logger = logrus.NewEntry(discard)
	}

	if cfg.MaxCandidates == 0 {
		cfg.MaxCandidates = 1000
	}

	if cfg.CacheSize == 0 {
		cfg.CacheSize = 512
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}

	if cfg.SnippetLen == 0 {
		cfg.SnippetLen = defaultSnippetLen
	}

	return err
}

// Searcher executes search queries against the inverted index.
type Searcher struct {
	cfg   Config
	cache *expirable.LRU[uint64, *ResultSet]
}

// NewSearcher creates a Searcher instance using the provided config
// options.
func NewSearcher(cfg Config) (*Searcher, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("searcher config validation failed: %w", err)
	}

	s := &Searcher{cfg: cfg}
	if cfg.CacheSize > 0 {
		s.cache = expirable.NewLRU[uint64, *ResultSet](cfg.CacheSize, nil, cfg.CacheTTL)
	}

	return s, nil
}

// Search runs the full query pipeline and returns a paginated result set.
// Invalid pagination values are clamped, never rejected. An error return
// means the index is unusable; informative outcomes come back as a
// ResultSet with a Notice.
func (s *Searcher) Search(text string, offset, pageSize int, filters Filters) (*ResultSet, error) {
	if validation := s.cfg.Index.ValidateIntegrity(); !validation.Valid {
		return nil, fmt.Errorf("search refused: %w", validation.Err())
	}

	if offset < 0 {
		offset = 0
	}
	switch {
	case pageSize <= 0:
		pageSize = defaultPageSize
	case pageSize > maxPageSize:
		pageSize = maxPageSize
	}

	cacheKey := s.cacheKey(text, offset, pageSize, filters)
	if s.cache != nil {
		if cached, hit := s.cache.Get(cacheKey); hit {
			return cached, nil
		}
	}

	query := ParseQuery(text, filters)
	if !query.HasTerms() {
		return &ResultSet{
			Query:  text,
			Notice: "the query contains no searchable terms after normalization",
		}, nil
	}

	// Keep the subset of terms the index has seen; a query is only
	// hopeless when every term is unknown.
	terms := query.UniqueTerms()
	known := make([]string, 0, len(terms))
	var missing []string
	for _, term := range terms {
		if s.cfg.Index.DocFrequency(term) > 0 {
			known = append(known, term)
		} else {
			missing = append(missing, term)
		}
	}

	if len(known) == 0 {
		return &ResultSet{
			Query: text,
			Notice: fmt.Sprintf(
				"no indexed documents match the terms: %s",
				strings.Join(terms, ", "),
			),
		}, nil
	}

	if len(missing) > 0 {
		s.cfg.Logger.WithField("terms", missing).
			Info("ignoring query terms absent from the index")
	}

	candidates := s.gatherCandidates(known, &query)
	if len(candidates) == 0 {
		return &ResultSet{
			Query: text,
			Notice: fmt.Sprintf(
				"no indexed documents match the terms: %s",
				strings.Join(terms, ", "),
			),
		}, nil
	}

	ranked, err := s.cfg.Ranker.Rank(candidates, known)
	if err != nil {
		return nil, fmt.Errorf("search: scoring failed: %w", err)
	}

	rs := s.buildResultSet(text, known, ranked, offset, pageSize)
	if s.cache != nil {
		s.cache.Add(cacheKey, rs)
	}

	return rs, nil
}

// gatherCandidates unions the postings of the known terms, applies the
// query filters, exclusions and phrase constraints, and bounds the result
// to MaxCandidates by term-overlap count (ties broken by crawl recency,
// then doc ID).
func (s *Searcher) gatherCandidates(terms []string, query *Query) []int64 {
	overlap := make(map[int64]int)
	for _, term := range terms {
		for _, posting := range s.cfg.Index.PostingsFor(term) {
			overlap[posting.DocID]++
		}
	}

	// Documents containing an excluded term are disqualified outright.
	for _, term := range query.Excluded {
		for _, posting := range s.cfg.Index.PostingsFor(term) {
			delete(overlap, posting.DocID)
		}
	}

	type candidate struct {
		docID     int64
		overlap   int
		crawledAt time.Time
	}

	kept := make([]candidate, 0, len(overlap))
	for docID, count := range overlap {
		doc, err := s.cfg.Index.Document(docID)
		if err != nil {
			continue
		}

		if !s.passesFilters(doc, query) {
			continue
		}

		if !s.matchesPhrases(docID, query.Phrases) {
			continue
		}

		kept = append(kept, candidate{
			docID:     docID,
			overlap:   count,
			crawledAt: doc.CrawledAt,
		})
	}

	sort.Slice(kept, func(i, j int) bool {
		if kept[i].overlap != kept[j].overlap {
			return kept[i].overlap > kept[j].overlap
		}
		if !kept[i].crawledAt.Equal(kept[j].crawledAt) {
			return kept[i].crawledAt.After(kept[j].crawledAt)
		}

		return kept[i].docID < kept[j].docID
	})

	if len(kept) > s.cfg.MaxCandidates {
		kept = kept[:s.cfg.MaxCandidates]
	}

	docIDs := make([]int64, len(kept))
	for i, c := range kept {
		docIDs[i] = c.docID
	}

	return docIDs
}

func (s *Searcher) passesFilters(doc *textindex.Document, query *Query) bool {
	if domain := query.Filters.Domain; domain != "" {
		if doc.Domain != domain && !strings.HasSuffix(doc.Domain, "."+domain) {
			return false
		}
	}

	if from := query.Filters.From; !from.IsZero() && doc.CrawledAt.Before(from) {
		return false
	}

	if to := query.Filters.To; !to.IsZero() && doc.CrawledAt.After(to) {
		return false
	}

	return true
}

// matchesPhrases verifies that every phrase occurs in the document with the
// same positional gaps it has in the query. Gaps are computed from source
// positions, so stopwords inside a phrase ("lag om stöd") still line up.
func (s *Searcher) matchesPhrases(docID int64, phrases [][]textnorm.Token) bool {
	for _, phrase := range phrases {
		if !s.matchesPhrase(docID, phrase) {
			return false
		}
	}

	return true
}

func (s *Searcher) matchesPhrase(docID int64, phrase []textnorm.Token) bool {
	positions := make([]map[int]struct{}, len(phrase))
	for i, token := range phrase {
		positions[i] = s.positionsInDoc(docID, token.Lemma)
		if len(positions[i]) == 0 {
			return false
		}
	}

	for start := range positions[0] {
		matched := true
		for i := 1; i < len(phrase); i++ {
			gap := phrase[i].Position - phrase[0].Position
			if _, exists := positions[i][start+gap]; !exists {
				matched = false
				break
			}
		}

		if matched {
			return true
		}
	}

	return false
}

func (s *Searcher) positionsInDoc(docID int64, term string) map[int]struct{} {
	posting, exists := s.cfg.Index.Posting(term, docID)
	if !exists {
		return nil
	}

	set := make(map[int]struct{}, len(posting.Positions))
	for _, p := range posting.Positions {
		set[p] = struct{}{}
	}

	return set
}

func (s *Searcher) buildResultSet(text string, terms []string, ranked []*rank.RankedResult, offset, pageSize int) *ResultSet {
	total := len(ranked)

	if offset > total {
		offset = total
	}
	end := offset + pageSize
	if end > total {
		end = total
	}

	snippets := newSnippetBuilder(terms, s.cfg.SnippetLen)

	results := make([]Result, 0, end-offset)
	for _, rr := range ranked[offset:end] {
		doc, err := s.cfg.Index.Document(rr.DocID)
		if err != nil {
			continue
		}

		results = append(results, Result{
			DocID:   doc.DocID,
			URL:     doc.URL,
			Title:   doc.Title,
			Snippet: snippets.Build(doc.Content),
			Score:   rr.FinalScore,
		})
	}

	return &ResultSet{
		Query:          text,
		Results:        results,
		TotalAvailable: total,
		Pagination:     paginate(total, offset, pageSize),
	}
}

func (s *Searcher) cacheKey(text string, offset, pageSize int, filters Filters) uint64 {
	return xxhash.Sum64String(fmt.Sprintf(
		"%s|%d|%d|%s|%d|%d",
		strings.ToLower(strings.TrimSpace(text)),
		offset, pageSize,
		strings.ToLower(filters.Domain),
		filters.From.Unix(), filters.To.Unix(),
	))
}
