/*
	rank package combines the individual ranking signals into a single
	final score per document. The signal set is closed: relevance,
	PageRank, authority, recency, density, link structure and regional
	affinity. Each signal is computed independently and blended through a
	weight profile that always sums to 1.
*/

package rank

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
	"github.com/sokmotor/sokmotor/pagerank"
	"github.com/sokmotor/sokmotor/textindex"
)

// Weights assigns a blend weight to each ranking signal. The fields must
// sum to 1.
type Weights struct {
	Relevance     float64
	PageRank      float64
	Authority     float64
	Recency       float64
	Density       float64
	LinkStructure float64
	Regional      float64
}

// SimplifiedWeights is the default profile: text relevance dominates,
// backed by domain authority and freshness.
func SimplifiedWeights() Weights {
	return Weights{
		Relevance: 0.5,
		Authority: 0.3,
		Recency:   0.2,
	}
}

// FullWeights exercises every signal, including the link-based ones that
// only become meaningful once the graph has grown dense enough.
func FullWeights() Weights {
	return Weights{
		Relevance:     0.25,
		PageRank:      0.20,
		Authority:     0.15,
		Recency:       0.15,
		Density:       0.10,
		LinkStructure: 0.10,
		Regional:      0.05,
	}
}

func (w Weights) sum() float64 {
	return w.Relevance + w.PageRank + w.Authority + w.Recency +
		w.Density + w.LinkStructure + w.Regional
}

// RankedResult carries the per-signal breakdown and final score for a
// single document.
type RankedResult struct {
	DocID  int64
	Domain string

	Relevance     float64
	PageRank      float64
	Authority     float64
	Recency       float64
	Density       float64
	LinkStructure float64
	Regional      float64

	FinalScore float64
}

// Config encapsulates the settings for creating a new Ranker.
type Config struct {
	// Index provides postings, IDF values and document metadata.
	Index *textindex.Index

	// Graph provides inbound and outbound link counts.
	Graph graph.Graph

	// PageRank provides the most recently published score snapshot.
	PageRank *pagerank.Holder

	// Authority maps domains to static trust scores. A nil value selects
	// the built-in table.
	Authority *AuthorityTable

	// Clock drives the recency signal. A nil value selects the wall
	// clock.
	Clock clock.Clock

	// Weights selects the signal blend. A zero value selects the
	// simplified profile.
	Weights Weights

	// MaxPerDomain caps how many results a single domain may contribute
	// to a ranked page. A zero value selects the default of 3.
	MaxPerDomain int
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Index == nil {
		err = multierror.Append(err, fmt.Errorf("index has not been provided"))
	}

	if cfg.Graph == nil {
		err = multierror.Append(err, fmt.Errorf("link graph has not been provided"))
	}

	if cfg.PageRank == nil {
		cfg.PageRank = new(pagerank.Holder)
	}

	if cfg.Authority == nil {
		cfg.Authority = NewAuthorityTable(nil)
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.Weights == (Weights{}) {
		cfg.Weights = SimplifiedWeights()
	} else if sum := cfg.Weights.sum(); sum < 0.999 || sum > 1.001 {
		err = multierror.Append(err, fmt.Errorf(
			"signal weights must sum to 1, got %.4f", sum,
		))
	}

	if cfg.MaxPerDomain < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for max results per domain, must be >= 0",
		))
	} else if cfg.MaxPerDomain == 0 {
		cfg.MaxPerDomain = 3
	}

	return err
}

// Ranker scores candidate documents against a query using the full signal
// set and a configured weight profile.
type Ranker struct {
	cfg Config

	relevance     Signal
	pageRank      Signal
	authority     Signal
	recency       Signal
	density       Signal
	linkStructure Signal
	regional      Signal
}

// NewRanker creates a new Ranker instance using the provided config
// options.
func NewRanker(cfg Config) (*Ranker, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("ranker config validation failed: %w", err)
	}

	return &Ranker{
		cfg:           cfg,
		relevance:     &relevanceSignal{idx: cfg.Index},
		pageRank:      &pageRankSignal{holder: cfg.PageRank},
		authority:     &authoritySignal{table: cfg.Authority, graph: cfg.Graph},
		recency:       &recencySignal{clock: cfg.Clock},
		density:       &densitySignal{idx: cfg.Index},
		linkStructure: &linkStructureSignal{graph: cfg.Graph},
		regional:      &regionalSignal{},
	}, nil
}

// Score computes all signals for a single document and blends them into a
// final score using the configured weights.
func (r *Ranker) Score(docID int64, terms []string) (*RankedResult, error) {
	doc, err := r.cfg.Index.Document(docID)
	if err != nil {
		return nil, fmt.Errorf("rank: unable to score document %d: %w", docID, err)
	}

	res := &RankedResult{
		DocID:         doc.DocID,
		Domain:        doc.Domain,
		Relevance:     r.relevance.Score(doc, terms),
		PageRank:      r.pageRank.Score(doc, terms),
		Authority:     r.authority.Score(doc, terms),
		Recency:       r.recency.Score(doc, terms),
		Density:       r.density.Score(doc, terms),
		LinkStructure: r.linkStructure.Score(doc, terms),
		Regional:      r.regional.Score(doc, terms),
	}

	w := r.cfg.Weights
	res.FinalScore = w.Relevance*res.Relevance +
		w.PageRank*res.PageRank +
		w.Authority*res.Authority +
		w.Recency*res.Recency +
		w.Density*res.Density +
		w.LinkStructure*res.LinkStructure +
		w.Regional*res.Regional

	return res, nil
}

// Rank scores every candidate, orders the results by final score (ties
// broken by crawl time, newest first, then by document ID) and applies
// the per-domain diversity cap.
func (r *Ranker) Rank(candidates []int64, terms []string) ([]*RankedResult, error) {
	results := make([]*RankedResult, 0, len(candidates))
	for _, docID := range candidates {
		res, err := r.Score(docID, terms)
		if err != nil {
			return nil, err
		}

		results = append(results, res)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].FinalScore != results[j].FinalScore {
			return results[i].FinalScore > results[j].FinalScore
		}

		di, erri := r.cfg.Index.Document(results[i].DocID)
		dj, errj := r.cfg.Index.Document(results[j].DocID)
		if erri == nil && errj == nil && !di.CrawledAt.Equal(dj.CrawledAt) {
			return di.CrawledAt.After(dj.CrawledAt)
		}

		return results[i].DocID < results[j].DocID
	})

	return r.applyDiversityCap(results), nil
}

// applyDiversityCap drops results beyond the per-domain limit while
// preserving the score order of the survivors. Excess results are removed
// entirely rather than demoted.
func (r *Ranker) applyDiversityCap(results []*RankedResult) []*RankedResult {
	perDomain := make(map[string]int, len(results))
	capped := results[:0]
	for _, res := range results {
		if perDomain[res.Domain] >= r.cfg.MaxPerDomain {
			continue
		}

		perDomain[res.Domain]++
		capped = append(capped, res)
	}

	return capped
}
