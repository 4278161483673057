package rank

import (
	"math"
	"strings"

	"github.com/juju/clock"

	"github.com/sokmotor/sokmotor/linkgraph/graph"
	"github.com/sokmotor/sokmotor/pagerank"
	"github.com/sokmotor/sokmotor/textindex"
)

// Signal is implemented by each member of the closed set of ranking
// signals. All signals except relevance return values bounded to [0, 1];
// relevance is an open-ended TF-IDF sum normalized by document length.
type Signal interface {
	// Name returns the name of the signal.
	Name() string

	// Score computes the signal value for a document against the query
	// terms.
	Score(doc *textindex.Document, terms []string) float64
}

// Static and compile-time checks to ensure all signal variants implement
// the Signal interface.
var (
	_ Signal = (*relevanceSignal)(nil)
	_ Signal = (*pageRankSignal)(nil)
	_ Signal = (*authoritySignal)(nil)
	_ Signal = (*recencySignal)(nil)
	_ Signal = (*densitySignal)(nil)
	_ Signal = (*linkStructureSignal)(nil)
	_ Signal = (*regionalSignal)(nil)
)

// relevanceSignal computes the TF-IDF relevance of a document: the sum over
// query terms of the field-weighted term frequency times the smoothed IDF,
// normalized by the weighted document length.
type relevanceSignal struct {
	idx *textindex.Index
}

func (s *relevanceSignal) Name() string { return "relevance" }

func (s *relevanceSignal) Score(doc *textindex.Document, terms []string) float64 {
	docLen := s.idx.DocLength(doc.DocID)
	if docLen == 0 {
		return 0
	}

	var sum float64
	for _, term := range terms {
		posting, exists := s.idx.Posting(term, doc.DocID)
		if !exists {
			continue
		}

		sum += posting.FieldWeightSum * s.idx.IDF(term)
	}

	return sum / docLen
}

// pageRankSignal reads the document's authority from the most recently
// published PageRank snapshot, normalized against the snapshot maximum so
// the value stays in [0, 1] regardless of graph size.
type pageRankSignal struct {
	holder *pagerank.Holder
}

func (s *pageRankSignal) Name() string { return "pagerank" }

func (s *pageRankSignal) Score(doc *textindex.Document, _ []string) float64 {
	snapshot := s.holder.Current()
	if snapshot.Max() == 0 {
		return 0
	}

	return snapshot.Score(doc.DocID) / snapshot.Max()
}

// inboundSaturation is the inbound-link count at which the observed part of
// the authority signal saturates.
const inboundSaturation = 100.0

// authoritySignal blends the static domain trust table with the observed
// inbound-link count using a 70/30 split.
type authoritySignal struct {
	table *AuthorityTable
	graph graph.Graph
}

func (s *authoritySignal) Name() string { return "authority" }

func (s *authoritySignal) Score(doc *textindex.Document, _ []string) float64 {
	static := s.table.Trust(doc.Domain)

	var observed float64
	if inbound, err := s.graph.InboundCount(doc.DocID); err == nil && inbound > 0 {
		observed = math.Log1p(float64(inbound)) / math.Log1p(inboundSaturation)
		if observed > 1 {
			observed = 1
		}
	}

	return 0.7*static + 0.3*observed
}

// recencySignal decays linearly from 1.0 for a document crawled today down
// to a 0.1 floor at 365 days and beyond.
type recencySignal struct {
	clock clock.Clock
}

func (s *recencySignal) Name() string { return "recency" }

func (s *recencySignal) Score(doc *textindex.Document, _ []string) float64 {
	if doc.CrawledAt.IsZero() {
		return 0.1
	}

	age := s.clock.Now().Sub(doc.CrawledAt)
	if age < 0 {
		age = 0
	}

	score := 1.0 - 0.9*(age.Hours()/(365*24))
	if score < 0.1 {
		score = 0.1
	}

	return score
}

// densitySignal measures how much of the document consists of query terms.
type densitySignal struct {
	idx *textindex.Index
}

func (s *densitySignal) Name() string { return "density" }

func (s *densitySignal) Score(doc *textindex.Document, terms []string) float64 {
	docLen := s.idx.DocLength(doc.DocID)
	if docLen == 0 {
		return 0
	}

	var hits float64
	for _, term := range terms {
		posting, exists := s.idx.Posting(term, doc.DocID)
		if !exists {
			continue
		}

		hits += float64(posting.Frequency)
	}

	// Saturate at 10% query-term density; anything denser is most likely
	// keyword stuffing and deserves no extra credit.
	density := hits / docLen / 0.1
	if density > 1 {
		density = 1
	}

	return density
}

// linkStructureSignal rewards documents that are well connected in both
// directions.
type linkStructureSignal struct {
	graph graph.Graph
}

func (s *linkStructureSignal) Name() string { return "link_structure" }

func (s *linkStructureSignal) Score(doc *textindex.Document, _ []string) float64 {
	inbound, err := s.graph.InboundCount(doc.DocID)
	if err != nil {
		return 0
	}

	outbound, err := s.graph.Outbound(doc.DocID)
	if err != nil {
		return 0
	}

	score := (math.Log1p(float64(inbound)) + math.Log1p(float64(len(outbound)))) /
		(2 * math.Log1p(50))
	if score > 1 {
		score = 1
	}

	return score
}

// regionalSignal scores the Swedish regional relevance of a document based
// on its top-level domain and detected language.
type regionalSignal struct{}

func (s *regionalSignal) Name() string { return "regional" }

func (s *regionalSignal) Score(doc *textindex.Document, _ []string) float64 {
	var score float64

	if strings.HasSuffix(doc.Domain, ".se") || strings.HasSuffix(doc.Domain, ".nu") {
		score += 0.6
	}

	if doc.Language == "sv" {
		score += 0.4
	}

	return score
}
