package pagerank

import (
	"sync/atomic"
	"time"
)

// Snapshot is an immutable set of PageRank scores produced by a single
// batch calculation. Queries read whichever snapshot is current; a new
// snapshot is swapped in atomically once the next batch completes.
type Snapshot struct {
	scores     map[int64]float64
	maxScore   float64
	computedAt time.Time
}

func newSnapshot(ids []int64, ranks []float64) *Snapshot {
	scores := make(map[int64]float64, len(ids))
	var maxScore float64
	for i, id := range ids {
		scores[id] = ranks[i]
		if ranks[i] > maxScore {
			maxScore = ranks[i]
		}
	}

	return &Snapshot{
		scores:     scores,
		maxScore:   maxScore,
		computedAt: time.Now(),
	}
}

func emptySnapshot() *Snapshot {
	return &Snapshot{
		scores:     map[int64]float64{},
		computedAt: time.Now(),
	}
}

// Score returns the PageRank score for a document, or 0 when the document
// does not participate in the link graph.
func (s *Snapshot) Score(docID int64) float64 {
	return s.scores[docID]
}

// Max returns the highest score in the snapshot. Ranking signals use it to
// normalize raw PageRank scores (which shrink as the graph grows) into the
// [0, 1] range.
func (s *Snapshot) Max() float64 {
	return s.maxScore
}

// Len returns the number of scored documents.
func (s *Snapshot) Len() int {
	return len(s.scores)
}

// ComputedAt returns the time the snapshot was produced.
func (s *Snapshot) ComputedAt() time.Time {
	return s.computedAt
}

// Holder publishes score snapshots to concurrent readers. A zero-valued
// Holder serves an empty snapshot until the first publication.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// Publish atomically swaps in a freshly computed snapshot.
func (h *Holder) Publish(s *Snapshot) {
	h.current.Store(s)
}

// Current returns the most recently published snapshot.
func (h *Holder) Current() *Snapshot {
	if s := h.current.Load(); s != nil {
		return s
	}

	return emptySnapshot()
}
