package crawler

import (
	"net/http"

	"github.com/sokmotor/sokmotor/frontier"
	"github.com/sokmotor/sokmotor/textindex"
)

// URLGetter should be implemented by objects that perform HTTP GET requests
// on behalf of the crawler.
type URLGetter interface {
	Get(url string) (*http.Response, error)
}

// PrivateNetworkDetector should be implemented by objects that can detect
// whether a host resolves to a private network address.
type PrivateNetworkDetector interface {
	IsPrivate(host string) (bool, error)
}

// MiniFrontier is the slice of the frontier API the crawler needs: pulling
// work, feeding discovered links back, reporting fetch outcomes and
// reclaiming entries stranded by an aborted pass.
type MiniFrontier interface {
	AddURL(rawURL string, priority int) error
	NextURL() (*frontier.Entry, error)
	MarkResult(url string, outcome frontier.Outcome, failReason string) error
	ReclaimInFlight() int
}

// MiniIndexer is the slice of the index API the crawler needs.
type MiniIndexer interface {
	// IndexDocument adds or refreshes a document in the inverted index.
	IndexDocument(doc *textindex.Document) (*textindex.IndexStats, error)

	// ContentHash returns the hash stored for a previously indexed URL.
	ContentHash(url string) (uint64, bool)

	// RegisterURL assigns a stable DocID for a URL without indexing it.
	RegisterURL(url string) int64
}

// MiniGraph is the slice of the link graph API the crawler needs.
type MiniGraph interface {
	// ReplaceOutbound swaps the full outbound edge set of a document.
	ReplaceOutbound(from int64, to []int64) error
}
