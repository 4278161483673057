package crawler

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/sokmotor/sokmotor/pipeline"
)

var (
	// Static and compile-time check to ensure crawlPayload implements the
	// pipeline.Payload interface.
	_ pipeline.Payload = (*crawlPayload)(nil)

	payloadPool = sync.Pool{
		New: func() interface{} {
			return new(crawlPayload)
		},
	}
)

// crawlPayload carries one frontier entry through the crawl pipeline. Each
// stage fills in its own slice of fields; the sink reads the final outcome
// and reports it back to the frontier.
type crawlPayload struct {
	// Populated by the frontier source.
	URL      string
	Domain   string
	Priority int

	// Populated by the fetch stage.
	StatusCode int
	FetchedAt  time.Time
	RawContent bytes.Buffer

	// Populated by the extraction stage.
	Title         string
	Description   string
	TextContent   string
	Language      string
	ContentHash   uint64
	FollowLinks   []string
	NoFollowLinks []string
	InternalLinks []string
	ExternalLinks []string

	// Populated by whichever stage finishes the entry.
	Outcome Outcome
	Reason  string
}

// Clone returns a deep copy of the payload.
func (p *crawlPayload) Clone() pipeline.Payload {
	clone := payloadPool.Get().(*crawlPayload)

	clone.URL = p.URL
	clone.Domain = p.Domain
	clone.Priority = p.Priority
	clone.StatusCode = p.StatusCode
	clone.FetchedAt = p.FetchedAt
	clone.Title = p.Title
	clone.Description = p.Description
	clone.TextContent = p.TextContent
	clone.Language = p.Language
	clone.ContentHash = p.ContentHash
	clone.FollowLinks = append([]string(nil), p.FollowLinks...)
	clone.NoFollowLinks = append([]string(nil), p.NoFollowLinks...)
	clone.InternalLinks = append([]string(nil), p.InternalLinks...)
	clone.ExternalLinks = append([]string(nil), p.ExternalLinks...)
	clone.Outcome = p.Outcome
	clone.Reason = p.Reason

	if _, err := io.Copy(&clone.RawContent, bytes.NewReader(p.RawContent.Bytes())); err != nil {
		panic(fmt.Sprintf("[BUG] cloning payload raw content: %v", err))
	}

	return clone
}

// MarkAsProcessed resets the payload and returns it to the pool.
func (p *crawlPayload) MarkAsProcessed() {
	p.URL = ""
	p.Domain = ""
	p.Priority = 0
	p.StatusCode = 0
	p.FetchedAt = time.Time{}
	p.RawContent.Reset()
	p.Title = ""
	p.Description = ""
	p.TextContent = ""
	p.Language = ""
	p.ContentHash = 0
	p.FollowLinks = p.FollowLinks[:0]
	p.NoFollowLinks = p.NoFollowLinks[:0]
	p.InternalLinks = p.InternalLinks[:0]
	p.ExternalLinks = p.ExternalLinks[:0]
	p.Outcome = OutcomePending
	p.Reason = ""

	payloadPool.Put(p)
}
