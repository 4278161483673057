package crawler

// Outcome classifies how far a frontier entry made it through the crawl
// pipeline. Stages that terminate an entry early set the outcome and
// downstream stages pass it through untouched; only the sink translates
// outcomes into frontier results.
type Outcome int

const (
	// OutcomePending marks an entry still travelling through the pipeline.
	OutcomePending Outcome = iota

	// OutcomeSucceeded marks an entry that was fetched, extracted and
	// indexed.
	OutcomeSucceeded

	// OutcomeUnchanged marks an entry whose content hash matches the
	// previous crawl; re-indexing was skipped.
	OutcomeUnchanged

	// OutcomeDisallowed marks an entry blocked by robots.txt.
	OutcomeDisallowed

	// OutcomeTooLarge marks an entry whose body exceeded the size cap
	// mid-transfer.
	OutcomeTooLarge

	// OutcomeNotHTML marks an entry whose Content-Type was not HTML-like.
	OutcomeNotHTML

	// OutcomeFailedRetryable marks a transient failure (network error,
	// HTTP 5xx).
	OutcomeFailedRetryable

	// OutcomeFailedPermanent marks a failure not worth retrying (HTTP
	// 4xx, unparseable content, private-network target).
	OutcomeFailedPermanent
)

// String implements fmt.Stringer for Outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomePending:
		return "pending"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeUnchanged:
		return "unchanged"
	case OutcomeDisallowed:
		return "disallowed"
	case OutcomeTooLarge:
		return "too-large"
	case OutcomeNotHTML:
		return "not-html"
	case OutcomeFailedRetryable:
		return "failed-retryable"
	case OutcomeFailedPermanent:
		return "failed-permanent"
	default:
		return "unknown"
	}
}

// terminal reports whether the outcome ends the entry's journey through the
// content stages.
func (o Outcome) terminal() bool {
	return o != OutcomePending
}

// FetchResult summarizes a single fetch for callers outside the pipeline.
type FetchResult struct {
	URL           string
	Outcome       Outcome
	Reason        string
	StatusCode    int
	Title         string
	Description   string
	TextContent   string
	Language      string
	ContentHash   uint64
	InternalLinks []string
	ExternalLinks []string
}
