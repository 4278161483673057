package frontier

import "time"

// Status describes the lifecycle state of a frontier entry.
type Status int

const (
	// StatusQueued indicates that the entry is waiting to be fetched.
	StatusQueued Status = iota

	// StatusFetching indicates that a crawl worker has claimed the entry.
	StatusFetching

	// StatusSucceeded indicates that the entry was fetched and retired.
	StatusSucceeded

	// StatusFailedRetryable indicates a transient failure; the entry is
	// re-queued with a backoff delay.
	StatusFailedRetryable

	// StatusFailedPermanent indicates the entry was retired after a
	// permanent failure or after exhausting its retry budget.
	StatusFailedPermanent
)

// String implements fmt.Stringer for Status.
func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusFetching:
		return "fetching"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailedRetryable:
		return "failed-retryable"
	case StatusFailedPermanent:
		return "failed-permanent"
	default:
		return "unknown"
	}
}

// Outcome is reported back to the frontier once a fetch attempt finishes.
type Outcome int

const (
	// OutcomeSucceeded retires the entry.
	OutcomeSucceeded Outcome = iota

	// OutcomeFailedRetryable re-queues the entry with exponential backoff
	// until the attempt budget runs out.
	OutcomeFailedRetryable

	// OutcomeFailedPermanent retires the entry with a recorded reason.
	OutcomeFailedPermanent
)

// Entry is a single URL tracked by the frontier.
type Entry struct {
	// URL is the normalized URL to fetch.
	URL string

	// NormalizedHash is the dedup key: a hash over the normalized URL.
	NormalizedHash uint64

	// Domain the URL belongs to; politeness is enforced per domain.
	Domain string

	// Priority of the entry, from 1 (low) to 10 (high).
	Priority int

	// DiscoveredAt is the time the URL was added to the frontier.
	DiscoveredAt time.Time

	// AttemptCount is the number of failed fetch attempts so far.
	AttemptCount int

	// Status is the current lifecycle state.
	Status Status

	// NextAttemptAt gates re-fetching after a retryable failure.
	NextAttemptAt time.Time

	// FailReason records why the entry was permanently retired.
	FailReason string
}
