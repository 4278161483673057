/*
	frontier package implements the crawl work-queue: URL normalization and
	dedup, per-domain politeness rate limiting, priority-ordered dispatch
	and retry bookkeeping with exponential backoff.

	The frontier is safe for concurrent AddURL / NextURL / MarkResult calls
	from multiple crawl workers. Politeness is enforced centrally here, so
	the number of workers only affects how many different domains are
	fetched concurrently, never the fetch rate within a domain.
*/

package frontier

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"golang.org/x/time/rate"
)

// Config encapsulates the settings for creating a new Frontier.
type Config struct {
	// PolitenessDelay is the minimum interval between two fetches from
	// the same domain. Defaults to 1s.
	PolitenessDelay time.Duration

	// MaxAttempts is the retry budget for retryable failures. Defaults
	// to 3.
	MaxAttempts int

	// BaseBackoff is the backoff delay after the first retryable failure;
	// it doubles per attempt. Defaults to 1s.
	BaseBackoff time.Duration

	// MaxBackoff caps the exponential backoff. Defaults to 60s.
	MaxBackoff time.Duration

	// Visited is the dedup store consulted by AddURL. A nil value selects
	// a non-durable in-memory store.
	Visited VisitedStore

	// Clock drives politeness and backoff timing. A nil value selects the
	// wall clock.
	Clock clock.Clock
}

func (cfg *Config) validate() error {
	var err error

	if cfg.PolitenessDelay < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for politeness delay, must be >= 0",
		))
	} else if cfg.PolitenessDelay == 0 {
		cfg.PolitenessDelay = time.Second
	}

	if cfg.MaxAttempts < 0 {
		err = multierror.Append(err, fmt.Errorf(
			"invalid value for max attempts, must be >= 0",
		))
	} else if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}

	if cfg.BaseBackoff == 0 {
		cfg.BaseBackoff = time.Second
	}

	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = 60 * time.Second
	}

	if cfg.Visited == nil {
		cfg.Visited = NewInMemoryVisited()
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	return err
}

// Stats is a point-in-time summary of the frontier contents.
type Stats struct {
	Queued          int
	InFlight        int
	Succeeded       int
	FailedPermanent int
}

// Frontier is a politeness-aware crawl queue with dedup and per-domain
// rate limiting.
type Frontier struct {
	cfg Config

	mu       sync.Mutex
	domains  map[string]*domainQueue
	inFlight map[string]*Entry
	queued   int

	succeeded       int
	failedPermanent int
}

// domainQueue holds the pending entries for one domain together with the
// rate limiter that enforces the politeness delay.
type domainQueue struct {
	entries []*Entry
	limiter *rate.Limiter
}

// New creates a Frontier instance using the provided config options.
func New(cfg Config) (*Frontier, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("frontier config validation failed: %w", err)
	}

	return &Frontier{
		cfg:      cfg,
		domains:  make(map[string]*domainQueue),
		inFlight: make(map[string]*Entry),
	}, nil
}

// AddURL normalizes the URL, computes its dedup hash and enqueues it with
// the given priority (clamped to [1, 10]). A URL whose normalized form has
// been seen before is rejected with ErrDuplicate.
func (f *Frontier) AddURL(rawURL string, priority int) error {
	normalized, domain, err := NormalizeURL(rawURL)
	if err != nil {
		return fmt.Errorf("add url %q: %w", rawURL, err)
	}

	if priority < 1 {
		priority = 1
	} else if priority > 10 {
		priority = 10
	}

	hash := xxhash.Sum64String(normalized)
	seen, err := f.cfg.Visited.Seen(hash)
	if err != nil {
		return fmt.Errorf("add url %q: visited lookup: %w", rawURL, err)
	}
	if seen {
		return fmt.Errorf("add url %q: %w", rawURL, ErrDuplicate)
	}
	if err := f.cfg.Visited.Add(hash); err != nil {
		return fmt.Errorf("add url %q: visited update: %w", rawURL, err)
	}

	entry := &Entry{
		URL:            normalized,
		NormalizedHash: hash,
		Domain:         domain,
		Priority:       priority,
		DiscoveredAt:   f.cfg.Clock.Now(),
		Status:         StatusQueued,
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.enqueueLocked(entry)

	return nil
}

// RefreshURL re-enqueues a previously crawled URL, bypassing the visited
// dedup so known pages can be fetched again for change detection. A URL
// that is still queued or in flight is rejected with ErrDuplicate.
func (f *Frontier) RefreshURL(rawURL string, priority int) error {
	normalized, domain, err := NormalizeURL(rawURL)
	if err != nil {
		return fmt.Errorf("refresh url %q: %w", rawURL, err)
	}

	if priority < 1 {
		priority = 1
	} else if priority > 10 {
		priority = 10
	}

	hash := xxhash.Sum64String(normalized)
	if err := f.cfg.Visited.Add(hash); err != nil {
		return fmt.Errorf("refresh url %q: visited update: %w", rawURL, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.inFlight[normalized]; exists {
		return fmt.Errorf("refresh url %q: %w", rawURL, ErrDuplicate)
	}

	if dq := f.domains[domain]; dq != nil {
		for _, e := range dq.entries {
			if e.URL == normalized {
				return fmt.Errorf("refresh url %q: %w", rawURL, ErrDuplicate)
			}
		}
	}

	f.enqueueLocked(&Entry{
		URL:            normalized,
		NormalizedHash: hash,
		Domain:         domain,
		Priority:       priority,
		DiscoveredAt:   f.cfg.Clock.Now(),
		Status:         StatusQueued,
	})

	return nil
}

// enqueueLocked appends an entry to its domain queue, keeping the queue
// sorted by priority then discovery time.
func (f *Frontier) enqueueLocked(entry *Entry) {
	dq, exists := f.domains[entry.Domain]
	if !exists {
		dq = &domainQueue{
			limiter: rate.NewLimiter(rate.Every(f.cfg.PolitenessDelay), 1),
		}
		f.domains[entry.Domain] = dq
	}

	dq.entries = append(dq.entries, entry)
	sort.SliceStable(dq.entries, func(i, j int) bool {
		if dq.entries[i].Priority != dq.entries[j].Priority {
			return dq.entries[i].Priority > dq.entries[j].Priority
		}

		return dq.entries[i].DiscoveredAt.Before(dq.entries[j].DiscoveredAt)
	})
	f.queued++
}

// NextURL hands out the highest-priority entry from a domain whose
// politeness window has elapsed. It returns ErrEmpty when nothing is left
// to crawl, or an UnavailableError (matching ErrUnavailable) carrying the
// earliest retry time when entries exist but every domain is cooling down.
func (f *Frontier) NextURL() (*Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.queued == 0 {
		if len(f.inFlight) > 0 {
			// In-flight entries may come back retryable; not drained yet.
			return nil, &UnavailableError{
				RetryAt: f.cfg.Clock.Now().Add(f.cfg.PolitenessDelay),
			}
		}

		return nil, ErrEmpty
	}

	now := f.cfg.Clock.Now()

	var (
		best       *Entry
		bestDomain *domainQueue
		earliest   time.Time
	)

	for _, dq := range f.domains {
		if len(dq.entries) == 0 {
			continue
		}

		res := dq.limiter.ReserveN(now, 1)
		delay := res.DelayFrom(now)
		res.CancelAt(now)

		if delay > 0 {
			earliest = minTime(earliest, now.Add(delay))
			continue
		}

		candidate, waitUntil := eligibleEntry(dq.entries, now)
		if candidate == nil {
			if !waitUntil.IsZero() {
				earliest = minTime(earliest, waitUntil)
			}
			continue
		}

		if best == nil || betterEntry(candidate, best) {
			best = candidate
			bestDomain = dq
		}
	}

	if best == nil {
		return nil, &UnavailableError{RetryAt: earliest}
	}

	bestDomain.limiter.AllowN(now, 1)

	removeEntry(bestDomain, best)
	f.queued--
	best.Status = StatusFetching
	f.inFlight[best.URL] = best

	eCopy := new(Entry)
	*eCopy = *best

	return eCopy, nil
}

// MarkResult reports the outcome of a fetch attempt for a URL previously
// handed out by NextURL. Retryable failures are re-queued with exponential
// backoff until the attempt budget runs out, after which the entry is
// retired as a permanent failure.
func (f *Frontier) MarkResult(url string, outcome Outcome, failReason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	entry, exists := f.inFlight[url]
	if !exists {
		return fmt.Errorf("mark result for %q: %w", url, ErrNotInFlight)
	}
	delete(f.inFlight, url)

	switch outcome {
	case OutcomeSucceeded:
		entry.Status = StatusSucceeded
		f.succeeded++

	case OutcomeFailedRetryable:
		f.retryOrRetireLocked(entry, failReason)

	case OutcomeFailedPermanent:
		entry.Status = StatusFailedPermanent
		entry.FailReason = failReason
		f.failedPermanent++

	default:
		return fmt.Errorf("mark result for %q: unknown outcome %d", url, outcome)
	}

	return nil
}

// ReclaimInFlight re-queues every entry that was handed out but never
// reported back, counting the lost attempt against the retry budget. It
// exists so an aborted crawl pass cannot strand entries in flight: without
// it NextURL would report the frontier unavailable forever.
func (f *Frontier) ReclaimInFlight() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	reclaimed := len(f.inFlight)
	for url, entry := range f.inFlight {
		delete(f.inFlight, url)
		f.retryOrRetireLocked(entry, "fetch abandoned before its result was reported")
	}

	return reclaimed
}

// retryOrRetireLocked re-queues an entry with exponential backoff, or
// retires it as a permanent failure once the attempt budget runs out.
func (f *Frontier) retryOrRetireLocked(entry *Entry, failReason string) {
	entry.AttemptCount++
	if entry.AttemptCount >= f.cfg.MaxAttempts {
		entry.Status = StatusFailedPermanent
		entry.FailReason = fmt.Sprintf(
			"retry budget exhausted after %d attempts: %s",
			entry.AttemptCount, failReason,
		)
		f.failedPermanent++

		return
	}

	backoff := f.cfg.BaseBackoff << (entry.AttemptCount - 1)
	if backoff > f.cfg.MaxBackoff {
		backoff = f.cfg.MaxBackoff
	}

	entry.Status = StatusFailedRetryable
	entry.NextAttemptAt = f.cfg.Clock.Now().Add(backoff)
	f.enqueueLocked(entry)
}

// Len returns the number of queued entries.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.queued
}

// Stats returns a point-in-time summary of the frontier contents.
func (f *Frontier) Stats() Stats {
	f.mu.Lock()
	defer f.mu.Unlock()

	return Stats{
		Queued:          f.queued,
		InFlight:        len(f.inFlight),
		Succeeded:       f.succeeded,
		FailedPermanent: f.failedPermanent,
	}
}

// eligibleEntry returns the first entry (queues are kept priority-sorted)
// whose backoff gate has elapsed, or the earliest time at which one becomes
// eligible.
func eligibleEntry(entries []*Entry, now time.Time) (*Entry, time.Time) {
	var waitUntil time.Time
	for _, e := range entries {
		if e.NextAttemptAt.After(now) {
			waitUntil = minTime(waitUntil, e.NextAttemptAt)
			continue
		}

		return e, time.Time{}
	}

	return nil, waitUntil
}

func betterEntry(candidate, current *Entry) bool {
	if candidate.Priority != current.Priority {
		return candidate.Priority > current.Priority
	}

	return candidate.DiscoveredAt.Before(current.DiscoveredAt)
}

func removeEntry(dq *domainQueue, target *Entry) {
	for i, e := range dq.entries {
		if e == target {
			dq.entries = append(dq.entries[:i], dq.entries[i+1:]...)
			return
		}
	}
}

func minTime(current, candidate time.Time) time.Time {
	if current.IsZero() || candidate.Before(current) {
		return candidate
	}

	return current
}
