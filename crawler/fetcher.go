package crawler

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"github.com/juju/clock"

	"github.com/sokmotor/sokmotor/pipeline"
)

var (
	// Static and compile-time check to ensure fetcher implements the
	// pipeline.Processor interface.
	_ pipeline.Processor = (*fetcher)(nil)

	// URLs that point at obvious non-HTML assets.
	assetURLRegex = regexp.MustCompile(`(?i)\.(?:jpg|jpeg|png|gif|webp|ico|svg|css|js|pdf|zip|mp3|mp4)$`)
)

// fetcher retrieves page bodies over HTTP. It classifies every failure mode
// into an outcome rather than dropping the payload, so the sink can report
// each entry back to the frontier.
type fetcher struct {
	urlGetter   URLGetter
	netDetector PrivateNetworkDetector
	clock       clock.Clock
	maxBody     int64
}

func newFetcher(urlGetter URLGetter, netDetector PrivateNetworkDetector, clk clock.Clock, maxBody int64) *fetcher {
	return &fetcher{
		urlGetter:   urlGetter,
		netDetector: netDetector,
		clock:       clk,
		maxBody:     maxBody,
	}
}

// Process performs the HTTP GET for the payload URL, enforcing the private
// network check, the body size cap and the HTML content-type requirement.
func (f *fetcher) Process(_ context.Context, payload pipeline.Payload) (pipeline.Payload, error) {
	cp, ok := payload.(*crawlPayload)
	if !ok {
		return nil, nil
	}
	if cp.Outcome.terminal() {
		return cp, nil
	}

	if assetURLRegex.MatchString(cp.URL) {
		cp.Outcome = OutcomeNotHTML
		cp.Reason = "url points at a non-html asset"

		return cp, nil
	}

	parsed, err := url.Parse(cp.URL)
	if err != nil {
		cp.Outcome = OutcomeFailedPermanent
		cp.Reason = fmt.Sprintf("unparseable url: %v", err)

		return cp, nil
	}

	isPrivate, err := f.netDetector.IsPrivate(parsed.Hostname())
	if err != nil || isPrivate {
		cp.Outcome = OutcomeFailedPermanent
		cp.Reason = "host resolves to a private or unresolvable address"

		return cp, nil
	}

	resp, err := f.urlGetter.Get(cp.URL)
	if err != nil {
		cp.Outcome = OutcomeFailedRetryable
		cp.Reason = fmt.Sprintf("fetch failed: %v", err)

		return cp, nil
	}
	defer func() { _ = resp.Body.Close() }()

	cp.StatusCode = resp.StatusCode
	cp.FetchedAt = f.clock.Now()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
	case resp.StatusCode >= 500:
		cp.Outcome = OutcomeFailedRetryable
		cp.Reason = fmt.Sprintf("server error: HTTP %d", resp.StatusCode)

		return cp, nil
	default:
		cp.Outcome = OutcomeFailedPermanent
		cp.Reason = fmt.Sprintf("unexpected status: HTTP %d", resp.StatusCode)

		return cp, nil
	}

	if contentType := resp.Header.Get("Content-Type"); !strings.Contains(contentType, "html") {
		cp.Outcome = OutcomeNotHTML
		cp.Reason = fmt.Sprintf("content type %q is not html", contentType)

		return cp, nil
	}

	// Read one byte past the cap so an oversized body is detected
	// mid-transfer instead of truncated silently.
	written, err := io.Copy(&cp.RawContent, io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		cp.RawContent.Reset()
		cp.Outcome = OutcomeFailedRetryable
		cp.Reason = fmt.Sprintf("body read failed: %v", err)

		return cp, nil
	}
	if written > f.maxBody {
		cp.RawContent.Reset()
		cp.Outcome = OutcomeTooLarge
		cp.Reason = fmt.Sprintf("body exceeds %d byte cap", f.maxBody)

		return cp, nil
	}

	return cp, nil
}
