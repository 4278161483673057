package search

import (
	"strings"
	"time"

	"github.com/sokmotor/sokmotor/textnorm"
)

// Filters narrows a search beyond its terms.
type Filters struct {
	// Domain restricts results to a domain (and its subdomains).
	Domain string

	// From / To restrict results by crawl time. Zero values disable the
	// respective bound.
	From time.Time
	To   time.Time
}

// Query is the parsed, normalized form of a raw query string.
type Query struct {
	// Raw is the query text as the caller supplied it.
	Raw string

	// Terms holds the positive lemmas, including those inside phrases.
	Terms []string

	// Phrases holds quoted token sequences that must appear adjacently
	// (source positions preserved for gap checking).
	Phrases [][]textnorm.Token

	// Excluded holds lemmas that disqualify a document.
	Excluded []string

	// Filters carries the caller filters, possibly extended by a
	// site: operator found in the query text.
	Filters Filters
}

// ParseQuery splits the raw text into phrases ("..."), exclusions (-term),
// a site: filter and plain terms, then runs every fragment through the same
// normalizer used at index time. Terms that normalize to nothing (stopwords,
// too short) are dropped.
func ParseQuery(raw string, filters Filters) Query {
	q := Query{Raw: raw, Filters: filters}

	rest := raw
	for {
		start := strings.IndexByte(rest, '"')
		if start < 0 {
			q.parseBareText(rest)
			break
		}

		end := strings.IndexByte(rest[start+1:], '"')
		if end < 0 {
			q.parseBareText(strings.ReplaceAll(rest, `"`, " "))
			break
		}

		q.parseBareText(rest[:start])
		q.addPhrase(rest[start+1 : start+1+end])
		rest = rest[start+end+2:]
	}

	return q
}

func (q *Query) parseBareText(text string) {
	for _, field := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(field, "site:"):
			if domain := strings.ToLower(strings.TrimPrefix(field, "site:")); domain != "" && q.Filters.Domain == "" {
				q.Filters.Domain = domain
			}
		case strings.HasPrefix(field, "-") && len(field) > 1:
			for _, t := range textnorm.Normalize(field[1:]) {
				q.Excluded = append(q.Excluded, t.Lemma)
			}
		default:
			for _, t := range textnorm.Normalize(field) {
				q.Terms = append(q.Terms, t.Lemma)
			}
		}
	}
}

func (q *Query) addPhrase(text string) {
	tokens := textnorm.Normalize(text)
	if len(tokens) == 0 {
		return
	}

	for _, t := range tokens {
		q.Terms = append(q.Terms, t.Lemma)
	}

	// Single-token phrases degrade to plain terms.
	if len(tokens) > 1 {
		q.Phrases = append(q.Phrases, tokens)
	}
}

// HasTerms reports whether any searchable term survived normalization.
func (q *Query) HasTerms() bool {
	return len(q.Terms) > 0
}

// UniqueTerms returns the positive terms deduplicated in first-seen order.
func (q *Query) UniqueTerms() []string {
	seen := make(map[string]struct{}, len(q.Terms))
	unique := make([]string, 0, len(q.Terms))
	for _, term := range q.Terms {
		if _, exists := seen[term]; exists {
			continue
		}

		seen[term] = struct{}{}
		unique = append(unique, term)
	}

	return unique
}
