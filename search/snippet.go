package search

import (
	"sort"
	"strings"

	"github.com/sokmotor/sokmotor/textnorm"
)

// defaultSnippetLen caps snippet length in runes.
const defaultSnippetLen = 200

// snippetBuilder produces a short excerpt of a document centred on the
// sentences that match the most query terms. Matching happens on lemmas, so
// a query for "katt" highlights a sentence containing "katten".
type snippetBuilder struct {
	terms  map[string]struct{}
	maxLen int
}

func newSnippetBuilder(terms []string, maxLen int) *snippetBuilder {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}

	if maxLen <= 0 {
		maxLen = defaultSnippetLen
	}

	return &snippetBuilder{terms: set, maxLen: maxLen}
}

type scoredSentence struct {
	position int
	text     string
	ratio    float64
}

// Build selects the best matching sentences (by query-term match ratio),
// re-orders them by document position and joins non-adjacent ones with an
// ellipsis. When nothing matches it falls back to the document prefix.
func (b *snippetBuilder) Build(content string) string {
	sentences := splitSentences(content)

	var matched []scoredSentence
	for i, sentence := range sentences {
		if ratio := b.matchRatio(sentence); ratio > 0 {
			matched = append(matched, scoredSentence{
				position: i,
				text:     sentence,
				ratio:    ratio,
			})
		}
	}

	if len(matched) == 0 {
		return truncateRunes(strings.TrimSpace(content), b.maxLen)
	}

	// Strongest matches claim the snippet budget first.
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].ratio > matched[j].ratio
	})

	var selected []scoredSentence
	remaining := b.maxLen
	for _, s := range matched {
		if remaining <= 0 {
			break
		}

		if runeLen := len([]rune(s.text)); runeLen > remaining {
			s.text = truncateRunes(s.text, remaining)
		}

		remaining -= len([]rune(s.text))
		selected = append(selected, s)
	}

	// Present the chosen sentences in document order.
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].position < selected[j].position
	})

	var sb strings.Builder
	lastPosition := -1
	for _, s := range selected {
		if lastPosition != -1 {
			if s.position-lastPosition == 1 {
				sb.WriteString(" ")
			} else {
				sb.WriteString(" ... ")
			}
		}

		lastPosition = s.position
		sb.WriteString(strings.TrimSpace(s.text))
	}

	return sb.String()
}

func (b *snippetBuilder) matchRatio(sentence string) float64 {
	tokens := textnorm.Normalize(sentence)
	if len(tokens) == 0 {
		return 0
	}

	var hits int
	for _, t := range tokens {
		if _, exists := b.terms[t.Lemma]; exists {
			hits++
		}
	}

	return float64(hits) / float64(len(tokens))
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace. The terminator stays attached to its sentence.
func splitSentences(text string) []string {
	var (
		sentences []string
		start     int
	)

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '.' && runes[i] != '!' && runes[i] != '?' {
			continue
		}
		if i+1 < len(runes) && !isSpaceRune(runes[i+1]) {
			continue
		}

		if sentence := strings.TrimSpace(string(runes[start : i+1])); sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}

	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}

	return sentences
}

func isSpaceRune(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}

	return strings.TrimSpace(string(runes[:maxLen])) + "..."
}
