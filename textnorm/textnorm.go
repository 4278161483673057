/*
	textnorm package implements the Swedish text normalization pipeline that
	is shared by the indexing and the query paths. Both paths must produce
	identical token streams for the same input, otherwise terms written into
	the index can never be matched by a query again. For that reason the
	whole pipeline is deterministic: there is no randomized behavior, no
	locale dependent branching and no external state.

	The pipeline performs the following steps:
		1. Lowercase the input and split it on Unicode word boundaries,
		   preserving the Swedish letters å / ä / ö.
		2. Drop tokens shorter than 2 or longer than 50 runes.
		3. Drop tokens present in the fixed Swedish stopword set.
		4. Lemmatize the remaining tokens using a deterministic
		   suffix-stripping rule table.
*/

package textnorm

import (
	"strings"
	"unicode"
)

const (
	minTokenLen = 2
	maxTokenLen = 50
)

// Token represents a single normalized token together with its 0-based
// position in the source token stream. Positions are assigned before
// stopword removal so that phrase look-ups remain position-stable even when
// a phrase contains stopwords.
type Token struct {
	// Lemma holds the normalized surface form of the token.
	Lemma string

	// Position holds the 0-based ordinal of the token in the source text.
	Position int
}

// Normalize runs the full normalization pipeline on the provided text and
// returns the surviving tokens in source order.
func Normalize(text string) []Token {
	var (
		tokens   []Token
		position int
	)

	for _, word := range splitWords(text) {
		pos := position
		position++

		runeLen := len([]rune(word))
		if runeLen < minTokenLen || runeLen > maxTokenLen {
			continue
		}

		if isStopword(word) {
			continue
		}

		tokens = append(tokens, Token{
			Lemma:    Lemmatize(word),
			Position: pos,
		})
	}

	return tokens
}

// NormalizeTerm normalizes a single standalone term. It applies the same
// lowercasing and lemmatization rules as Normalize but skips the stopword
// and length filters, which makes it suitable for filter values such as
// domain names.
func NormalizeTerm(term string) string {
	words := splitWords(term)
	if len(words) == 0 {
		return ""
	}

	return Lemmatize(words[0])
}

// TermPositions folds a token stream into a lemma to positions mapping. It
// is the canonical deduplication step used when building postings.
func TermPositions(tokens []Token) map[string][]int {
	terms := make(map[string][]int, len(tokens))
	for _, t := range tokens {
		terms[t.Lemma] = append(terms[t.Lemma], t.Position)
	}

	return terms
}

// StopwordRatio reports the share of tokens in the text that belong to the
// Swedish stopword set. Stopwords are the highest-frequency words of a
// language, so the ratio is a cheap and surprisingly reliable language
// detection heuristic: genuine Swedish prose scores well above 0.08 while
// other languages stay close to zero.
func StopwordRatio(text string) float64 {
	words := splitWords(text)
	if len(words) == 0 {
		return 0
	}

	var hits int
	for _, word := range words {
		if isStopword(word) {
			hits++
		}
	}

	return float64(hits) / float64(len(words))
}

// splitWords lowercases the text and splits it into word tokens on Unicode
// word boundaries. Letters (including å / ä / ö) and digits are part of a
// word, everything else terminates it.
func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
