package textnorm

// minStemLen is the minimum number of runes that must remain after a suffix
// has been stripped. Shorter remainders indicate that the "suffix" was most
// likely part of the word root, so the rule is skipped.
const minStemLen = 3

// lemmaRule describes a single suffix-stripping rule. Rules are evaluated in
// table order and at most one rule is applied per token, which keeps the
// transformation deterministic and cheap. This is intentionally not a full
// morphological analyzer: the goal is that inflected forms of the same word
// collapse to the same lemma on both the indexing and the query path.
type lemmaRule struct {
	suffix      string
	replacement string
}

// lemmaRules covers the common Swedish inflection groups:
// definite / plural noun forms (-en, -et, -na, -orna, -arna, -erna),
// genitives (-s), verb tenses (-ade, -ar, -er, -at, -ande / -ende) and
// adjective agreement (-are, -ast, -aste). Longer suffixes are listed first
// so they win over their shorter substrings.
var lemmaRules = []lemmaRule{
	{"heternas", ""},
	{"heterna", ""},
	{"hetens", ""},
	{"heten", ""},
	{"heter", ""},
	{"het", ""},
	{"arnas", ""},
	{"ernas", ""},
	{"ornas", "a"},
	{"andet", ""},
	{"anden", ""},
	{"orna", "a"},
	{"arna", ""},
	{"erna", ""},
	{"ande", ""},
	{"ende", ""},
	{"aste", ""},
	{"aren", ""},
	{"ades", ""},
	{"are", ""},
	{"ade", ""},
	{"ast", ""},
	{"ans", ""},
	{"ens", ""},
	{"ats", ""},
	{"or", "a"},
	{"ar", ""},
	{"er", ""},
	{"en", ""},
	{"et", ""},
	{"at", ""},
	{"as", ""},
	{"es", ""},
	{"na", ""},
	{"s", ""},
}

// Lemmatize reduces a lowercased token to its lemma by applying the first
// matching suffix rule whose application leaves at least minStemLen runes.
// Tokens that match no rule are returned unchanged.
func Lemmatize(word string) string {
	runes := []rune(word)

	for _, rule := range lemmaRules {
		suffix := []rune(rule.suffix)
		if len(runes) <= len(suffix) {
			continue
		}

		if string(runes[len(runes)-len(suffix):]) != rule.suffix {
			continue
		}

		stem := append([]rune(nil), runes[:len(runes)-len(suffix)]...)
		stem = append(stem, []rune(rule.replacement)...)
		if len(stem) < minStemLen {
			continue
		}

		return string(stem)
	}

	return word
}
