package textnorm

import (
	"testing"

	check "gopkg.in/check.v1"
)

// Initialize and register a pointer instance of the normalizerTestSuite to be
// executed by the check testing package.
var _ = check.Suite(new(normalizerTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type normalizerTestSuite struct{}

func (s *normalizerTestSuite) TestNormalizeIsDeterministic(c *check.C) {
	text := "Stockholms universitet öppnar nya salar för studenterna i höst."

	first := Normalize(text)
	second := Normalize(text)

	c.Assert(first, check.DeepEquals, second)
}

func (s *normalizerTestSuite) TestNormalizePreservesSwedishLetters(c *check.C) {
	tokens := Normalize("Våren är vacker i Västerås")

	lemmas := lemmasOf(tokens)
	c.Assert(lemmas, check.DeepEquals, []string{
		Lemmatize("våren"), Lemmatize("vacker"), Lemmatize("västerås"),
	})
}

func (s *normalizerTestSuite) TestNormalizeDropsStopwords(c *check.C) {
	tokens := Normalize("och det är en katt")

	c.Assert(lemmasOf(tokens), check.DeepEquals, []string{"katt"})
}

func (s *normalizerTestSuite) TestNormalizeDropsShortAndLongTokens(c *check.C) {
	long := make([]byte, 0, 60)
	for i := 0; i < 60; i++ {
		long = append(long, 'a')
	}

	tokens := Normalize("x katt " + string(long))

	c.Assert(lemmasOf(tokens), check.DeepEquals, []string{"katt"})
}

func (s *normalizerTestSuite) TestNormalizeAssignsSourcePositions(c *check.C) {
	// "är" is a stopword but still consumes position 1, so phrase
	// adjacency checks remain stable.
	tokens := Normalize("katten är hungrig")

	c.Assert(len(tokens), check.Equals, 2)
	c.Assert(tokens[0].Position, check.Equals, 0)
	c.Assert(tokens[1].Position, check.Equals, 2)
}

func (s *normalizerTestSuite) TestLemmatizeCollapsesInflections(c *check.C) {
	for _, group := range [][]string{
		{"bil", "bilen", "bilar", "bilarna"},
		{"flicka", "flickor", "flickorna"},
		{"möjlighet", "möjligheten", "möjligheter", "möjligheterna"},
	} {
		base := Lemmatize(group[0])
		for _, form := range group[1:] {
			c.Assert(Lemmatize(form), check.Equals, base,
				check.Commentf("form %q should share lemma with %q", form, group[0]))
		}
	}
}

func (s *normalizerTestSuite) TestLemmatizeKeepsShortWordsIntact(c *check.C) {
	c.Assert(Lemmatize("hus"), check.Equals, "hus")
	c.Assert(Lemmatize("ös"), check.Equals, "ös")
}

func (s *normalizerTestSuite) TestStopwordRatioSeparatesSwedishFromOtherText(c *check.C) {
	swedish := StopwordRatio("Det är en vacker dag och solen skiner över hela staden.")
	english := StopwordRatio("The quick brown fox jumps over the lazy dog today.")

	c.Assert(swedish > 0.3, check.Equals, true,
		check.Commentf("got ratio %.2f", swedish))
	c.Assert(english < 0.08, check.Equals, true,
		check.Commentf("got ratio %.2f", english))
	c.Assert(StopwordRatio(""), check.Equals, 0.0)
}

func (s *normalizerTestSuite) TestTermPositionsGroupsDuplicates(c *check.C) {
	tokens := Normalize("katt hund katt")

	positions := TermPositions(tokens)
	c.Assert(positions["katt"], check.DeepEquals, []int{0, 2})
	c.Assert(positions["hund"], check.DeepEquals, []int{1})
}

func lemmasOf(tokens []Token) []string {
	lemmas := make([]string, len(tokens))
	for i, t := range tokens {
		lemmas[i] = t.Lemma
	}

	return lemmas
}
