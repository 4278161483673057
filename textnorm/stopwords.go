package textnorm

// stopwords holds the fixed Swedish stopword set used by the normalization
// pipeline. The list is based on the commonly used snowball Swedish
// stopwords with a handful of additional high-frequency web words.
var stopwords = map[string]struct{}{}

func init() {
	for _, w := range stopwordList {
		stopwords[w] = struct{}{}
	}
}

func isStopword(word string) bool {
	_, ok := stopwords[word]

	return ok
}

var stopwordList = []string{
	"och", "det", "att", "en", "jag", "hon", "som", "han", "på", "den",
	"med", "var", "sig", "för", "så", "till", "är", "men", "ett", "om",
	"hade", "de", "av", "icke", "mig", "du", "henne", "då", "sin", "nu",
	"har", "inte", "hans", "honom", "skulle", "hennes", "där", "min", "man",
	"ej", "vid", "kunde", "något", "från", "ut", "när", "efter", "upp",
	"vi", "dem", "vara", "vad", "över", "än", "dig", "kan", "sina", "här",
	"ha", "mot", "alla", "under", "någon", "eller", "allt", "mycket",
	"sedan", "ju", "denna", "själv", "detta", "åt", "utan", "varit", "hur",
	"ingen", "mitt", "ni", "bli", "blev", "oss", "din", "dessa", "några",
	"deras", "blir", "mina", "samma", "vilken", "er", "sådan", "vår",
	"blivit", "dess", "inom", "mellan", "sådant", "varför", "varje",
	"vilka", "ditt", "vem", "vilket", "sitta", "sådana", "vart", "dina",
	"vars", "vårt", "våra", "ert", "era", "vilkas",
	// High-frequency web and news words that add no search value.
	"ska", "få", "fick", "gör", "göra", "också", "bara", "finns", "andra",
	"nya", "hela", "in", "ur", "per", "via", "samt", "även", "kommer",
	"enligt", "bland", "redan", "sidan", "läs", "mer",
}
