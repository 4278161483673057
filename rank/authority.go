package rank

import "strings"

// defaultTrust is the static trust assigned to domains absent from the
// table.
const defaultTrust = 0.3

// AuthorityTable maps registrable domains to a static trust score in
// [0, 1]. The table is read-only after construction.
type AuthorityTable struct {
	trust map[string]float64
}

// NewAuthorityTable builds a table from the provided domain → trust
// entries layered on top of the built-in defaults. Caller entries win.
func NewAuthorityTable(entries map[string]float64) *AuthorityTable {
	trust := make(map[string]float64, len(builtinTrust)+len(entries))
	for domain, score := range builtinTrust {
		trust[domain] = score
	}
	for domain, score := range entries {
		trust[strings.ToLower(domain)] = clamp01(score)
	}

	return &AuthorityTable{trust: trust}
}

// Trust returns the static trust score for a domain.
func (t *AuthorityTable) Trust(domain string) float64 {
	domain = strings.ToLower(domain)
	if score, exists := t.trust[domain]; exists {
		return score
	}

	// Fall back to the registrable parent, so www.dn.se inherits the
	// dn.se entry.
	if i := strings.Index(domain, "."); i >= 0 {
		if score, exists := t.trust[domain[i+1:]]; exists {
			return score
		}
	}

	return defaultTrust
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// builtinTrust seeds well-known Swedish government, university and news
// domains.
var builtinTrust = map[string]float64{
	"riksdagen.se":     0.95,
	"regeringen.se":    0.95,
	"skatteverket.se":  0.9,
	"1177.se":          0.9,
	"scb.se":           0.9,
	"su.se":            0.85,
	"uu.se":            0.85,
	"lu.se":            0.85,
	"kth.se":           0.85,
	"chalmers.se":      0.85,
	"dn.se":            0.8,
	"svd.se":           0.8,
	"svt.se":           0.8,
	"sr.se":            0.8,
	"aftonbladet.se":   0.65,
	"expressen.se":     0.65,
	"wikipedia.org":    0.75,
	"sv.wikipedia.org": 0.75,
}
