package matching

import (
	"github.com/texttheater/golang-levenshtein/levenshtein"

	"payables-consolidation-backend/internal/textnorm"
)

// Corporate suffixes carry no identity: "Acme" on a boleto must still match
// "Acme Ltda" on the ERP export.
var corporateSuffixes = map[string]bool{
	"LTDA": true, "LTD": true, "SA": true, "ME": true,
	"EIRELI": true, "EPP": true, "CIA": true, "INC": true,
}

// VendorSimilarity scores two vendor names in [0,1], case- and
// diacritic-insensitive. Each token is matched against its best counterpart by
// levenshtein ratio and the per-token scores are averaged; the higher of the
// two directions is used so a short extracted name is not penalized against a
// longer registered one.
func VendorSimilarity(a, b string) float64 {
	ta := significantTokens(a)
	tb := significantTokens(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	d1 := directionalSimilarity(ta, tb)
	d2 := directionalSimilarity(tb, ta)
	if d2 > d1 {
		return d2
	}
	return d1
}

func significantTokens(name string) []string {
	tokens := textnorm.Tokens(name)
	kept := tokens[:0:len(tokens)]
	for _, tok := range tokens {
		if !corporateSuffixes[tok] {
			kept = append(kept, tok)
		}
	}
	if len(kept) == 0 {
		return tokens
	}
	return kept
}

func directionalSimilarity(from, to []string) float64 {
	total := 0.0
	for _, ft := range from {
		best := 0.0
		for _, tt := range to {
			if sim := tokenSimilarity(ft, tt); sim > best {
				best = sim
			}
		}
		total += best
	}
	return total / float64(len(from))
}

func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}
	if maxLen == 0 {
		return 0
	}
	dist := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1 - float64(dist)/float64(maxLen)
}
