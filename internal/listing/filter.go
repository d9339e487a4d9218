package listing

import (
	"regexp"
	"strings"

	"github.com/guarzo/sorcledger/internal/match"
	"github.com/guarzo/sorcledger/internal/model"
)

// Keywords that mark a listing as bulk/lot/bundle or otherwise not a single
// raw card. Checked against the lowercased title and category path.
var exclusionKeywords = []string{
	"bulk", "lot", "lots", "bundle", "bundles",
	"multiple", "set of", "pack of", "group of",
	"collection", "playset", "play set",
	"curio", "booster box",
	"movie", "movies", "dvd", "blu-ray", "film",
}

// Keywords that mark a listing as professionally graded.
var gradedKeywords = []string{
	"psa", "bgs", "cgc", "sgc", "hga", "gma", "kga",
	"psa 10", "psa 9", "psa 8", "bgs 10", "bgs 9", "bgs 8",
	"cgc 10", "cgc 9", "cgc 8", "graded", "slab", "slabbed",
}

// Explicit non-foil markers take precedence over every foil signal.
var nonFoilKeywords = []string{"nonfoil", "non-foil", "non foil"}

var foilKeywords = []string{"foil", "holo", "holofoil", "foil card", "foil version"}

// IsGraded reports whether a listing title names a grading service or a
// slabbed card.
func IsGraded(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range gradedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// ShouldExclude reports whether a listing is bulk/lot/bundle material based
// on its title or category path. Graded listings are checked separately via
// IsGraded. Search queries stay broad on purpose (negative keywords
// over-restrict marketplace search), so this runs as a post-filter.
func ShouldExclude(title string, categoryPath []string) bool {
	lower := strings.ToLower(title)
	catPath := strings.ToLower(strings.Join(categoryPath, " "))
	for _, kw := range exclusionKeywords {
		if strings.Contains(lower, kw) || strings.Contains(catPath, kw) {
			return true
		}
	}
	return false
}

// IsFoil reports whether a listing title describes a foil card. Explicit
// "nonfoil"/"non-foil"/"non foil" markers force false regardless of any
// other signal.
func IsFoil(title string) bool {
	lower := strings.ToLower(title)
	for _, kw := range nonFoilKeywords {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range foilKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// BrandFilter discards listings pulled in by overly broad queries for cards
// whose names collide with unrelated brand or manufacturer terms. For those
// cards the title must actually contain the card name (or an apostrophe
// variant of it) on a word boundary.
type BrandFilter struct {
	conflicts map[string]bool
}

// NewBrandFilter builds a filter from the configured conflict card list.
func NewBrandFilter(conflictCards []string) *BrandFilter {
	m := make(map[string]bool, len(conflictCards))
	for _, c := range conflictCards {
		m[c] = true
	}
	return &BrandFilter{conflicts: m}
}

// Apply filters items for a conflict card; non-conflict cards pass through
// untouched.
func (f *BrandFilter) Apply(items []model.Listing, cardName string) []model.Listing {
	if !f.conflicts[cardName] {
		return items
	}

	patterns := make([]*regexp.Regexp, 0, 4)
	for _, v := range nameVariants(cardName) {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(v)+`\b`))
	}

	kept := items[:0:0]
	for _, item := range items {
		title := strings.ToLower(match.Normalize(item.Title))
		for _, p := range patterns {
			if p.MatchString(title) {
				kept = append(kept, item)
				break
			}
		}
	}
	return kept
}

// nameVariants returns normalized lowercase apostrophe variants of a card
// name ("erik's curiosa", "eriks curiosa", "erik curiosa", ...).
func nameVariants(cardName string) []string {
	base := strings.ToLower(match.Normalize(cardName))
	set := map[string]bool{
		base: true,
		strings.ReplaceAll(base, "'", ""):  true,
		strings.ReplaceAll(base, "'s", ""): true,
		strings.ReplaceAll(base, "'", " "): true,
	}
	variants := make([]string, 0, len(set))
	for v := range set {
		if v != "" {
			variants = append(variants, v)
		}
	}
	return variants
}
