package category

import (
	"strings"

	"github.com/guarzo/sorcledger/internal/model"
)

// SetPattern is a sealed product pattern that only applies to sets whose
// name contains Set (compared lowercased).
type SetPattern struct {
	Set     string
	Pattern string
}

// rule is one classification predicate. Rules are evaluated in priority
// order; the first hit wins.
type rule struct {
	match    func(name, lower, setLower string) bool
	category model.Category
}

// Classifier maps product display names to categories.
type Classifier struct {
	rules []rule
}

// NewClassifier builds a classifier from the game's sealed keyword list and
// set-specific sealed patterns. Rule order matters:
//
//  1. sealed preconstructed products (deck boxes, decks without parentheses)
//  2. "(Preconstructed Deck)" singles
//  3. "(Pledge Pack)" singles, excluded from sealed even though "pledge
//     pack" sits in the sealed keyword list
//  4. set-specific patterns and general sealed keywords
//
// Anything that falls through is a regular card.
func NewClassifier(sealedKeywords []string, setPatterns []SetPattern) *Classifier {
	c := &Classifier{}

	// Keywords compare against lowercased names, so lower them up front;
	// config files may carry any casing.
	keywords := make([]string, len(sealedKeywords))
	for i, kw := range sealedKeywords {
		keywords[i] = strings.ToLower(kw)
	}

	c.rules = append(c.rules, rule{
		category: model.CategorySealedPrecon,
		match: func(name, lower, setLower string) bool {
			return strings.Contains(lower, "preconstructed deck box") ||
				strings.Contains(lower, "preconstructed deck:") ||
				(strings.Contains(lower, "preconstructed deck") && !strings.Contains(name, "("))
		},
	})

	c.rules = append(c.rules, rule{
		category: model.CategoryPreconSingle,
		match: func(name, lower, setLower string) bool {
			return strings.Contains(name, "(Preconstructed Deck)")
		},
	})

	c.rules = append(c.rules, rule{
		category: model.CategoryRegular,
		match: func(name, lower, setLower string) bool {
			return strings.Contains(name, "(Pledge Pack)") ||
				strings.Contains(name, "(Preconstructed Deck)")
		},
	})

	c.rules = append(c.rules, rule{
		category: model.CategorySealed,
		match: func(name, lower, setLower string) bool {
			for _, p := range setPatterns {
				if strings.Contains(setLower, strings.ToLower(p.Set)) &&
					strings.Contains(lower, strings.ToLower(p.Pattern)) {
					return true
				}
			}
			for _, kw := range keywords {
				if strings.Contains(lower, kw) {
					return true
				}
			}
			return false
		},
	})

	return c
}

// Classify resolves a product name to its category. An empty name is a
// regular card: every sealed/preconstructed predicate short-circuits false.
func (c *Classifier) Classify(name, setName string) model.Category {
	if name == "" {
		return model.CategoryRegular
	}
	lower := strings.ToLower(name)
	setLower := strings.ToLower(setName)
	for _, r := range c.rules {
		if r.match(name, lower, setLower) {
			return r.category
		}
	}
	return model.CategoryRegular
}

// CatalogFoil reports foil status for a catalog product: the pricing
// sub-type says "Foil", or the name carries a literal "(Foil)" marker.
// Only meaningful for regular cards; sealed and preconstructed items never
// carry a foil flag.
func CatalogFoil(subTypeName, name string) bool {
	return strings.EqualFold(subTypeName, "foil") || strings.Contains(name, "(Foil)")
}
