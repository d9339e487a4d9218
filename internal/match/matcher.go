package match

import (
	"regexp"
	"sort"
	"strings"

	"github.com/guarzo/sorcledger/internal/model"
)

// Result is a resolved (card, set) pair for a listing title.
type Result struct {
	CardName string
	SetName  string
	Rarity   string
	Slug     string
}

type refEntry struct {
	name    string
	pattern *regexp.Regexp
	sets    []setEntry
}

type setEntry struct {
	name    string
	rarity  string
	slug    string
	pattern *regexp.Regexp
}

// Matcher resolves free-text listing titles against the reference catalog.
// Reference names are tried longest-first so "Erik's Curiosa" wins over a
// bare "Curiosa" when both would match; the same ordering applies to set
// names within a card.
type Matcher struct {
	entries   []refEntry
	promoSets map[string]bool
}

// NewMatcher compiles word-boundary patterns for every card and set in the
// reference catalog. Sets on the promo exclusion list are dropped up front.
func NewMatcher(catalog model.ReferenceCatalog, promoSets []string) *Matcher {
	m := &Matcher{promoSets: make(map[string]bool, len(promoSets))}
	for _, p := range promoSets {
		m.promoSets[strings.ToLower(p)] = true
	}

	for name, cardSets := range catalog {
		e := refEntry{
			name:    name,
			pattern: boundaryPattern(name),
		}
		for _, s := range cardSets.Sets {
			if m.promoSets[strings.ToLower(s.SetName)] {
				continue
			}
			e.sets = append(e.sets, setEntry{
				name:    s.SetName,
				rarity:  s.Rarity,
				slug:    s.Slug,
				pattern: boundaryPattern(s.SetName),
			})
		}
		sort.Slice(e.sets, func(i, j int) bool {
			if len(e.sets[i].name) != len(e.sets[j].name) {
				return len(e.sets[i].name) > len(e.sets[j].name)
			}
			return e.sets[i].name < e.sets[j].name
		})
		m.entries = append(m.entries, e)
	}

	sort.Slice(m.entries, func(i, j int) bool {
		if len(m.entries[i].name) != len(m.entries[j].name) {
			return len(m.entries[i].name) > len(m.entries[j].name)
		}
		return m.entries[i].name < m.entries[j].name
	})
	return m
}

// Match resolves a title to its card and set, or returns ok=false when the
// title names a promo, an unknown card, or a card without a recognizable
// set. Unmatched titles are tallied by the caller and dropped.
func (m *Matcher) Match(title string) (Result, bool) {
	norm := normalizeLower(title)
	if strings.Contains(norm, "promo") {
		return Result{}, false
	}

	for _, e := range m.entries {
		if !e.pattern.MatchString(norm) {
			continue
		}
		for _, s := range e.sets {
			if s.pattern.MatchString(norm) {
				return Result{CardName: e.name, SetName: s.name, Rarity: s.rarity, Slug: s.slug}, true
			}
		}
	}
	return Result{}, false
}

// boundaryPattern compiles a word-boundary regex for a normalized,
// lower-cased name.
func boundaryPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(normalizeLower(name)) + `\b`)
}
