package index

import (
	"sort"
	"strings"

	"github.com/guarzo/sorcledger/internal/model"
)

// SetBuckets is the persisted bucket structure for one set. The flat lists
// are price-ordered after Finalize; the ByName views hold the same records
// ordered by case-insensitive name. Rarity maps partition the regular-card
// buckets by rarity.
type SetBuckets struct {
	NonFoil        []model.CardRecord `json:"nonFoil"`
	Foil           []model.CardRecord `json:"foil"`
	Sealed         []model.CardRecord `json:"sealed"`
	Preconstructed []model.CardRecord `json:"preconstructed"`

	NonFoilByName        []model.CardRecord `json:"nonFoilByName"`
	FoilByName           []model.CardRecord `json:"foilByName"`
	SealedByName         []model.CardRecord `json:"sealedByName"`
	PreconstructedByName []model.CardRecord `json:"preconstructedByName"`

	NonFoilByRarityPrice map[string][]model.CardRecord `json:"nonFoilByRarityPrice"`
	NonFoilByRarityName  map[string][]model.CardRecord `json:"nonFoilByRarityName"`
	FoilByRarityPrice    map[string][]model.CardRecord `json:"foilByRarityPrice"`
	FoilByRarityName     map[string][]model.CardRecord `json:"foilByRarityName"`
}

func newSetBuckets() *SetBuckets {
	return &SetBuckets{
		NonFoilByRarityPrice: make(map[string][]model.CardRecord),
		NonFoilByRarityName:  make(map[string][]model.CardRecord),
		FoilByRarityPrice:    make(map[string][]model.CardRecord),
		FoilByRarityName:     make(map[string][]model.CardRecord),
	}
}

// allLists returns the four flat buckets.
func (b *SetBuckets) allLists() [][]model.CardRecord {
	return [][]model.CardRecord{b.NonFoil, b.Foil, b.Sealed, b.Preconstructed}
}

// Index is the full result structure, keyed by set name. Persistence
// marshals Sets directly; the rarity list is configuration, not data.
type Index struct {
	Sets     map[string]*SetBuckets
	rarities map[string]bool
}

// New builds an empty index. Only the given rarities get rarity
// sub-buckets; anything else lands in the flat lists only.
func New(rarities []string) *Index {
	idx := &Index{
		Sets:     make(map[string]*SetBuckets),
		rarities: make(map[string]bool, len(rarities)),
	}
	for _, r := range rarities {
		idx.rarities[r] = true
	}
	return idx
}

// FromSets wraps previously persisted buckets in an index.
func FromSets(sets map[string]*SetBuckets, rarities []string) *Index {
	idx := New(rarities)
	if sets != nil {
		idx.Sets = sets
	}
	for _, b := range idx.Sets {
		if b.NonFoilByRarityPrice == nil {
			b.NonFoilByRarityPrice = make(map[string][]model.CardRecord)
		}
		if b.NonFoilByRarityName == nil {
			b.NonFoilByRarityName = make(map[string][]model.CardRecord)
		}
		if b.FoilByRarityPrice == nil {
			b.FoilByRarityPrice = make(map[string][]model.CardRecord)
		}
		if b.FoilByRarityName == nil {
			b.FoilByRarityName = make(map[string][]model.CardRecord)
		}
	}
	return idx
}

// EnsureSet returns the buckets for a set, creating them if absent.
func (idx *Index) EnsureSet(setName string) *SetBuckets {
	b, ok := idx.Sets[setName]
	if !ok {
		b = newSetBuckets()
		idx.Sets[setName] = b
	}
	return b
}

// ProductIDs returns the product identifiers already present across all of
// a set's buckets. Re-runs consult this to skip records idempotently.
func (idx *Index) ProductIDs(setName string) map[int]bool {
	ids := make(map[int]bool)
	b, ok := idx.Sets[setName]
	if !ok {
		return ids
	}
	for _, list := range b.allLists() {
		for _, r := range list {
			if r.ProductID != 0 {
				ids[r.ProductID] = true
			}
		}
	}
	return ids
}

// Add routes a record into exactly one flat bucket, plus the matching
// rarity sub-bucket for regular cards of a known rarity.
func (idx *Index) Add(setName string, rec model.CardRecord) {
	b := idx.EnsureSet(setName)
	switch {
	case rec.Category.IsSealed():
		b.Sealed = append(b.Sealed, rec)
	case rec.Category == model.CategoryPreconSingle:
		b.Preconstructed = append(b.Preconstructed, rec)
	case rec.Foil:
		b.Foil = append(b.Foil, rec)
		if idx.rarities[rec.Rarity] {
			b.FoilByRarityPrice[rec.Rarity] = append(b.FoilByRarityPrice[rec.Rarity], rec)
		}
	default:
		b.NonFoil = append(b.NonFoil, rec)
		if idx.rarities[rec.Rarity] {
			b.NonFoilByRarityPrice[rec.Rarity] = append(b.NonFoilByRarityPrice[rec.Rarity], rec)
		}
	}
}

// Finalize produces the derived orderings for every set: flat and rarity
// buckets sorted descending by price, with ByName views sorted ascending by
// case-insensitive name. Run once per batch after all insertions.
func (idx *Index) Finalize() {
	for _, b := range idx.Sets {
		sortByPrice(b.NonFoil)
		sortByPrice(b.Foil)
		sortByPrice(b.Sealed)
		sortByPrice(b.Preconstructed)

		b.NonFoilByName = sortedByName(b.NonFoil)
		b.FoilByName = sortedByName(b.Foil)
		b.SealedByName = sortedByName(b.Sealed)
		b.PreconstructedByName = sortedByName(b.Preconstructed)

		for rarity, list := range b.NonFoilByRarityPrice {
			sortByPrice(list)
			b.NonFoilByRarityName[rarity] = sortedByName(list)
		}
		for rarity, list := range b.FoilByRarityPrice {
			sortByPrice(list)
			b.FoilByRarityName[rarity] = sortedByName(list)
		}
	}
}

// sortByPrice orders records descending by numeric price, in place. Ties
// keep insertion order.
func sortByPrice(list []model.CardRecord) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].SortPrice() > list[j].SortPrice()
	})
}

// sortedByName returns a copy ordered ascending by case-insensitive name.
func sortedByName(list []model.CardRecord) []model.CardRecord {
	out := make([]model.CardRecord, len(list))
	copy(out, list)
	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

// Completeness is an O(1) lookup for whether a (card, set, foil) record
// with a positive price already exists. Built once per load from the index
// instead of rescanning the arrays per item.
type Completeness struct {
	present map[completenessKey]bool
}

type completenessKey struct {
	card string
	set  string
	foil bool
}

// BuildCompleteness indexes every regular-card record with a positive
// price across all sets.
func BuildCompleteness(idx *Index) *Completeness {
	c := &Completeness{present: make(map[completenessKey]bool)}
	for setName, b := range idx.Sets {
		for _, r := range b.NonFoil {
			if r.HasPositivePrice() {
				c.present[completenessKey{r.Name, setName, false}] = true
			}
		}
		for _, r := range b.Foil {
			if r.HasPositivePrice() {
				c.present[completenessKey{r.Name, setName, true}] = true
			}
		}
	}
	return c
}

// Has reports whether a priced record exists for one variant.
func (c *Completeness) Has(cardName, setName string, foil bool) bool {
	return c.present[completenessKey{cardName, setName, foil}]
}

// IsComplete reports whether both variants of a card are already priced,
// in which case marketplace recomputation is skipped.
func (c *Completeness) IsComplete(cardName, setName string) bool {
	return c.Has(cardName, setName, false) && c.Has(cardName, setName, true)
}

// Mark records a variant as priced after an in-run insertion.
func (c *Completeness) Mark(cardName, setName string, foil bool) {
	c.present[completenessKey{cardName, setName, foil}] = true
}
