package model

import (
	"strconv"
	"strings"
)

// Category is the semantic bucket a product name resolves to.
type Category string

const (
	// CategoryRegular is an individual card (foil or non-foil).
	CategoryRegular Category = "regular"
	// CategorySealed is a packaged product (booster box/pack, display, case).
	CategorySealed Category = "sealed"
	// CategorySealedPrecon is a sealed preconstructed deck product. It is a
	// sub-case of sealed and routes to the sealed bucket.
	CategorySealedPrecon Category = "sealedPreconstructed"
	// CategoryPreconSingle is an individual card sold out of a
	// preconstructed deck.
	CategoryPreconSingle Category = "preconstructedSingle"
)

// IsSealed reports whether the category routes to the sealed bucket.
func (c Category) IsSealed() bool {
	return c == CategorySealed || c == CategorySealedPrecon
}

// PricePoint is one row of the catalog group-pricing response. Missing
// values stay nil until aggregation; nil is "absent", never zero.
type PricePoint struct {
	ProductID   int
	Low         *float64
	Mid         *float64
	High        *float64
	Market      *float64
	SubTypeName string // "Normal" or "Foil"
}

// ProductInfo is one entry of a per-set product info file.
type ProductInfo struct {
	ProductID int    `json:"productId"`
	Name      string `json:"name"`
	CleanName string `json:"cleanName"`
	ImageURL  string `json:"imageUrl"`
	URL       string `json:"url"`
	Rarity    string `json:"rarity"`
}

// Listing is one marketplace search result.
type Listing struct {
	ItemID       string
	Title        string
	Price        float64
	Currency     string
	CategoryPath []string
}

// CardRecord is the final per-item-per-variant output record. The catalog
// path fills the tcgplayer* fields; the marketplace path fills price and
// the avg* fields. Prices are strings formatted to two decimals.
type CardRecord struct {
	Name            string `json:"name"`
	ProductID       int    `json:"tcgplayerProductId,omitempty"`
	LowPrice        string `json:"tcgplayerLowPrice,omitempty"`
	MidPrice        string `json:"tcgplayerMidPrice,omitempty"`
	HighPrice       string `json:"tcgplayerHighPrice,omitempty"`
	MarketPrice     string `json:"tcgplayerMarketPrice,omitempty"`
	Price           string `json:"price,omitempty"`
	AvgSoldPrice    string `json:"avgSoldPrice,omitempty"`
	AvgCurrentPrice string `json:"avgCurrentPrice,omitempty"`
	Condition       string `json:"condition,omitempty"`
	Rarity          string `json:"rarity,omitempty"`
	Slug            string `json:"slug,omitempty"`
	SetName         string `json:"set_name"`

	// Routing hints, not persisted. Sealed and preconstructed records
	// never carry a foil flag.
	Category Category `json:"-"`
	Foil     bool     `json:"-"`
}

// SortPrice returns the numeric price used for descending price ordering:
// the catalog market price when present, otherwise the marketplace price.
func (r *CardRecord) SortPrice() float64 {
	s := r.MarketPrice
	if s == "" {
		s = r.Price
	}
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// HasPositivePrice reports whether any of the record's price fields parses
// to a positive value. Marketplace completeness checks use this.
func (r *CardRecord) HasPositivePrice() bool {
	for _, s := range []string{r.Price, r.AvgSoldPrice, r.AvgCurrentPrice, r.MarketPrice} {
		if s == "" {
			continue
		}
		if v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil && v > 0 {
			return true
		}
	}
	return false
}

// SetEntry is one printing of a card in the reference catalog.
type SetEntry struct {
	SetName string `json:"set_name"`
	Rarity  string `json:"rarity"`
	Slug    string `json:"slug,omitempty"`
}

// CardSets is the reference catalog value for one card name.
type CardSets struct {
	Sets []SetEntry `json:"sets"`
}

// ReferenceCatalog maps card name to its known printings.
type ReferenceCatalog map[string]CardSets
