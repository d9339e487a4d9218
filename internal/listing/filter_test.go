package listing

import (
	"testing"

	"github.com/guarzo/sorcledger/internal/model"
)

func TestIsGraded(t *testing.T) {
	tests := []struct {
		title    string
		expected bool
	}{
		{"Philosopher's Stone PSA 10 Gem Mint", true},
		{"Philosopher's Stone BGS 9.5", true},
		{"CGC graded Grim Reaper", true},
		{"Grim Reaper slab", true},
		{"Slabbed beauty - Amulet of Niniane", true},
		{"Philosopher's Stone Alpha NM", false},
		{"Raw ungraded-looking title", true}, // "graded" substring
		{"Amulet of Niniane Foil", false},
	}

	for _, tc := range tests {
		if got := IsGraded(tc.title); got != tc.expected {
			t.Errorf("IsGraded(%q) = %v, want %v", tc.title, got, tc.expected)
		}
	}
}

func TestShouldExclude(t *testing.T) {
	tests := []struct {
		title    string
		catPath  []string
		expected bool
	}{
		{"Sorcery Contested Realm LOT of 20 cards", nil, true},
		{"Bulk commons Sorcery", nil, true},
		{"Philosopher's Stone + bundle extras", nil, true},
		{"Alpha Booster Box sealed", nil, true},
		{"Erik's Curiosa", []string{"Toys", "Curio Cabinets"}, true},
		{"Sorcery the movie DVD", nil, true},
		{"Philosopher's Stone Alpha", nil, false},
		{"Amulet of Niniane Foil NM", []string{"Collectibles", "CCG Individual Cards"}, false},
	}

	for _, tc := range tests {
		if got := ShouldExclude(tc.title, tc.catPath); got != tc.expected {
			t.Errorf("ShouldExclude(%q, %v) = %v, want %v", tc.title, tc.catPath, got, tc.expected)
		}
	}
}

func TestIsFoil_NonFoilWins(t *testing.T) {
	tests := []struct {
		title    string
		expected bool
	}{
		{"Philosopher's Stone Foil", true},
		{"Philosopher's Stone holo", true},
		{"Philosopher's Stone", false},
		{"Philosopher's Stone non-foil", false},
		{"Philosopher's Stone nonfoil", false},
		{"Philosopher's Stone non foil", false},
		// The non-foil marker overrides even when "foil" appears alone too.
		{"Non-Foil Philosopher's Stone (not the foil version)", false},
	}

	for _, tc := range tests {
		if got := IsFoil(tc.title); got != tc.expected {
			t.Errorf("IsFoil(%q) = %v, want %v", tc.title, got, tc.expected)
		}
	}
}

func TestBrandFilter_Apply(t *testing.T) {
	f := NewBrandFilter([]string{"Erik's Curiosa"})

	items := []model.Listing{
		{ItemID: "1", Title: "Erik's Curiosa Alpha NM"},
		{ItemID: "2", Title: "Eriks Curiosa foil"},
		{ItemID: "3", Title: "Curiosa brand display stand"},
		{ItemID: "4", Title: "Sorcery Contested Realm Erik Curiosa"},
	}

	kept := f.Apply(items, "Erik's Curiosa")
	want := map[string]bool{"1": true, "2": true, "4": true}
	if len(kept) != len(want) {
		t.Fatalf("kept %d items, want %d", len(kept), len(want))
	}
	for _, item := range kept {
		if !want[item.ItemID] {
			t.Errorf("unexpected item kept: %s (%q)", item.ItemID, item.Title)
		}
	}
}

func TestBrandFilter_NonConflictPassthrough(t *testing.T) {
	f := NewBrandFilter([]string{"Erik's Curiosa"})

	items := []model.Listing{
		{ItemID: "1", Title: "totally unrelated title"},
		{ItemID: "2", Title: "another one"},
	}
	kept := f.Apply(items, "Philosopher's Stone")
	if len(kept) != len(items) {
		t.Fatalf("non-conflict card must pass through untouched, got %d of %d", len(kept), len(items))
	}
}
