package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/guarzo/sorcledger/internal/aggregate"
	"github.com/guarzo/sorcledger/internal/config"
	"github.com/guarzo/sorcledger/internal/index"
	"github.com/guarzo/sorcledger/internal/listing"
	"github.com/guarzo/sorcledger/internal/match"
	"github.com/guarzo/sorcledger/internal/model"
	"github.com/guarzo/sorcledger/internal/progress"
	"github.com/guarzo/sorcledger/internal/recorder"
	"github.com/guarzo/sorcledger/internal/storage"
)

// searchSource runs marketplace listing searches.
type searchSource interface {
	SearchSold(ctx context.Context, query string) ([]model.Listing, error)
	SearchCurrent(ctx context.Context, query string) ([]model.Listing, error)
}

// usdConverter normalizes listing prices to USD.
type usdConverter interface {
	ToUSD(amount float64, currencyCode string) float64
}

// MarketplaceRun fills in cards the catalog path left unpriced by
// aggregating marketplace listings.
type MarketplaceRun struct {
	cfg      *config.Config
	search   searchSource
	matcher  *match.Matcher
	convert  usdConverter
	brands   *listing.BrandFilter
	catalog  model.ReferenceCatalog
	store    *storage.Store
	rec      recorder.Recorder
	quiet    bool
}

// NewMarketplaceRun wires a marketplace run over the reference catalog.
func NewMarketplaceRun(cfg *config.Config, search searchSource, catalog model.ReferenceCatalog,
	convert usdConverter, store *storage.Store, rec recorder.Recorder, quiet bool) *MarketplaceRun {
	return &MarketplaceRun{
		cfg:     cfg,
		search:  search,
		matcher: match.NewMatcher(catalog, cfg.Rules.PromoSets),
		convert: convert,
		brands:  listing.NewBrandFilter(cfg.Rules.BrandConflictCards),
		catalog: catalog,
		store:   store,
		rec:     rec,
		quiet:   quiet,
	}
}

// observations collects per-(set, foil) price lists for one card.
type observations struct {
	sold    []float64
	current []float64
}

type variantKey struct {
	set  string
	foil bool
}

// Run processes every card in the reference catalog, skipping cards whose
// variants are already complete. Search failures skip the card, not the run.
func (r *MarketplaceRun) Run(ctx context.Context) error {
	started := time.Now()

	idx := index.FromSets(r.store.Load(), r.cfg.Rarities)
	complete := index.BuildCompleteness(idx)

	cardNames := make([]string, 0, len(r.catalog))
	for name := range r.catalog {
		cardNames = append(cardNames, name)
	}
	sort.Strings(cardNames)

	var added, skipped, unmatched, errors, processed int
	ind := progress.WithTotal("Updating marketplace prices", len(cardNames), r.quiet)
	ind.Start()

	for i, cardName := range cardNames {
		ind.Update(i + 1)
		if !r.cardNeedsData(complete, cardName) {
			skipped++
			continue
		}

		a, u, err := r.processCard(ctx, idx, complete, cardName)
		if err != nil {
			log.Printf("[ERROR] card %s: %v", cardName, err)
			errors++
			continue
		}
		added += a
		unmatched += u

		processed++
		if processed%r.cfg.SaveInterval == 0 {
			idx.Finalize()
			if err := r.store.Save(idx.Sets); err != nil {
				log.Printf("[WARN] checkpoint save: %v", err)
			}
		}
	}
	ind.Finish()

	idx.Finalize()
	if err := r.store.Save(idx.Sets); err != nil {
		return fmt.Errorf("saving card data: %w", err)
	}

	_ = r.rec.RecordRun(&recorder.RunSummary{
		RunType:      "marketplace",
		StartedAt:    started,
		FinishedAt:   time.Now(),
		RecordsAdded: added,
		RecordsSkip:  skipped,
		Unmatched:    unmatched,
		Errors:       errors,
	})
	log.Printf("[INFO] marketplace run: %d added, %d cards skipped, %d unmatched titles, %d errors",
		added, skipped, unmatched, errors)
	return nil
}

// cardNeedsData reports whether any non-promo variant of a card still
// lacks a priced record.
func (r *MarketplaceRun) cardNeedsData(complete *index.Completeness, cardName string) bool {
	for _, s := range r.catalog[cardName].Sets {
		if r.isPromoSet(s.SetName) {
			continue
		}
		if !complete.IsComplete(cardName, s.SetName) {
			return true
		}
	}
	return false
}

func (r *MarketplaceRun) isPromoSet(setName string) bool {
	for _, p := range r.cfg.Rules.PromoSets {
		if p == setName {
			return true
		}
	}
	return false
}

func (r *MarketplaceRun) processCard(ctx context.Context, idx *index.Index,
	complete *index.Completeness, cardName string) (added, unmatched int, err error) {

	query := r.cfg.Game.QueryPrefix + " " + cardName

	sold, err := r.search.SearchSold(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("sold search: %w", err)
	}
	current, err := r.search.SearchCurrent(ctx, query)
	if err != nil {
		return 0, 0, fmt.Errorf("current search: %w", err)
	}

	sold = r.brands.Apply(sold, cardName)
	current = r.brands.Apply(current, cardName)

	obs := make(map[variantKey]*observations)
	collect := func(items []model.Listing, isSold bool) {
		for _, item := range items {
			if listing.IsGraded(item.Title) || listing.ShouldExclude(item.Title, item.CategoryPath) {
				continue
			}
			res, ok := r.matcher.Match(item.Title)
			if !ok || res.CardName != cardName {
				unmatched++
				continue
			}
			price := r.convert.ToUSD(item.Price, item.Currency)
			if price <= 0 {
				continue
			}
			key := variantKey{set: res.SetName, foil: listing.IsFoil(item.Title)}
			o, ok := obs[key]
			if !ok {
				o = &observations{}
				obs[key] = o
			}
			if isSold {
				o.sold = append(o.sold, price)
			} else {
				o.current = append(o.current, price)
			}
		}
	}
	collect(sold, true)
	collect(current, false)

	for _, s := range r.catalog[cardName].Sets {
		if r.isPromoSet(s.SetName) {
			continue
		}
		for _, foil := range []bool{false, true} {
			if complete.Has(cardName, s.SetName, foil) {
				continue
			}
			o, ok := obs[variantKey{set: s.SetName, foil: foil}]
			if !ok {
				continue
			}
			stats := aggregate.Market(o.sold, o.current)
			if stats.Market == "0.00" {
				continue
			}
			condition := "NM"
			if foil {
				condition = "NMF"
			}
			idx.Add(s.SetName, model.CardRecord{
				Name:            cardName,
				Price:           stats.Market,
				AvgSoldPrice:    stats.AvgSold,
				AvgCurrentPrice: stats.AvgCurrent,
				Condition:       condition,
				Rarity:          s.Rarity,
				Slug:            s.Slug,
				SetName:         s.SetName,
				Category:        model.CategoryRegular,
				Foil:            foil,
			})
			complete.Mark(cardName, s.SetName, foil)
			added++
		}
	}
	return added, unmatched, nil
}
