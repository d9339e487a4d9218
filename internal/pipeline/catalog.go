package pipeline

import (
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/guarzo/sorcledger/internal/aggregate"
	"github.com/guarzo/sorcledger/internal/category"
	"github.com/guarzo/sorcledger/internal/config"
	"github.com/guarzo/sorcledger/internal/guide"
	"github.com/guarzo/sorcledger/internal/index"
	"github.com/guarzo/sorcledger/internal/model"
	"github.com/guarzo/sorcledger/internal/progress"
	"github.com/guarzo/sorcledger/internal/recorder"
	"github.com/guarzo/sorcledger/internal/storage"
)

// pricingSource fetches price rows for a set's product group.
type pricingSource interface {
	GroupPricing(groupID, productTypeID int) ([]model.PricePoint, error)
}

// productSource yields name and rarity details for product IDs.
type productSource interface {
	EnsureProductInfo(setName string, productIDs []int) (map[int]model.ProductInfo, error)
}

// guideSource scrapes guide prices for sets the pricing API has no rows for.
type guideSource interface {
	FetchSetPrices(setSlug string) ([]guide.Price, error)
}

// CatalogRun builds card records from the catalog pricing API.
type CatalogRun struct {
	cfg        *config.Config
	pricing    pricingSource
	products   productSource
	guide      guideSource
	classifier *category.Classifier
	store      *storage.Store
	rec        recorder.Recorder
	quiet      bool
}

// NewCatalogRun wires a catalog run.
func NewCatalogRun(cfg *config.Config, pricing pricingSource, products productSource,
	classifier *category.Classifier, store *storage.Store, rec recorder.Recorder, quiet bool) *CatalogRun {
	return &CatalogRun{
		cfg:        cfg,
		pricing:    pricing,
		products:   products,
		classifier: classifier,
		store:      store,
		rec:        rec,
		quiet:      quiet,
	}
}

// WithGuide enables the scraped price-guide fallback for sets without API
// pricing.
func (r *CatalogRun) WithGuide(g guideSource) *CatalogRun {
	r.guide = g
	return r
}

// Run processes every configured set. Per-set failures are logged and
// skipped; the run only fails when nothing can be persisted.
func (r *CatalogRun) Run() error {
	started := time.Now()

	if _, err := r.store.ArchiveIfStale(); err != nil {
		return fmt.Errorf("archiving card data: %w", err)
	}
	if err := r.store.CleanupArchives(r.cfg.RetentionDays); err != nil {
		log.Printf("[WARN] archive cleanup: %v", err)
	}

	idx := index.FromSets(r.store.Load(), r.cfg.Rarities)

	setNames := make([]string, 0, len(r.cfg.Catalog.SetGroupIDs))
	for name := range r.cfg.Catalog.SetGroupIDs {
		setNames = append(setNames, name)
	}
	sort.Strings(setNames)

	var added, skipped, errors, processed int
	ind := progress.WithTotal("Updating catalog prices", len(setNames), r.quiet)
	ind.Start()

	for i, setName := range setNames {
		a, s, err := r.processSet(idx, setName, r.cfg.Catalog.SetGroupIDs[setName], &processed)
		if err != nil {
			log.Printf("[ERROR] set %s: %v", setName, err)
			errors++
		}
		added += a
		skipped += s
		_ = r.rec.RecordSet(&recorder.SetEvent{
			RunType:      "catalog",
			SetName:      setName,
			RecordsAdded: a,
			RecordsSkip:  s,
		})
		ind.Update(i + 1)
	}
	ind.Finish()

	idx.Finalize()
	if err := r.store.Save(idx.Sets); err != nil {
		return fmt.Errorf("saving card data: %w", err)
	}

	_ = r.rec.RecordRun(&recorder.RunSummary{
		RunType:       "catalog",
		StartedAt:     started,
		FinishedAt:    time.Now(),
		SetsProcessed: len(setNames),
		RecordsAdded:  added,
		RecordsSkip:   skipped,
		Errors:        errors,
	})
	log.Printf("[INFO] catalog run: %d added, %d skipped, %d errors across %d sets",
		added, skipped, errors, len(setNames))
	return nil
}

func (r *CatalogRun) processSet(idx *index.Index, setName string, groupID int, processed *int) (added, skipped int, err error) {
	points, err := r.pricing.GroupPricing(groupID, r.cfg.Catalog.ProductTypeID)
	if err != nil {
		return 0, 0, err
	}
	if len(points) == 0 {
		if r.guide != nil && len(idx.ProductIDs(setName)) == 0 {
			log.Printf("[WARN] no API pricing for %s, falling back to price guide", setName)
			return r.guideFallback(idx, setName)
		}
		log.Printf("[WARN] no pricing for %s, skipping", setName)
		return 0, 0, nil
	}

	// One row per product; a later sub-type row supersedes an earlier one.
	priceMap := make(map[int]model.PricePoint, len(points))
	for _, p := range points {
		if p.ProductID != 0 {
			priceMap[p.ProductID] = p
		}
	}

	ids := make([]int, 0, len(priceMap))
	for id := range priceMap {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	infos, err := r.products.EnsureProductInfo(setName, ids)
	if err != nil {
		return 0, 0, fmt.Errorf("loading product info: %w", err)
	}
	if len(infos) == 0 {
		log.Printf("[WARN] no product info for %s, skipping", setName)
		return 0, 0, nil
	}

	seen := idx.ProductIDs(setName)
	for _, id := range ids {
		if seen[id] {
			skipped++
			continue
		}
		info, ok := infos[id]
		if !ok {
			log.Printf("[WARN] product %d missing from product info for %s", id, setName)
			continue
		}
		if info.Name == "" {
			continue
		}

		point := priceMap[id]
		cat := r.classifier.Classify(info.Name, setName)
		foil := false
		if cat == model.CategoryRegular {
			foil = category.CatalogFoil(point.SubTypeName, info.Name)
		}
		// Only regular cards carry a rarity; sealed and preconstructed
		// items persist without one.
		rarity := info.Rarity
		if cat != model.CategoryRegular {
			rarity = ""
		}

		stats := aggregate.Catalog(point)
		idx.Add(setName, model.CardRecord{
			Name:        info.Name,
			ProductID:   id,
			LowPrice:    stats.Low,
			MidPrice:    stats.Mid,
			HighPrice:   stats.High,
			MarketPrice: stats.Market,
			Rarity:      rarity,
			SetName:     setName,
			Category:    cat,
			Foil:        foil,
		})
		added++

		*processed++
		if *processed%r.cfg.SaveInterval == 0 {
			idx.Finalize()
			if err := r.store.Save(idx.Sets); err != nil {
				log.Printf("[WARN] checkpoint save: %v", err)
			}
		}
	}
	return added, skipped, nil
}

// guideFallback builds records from scraped guide prices. Guide rows carry
// no product identifier, so the fallback only runs for sets with no
// existing records.
func (r *CatalogRun) guideFallback(idx *index.Index, setName string) (added, skipped int, err error) {
	prices, err := r.guide.FetchSetPrices(slugify(setName))
	if err != nil {
		return 0, 0, fmt.Errorf("scraping price guide: %w", err)
	}

	for _, p := range prices {
		if p.Name == "" || p.Market <= 0 {
			continue
		}
		market := p.Market
		cat := r.classifier.Classify(p.Name, setName)
		foil := false
		if cat == model.CategoryRegular {
			foil = category.CatalogFoil("", p.Name)
		}
		stats := aggregate.Catalog(model.PricePoint{Market: &market})
		idx.Add(setName, model.CardRecord{
			Name:        p.Name,
			LowPrice:    stats.Low,
			MidPrice:    stats.Mid,
			HighPrice:   stats.High,
			MarketPrice: stats.Market,
			SetName:     setName,
			Category:    cat,
			Foil:        foil,
		})
		added++
	}
	return added, 0, nil
}

// slugify turns a set name into the guide page slug ("Arthurian Legends"
// -> "arthurian-legends").
func slugify(setName string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(setName) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
