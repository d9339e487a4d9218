package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guarzo/sorcledger/internal/browse"
	"github.com/guarzo/sorcledger/internal/catalog"
	"github.com/guarzo/sorcledger/internal/category"
	"github.com/guarzo/sorcledger/internal/config"
	"github.com/guarzo/sorcledger/internal/currency"
	"github.com/guarzo/sorcledger/internal/guide"
	"github.com/guarzo/sorcledger/internal/pipeline"
	"github.com/guarzo/sorcledger/internal/ratelimit"
	"github.com/guarzo/sorcledger/internal/recorder"
	"github.com/guarzo/sorcledger/internal/reference"
	"github.com/guarzo/sorcledger/internal/scheduler"
	"github.com/guarzo/sorcledger/internal/storage"
)

// minSearchDelay is the gap enforced between marketplace search requests.
const minSearchDelay = 700 * time.Millisecond

func main() {
	var (
		cfgPath     = flag.String("config", "configs/sorcery.yaml", "path to game config")
		catalogOnly = flag.Bool("catalog", false, "run the catalog update once and exit")
		marketOnly  = flag.Bool("marketplace", false, "run the marketplace update once and exit")
		daemon      = flag.Bool("daemon", false, "run on the configured cron schedule")
		quiet       = flag.Bool("quiet", false, "suppress progress output")
	)
	flag.Parse()

	log.SetFlags(log.LstdFlags)
	log.Println("[INFO] sorcledger starting...")

	if v := os.Getenv("CONFIG_PATH"); v != "" && !flagWasSet("config") {
		*cfgPath = v
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}

	var rec recorder.Recorder
	if cfg.Paths.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Paths.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	store := storage.New(cfg.Paths.CardDataFile)
	app := &app{cfg: cfg, store: store, rec: rec, quiet: *quiet}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch {
	case *catalogOnly:
		if err := app.runCatalog(); err != nil {
			log.Fatalf("[FATAL] catalog run: %v", err)
		}
	case *marketOnly:
		if err := app.runMarketplace(ctx); err != nil {
			log.Fatalf("[FATAL] marketplace run: %v", err)
		}
	case *daemon:
		sched := scheduler.New(ctx, app.runAll)
		if err := sched.Register(cfg.Schedule.UpdateCron); err != nil {
			log.Fatalf("[FATAL] register cron task: %v", err)
		}
		sched.Start()
		defer sched.Stop()

		if os.Getenv("RUN_ON_START") == "true" {
			log.Println("[INFO] RUN_ON_START enabled, executing update now")
			go sched.RunNow()
		}

		log.Println("[INFO] sorcledger is running. Press Ctrl+C to stop.")
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("[INFO] shutdown signal received, stopping...")
		cancel()
	default:
		if err := app.runAll(ctx); err != nil {
			log.Fatalf("[FATAL] update: %v", err)
		}
	}

	log.Println("[INFO] sorcledger stopped")
}

type app struct {
	cfg   *config.Config
	store *storage.Store
	rec   recorder.Recorder
	quiet bool
}

// runAll runs the catalog pass, then fills gaps from the marketplace. A
// provider whose credentials are missing is skipped, not fatal.
func (a *app) runAll(ctx context.Context) error {
	if err := a.runCatalog(); err != nil {
		log.Printf("[ERROR] catalog update: %v", err)
	}
	if err := a.runMarketplace(ctx); err != nil {
		log.Printf("[ERROR] marketplace update: %v", err)
	}
	return nil
}

func (a *app) runCatalog() error {
	if err := a.cfg.ValidateCatalog(); err != nil {
		return err
	}

	tokens := catalog.NewTokenProvider(a.cfg.CatalogPublicKey, a.cfg.CatalogPrivateKey, a.cfg.Paths.CatalogToken)
	client := catalog.NewClient(tokens, a.cfg.RarityNormalizer)
	products := catalog.NewProductStore(a.cfg.Paths.ProductInfoDir, client)

	patterns := make([]category.SetPattern, len(a.cfg.Rules.SetSpecificSealed))
	for i, p := range a.cfg.Rules.SetSpecificSealed {
		patterns[i] = category.SetPattern{Set: p.Set, Pattern: p.Pattern}
	}
	classifier := category.NewClassifier(a.cfg.Rules.SealedKeywords, patterns)

	run := pipeline.NewCatalogRun(a.cfg, client, products, classifier, a.store, a.rec, a.quiet).
		WithGuide(guide.NewScraper())
	return run.Run()
}

func (a *app) runMarketplace(ctx context.Context) error {
	if err := a.cfg.ValidateBrowse(); err != nil {
		return err
	}

	refCatalog, err := reference.Load(a.cfg.Paths.MasterCardList)
	if err != nil {
		return err
	}

	auth := browse.NewAppAuth(a.cfg.BrowseClientID, a.cfg.BrowseClientSecret, a.cfg.Paths.BrowseToken)
	search := browse.NewClient(auth, ratelimit.NewGate(minSearchDelay))

	run := pipeline.NewMarketplaceRun(a.cfg, search, refCatalog,
		currency.NewConverter(), a.store, a.rec, a.quiet)
	return run.Run(ctx)
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
