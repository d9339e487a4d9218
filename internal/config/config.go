package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SetPattern is a set-specific sealed product rule: the pattern only
// applies when the set name contains Set (both lowercased).
type SetPattern struct {
	Set     string `yaml:"set"`
	Pattern string `yaml:"pattern"`
}

// Config holds the per-game configuration plus runtime settings. One game
// per process; everything game-specific lives in the YAML file so the
// pipeline code stays generic.
type Config struct {
	Game struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		QueryPrefix string `yaml:"query_prefix"`
	} `yaml:"game"`

	Catalog struct {
		ProductTypeID int            `yaml:"product_type_id"`
		SetGroupIDs   map[string]int `yaml:"set_group_ids"`
	} `yaml:"catalog"`

	Rarities         []string          `yaml:"rarities"`
	RarityNormalizer map[string]string `yaml:"rarity_normalizer"`

	Rules struct {
		SealedKeywords     []string     `yaml:"sealed_keywords"`
		SetSpecificSealed  []SetPattern `yaml:"set_specific_sealed"`
		PromoSets          []string     `yaml:"promo_sets"`
		BrandConflictCards []string     `yaml:"brand_conflict_cards"`
	} `yaml:"rules"`

	Paths struct {
		CardDataDir    string `yaml:"card_data_dir"`
		CardDataFile   string `yaml:"card_data_file"`
		ProductInfoDir string `yaml:"product_info_dir"`
		MasterCardList string `yaml:"master_card_list"`
		CatalogToken   string `yaml:"catalog_token_file"`
		BrowseToken    string `yaml:"browse_token_file"`
		SQLitePath     string `yaml:"sqlite_path"`
	} `yaml:"paths"`

	Schedule struct {
		UpdateCron string `yaml:"update_cron"`
	} `yaml:"schedule"`

	RetentionDays int `yaml:"retention_days"`
	SaveInterval  int `yaml:"save_interval"`

	// Credentials come from the environment (.env), never from YAML.
	CatalogPublicKey   string `yaml:"-"`
	CatalogPrivateKey  string `yaml:"-"`
	BrowseClientID     string `yaml:"-"`
	BrowseClientSecret string `yaml:"-"`
}

// Load reads the YAML game config, loads .env if present, and applies
// environment overrides and defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional; real environments may set variables directly.
	_ = godotenv.Load()

	cfg.CatalogPublicKey = os.Getenv("TCGPLAYER_API_PUBLIC_KEY")
	cfg.CatalogPrivateKey = os.Getenv("TCGPLAYER_API_PRIVATE_KEY")
	cfg.BrowseClientID = os.Getenv("EBAY_CLIENT_ID")
	cfg.BrowseClientSecret = os.Getenv("EBAY_CLIENT_SECRET")

	if v := os.Getenv("CARD_DATA_DIR"); v != "" {
		cfg.Paths.CardDataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Paths.SQLitePath = v
	}
	if v := os.Getenv("UPDATE_CRON"); v != "" {
		cfg.Schedule.UpdateCron = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Game.ID == "" {
		c.Game.ID = "sorcery"
	}
	if c.Game.QueryPrefix == "" {
		c.Game.QueryPrefix = "Sorcery Contested Realm"
	}
	if c.Catalog.ProductTypeID == 0 {
		c.Catalog.ProductTypeID = 128
	}
	if len(c.Rarities) == 0 {
		c.Rarities = []string{"Unique", "Elite", "Exceptional", "Ordinary"}
	}
	if len(c.RarityNormalizer) == 0 {
		c.RarityNormalizer = map[string]string{
			"unique":      "Unique",
			"elite":       "Elite",
			"exceptional": "Exceptional",
			"ordinary":    "Ordinary",
		}
	}
	if len(c.Rules.SealedKeywords) == 0 {
		c.Rules.SealedKeywords = []string{
			"booster box",
			"booster box case",
			"booster case",
			"booster pack",
			"pledge pack",
			"display",
			"booster display",
		}
	}
	if len(c.Rules.SetSpecificSealed) == 0 {
		c.Rules.SetSpecificSealed = []SetPattern{
			{Set: "dragonlord", Pattern: "dragonlord box"},
		}
	}
	if len(c.Rules.PromoSets) == 0 {
		c.Rules.PromoSets = []string{
			"Dust Reward Promos",
			"Arthurian Legends Promo",
			"dustRewardPromo",
			"arthurianLegendsPromo",
		}
	}
	if len(c.Rules.BrandConflictCards) == 0 {
		c.Rules.BrandConflictCards = []string{"Erik's Curiosa"}
	}
	if c.Paths.CardDataDir == "" {
		c.Paths.CardDataDir = "card-data"
	}
	if c.Paths.CardDataFile == "" {
		c.Paths.CardDataFile = filepath.Join(c.Paths.CardDataDir, "card_data.json")
	}
	if c.Paths.ProductInfoDir == "" {
		c.Paths.ProductInfoDir = filepath.Join(c.Paths.CardDataDir, "product-info")
	}
	if c.Paths.MasterCardList == "" {
		c.Paths.MasterCardList = filepath.Join(c.Paths.CardDataDir, c.Game.ID+"_card_list.json")
	}
	if c.Paths.CatalogToken == "" {
		c.Paths.CatalogToken = "tcgplayer_token.json"
	}
	if c.Paths.BrowseToken == "" {
		c.Paths.BrowseToken = "ebay_token.json"
	}
	if c.Schedule.UpdateCron == "" {
		c.Schedule.UpdateCron = "0 0 6 * * *"
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 8
	}
	if c.SaveInterval == 0 {
		c.SaveInterval = 50
	}
}

// ValidateCatalog checks that catalog API credentials and sets are present.
func (c *Config) ValidateCatalog() error {
	if c.CatalogPublicKey == "" || c.CatalogPrivateKey == "" {
		return fmt.Errorf("TCGPLAYER_API_PUBLIC_KEY and TCGPLAYER_API_PRIVATE_KEY must be set")
	}
	if len(c.Catalog.SetGroupIDs) == 0 {
		return fmt.Errorf("catalog.set_group_ids is empty")
	}
	return nil
}

// ValidateBrowse checks that marketplace API credentials are present.
func (c *Config) ValidateBrowse() error {
	if c.BrowseClientID == "" || c.BrowseClientSecret == "" {
		return fmt.Errorf("EBAY_CLIENT_ID and EBAY_CLIENT_SECRET must be set")
	}
	return nil
}
