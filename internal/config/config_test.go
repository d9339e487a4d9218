package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CARD_DATA_DIR", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Game.ID != "sorcery" {
		t.Errorf("game id = %q", cfg.Game.ID)
	}
	if cfg.Catalog.ProductTypeID != 128 {
		t.Errorf("product type = %d", cfg.Catalog.ProductTypeID)
	}
	if len(cfg.Rarities) != 4 || cfg.Rarities[0] != "Unique" {
		t.Errorf("rarities = %v", cfg.Rarities)
	}
	if cfg.SaveInterval != 50 || cfg.RetentionDays != 8 {
		t.Errorf("save/retention = %d/%d", cfg.SaveInterval, cfg.RetentionDays)
	}
	if len(cfg.Rules.BrandConflictCards) == 0 {
		t.Error("brand conflict defaults missing")
	}
	if cfg.Paths.CardDataFile != filepath.Join("card-data", "card_data.json") {
		t.Errorf("card data file = %q", cfg.Paths.CardDataFile)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "game.yaml")
	doc := `
game:
  id: testgame
  query_prefix: "Test Game TCG"
catalog:
  product_type_id: 99
  set_group_ids:
    Alpha: 1234
retention_days: 3
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CARD_DATA_DIR", "/tmp/override")
	t.Setenv("TCGPLAYER_API_PUBLIC_KEY", "pub")
	t.Setenv("TCGPLAYER_API_PRIVATE_KEY", "priv")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Game.ID != "testgame" || cfg.Catalog.ProductTypeID != 99 {
		t.Errorf("yaml values not applied: %+v", cfg.Game)
	}
	if cfg.RetentionDays != 3 {
		t.Errorf("retention = %d", cfg.RetentionDays)
	}
	if cfg.Paths.CardDataDir != "/tmp/override" {
		t.Errorf("env override not applied: %q", cfg.Paths.CardDataDir)
	}
	if err := cfg.ValidateCatalog(); err != nil {
		t.Errorf("ValidateCatalog: %v", err)
	}
}

func TestValidate_MissingCredentials(t *testing.T) {
	t.Setenv("TCGPLAYER_API_PUBLIC_KEY", "")
	t.Setenv("TCGPLAYER_API_PRIVATE_KEY", "")
	t.Setenv("EBAY_CLIENT_ID", "")
	t.Setenv("EBAY_CLIENT_SECRET", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.ValidateCatalog(); err == nil {
		t.Error("missing catalog credentials must fail validation")
	}
	if err := cfg.ValidateBrowse(); err == nil {
		t.Error("missing browse credentials must fail validation")
	}
}
