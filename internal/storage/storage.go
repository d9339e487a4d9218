package storage

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/guarzo/sorcledger/internal/index"
)

// Store persists the card data document and manages its archives.
type Store struct {
	path string
	now  func() time.Time
}

// New builds a store for the card data file at path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Load reads the card data document. A missing or corrupt file is treated
// as empty state so the run proceeds fresh.
func (s *Store) Load() map[string]*index.SetBuckets {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[WARN] reading %s: %v, starting fresh", s.path, err)
		}
		return make(map[string]*index.SetBuckets)
	}

	sets := make(map[string]*index.SetBuckets)
	if err := json.Unmarshal(data, &sets); err != nil {
		log.Printf("[WARN] corrupt card data file %s: %v, starting fresh", s.path, err)
		return make(map[string]*index.SetBuckets)
	}
	return sets
}

// Save writes the card data document atomically via a temp-file rename.
func (s *Store) Save(sets map[string]*index.SetBuckets) error {
	data, err := json.MarshalIndent(sets, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling card data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("creating card data dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing card data: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replacing card data: %w", err)
	}
	return nil
}

// ArchiveIfStale renames the current file to a timestamped archive when its
// modification date is not today. Returns the archive path, or "" when no
// archive was made.
func (s *Store) ArchiveIfStale() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}

	modDay := info.ModTime().Format("20060102")
	today := s.now().Format("20060102")
	if modDay >= today {
		return "", nil
	}

	base := strings.TrimSuffix(s.path, ".json")
	archive := fmt.Sprintf("%s_%s.json", base, info.ModTime().Format("20060102_150405"))
	if err := os.Rename(s.path, archive); err != nil {
		return "", fmt.Errorf("archiving card data: %w", err)
	}
	log.Printf("[INFO] archived stale card data to %s", archive)
	return archive, nil
}

// archiveStamp matches the {base}_{YYYYMMDD}_{HHMMSS}.json naming scheme.
var archiveStamp = regexp.MustCompile(`_(\d{8})_\d{6}\.json$`)

// CleanupArchives deletes archives older than retentionDays, comparing the
// date embedded in the filename. Modification time is ignored: the two can
// legitimately differ.
func (s *Store) CleanupArchives(retentionDays int) error {
	dir := filepath.Dir(s.path)
	base := strings.TrimSuffix(filepath.Base(s.path), ".json")

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base+"_") {
			continue
		}
		m := archiveStamp.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		day, err := time.Parse("20060102", m[1])
		if err != nil {
			log.Printf("[WARN] archive %s has an unparseable date stamp, leaving it", name)
			continue
		}
		if day.Before(cutoff) {
			path := filepath.Join(dir, name)
			if err := os.Remove(path); err != nil {
				log.Printf("[WARN] removing old archive %s: %v", path, err)
				continue
			}
			log.Printf("[INFO] removed old archive %s", path)
		}
	}
	return nil
}
