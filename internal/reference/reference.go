package reference

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/guarzo/sorcledger/internal/model"
)

// Load reads the master card list: a JSON document mapping card name to
// its known printings. The marketplace path cannot run without it.
func Load(path string) (model.ReferenceCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading master card list: %w", err)
	}

	catalog := make(model.ReferenceCatalog)
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parsing master card list: %w", err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("master card list %s is empty", path)
	}
	return catalog, nil
}
