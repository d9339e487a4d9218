package catalog

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/sorcledger/internal/model"
)

const detailBatchSize = 100

// tokenSource yields a bearer token for catalog requests.
type tokenSource interface {
	Token(forceRefresh bool) (string, error)
}

// Client talks to the catalog/pricing API.
type Client struct {
	baseURL          string
	tokens           tokenSource
	client           *http.Client
	rarityNormalizer map[string]string
}

// NewClient builds a catalog client. rarityNormalizer maps lowercased
// upstream rarity strings to their canonical form.
func NewClient(tokens tokenSource, rarityNormalizer map[string]string) *Client {
	return &Client{
		baseURL:          "https://api.tcgplayer.com",
		tokens:           tokens,
		client:           &http.Client{Timeout: 30 * time.Second},
		rarityNormalizer: rarityNormalizer,
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// GroupPricing fetches every price row for a set's product group, scoped
// to one product type. Rows come back one per (product, sub-type); missing
// prices stay nil.
func (c *Client) GroupPricing(groupID, productTypeID int) ([]model.PricePoint, error) {
	var body struct {
		Success bool `json:"success"`
		Results []struct {
			ProductID   int      `json:"productId"`
			LowPrice    *float64 `json:"lowPrice"`
			MidPrice    *float64 `json:"midPrice"`
			HighPrice   *float64 `json:"highPrice"`
			MarketPrice *float64 `json:"marketPrice"`
			SubTypeName string   `json:"subTypeName"`
		} `json:"results"`
	}
	u := fmt.Sprintf("%s/pricing/group/%d?productTypeID=%d", c.baseURL, groupID, productTypeID)
	if err := c.getJSON(u, &body); err != nil {
		return nil, fmt.Errorf("fetching group %d pricing: %w", groupID, err)
	}
	if !body.Success {
		return nil, fmt.Errorf("group %d pricing request unsuccessful", groupID)
	}

	points := make([]model.PricePoint, 0, len(body.Results))
	for _, r := range body.Results {
		points = append(points, model.PricePoint{
			ProductID:   r.ProductID,
			Low:         r.LowPrice,
			Mid:         r.MidPrice,
			High:        r.HighPrice,
			Market:      r.MarketPrice,
			SubTypeName: r.SubTypeName,
		})
	}
	return points, nil
}

// ProductDetails fetches name and rarity for a list of product IDs,
// batching requests at the API's limit. Unknown IDs are skipped with a
// warning; a whole-batch failure fails the call.
func (c *Client) ProductDetails(productIDs []int) (map[int]model.ProductInfo, error) {
	info := make(map[int]model.ProductInfo, len(productIDs))

	for start := 0; start < len(productIDs); start += detailBatchSize {
		end := start + detailBatchSize
		if end > len(productIDs) {
			end = len(productIDs)
		}
		batch := productIDs[start:end]

		ids := make([]string, len(batch))
		for i, id := range batch {
			ids[i] = strconv.Itoa(id)
		}

		var body struct {
			Success bool `json:"success"`
			Results []struct {
				ProductID    int    `json:"productId"`
				Name         string `json:"name"`
				CleanName    string `json:"cleanName"`
				ImageURL     string `json:"imageUrl"`
				URL          string `json:"url"`
				ExtendedData []struct {
					Name  string `json:"name"`
					Value string `json:"value"`
				} `json:"extendedData"`
			} `json:"results"`
		}
		u := fmt.Sprintf("%s/catalog/products/%s?getExtendedFields=true",
			c.baseURL, strings.Join(ids, ","))
		if err := c.getJSON(u, &body); err != nil {
			return nil, fmt.Errorf("fetching product details: %w", err)
		}
		if !body.Success {
			return nil, fmt.Errorf("product detail request unsuccessful")
		}

		for _, r := range body.Results {
			p := model.ProductInfo{
				ProductID: r.ProductID,
				Name:      r.Name,
				CleanName: r.CleanName,
				ImageURL:  r.ImageURL,
				URL:       r.URL,
			}
			// Exact "Rarity" field preferred; fall back to any
			// rarity-bearing extended field.
			for _, ed := range r.ExtendedData {
				if ed.Name == "Rarity" {
					p.Rarity = c.normalizeRarity(ed.Value)
					break
				}
				if p.Rarity == "" && strings.Contains(strings.ToLower(ed.Name), "rarity") {
					p.Rarity = c.normalizeRarity(ed.Value)
				}
			}
			info[r.ProductID] = p
		}
	}

	for _, id := range productIDs {
		if _, ok := info[id]; !ok {
			log.Printf("[WARN] no product details for id %d", id)
		}
	}
	return info, nil
}

func (c *Client) normalizeRarity(raw string) string {
	if canon, ok := c.rarityNormalizer[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return canon
	}
	return raw
}

func (c *Client) getJSON(url string, out any) error {
	token, err := c.tokens.Token(false)
	if err != nil {
		return fmt.Errorf("getting token: %w", err)
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Stale token; refresh once and retry.
		if token, err = c.tokens.Token(true); err != nil {
			return fmt.Errorf("refreshing token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if resp, err = c.client.Do(req); err != nil {
			return err
		}
		defer resp.Body.Close()
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// ProductStore caches per-set product info files on disk so detail lookups
// only run once per set.
type ProductStore struct {
	dir    string
	client *Client
}

// NewProductStore builds a store rooted at dir.
func NewProductStore(dir string, client *Client) *ProductStore {
	return &ProductStore{dir: dir, client: client}
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func (s *ProductStore) path(setName string) string {
	name := unsafePathChars.ReplaceAllString(strings.ToLower(setName), "_")
	return filepath.Join(s.dir, name+".json")
}

// EnsureProductInfo returns the product info map for a set, loading the
// cached file when present and fetching details for productIDs otherwise.
func (s *ProductStore) EnsureProductInfo(setName string, productIDs []int) (map[int]model.ProductInfo, error) {
	path := s.path(setName)

	if data, err := os.ReadFile(path); err == nil {
		var infos []model.ProductInfo
		if err := json.Unmarshal(data, &infos); err == nil && len(infos) > 0 {
			m := make(map[int]model.ProductInfo, len(infos))
			for _, p := range infos {
				m[p.ProductID] = p
			}
			return m, nil
		}
		log.Printf("[WARN] corrupt product info file %s, refetching", path)
	}

	m, err := s.client.ProductDetails(productIDs)
	if err != nil {
		return nil, err
	}

	infos := make([]model.ProductInfo, 0, len(m))
	for _, p := range m {
		infos = append(infos, p)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating product info dir: %w", err)
	}
	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("writing product info file: %w", err)
	}
	return m, nil
}
