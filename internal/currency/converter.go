package currency

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.exchangerate-api.com/v4/latest"

// Converter normalizes listing prices to USD. Exchange rates are fetched
// lazily and cached for the life of the process, keyed by uppercased
// currency code. Lookup failure degrades to a 1.0 multiplier with a logged
// warning; conversion never fails.
type Converter struct {
	baseURL string
	client  *http.Client
	rates   map[string]float64
}

// NewConverter returns a converter with an empty rate cache.
func NewConverter() *Converter {
	return &Converter{
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		rates:   make(map[string]float64),
	}
}

// SetBaseURL overrides the rate source endpoint (tests).
func (c *Converter) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// ToUSD converts an amount in the given currency to USD. USD amounts are
// returned unchanged without a network call.
func (c *Converter) ToUSD(amount float64, currencyCode string) float64 {
	code := strings.ToUpper(strings.TrimSpace(currencyCode))
	if code == "" || code == "USD" {
		return amount
	}
	return amount * c.rate(code)
}

func (c *Converter) rate(code string) float64 {
	if r, ok := c.rates[code]; ok {
		return r
	}
	r, err := c.fetchRate(code)
	if err != nil {
		// The fallback is not cached: a transient lookup failure should
		// not pin the rate at 1.0 for the rest of the process.
		log.Printf("[WARN] exchange rate lookup failed for %s, treating as USD: %v", code, err)
		return 1.0
	}
	c.rates[code] = r
	return r
}

// fetchRate fetches the code→USD rate from the rate source.
func (c *Converter) fetchRate(code string) (float64, error) {
	resp, err := c.client.Get(fmt.Sprintf("%s/%s", c.baseURL, code))
	if err != nil {
		return 0, fmt.Errorf("fetching rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("rate source returned status %d", resp.StatusCode)
	}

	var body struct {
		Rates map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decoding rate response: %w", err)
	}

	rate, ok := body.Rates["USD"]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no USD rate for %s", code)
	}
	return rate, nil
}
