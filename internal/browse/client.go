package browse

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/guarzo/sorcledger/internal/model"
	"github.com/guarzo/sorcledger/internal/ratelimit"
)

const (
	pageLimit  = 200   // per-page maximum the search endpoint accepts
	resultCap  = 10000 // deepest offset the search endpoint allows
	maxRetries = 5
)

type tokenSource interface {
	Token(forceRefresh bool) (string, error)
}

// Client runs marketplace item searches. Every outbound request passes
// through the minimum-delay gate; 429 responses back off exponentially,
// honoring the server reset hint when one is present.
type Client struct {
	baseURL string
	tokens  tokenSource
	client  *http.Client
	gate    *ratelimit.Gate
	backoff *ratelimit.Backoff

	sleep func(time.Duration) // swapped out in tests
	now   func() time.Time
}

// NewClient builds a search client with the given request gate.
func NewClient(tokens tokenSource, gate *ratelimit.Gate) *Client {
	return &Client{
		baseURL: "https://api.ebay.com/buy/browse/v1",
		tokens:  tokens,
		client:  &http.Client{Timeout: 30 * time.Second},
		gate:    gate,
		backoff: ratelimit.NewBackoff(time.Second, 60*time.Second),
		sleep:   time.Sleep,
		now:     time.Now,
	}
}

// SetBaseURL overrides the API endpoint (tests).
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

// SearchSold fetches completed-sale listings for a query, newest first.
func (c *Client) SearchSold(ctx context.Context, query string) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("filter", "itemSoldOutcome:{SOLD}")
	params.Set("sort", "-endDate")
	return c.searchAll(ctx, params)
}

// SearchCurrent fetches active listings for a query.
func (c *Client) SearchCurrent(ctx context.Context, query string) ([]model.Listing, error) {
	params := url.Values{}
	params.Set("q", query)
	return c.searchAll(ctx, params)
}

// searchAll pages through results until the response runs dry or the
// offset cap is reached.
func (c *Client) searchAll(ctx context.Context, params url.Values) ([]model.Listing, error) {
	var all []model.Listing
	for offset := 0; offset < resultCap; offset += pageLimit {
		params.Set("limit", fmt.Sprintf("%d", pageLimit))
		params.Set("offset", fmt.Sprintf("%d", offset))

		page, total, err := c.searchPage(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if offset+pageLimit >= total || len(page) == 0 {
			break
		}
	}
	return all, nil
}

func (c *Client) searchPage(ctx context.Context, params url.Values) ([]model.Listing, int, error) {
	var body struct {
		Total         int `json:"total"`
		ItemSummaries []struct {
			ItemID string `json:"itemId"`
			Title  string `json:"title"`
			Price  struct {
				Value    string `json:"value"`
				Currency string `json:"currency"`
			} `json:"price"`
			Categories []struct {
				CategoryName string `json:"categoryName"`
			} `json:"categories"`
		} `json:"itemSummaries"`
	}

	u := c.baseURL + "/item_summary/search?" + params.Encode()
	if err := c.getJSON(ctx, u, &body); err != nil {
		return nil, 0, err
	}

	items := make([]model.Listing, 0, len(body.ItemSummaries))
	for _, s := range body.ItemSummaries {
		price, err := strconv.ParseFloat(s.Price.Value, 64)
		if err != nil {
			// Unparseable price drops the single observation, not the page.
			if s.Price.Value != "" {
				log.Printf("[WARN] unparseable price %q for item %s", s.Price.Value, s.ItemID)
			}
			continue
		}
		path := make([]string, 0, len(s.Categories))
		for _, cat := range s.Categories {
			path = append(path, cat.CategoryName)
		}
		items = append(items, model.Listing{
			ItemID:       s.ItemID,
			Title:        s.Title,
			Price:        price,
			Currency:     s.Price.Currency,
			CategoryPath: path,
		})
	}
	return items, body.Total, nil
}

// getJSON performs one gated request with bounded 429 retries.
func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := c.gate.Wait(ctx); err != nil {
			return err
		}

		token, err := c.tokens.Token(false)
		if err != nil {
			return fmt.Errorf("getting token: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			// Transient transport errors retry on the backoff schedule too.
			delay := c.backoff.Next()
			log.Printf("[WARN] search request failed, retrying in %s: %v", delay, err)
			c.sleep(delay)
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			resp.Body.Close()
			delay := c.backoff.Next()
			log.Printf("[WARN] search returned status %d, retrying in %s", resp.StatusCode, delay)
			c.sleep(delay)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			hint := ratelimit.ParseResetHint(resp.Header.Get("X-RateLimit-Reset"), c.now())
			resp.Body.Close()

			delay := c.backoff.Next()
			if hint > delay {
				delay = hint
			}
			log.Printf("[WARN] rate limited, retrying in %s (attempt %d/%d)",
				delay, attempt+1, maxRetries)
			c.sleep(delay)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("search returned status %d", resp.StatusCode)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("decoding search response: %w", err)
		}
		c.backoff.Reset()
		return nil
	}
	return fmt.Errorf("giving up after %d retries", maxRetries)
}
