package guide

import (
	"compress/gzip"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/brotli"
)

// Price is one scraped price-guide row.
type Price struct {
	Name   string
	Market float64
}

// Scraper pulls market prices from the public price-guide pages. It is a
// fallback for sets without API pricing; the catalog client remains the
// primary source.
type Scraper struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// NewScraper builds a guide scraper.
func NewScraper() *Scraper {
	return &Scraper{
		baseURL: "https://www.tcgplayer.com/categories/trading-and-collectible-card-games/sorcery-contested-realm/price-guides",
		client:  &http.Client{Timeout: 30 * time.Second},
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// SetBaseURL overrides the guide endpoint (tests).
func (s *Scraper) SetBaseURL(u string) {
	s.baseURL = strings.TrimRight(u, "/")
}

// FetchSetPrices scrapes the guide page for one set.
func (s *Scraper) FetchSetPrices(setSlug string) ([]Price, error) {
	req, err := http.NewRequest(http.MethodGet, s.baseURL+"/"+setSlug, nil)
	if err != nil {
		return nil, err
	}
	s.setBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching guide page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guide page returned status %d", resp.StatusCode)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, err
	}
	return parseGuideTable(reader)
}

// Guide pages refuse requests that don't look like a browser.
func (s *Scraper) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip, br")
	req.Header.Set("Referer", "https://www.google.com/")
}

func decodeBody(resp *http.Response) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(resp.Body)
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

// parseGuideTable extracts (name, market price) pairs from the guide's
// price table rows.
func parseGuideTable(r io.Reader) ([]Price, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing guide page: %w", err)
	}

	var prices []Price
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		name := strings.TrimSpace(row.Find("td.product-name, td:first-child").First().Text())
		priceText := strings.TrimSpace(row.Find("td.market-price, td:last-child").First().Text())
		if name == "" || priceText == "" {
			return
		}
		if v, ok := parseDollar(priceText); ok {
			prices = append(prices, Price{Name: name, Market: v})
		}
	})
	return prices, nil
}

func parseDollar(s string) (float64, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, false
	}
	return v, true
}
