package currency

import (
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestToUSD_USDShortCircuit(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewConverter()
	c.SetBaseURL(srv.URL)

	if got := c.ToUSD(10.0, "USD"); got != 10.0 {
		t.Errorf("ToUSD(10, USD) = %v, want 10", got)
	}
	if got := c.ToUSD(10.0, "usd"); got != 10.0 {
		t.Errorf("ToUSD(10, usd) = %v, want 10", got)
	}
	if calls != 0 {
		t.Errorf("USD conversion must not hit the network, saw %d calls", calls)
	}
}

func TestToUSD_RateCached(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/EUR" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		fmt.Fprint(w, `{"rates":{"USD":1.10}}`)
	}))
	defer srv.Close()

	c := NewConverter()
	c.SetBaseURL(srv.URL)

	if got := c.ToUSD(10.0, "EUR"); math.Abs(got-11.0) > 1e-9 {
		t.Errorf("ToUSD(10, EUR) = %v, want 11.0", got)
	}
	// Lowercase code hits the same uppercased cache entry.
	c.ToUSD(5.0, "eur")
	if calls != 1 {
		t.Errorf("rate must be fetched once per code, saw %d calls", calls)
	}
}

func TestToUSD_FallbackOnFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewConverter()
	c.SetBaseURL(srv.URL)

	// Lookup failure degrades to 1.0, not an error.
	if got := c.ToUSD(10.0, "EUR"); got != 10.0 {
		t.Errorf("failed lookup must fall back to 1.0 multiplier, got %v", got)
	}
}

func TestToUSD_FallbackNotCached(t *testing.T) {
	fail := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "nope", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"rates":{"USD":1.25}}`)
	}))
	defer srv.Close()

	c := NewConverter()
	c.SetBaseURL(srv.URL)

	if got := c.ToUSD(10.0, "GBP"); got != 10.0 {
		t.Fatalf("failed lookup must fall back to 1.0, got %v", got)
	}

	// The source recovers; the next conversion picks up the real rate.
	fail = false
	if got := c.ToUSD(10.0, "GBP"); math.Abs(got-12.5) > 1e-9 {
		t.Errorf("recovered lookup must use the fetched rate, got %v", got)
	}
}

func TestToUSD_MissingUSDRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rates":{"GBP":0.8}}`)
	}))
	defer srv.Close()

	c := NewConverter()
	c.SetBaseURL(srv.URL)

	if got := c.ToUSD(7.5, "CAD"); got != 7.5 {
		t.Errorf("missing USD rate must fall back to 1.0, got %v", got)
	}
}
