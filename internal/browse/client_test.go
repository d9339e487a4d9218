package browse

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/guarzo/sorcledger/internal/ratelimit"
)

type fakeTokens struct{}

func (fakeTokens) Token(bool) (string, error) { return "tok", nil }

func newTestClient(srvURL string) *Client {
	c := NewClient(fakeTokens{}, ratelimit.NewGate(time.Microsecond))
	c.SetBaseURL(srvURL)
	c.sleep = func(time.Duration) {}
	return c
}

func TestSearchSold_FilterAndSort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("filter") != "itemSoldOutcome:{SOLD}" {
			t.Errorf("filter = %q", q.Get("filter"))
		}
		if q.Get("sort") != "-endDate" {
			t.Errorf("sort = %q", q.Get("sort"))
		}
		if q.Get("limit") != "200" {
			t.Errorf("limit = %q", q.Get("limit"))
		}
		fmt.Fprint(w, `{"total":1,"itemSummaries":[
			{"itemId":"v1|1|0","title":"Philosopher's Stone Alpha",
			 "price":{"value":"12.50","currency":"USD"},
			 "categories":[{"categoryName":"CCG Individual Cards"}]}
		]}`)
	}))
	defer srv.Close()

	items, err := newTestClient(srv.URL).SearchSold(context.Background(), "Sorcery Philosopher's Stone")
	if err != nil {
		t.Fatalf("SearchSold: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items", len(items))
	}
	if items[0].Price != 12.50 || items[0].Currency != "USD" {
		t.Errorf("item = %+v", items[0])
	}
	if len(items[0].CategoryPath) != 1 || items[0].CategoryPath[0] != "CCG Individual Cards" {
		t.Errorf("category path = %v", items[0].CategoryPath)
	}
}

func TestSearchCurrent_Pagination(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		offsets = append(offsets, r.URL.Query().Get("offset"))
		fmt.Fprintf(w, `{"total":350,"itemSummaries":[{"itemId":"x","title":"t","price":{"value":"1.00","currency":"USD"}}]}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).SearchCurrent(context.Background(), "q"); err != nil {
		t.Fatalf("SearchCurrent: %v", err)
	}
	if len(offsets) != 2 || offsets[0] != "0" || offsets[1] != "200" {
		t.Errorf("offsets = %v, want [0 200]", offsets)
	}
}

func TestGetJSON_RetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.Header().Set("X-RateLimit-Reset", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"total":0}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	if _, err := c.SearchCurrent(context.Background(), "q"); err != nil {
		t.Fatalf("expected recovery after 429s, got %v", err)
	}
	if calls != 3 {
		t.Errorf("saw %d calls, want 3", calls)
	}
	// Backoff doubles and honors the larger of hint and schedule.
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("slept = %v", slept)
	}
}

func TestGetJSON_RetriesOn5xx(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"total":0}`)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).SearchCurrent(context.Background(), "q"); err != nil {
		t.Fatalf("expected recovery after 502, got %v", err)
	}
	if calls != 2 {
		t.Errorf("saw %d calls, want 2", calls)
	}
}

func TestGetJSON_GivesUpAfterMaxRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).SearchCurrent(context.Background(), "q"); err == nil {
		t.Fatal("persistent 429 must eventually fail")
	}
}

func TestSearchPage_UnparseablePriceDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"total":3,"itemSummaries":[
			{"itemId":"a","title":"good","price":{"value":"3.00","currency":"USD"}},
			{"itemId":"b","title":"bad","price":{"value":"N/A","currency":"USD"}},
			{"itemId":"c","title":"grouped","price":{"value":"1,234.56","currency":"USD"}}
		]}`)
	}))
	defer srv.Close()

	items, err := newTestClient(srv.URL).SearchCurrent(context.Background(), "q")
	if err != nil {
		t.Fatalf("SearchCurrent: %v", err)
	}
	// "1,234.56" must be dropped whole, not prefix-parsed as 1.
	if len(items) != 1 || items[0].ItemID != "a" {
		t.Errorf("items = %+v, want only the parseable one", items)
	}
}
