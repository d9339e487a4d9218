package catalog

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type staticTokens struct {
	token    string
	refreshN int
}

func (s *staticTokens) Token(forceRefresh bool) (string, error) {
	if forceRefresh {
		s.refreshN++
	}
	return s.token, nil
}

func TestGroupPricing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pricing/group/3100" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("productTypeID"); got != "128" {
			t.Errorf("productTypeID = %q, want 128", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header %q", got)
		}
		fmt.Fprint(w, `{"success":true,"results":[
			{"productId":1,"lowPrice":1.5,"midPrice":2.5,"highPrice":null,"marketPrice":2.0,"subTypeName":"Normal"},
			{"productId":1,"lowPrice":null,"midPrice":null,"highPrice":null,"marketPrice":null,"subTypeName":"Foil"}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{token: "tok"}, nil)
	c.SetBaseURL(srv.URL)

	points, err := c.GroupPricing(3100, 128)
	if err != nil {
		t.Fatalf("GroupPricing: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2", len(points))
	}
	if points[0].High != nil {
		t.Error("null highPrice must stay nil")
	}
	if points[0].Mid == nil || *points[0].Mid != 2.5 {
		t.Errorf("mid = %v", points[0].Mid)
	}
	if points[1].SubTypeName != "Foil" {
		t.Errorf("subType = %q", points[1].SubTypeName)
	}
}

func TestGroupPricing_Unsuccessful(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":false,"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{token: "tok"}, nil)
	c.SetBaseURL(srv.URL)

	if _, err := c.GroupPricing(1, 128); err == nil {
		t.Fatal("unsuccessful response must error")
	}
}

func TestProductDetails_RarityNormalized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"success":true,"results":[
			{"productId":7,"name":"Philosopher's Stone","cleanName":"Philosophers Stone",
			 "extendedData":[{"name":"Rarity","value":"unique"},{"name":"Number","value":"12"}]}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{token: "tok"}, map[string]string{"unique": "Unique"})
	c.SetBaseURL(srv.URL)

	info, err := c.ProductDetails([]int{7})
	if err != nil {
		t.Fatalf("ProductDetails: %v", err)
	}
	p, ok := info[7]
	if !ok {
		t.Fatal("product 7 missing")
	}
	if p.Rarity != "Unique" {
		t.Errorf("rarity = %q, want normalized Unique", p.Rarity)
	}
	if p.Name != "Philosopher's Stone" {
		t.Errorf("name = %q", p.Name)
	}
}

func TestProductDetails_Batching(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		fmt.Fprint(w, `{"success":true,"results":[]}`)
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{token: "tok"}, nil)
	c.SetBaseURL(srv.URL)

	ids := make([]int, 250)
	for i := range ids {
		ids[i] = i + 1
	}
	if _, err := c.ProductDetails(ids); err != nil {
		t.Fatalf("ProductDetails: %v", err)
	}
	if calls != 3 {
		t.Errorf("250 ids must take 3 batched calls, saw %d", calls)
	}
}

func TestTokenProvider_CacheRoundTrip(t *testing.T) {
	var tokenCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenCalls++
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("grant_type = %q", r.Form.Get("grant_type"))
		}
		fmt.Fprint(w, `{"access_token":"fresh","expires_in":86400}`)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "token.json")
	p := NewTokenProvider("pub", "priv", cachePath)
	p.tokenURL = srv.URL

	tok, err := p.Token(false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "fresh" {
		t.Errorf("token = %q", tok)
	}

	// Second call is served from the cache file.
	if _, err := p.Token(false); err != nil {
		t.Fatal(err)
	}
	if tokenCalls != 1 {
		t.Errorf("token endpoint hit %d times, want 1", tokenCalls)
	}

	// Force refresh bypasses the cache.
	if _, err := p.Token(true); err != nil {
		t.Fatal(err)
	}
	if tokenCalls != 2 {
		t.Errorf("force refresh must hit the endpoint, saw %d calls", tokenCalls)
	}
}

func TestTokenProvider_ExpiredCacheRefreshes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"access_token":"renewed","expires_in":3600}`)
	}))
	defer srv.Close()

	cachePath := filepath.Join(t.TempDir(), "token.json")
	stale, _ := json.Marshal(cachedToken{
		AccessToken: "stale",
		ExpiresAt:   time.Now().Add(time.Minute), // inside the 5-minute margin
	})
	if err := os.WriteFile(cachePath, stale, 0600); err != nil {
		t.Fatal(err)
	}

	p := NewTokenProvider("pub", "priv", cachePath)
	p.tokenURL = srv.URL

	tok, err := p.Token(false)
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "renewed" {
		t.Errorf("near-expiry token must be refreshed, got %q", tok)
	}
}

func TestProductStore_EnsureProductInfo(t *testing.T) {
	var detailCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		detailCalls++
		fmt.Fprint(w, `{"success":true,"results":[
			{"productId":1,"name":"Amulet of Niniane","extendedData":[{"name":"Rarity","value":"Elite"}]}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(&staticTokens{token: "tok"}, nil)
	c.SetBaseURL(srv.URL)
	store := NewProductStore(t.TempDir(), c)

	m, err := store.EnsureProductInfo("Arthurian Legends", []int{1})
	if err != nil {
		t.Fatalf("EnsureProductInfo: %v", err)
	}
	if m[1].Name != "Amulet of Niniane" {
		t.Errorf("info = %+v", m[1])
	}

	// Second run loads the per-set file instead of refetching.
	if _, err := store.EnsureProductInfo("Arthurian Legends", []int{1}); err != nil {
		t.Fatal(err)
	}
	if detailCalls != 1 {
		t.Errorf("detail endpoint hit %d times, want 1", detailCalls)
	}

	if _, err := os.Stat(store.path("Arthurian Legends")); err != nil {
		t.Errorf("per-set file missing: %v", err)
	}
}
