package search

import (
	"context"
	"testing"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
)

func TestCacheKeyNormalization(t *testing.T) {
	min := 5.0
	base := models.SearchRequest{Query: "Dune", Sources: []string{"beta", "Alpha"}, MinPrice: &min}

	tests := []struct {
		name string
		req  models.SearchRequest
		same bool
	}{
		{
			name: "case and source order are irrelevant",
			req:  models.SearchRequest{Query: "dune", Sources: []string{" alpha", "BETA"}, MinPrice: &min},
			same: true,
		},
		{
			name: "different query",
			req:  models.SearchRequest{Query: "hyperion", Sources: []string{"beta", "Alpha"}, MinPrice: &min},
			same: false,
		},
		{
			name: "different bounds",
			req:  models.SearchRequest{Query: "Dune", Sources: []string{"beta", "Alpha"}},
			same: false,
		},
		{
			name: "different source set",
			req:  models.SearchRequest{Query: "Dune", Sources: []string{"alpha"}, MinPrice: &min},
			same: false,
		},
	}

	baseKey := Key(base)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.req) == baseKey; got != tt.same {
				t.Errorf("Key(%+v) == Key(base) = %v, want %v", tt.req, got, tt.same)
			}
		})
	}
}

func TestCachedSearchHit(t *testing.T) {
	a := &stubAdapter{name: "alpha", listings: []*models.Listing{
		mkListing("alpha", "http://alpha.test/1", 4.00),
	}}
	engine := newTestEngine(nil, testConfig(), a)

	req := models.SearchRequest{Query: "dune"}
	first, hit, err := engine.CachedSearch(context.Background(), req)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if hit {
		t.Fatal("first search reported a cache hit")
	}

	// Swap the stub's answer: a hit must serve the remembered result
	// without re-invoking the adapter.
	a.listings = []*models.Listing{mkListing("alpha", "http://alpha.test/2", 9.00)}

	second, hit, err := engine.CachedSearch(context.Background(), req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !hit {
		t.Fatal("identical request within the window should hit the cache")
	}
	if second != first {
		t.Error("cache hit returned a different result value")
	}
	if second.Listings[0].URL != "http://alpha.test/1" {
		t.Errorf("cache hit re-ran the adapter: got %s", second.Listings[0].URL)
	}
}

func TestCachedSearchExpiry(t *testing.T) {
	a := &stubAdapter{name: "alpha", listings: []*models.Listing{
		mkListing("alpha", "http://alpha.test/1", 4.00),
	}}
	cfg := testConfig()
	cfg.CacheTTL = 50 * time.Millisecond
	engine := newTestEngine(nil, cfg, a)

	req := models.SearchRequest{Query: "dune"}
	if _, _, err := engine.CachedSearch(context.Background(), req); err != nil {
		t.Fatalf("first search: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	_, hit, err := engine.CachedSearch(context.Background(), req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if hit {
		t.Fatal("expired entry served as a hit")
	}
}

func TestCachedSearchOfflineBypasses(t *testing.T) {
	store := &fakeStore{queryRes: []models.PriceHistoryRecord{
		{Listing: *mkListing("alpha", "http://alpha.test/1", 4.00)},
	}}
	engine := newTestEngine(store, testConfig(), &stubAdapter{name: "alpha"})

	req := models.SearchRequest{Query: "dune", Offline: true}
	for i := 0; i < 2; i++ {
		_, hit, err := engine.CachedSearch(context.Background(), req)
		if err != nil {
			t.Fatalf("offline search %d: %v", i, err)
		}
		if hit {
			t.Fatal("offline searches must never hit the cache")
		}
	}
}
