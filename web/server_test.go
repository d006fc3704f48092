package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aluiziolira/go-bookfinder/adapter"
	"github.com/aluiziolira/go-bookfinder/config"
	"github.com/aluiziolira/go-bookfinder/history"
	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/aluiziolira/go-bookfinder/registry"
	"github.com/aluiziolira/go-bookfinder/search"
)

type stubAdapter struct {
	name     string
	listings []*models.Listing
}

func (s *stubAdapter) Name() string { return s.name }

func (s *stubAdapter) Descriptor() models.SourceDescriptor {
	return models.SourceDescriptor{Name: s.name, BaseURL: "http://" + s.name + ".test", SearchURL: "http://" + s.name + ".test/s?q={query}", Enabled: true}
}

func (s *stubAdapter) Probe(ctx context.Context) error { return nil }

func (s *stubAdapter) Search(ctx context.Context, q adapter.Query) ([]*models.Listing, error) {
	return s.listings, nil
}

func newTestServer(t *testing.T, listings ...*models.Listing) (*Server, *history.Store) {
	t.Helper()
	store, err := history.Open(filepath.Join(t.TempDir(), "prices.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	stub := &stubAdapter{name: "alpha", listings: listings}
	engine := search.NewEngine(registry.NewStatic(stub), store, config.DefaultConfig())
	return NewServer(engine, store), store
}

func doJSON(t *testing.T, handler http.Handler, method, target, body string, out any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s response: %v\n%s", method, target, err, rec.Body.String())
		}
	}
	return rec
}

func mkListing(url string, price float64) *models.Listing {
	return &models.Listing{
		Source:   "alpha",
		Title:    "Dune",
		Price:    price,
		Currency: "USD",
		URL:      url,
	}
}

func TestSearchEndpoint(t *testing.T) {
	server, _ := newTestServer(t, mkListing("http://alpha.test/1", 4.00), mkListing("http://alpha.test/2", 9.00))

	var resp struct {
		Listings []models.Listing `json:"listings"`
		Cached   bool             `json:"cached"`
	}
	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/search?query=dune", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if len(resp.Listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(resp.Listings))
	}
	if resp.Cached {
		t.Error("first request reported cached")
	}

	rec = doJSON(t, server.Handler(), http.MethodGet, "/api/search?query=dune", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("repeat status = %d", rec.Code)
	}
	if !resp.Cached {
		t.Error("identical repeat request should be served from cache")
	}
}

func TestSearchEndpointValidation(t *testing.T) {
	server, _ := newTestServer(t)

	tests := []struct {
		name   string
		target string
	}{
		{name: "missing query and isbn", target: "/api/search"},
		{name: "bad limit", target: "/api/search?query=dune&limit=zero"},
		{name: "negative min price", target: "/api/search?query=dune&min_price=-1"},
		{name: "unknown only source", target: "/api/search?query=dune&sources=nosuch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, server.Handler(), http.MethodGet, tt.target, "", nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSearchEndpointWishlistAlerts(t *testing.T) {
	server, store := newTestServer(t, mkListing("http://alpha.test/1", 3.00))
	if _, err := store.WishlistAdd(context.Background(), models.WishlistEntry{Title: "Dune", MaxPrice: 5.00}); err != nil {
		t.Fatalf("wishlist add: %v", err)
	}

	var resp struct {
		Alerts []models.AlertEvent `json:"alerts"`
	}
	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/search?query=dune", "", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(resp.Alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(resp.Alerts))
	}
}

func TestWishlistEndpoints(t *testing.T) {
	server, _ := newTestServer(t)
	handler := server.Handler()

	var created models.WishlistEntry
	rec := doJSON(t, handler, http.MethodPost, "/api/wishlist",
		`{"title":"Dune","author":"Frank Herbert","isbn":"0441013597","max_price":5}`, &created)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	if created.ID == 0 {
		t.Fatal("created entry has no id")
	}
	if created.ISBN != "9780441013593" {
		t.Errorf("ISBN = %q, want normalized isbn13", created.ISBN)
	}

	var entries []models.WishlistEntry
	rec = doJSON(t, handler, http.MethodGet, "/api/wishlist", "", &entries)
	if rec.Code != http.StatusOK || len(entries) != 1 {
		t.Fatalf("list status = %d, entries = %v", rec.Code, entries)
	}

	rec = doJSON(t, handler, http.MethodDelete, "/api/wishlist/1", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodDelete, "/api/wishlist/1", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/wishlist", `{"title":"","max_price":5}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty title status = %d, want 400", rec.Code)
	}
	rec = doJSON(t, handler, http.MethodPost, "/api/wishlist", `{"title":"Dune","max_price":0}`, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero target status = %d, want 400", rec.Code)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	server, store := newTestServer(t, mkListing("http://alpha.test/1", 4.00))

	// A search persists its observations; history then serves them back.
	rec := doJSON(t, server.Handler(), http.MethodGet, "/api/search?query=dune", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}

	records, err := store.Query(context.Background(), models.HistoryFilter{Title: "Dune"})
	if err != nil || len(records) != 1 {
		t.Fatalf("store state: %v records, err %v", len(records), err)
	}

	var fetched []models.PriceHistoryRecord
	rec = doJSON(t, server.Handler(), http.MethodGet, "/api/history?query=Dune", "", &fetched)
	if rec.Code != http.StatusOK {
		t.Fatalf("history status = %d", rec.Code)
	}
	if len(fetched) != 1 {
		t.Fatalf("got %d history records, want 1", len(fetched))
	}
}

func TestHealthAndMetricsEndpoints(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(t, server.Handler(), http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d", rec.Code)
	}

	rec = doJSON(t, server.Handler(), http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
}
