package adapter

import (
	"testing"
	"time"
)

func TestDecodeJSONLD(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		expected int
	}{
		{
			name:     "single product",
			payload:  `{"@type":"Product","name":"Dune","offers":{"price":"9.99","priceCurrency":"USD"}}`,
			expected: 1,
		},
		{
			name:     "book type",
			payload:  `{"@type":"Book","name":"Dune"}`,
			expected: 1,
		},
		{
			name:     "type as array",
			payload:  `{"@type":["Product","IndividualProduct"],"name":"Dune"}`,
			expected: 1,
		},
		{
			name:     "top level array",
			payload:  `[{"@type":"Product","name":"A"},{"@type":"Product","name":"B"}]`,
			expected: 2,
		},
		{
			name:     "graph wrapper",
			payload:  `{"@graph":[{"@type":"WebPage"},{"@type":"Product","name":"Dune"}]}`,
			expected: 1,
		},
		{
			name:     "non product nodes skipped",
			payload:  `{"@type":"BreadcrumbList","name":"nav"}`,
			expected: 0,
		},
		{
			name:     "not json",
			payload:  `window.data = {};`,
			expected: 0,
		},
		{
			name:     "empty",
			payload:  "",
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products := decodeJSONLD([]byte(tt.payload))
			if len(products) != tt.expected {
				t.Errorf("decodeJSONLD() returned %d products, want %d", len(products), tt.expected)
			}
		})
	}
}

func TestProductListings(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("offer fields flow through", func(t *testing.T) {
		payload := `{
			"@type": "Product",
			"name": "  Dune  ",
			"author": {"@type": "Person", "name": "Frank Herbert"},
			"isbn": "0441013597",
			"offers": {
				"price": "12.50",
				"priceCurrency": "usd",
				"url": "https://example.com/dune",
				"itemCondition": "https://schema.org/UsedCondition"
			}
		}`
		products := decodeJSONLD([]byte(payload))
		if len(products) != 1 {
			t.Fatalf("decodeJSONLD() returned %d products, want 1", len(products))
		}

		listings := products[0].listings("abebooks", "https://example.com/search", "EUR", "en", now)
		if len(listings) != 1 {
			t.Fatalf("listings() returned %d listings, want 1", len(listings))
		}
		l := listings[0]
		if l.Title != "Dune" {
			t.Errorf("Title = %q, want %q", l.Title, "Dune")
		}
		if l.Author != "Frank Herbert" {
			t.Errorf("Author = %q, want %q", l.Author, "Frank Herbert")
		}
		if l.ISBN != "9780441013593" {
			t.Errorf("ISBN = %q, want converted isbn13", l.ISBN)
		}
		if l.Price != 12.50 {
			t.Errorf("Price = %v, want 12.50", l.Price)
		}
		if l.Currency != "USD" {
			t.Errorf("Currency = %q, want USD", l.Currency)
		}
		if l.GuessedCurrency {
			t.Error("GuessedCurrency = true, want false")
		}
		if l.URL != "https://example.com/dune" {
			t.Errorf("URL = %q, want offer url", l.URL)
		}
		if string(l.Condition) != "good" {
			t.Errorf("Condition = %q, want good", l.Condition)
		}
		if !l.FetchedAt.Equal(now) {
			t.Errorf("FetchedAt = %v, want %v", l.FetchedAt, now)
		}
	})

	t.Run("missing currency falls back to default and is flagged", func(t *testing.T) {
		payload := `{"@type":"Product","name":"Dune","offers":{"price":9.99}}`
		products := decodeJSONLD([]byte(payload))
		listings := products[0].listings("thriftbooks", "https://example.com/dune", "USD", "en", now)
		if len(listings) != 1 {
			t.Fatalf("listings() returned %d listings, want 1", len(listings))
		}
		if listings[0].Currency != "USD" {
			t.Errorf("Currency = %q, want USD default", listings[0].Currency)
		}
		if !listings[0].GuessedCurrency {
			t.Error("GuessedCurrency = false, want true")
		}
		if listings[0].URL != "https://example.com/dune" {
			t.Errorf("URL = %q, want page url fallback", listings[0].URL)
		}
	})

	t.Run("aggregate offer low price", func(t *testing.T) {
		payload := `{"@type":"Product","name":"Dune","offers":{"lowPrice":"4.19","priceCurrency":"USD"}}`
		products := decodeJSONLD([]byte(payload))
		listings := products[0].listings("thriftbooks", "https://example.com/dune", "USD", "en", now)
		if len(listings) != 1 || listings[0].Price != 4.19 {
			t.Fatalf("listings() = %+v, want one listing at 4.19", listings)
		}
	})

	t.Run("offers array yields one listing each", func(t *testing.T) {
		payload := `{"@type":"Product","name":"Dune","offers":[
			{"price":"5.00","priceCurrency":"USD"},
			{"price":"7.00","priceCurrency":"USD"}
		]}`
		products := decodeJSONLD([]byte(payload))
		listings := products[0].listings("abebooks", "https://example.com/dune", "USD", "en", now)
		if len(listings) != 2 {
			t.Fatalf("listings() returned %d listings, want 2", len(listings))
		}
	})

	t.Run("unpriced offers are skipped", func(t *testing.T) {
		payload := `{"@type":"Product","name":"Dune","offers":{"availability":"SoldOut"}}`
		products := decodeJSONLD([]byte(payload))
		listings := products[0].listings("abebooks", "https://example.com/dune", "USD", "en", now)
		if len(listings) != 0 {
			t.Fatalf("listings() returned %d listings, want 0", len(listings))
		}
	})
}

func TestAuthorNames(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "plain string", raw: `"Frank Herbert"`, expected: "Frank Herbert"},
		{name: "person object", raw: `{"@type":"Person","name":"Frank Herbert"}`, expected: "Frank Herbert"},
		{name: "array of objects", raw: `[{"name":"Frank Herbert"},{"name":"Brian Herbert"}]`, expected: "Frank Herbert, Brian Herbert"},
		{name: "empty", raw: ``, expected: ""},
		{name: "unusable shape", raw: `42`, expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ldProduct{Author: []byte(tt.raw)}
			if got := p.authorName(); got != tt.expected {
				t.Errorf("authorName() = %q, want %q", got, tt.expected)
			}
		})
	}
}
