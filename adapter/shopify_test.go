package adapter

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/aluiziolira/go-bookfinder/models"
	"github.com/jarcoal/httpmock"
)

func shopifyDescriptor() models.SourceDescriptor {
	return models.SourceDescriptor{
		Name:      "worldofbooks",
		BaseURL:   "http://wob.test",
		SearchURL: "http://wob.test/search/suggest.json?q={query}",
		Enabled:   true,
	}
}

func TestShopifySearch(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://wob.test/search/suggest.json",
		httpmock.NewStringResponder(200, `{
			"resources": {"results": {"products": [
				{"title": "Dune", "vendor": "Frank Herbert", "url": "/products/dune?pr_prod_strat=abc", "price": "4.20"},
				{"title": "Dune Messiah", "vendor": "Frank Herbert", "url": "http://wob.test/products/dune-messiah", "price": "0.00", "price_max": "5.10"},
				{"title": "", "price": "1.00"},
				{"title": "Sold Out", "price": "0.00"}
			]}}
		}`))

	adapter := NewShopify(shopifyDescriptor(), models.ConditionGood, testOptions(transport))

	listings, err := adapter.Search(context.Background(), Query{Term: "dune"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("got %d listings, want 2", len(listings))
	}

	first := listings[0]
	if first.Title != "Dune" {
		t.Errorf("Title = %q, want Dune", first.Title)
	}
	if first.Author != "Frank Herbert" {
		t.Errorf("Author = %q, want Frank Herbert", first.Author)
	}
	if first.Price != 4.20 {
		t.Errorf("Price = %v, want 4.20", first.Price)
	}
	if first.URL != "http://wob.test/products/dune" {
		t.Errorf("URL = %q, want tracking params stripped and base prefixed", first.URL)
	}
	if first.Condition != models.ConditionGood {
		t.Errorf("Condition = %q, want good", first.Condition)
	}
	if !first.GuessedCurrency {
		t.Error("GuessedCurrency = false, want true")
	}

	if listings[1].Price != 5.10 {
		t.Errorf("second Price = %v, want price_max fallback 5.10", listings[1].Price)
	}
}

func TestShopifySearchErrors(t *testing.T) {
	t.Run("blocked status", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", "http://wob.test/search/suggest.json",
			httpmock.NewStringResponder(http.StatusTooManyRequests, ""))

		adapter := NewShopify(shopifyDescriptor(), models.ConditionGood, testOptions(transport))
		_, err := adapter.Search(context.Background(), Query{Term: "dune"})
		var blocked ErrBlocked
		if !errors.As(err, &blocked) {
			t.Fatalf("search error = %v, want blocked", err)
		}
	})

	t.Run("malformed json", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder("GET", "http://wob.test/search/suggest.json",
			httpmock.NewStringResponder(200, "<html>not json</html>"))

		adapter := NewShopify(shopifyDescriptor(), models.ConditionGood, testOptions(transport))
		_, err := adapter.Search(context.Background(), Query{Term: "dune"})
		var parse ErrParse
		if !errors.As(err, &parse) {
			t.Fatalf("search error = %v, want parse error", err)
		}
	})
}
