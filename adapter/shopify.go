package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
)

// Shopify queries a Shopify storefront's search suggest API, which returns
// structured product JSON and is far more stable than scraping the HTML.
// World of Books is the shipped instance; any Shopify-backed bookshop works
// with just a descriptor.
type Shopify struct {
	desc      models.SourceDescriptor
	client    *http.Client
	condition models.Condition
	opts      Options
}

// NewShopify builds a suggest-API adapter. condition is the blanket
// condition the shop sells under (World of Books is all used stock).
func NewShopify(desc models.SourceDescriptor, condition models.Condition, opts Options) *Shopify {
	client := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}
	return &Shopify{desc: desc, client: client, condition: condition, opts: opts}
}

// WorldOfBooks is the built-in Shopify storefront adapter.
func WorldOfBooks(opts Options) *Shopify {
	return NewShopify(models.SourceDescriptor{
		Name:      "World of Books",
		BaseURL:   "https://www.worldofbooks.com",
		SearchURL: "https://www.worldofbooks.com/search/suggest.json?q={query}",
		Enabled:   true,
	}, models.ConditionGood, opts)
}

func (s *Shopify) Name() string { return s.desc.Name }

func (s *Shopify) Descriptor() models.SourceDescriptor { return s.desc }

func (s *Shopify) Probe(ctx context.Context) error {
	return probeURL(ctx, s.desc.BaseURL, s.opts)
}

type suggestResponse struct {
	Resources struct {
		Results struct {
			Products []suggestProduct `json:"products"`
		} `json:"results"`
	} `json:"resources"`
}

type suggestProduct struct {
	Title    string          `json:"title"`
	Vendor   string          `json:"vendor"`
	URL      string          `json:"url"`
	Price    json.RawMessage `json:"price"`
	PriceMin json.RawMessage `json:"price_min"`
	PriceMax json.RawMessage `json:"price_max"`
}

func (s *Shopify) Search(ctx context.Context, q Query) ([]*models.Listing, error) {
	suggestURL := strings.ReplaceAll(s.desc.SearchURL, "{query}", url.QueryEscape(q.Term))
	if q.Limit > 0 {
		suggestURL += "&resources[type]=product&resources[limit]=" + strconv.Itoa(q.Limit)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, suggestURL, nil)
	if err != nil {
		return nil, ErrUnreachable{Err: err}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Classify(err, 0)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, Classify(nil, resp.StatusCode)
	}

	var payload suggestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, ErrParse{Err: fmt.Errorf("decode suggest response: %w", err)}
	}

	now := time.Now()
	var listings []*models.Listing
	for _, product := range payload.Resources.Results.Products {
		if product.Title == "" {
			continue
		}

		price, ok := rawPrice(product.Price, s.desc.Locale)
		if !ok || price <= 0 {
			price, ok = rawPrice(product.PriceMax, s.desc.Locale)
		}
		if !ok || price <= 0 {
			price, ok = rawPrice(product.PriceMin, s.desc.Locale)
		}
		if !ok || price <= 0 {
			continue
		}

		productURL := product.URL
		// Shopify appends tracking params to suggest links.
		if i := strings.IndexAny(productURL, "?#"); i >= 0 {
			productURL = productURL[:i]
		}
		if productURL != "" && !strings.HasPrefix(productURL, "http") {
			productURL = s.desc.BaseURL + productURL
		}

		// The suggest API carries no currency; the storefront's configured
		// default applies.
		listings = append(listings, &models.Listing{
			Source:          s.desc.Name,
			Title:           models.NormalizeText(product.Title),
			Author:          models.NormalizeText(product.Vendor), // vendor holds the author on book shops
			Price:           price,
			Currency:        s.opts.DefaultCurrency,
			Condition:       s.condition,
			URL:             productURL,
			FetchedAt:       now,
			GuessedCurrency: true,
		})
	}
	return listings, nil
}
