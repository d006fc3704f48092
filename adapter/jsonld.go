package adapter

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"
)

// ldProduct is a tolerant decoding of a Schema.org Product or Book node.
// Real-world payloads are messy: single objects or arrays, numbers as
// strings, authors as strings, objects, or lists of either.
type ldProduct struct {
	Type    json.RawMessage `json:"@type"`
	Graph   []ldProduct     `json:"@graph"`
	Name    string          `json:"name"`
	Author  json.RawMessage `json:"author"`
	ISBN    string          `json:"isbn"`
	Offers  json.RawMessage `json:"offers"`
}

type ldOffer struct {
	Price         json.RawMessage `json:"price"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
	URL           string          `json:"url"`
	ItemCondition string          `json:"itemCondition"`
}

// decodeJSONLD parses one ld+json script payload into products, tolerating
// top-level arrays and @graph wrappers. A payload that is not JSON at all
// yields nil; the caller decides whether that is fatal.
func decodeJSONLD(payload []byte) []ldProduct {
	trimmed := strings.TrimSpace(string(payload))
	if trimmed == "" {
		return nil
	}

	var nodes []ldProduct
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &nodes); err != nil {
			return nil
		}
	} else {
		var node ldProduct
		if err := json.Unmarshal([]byte(trimmed), &node); err != nil {
			return nil
		}
		nodes = []ldProduct{node}
	}

	var products []ldProduct
	for _, node := range nodes {
		if len(node.Graph) > 0 {
			for _, inner := range node.Graph {
				if inner.isProduct() {
					products = append(products, inner)
				}
			}
			continue
		}
		if node.isProduct() {
			products = append(products, node)
		}
	}
	return products
}

func (p *ldProduct) isProduct() bool {
	for _, t := range rawStrings(p.Type) {
		if t == "Product" || t == "Book" {
			return true
		}
	}
	return false
}

// listings maps a product's offers onto normalized listings. Malformed
// offers are skipped, never propagated.
func (p *ldProduct) listings(source, pageURL, defaultCurrency, locale string, now time.Time) []*models.Listing {
	var out []*models.Listing
	for _, offer := range p.offers() {
		price, ok := rawPrice(offer.Price, locale)
		if !ok {
			price, ok = rawPrice(offer.LowPrice, locale)
		}
		if !ok {
			continue
		}

		currency := strings.ToUpper(strings.TrimSpace(offer.PriceCurrency))
		guessed := false
		if len(currency) != 3 {
			currency = defaultCurrency
			guessed = true
		}

		url := offer.URL
		if url == "" {
			url = pageURL
		}

		listing := &models.Listing{
			Source:          source,
			Title:           models.NormalizeText(p.Name),
			Author:          p.authorName(),
			ISBN:            models.NormalizeISBN(p.ISBN),
			Price:           price,
			Currency:        currency,
			Condition:       models.ParseCondition(offer.ItemCondition),
			URL:             url,
			FetchedAt:       now,
			GuessedCurrency: guessed,
		}
		if err := listing.Validate(); err != nil {
			continue
		}
		out = append(out, listing)
	}
	return out
}

func (p *ldProduct) offers() []ldOffer {
	trimmed := strings.TrimSpace(string(p.Offers))
	if trimmed == "" {
		return nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var offers []ldOffer
		if err := json.Unmarshal([]byte(trimmed), &offers); err != nil {
			return nil
		}
		return offers
	}
	var offer ldOffer
	if err := json.Unmarshal([]byte(trimmed), &offer); err != nil {
		return nil
	}
	return []ldOffer{offer}
}

func (p *ldProduct) authorName() string {
	names := authorNames(p.Author)
	return models.NormalizeText(strings.Join(names, ", "))
}

func authorNames(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return []string{s}
		}
	case '{':
		var obj struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &obj) == nil && obj.Name != "" {
			return []string{obj.Name}
		}
	case '[':
		var items []json.RawMessage
		if json.Unmarshal(raw, &items) != nil {
			return nil
		}
		var names []string
		for _, item := range items {
			names = append(names, authorNames(item)...)
		}
		return names
	}
	return nil
}

// rawStrings decodes a JSON value that may be a string or array of strings.
func rawStrings(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}
	if trimmed[0] == '[' {
		var list []string
		if json.Unmarshal(raw, &list) == nil {
			return list
		}
		return nil
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return []string{s}
	}
	return nil
}

// rawPrice decodes a JSON price that may be a number or a string.
func rawPrice(raw json.RawMessage, locale string) (float64, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return 0, false
	}
	var num float64
	if json.Unmarshal(raw, &num) == nil {
		if num < 0 {
			return 0, false
		}
		return num, true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		amount, _, err := models.ParsePrice(s, locale)
		if err != nil {
			return 0, false
		}
		return amount, true
	}
	return 0, false
}
