package models

import "time"

// SearchRequest describes one search invocation. Either Query or ISBN is
// set, never both. A request is immutable after construction.
type SearchRequest struct {
	Query         string   `json:"query,omitempty"`
	ISBN          string   `json:"isbn,omitempty"`
	MaxPerSource  int      `json:"max_per_source"`
	MinPrice      *float64 `json:"min_price,omitempty"`
	MaxPrice      *float64 `json:"max_price,omitempty"`
	Sources       []string `json:"sources,omitempty"`
	Offline       bool     `json:"offline,omitempty"`
	NoSave        bool     `json:"no_save,omitempty"`
}

// Term is the text the adapters should search for: the ISBN when present,
// the free-text query otherwise.
func (r *SearchRequest) Term() string {
	if r.ISBN != "" {
		return r.ISBN
	}
	return r.Query
}

// SourceState classifies the outcome of one adapter within a search.
type SourceState string

const (
	SourceOK       SourceState = "ok"
	SourceFailed   SourceState = "failed"
	SourceTimedOut SourceState = "timed_out"
	SourceSkipped  SourceState = "skipped"
)

// SourceStatus records how one adapter fared, with the failure reason when
// it did not succeed.
type SourceStatus struct {
	State  SourceState `json:"state"`
	Reason string      `json:"reason,omitempty"`
	Count  int         `json:"count"`
}

// SearchResult is the merged, deduplicated, price-sorted outcome of one
// search together with the per-source status map. Immutable once produced.
type SearchResult struct {
	Listings []*Listing              `json:"listings"`
	Statuses map[string]SourceStatus `json:"statuses"`
	Warnings []string                `json:"warnings,omitempty"`
	Elapsed  time.Duration           `json:"elapsed"`
}

// SourceDescriptor is the static configuration of one adapter.
type SourceDescriptor struct {
	Name            string `json:"name" toml:"name"`
	BaseURL         string `json:"base_url" toml:"base_url"`
	SearchURL       string `json:"search_url_template" toml:"search_url_template"`
	RequiresBrowser bool   `json:"requires_browser" toml:"requires_browser"`
	Locale          string `json:"locale,omitempty" toml:"locale"`
	Enabled         bool   `json:"enabled" toml:"enabled"`
}

// SourceInfo pairs a descriptor with the result of a reachability probe.
type SourceInfo struct {
	Descriptor SourceDescriptor `json:"descriptor"`
	Reachable  bool             `json:"reachable"`
	ProbeError string           `json:"probe_error,omitempty"`
}

// WishlistEntry is a book the user wants, with the price at which they want
// to be alerted. Owned by the price history store.
type WishlistEntry struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	ISBN      string    `json:"isbn,omitempty"`
	MaxPrice  float64   `json:"max_price"`
	CreatedAt time.Time `json:"created_at"`
}

// PriceHistoryRecord is a persisted listing tagged with the query it was
// observed under. Records are append-only.
type PriceHistoryRecord struct {
	ID           int64   `json:"id"`
	Listing      Listing `json:"listing"`
	QueryContext string  `json:"query_context"`
}

// HistoryFilter narrows a price history query. Zero-value fields are
// ignored.
type HistoryFilter struct {
	Title    string   `json:"title,omitempty"`
	ISBN     string   `json:"isbn,omitempty"`
	MinPrice *float64 `json:"min_price,omitempty"`
	MaxPrice *float64 `json:"max_price,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// AlertEvent signals that a listing satisfies a wishlist entry's price
// target.
type AlertEvent struct {
	Entry   WishlistEntry `json:"entry"`
	Listing *Listing      `json:"listing"`
}
