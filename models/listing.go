// Package models defines the data structures shared by the search engine,
// the source adapters, and the price history store.
package models

import (
	"fmt"
	"strings"
	"time"
)

// Condition describes the physical state of an offered book.
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionLikeNew    Condition = "like_new"
	ConditionVeryGood   Condition = "very_good"
	ConditionGood       Condition = "good"
	ConditionAcceptable Condition = "acceptable"
	ConditionUnknown    Condition = "unknown"
)

// ParseCondition maps free-form condition text onto the enum.
func ParseCondition(text string) Condition {
	switch normalized := strings.ToLower(strings.TrimSpace(text)); {
	case normalized == "":
		return ConditionUnknown
	case strings.Contains(normalized, "like new"), strings.Contains(normalized, "likenew"):
		return ConditionLikeNew
	case strings.Contains(normalized, "very good"), strings.Contains(normalized, "verygood"):
		return ConditionVeryGood
	case strings.Contains(normalized, "acceptable"):
		return ConditionAcceptable
	case strings.Contains(normalized, "good"):
		return ConditionGood
	case strings.Contains(normalized, "new") && !strings.Contains(normalized, "used"):
		return ConditionNew
	case strings.Contains(normalized, "used"):
		return ConditionGood
	default:
		return ConditionUnknown
	}
}

// Listing is one normalized offer for a book from one source.
type Listing struct {
	Source          string    `json:"source"`
	Title           string    `json:"title"`
	Author          string    `json:"author,omitempty"`
	ISBN            string    `json:"isbn,omitempty"`
	Price           float64   `json:"price"`
	Shipping        float64   `json:"shipping"`
	Currency        string    `json:"currency"`
	Condition       Condition `json:"condition"`
	URL             string    `json:"url"`
	FetchedAt       time.Time `json:"fetched_at"`
	GuessedCurrency bool      `json:"guessed_currency,omitempty"`
}

// TotalPrice is the price including shipping. It is derived on read so the
// two components can never drift apart.
func (l *Listing) TotalPrice() float64 {
	return l.Price + l.Shipping
}

// Key uniquely identifies a listing within one search.
func (l *Listing) Key() ListingKey {
	return ListingKey{Source: l.Source, URL: l.URL}
}

// ListingKey is the dedup identity of a listing.
type ListingKey struct {
	Source string
	URL    string
}

// InvalidListingError reports a listing that failed construction validation.
type InvalidListingError struct {
	Reason string
}

func (e InvalidListingError) Error() string {
	return fmt.Sprintf("invalid listing: %s", e.Reason)
}

// Validate checks the invariants every listing must satisfy before it enters
// the merge pipeline.
func (l *Listing) Validate() error {
	if l.Source == "" {
		return InvalidListingError{Reason: "missing source"}
	}
	if strings.TrimSpace(l.Title) == "" && l.ISBN == "" {
		return InvalidListingError{Reason: "missing both title and isbn"}
	}
	if l.Price < 0 {
		return InvalidListingError{Reason: fmt.Sprintf("negative price %.2f", l.Price)}
	}
	if l.Shipping < 0 {
		return InvalidListingError{Reason: fmt.Sprintf("negative shipping %.2f", l.Shipping)}
	}
	if len(l.Currency) != 3 {
		return InvalidListingError{Reason: fmt.Sprintf("currency %q is not a 3-letter code", l.Currency)}
	}
	return nil
}

// NearDuplicate reports whether two listings describe the same edition even
// though they come from different URLs. It is exposed for cross-source
// grouping in presentation layers and is not used for engine dedup.
func NearDuplicate(a, b *Listing) bool {
	if a.ISBN != "" && b.ISBN != "" {
		return a.ISBN == b.ISBN
	}
	return foldText(a.Title) == foldText(b.Title) && foldText(a.Author) == foldText(b.Author)
}

func foldText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
