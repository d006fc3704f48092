// Package wishlist evaluates search results against the user's wishlist.
// Matching is a pure read-only evaluation: no entry is removed on a match,
// and one listing may trigger several entries (and vice versa).
package wishlist

import (
	"strings"

	"github.com/aluiziolira/go-bookfinder/models"
)

// Match emits an alert for every (entry, listing) pair where the listing's
// total price is at or below the entry's target. The price bound is
// inclusive.
func Match(result *models.SearchResult, entries []models.WishlistEntry) []models.AlertEvent {
	if result == nil || len(entries) == 0 {
		return nil
	}

	var alerts []models.AlertEvent
	for _, entry := range entries {
		for _, listing := range result.Listings {
			if listing.Price <= 0 {
				// Zero-price listings are lending/metadata hits, not deals.
				continue
			}
			if !matches(entry, listing) {
				continue
			}
			if listing.TotalPrice() <= entry.MaxPrice {
				alerts = append(alerts, models.AlertEvent{Entry: entry, Listing: listing})
			}
		}
	}
	return alerts
}

// matches pairs by ISBN when both sides carry one, otherwise by normalized
// title (and author, when both sides declare it).
func matches(entry models.WishlistEntry, listing *models.Listing) bool {
	if entry.ISBN != "" && listing.ISBN != "" {
		return models.NormalizeISBN(entry.ISBN) == listing.ISBN
	}

	entryTitle := fold(entry.Title)
	if entryTitle == "" {
		return false
	}
	if !strings.Contains(fold(listing.Title), entryTitle) {
		return false
	}
	if entry.Author != "" && listing.Author != "" {
		return strings.Contains(fold(listing.Author), fold(entry.Author))
	}
	return true
}

func fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
