package models

import (
	"errors"
	"math"
	"testing"
	"time"
)

func TestParseCondition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Condition
	}{
		{name: "new", input: "New", expected: ConditionNew},
		{name: "like new", input: "Like New", expected: ConditionLikeNew},
		{name: "very good", input: "Very Good", expected: ConditionVeryGood},
		{name: "good", input: "Good", expected: ConditionGood},
		{name: "acceptable", input: "Acceptable", expected: ConditionAcceptable},
		{name: "used defaults to good", input: "Used", expected: ConditionGood},
		{name: "used - very good", input: "Used - Very Good", expected: ConditionVeryGood},
		{name: "schema.org url", input: "https://schema.org/UsedCondition", expected: ConditionGood},
		{name: "schema.org new", input: "https://schema.org/NewCondition", expected: ConditionNew},
		{name: "empty", input: "", expected: ConditionUnknown},
		{name: "unrecognised", input: "shelf wear", expected: ConditionUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ParseCondition(tt.input)
			if result != tt.expected {
				t.Errorf("ParseCondition(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestListingValidate(t *testing.T) {
	valid := func() *Listing {
		return &Listing{
			Source:    "abebooks",
			Title:     "Dune",
			Price:     9.99,
			Shipping:  3.50,
			Currency:  "USD",
			Condition: ConditionGood,
			URL:       "https://example.com/dune",
			FetchedAt: time.Now(),
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Listing)
		wantErr bool
	}{
		{
			name:   "valid listing",
			mutate: func(l *Listing) {},
		},
		{
			name:    "missing source",
			mutate:  func(l *Listing) { l.Source = "" },
			wantErr: true,
		},
		{
			name:   "isbn substitutes for title",
			mutate: func(l *Listing) { l.Title = ""; l.ISBN = "9780441013593" },
		},
		{
			name:    "missing title and isbn",
			mutate:  func(l *Listing) { l.Title = "   " },
			wantErr: true,
		},
		{
			name:    "negative price",
			mutate:  func(l *Listing) { l.Price = -1 },
			wantErr: true,
		},
		{
			name:    "negative shipping",
			mutate:  func(l *Listing) { l.Shipping = -0.01 },
			wantErr: true,
		},
		{
			name:    "bad currency code",
			mutate:  func(l *Listing) { l.Currency = "$" },
			wantErr: true,
		},
		{
			name:   "zero price is allowed",
			mutate: func(l *Listing) { l.Price = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			listing := valid()
			tt.mutate(listing)
			err := listing.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var invalid InvalidListingError
				if !errors.As(err, &invalid) {
					t.Errorf("Validate() error type = %T, want InvalidListingError", err)
				}
			}
		})
	}
}

func TestTotalPrice(t *testing.T) {
	listing := &Listing{Price: 9.99, Shipping: 3.50}
	if got := listing.TotalPrice(); math.Abs(got-13.49) > 1e-9 {
		t.Errorf("TotalPrice() = %v, want 13.49", got)
	}
}

func TestNearDuplicate(t *testing.T) {
	tests := []struct {
		name     string
		a, b     *Listing
		expected bool
	}{
		{
			name:     "matching isbn wins over title",
			a:        &Listing{ISBN: "9780441013593", Title: "Dune"},
			b:        &Listing{ISBN: "9780441013593", Title: "Dune (Ace premium edition)"},
			expected: true,
		},
		{
			name:     "differing isbn",
			a:        &Listing{ISBN: "9780441013593", Title: "Dune"},
			b:        &Listing{ISBN: "9780340960196", Title: "Dune"},
			expected: false,
		},
		{
			name:     "title and author fold",
			a:        &Listing{Title: "Dune", Author: "Frank  Herbert"},
			b:        &Listing{Title: "DUNE", Author: "frank herbert"},
			expected: true,
		},
		{
			name:     "same title different author",
			a:        &Listing{Title: "Dune", Author: "Frank Herbert"},
			b:        &Listing{Title: "Dune", Author: "Brian Herbert"},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NearDuplicate(tt.a, tt.b); got != tt.expected {
				t.Errorf("NearDuplicate() = %v, want %v", got, tt.expected)
			}
		})
	}
}
