package models

import (
	"fmt"
	"strconv"
	"strings"
)

// currencySymbols maps the symbols sources print onto ISO 4217 codes.
var currencySymbols = map[string]string{
	"$":  "USD",
	"£":  "GBP",
	"€":  "EUR",
	"¥":  "JPY",
	"R$": "BRL",
}

// NormalizeText trims and collapses internal whitespace.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ParsePrice extracts an amount and currency from raw scraped price text.
// The source's declared locale decides whether "1.234,56" style separators
// are European. When no currency symbol is present the returned code is
// empty and the caller applies its configured default.
func ParsePrice(raw, locale string) (amount float64, currency string, err error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, "", fmt.Errorf("empty price text")
	}

	for symbol, code := range currencySymbols {
		if strings.Contains(text, symbol) {
			currency = code
			text = strings.ReplaceAll(text, symbol, "")
			break
		}
	}
	if currency == "" {
		// Codes like "USD 12.99" appear on some sources.
		for _, field := range strings.Fields(text) {
			if upper := strings.ToUpper(field); len(upper) == 3 && isAlpha(upper) {
				currency = upper
				text = strings.Replace(text, field, "", 1)
				break
			}
		}
	}

	digits := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',':
			return r
		default:
			return -1
		}
	}, text)
	if digits == "" {
		return 0, "", fmt.Errorf("no numeric content in %q", raw)
	}

	digits = normalizeSeparators(digits, locale)
	amount, err = strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, "", fmt.Errorf("parse price %q: %w", raw, err)
	}
	return amount, currency, nil
}

// normalizeSeparators rewrites locale-ambiguous thousand/decimal separators
// into plain decimal form.
func normalizeSeparators(digits, locale string) string {
	dot := strings.LastIndex(digits, ".")
	comma := strings.LastIndex(digits, ",")

	switch {
	case dot == -1 && comma == -1:
		return digits
	case dot != -1 && comma != -1:
		// Whichever separator comes last is the decimal point.
		if comma > dot {
			digits = strings.ReplaceAll(digits, ".", "")
			return strings.Replace(digits, ",", ".", 1)
		}
		return strings.ReplaceAll(digits, ",", "")
	case comma != -1:
		if europeanLocale(locale) || len(digits)-comma-1 != 3 {
			return strings.Replace(digits, ",", ".", 1)
		}
		return strings.ReplaceAll(digits, ",", "")
	default:
		return digits
	}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func europeanLocale(locale string) bool {
	switch strings.ToLower(strings.SplitN(locale, "-", 2)[0]) {
	case "de", "fr", "es", "it", "pt", "nl", "pl":
		return true
	}
	return false
}

// NormalizeISBN strips everything but digits (and a trailing X check digit)
// and converts ISBN-10 to ISBN-13. It returns the empty string when the
// input does not look like an ISBN at all.
func NormalizeISBN(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= '0' && r <= '9') || r == 'X' {
			b.WriteRune(r)
		}
	}
	isbn := b.String()

	switch len(isbn) {
	case 13:
		if strings.Contains(isbn, "X") {
			return ""
		}
		return isbn
	case 10:
		return isbn10to13(isbn)
	default:
		return ""
	}
}

// isbn10to13 prefixes 978, drops the old check digit, and recomputes the
// EAN-13 checksum.
func isbn10to13(isbn10 string) string {
	core := "978" + isbn10[:9]
	sum := 0
	for i, r := range core {
		digit := int(r - '0')
		if digit < 0 || digit > 9 {
			return ""
		}
		if i%2 == 1 {
			digit *= 3
		}
		sum += digit
	}
	check := (10 - sum%10) % 10
	return core + strconv.Itoa(check)
}
