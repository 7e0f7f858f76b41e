package services

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// priceRegexp captures a digit run (with spaces, thousands separators or
// periods) immediately followed by a euro sign. \p{Zs} covers the no-break
// spaces listing sites use as thousands separators.
var priceRegexp = regexp.MustCompile(`(\d[\d\s\p{Zs},.]*?)[\s\p{Zs}]*€`)

// ExtractPrice returns the first euro-marked amount in text, in whole euros.
// Separators are stripped rather than interpreted, so "1 250,50 €" yields
// 125050; saved snapshots rely on this convention. ok is false when no
// amount is present or it does not fit an int.
func ExtractPrice(text string) (price int, ok bool) {
	match := priceRegexp.FindStringSubmatch(text)
	if len(match) < 2 {
		return 0, false
	}

	digits := strings.Map(func(r rune) rune {
		if r == ',' || r == '.' || unicode.IsSpace(r) || unicode.Is(unicode.Zs, r) {
			return -1
		}
		return r
	}, match[1])

	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ExtractPricePtr is ExtractPrice shaped for models.Listing.Price.
func ExtractPricePtr(text string) *int {
	n, ok := ExtractPrice(text)
	if !ok {
		return nil
	}
	return &n
}

// NormaliseText strips leading/trailing whitespace and collapses internal whitespace.
func NormaliseText(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
