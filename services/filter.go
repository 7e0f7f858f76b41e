package services

import (
	"strings"

	"listing-delta/models"
)

// Filter keeps the listings matching c, preserving order.
//
// The keyword is a case-insensitive substring of the title, used as given
// without trimming; only the empty keyword matches everything. Price bounds
// are inclusive and only apply to listings with a known price: unpriced
// listings always pass them.
func Filter(listings []*models.Listing, c models.Criteria) []*models.Listing {
	keyword := strings.ToLower(c.Keyword)

	out := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if keyword != "" && !strings.Contains(strings.ToLower(l.Title), keyword) {
			continue
		}
		if l.Price != nil {
			price := float64(*l.Price)
			if c.MinPrice != nil && price < *c.MinPrice {
				continue
			}
			if c.MaxPrice != nil && price > *c.MaxPrice {
				continue
			}
		}
		out = append(out, l)
	}
	return out
}

// Bound converts a form-style bound where 0 means "not set" into a Criteria bound.
func Bound(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}
