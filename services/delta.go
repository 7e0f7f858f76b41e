package services

import "listing-delta/models"

// Delta returns the listings of current whose id does not occur in previous,
// in current's order. Repeated ids within current are reported once.
// Listings that disappeared since previous are not reported.
func Delta(current, previous []*models.Listing) []*models.Listing {
	seen := make(map[string]struct{}, len(previous)+len(current))
	for _, l := range previous {
		seen[l.ID] = struct{}{}
	}

	fresh := make([]*models.Listing, 0)
	for _, l := range current {
		if _, ok := seen[l.ID]; ok {
			continue
		}
		seen[l.ID] = struct{}{}
		fresh = append(fresh, l)
	}
	return fresh
}
