package models

import "time"

const (
	// UntitledTitle replaces a title that could not be recovered from a card.
	UntitledTitle = "Annonce sans titre"
	// MissingLink replaces a link that could not be recovered from a card.
	MissingLink = "#"
)

// Listing is one observed real-estate offer. The JSON field names are the
// snapshot file format and must stay stable across releases.
type Listing struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Address     string     `json:"address"`
	Description string     `json:"description"`
	Price       *int       `json:"price"`
	Amenities   string     `json:"amenities,omitempty"`
	Images      []string   `json:"images,omitempty"`
	Agency      string     `json:"agency,omitempty"`
	ObservedAt  *time.Time `json:"observedAt,omitempty"`
}

// HasPrice reports whether a price could be parsed for the listing.
func (l *Listing) HasPrice() bool {
	return l.Price != nil
}

// PriceValue returns the price, or 0 when unknown.
func (l *Listing) PriceValue() int {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}

// IntPtr is a small helper for building listings with a known price.
func IntPtr(n int) *int {
	return &n
}

// Criteria narrows a set of listings. Nil bounds are absent.
type Criteria struct {
	Keyword  string   `json:"keyword"`
	MinPrice *float64 `json:"minPrice"`
	MaxPrice *float64 `json:"maxPrice"`
}

// RunResult is everything one monitoring run produced.
type RunResult struct {
	Current  []*Listing `json:"-"`
	Previous []*Listing `json:"-"`
	New      []*Listing `json:"-"`
	Matching []*Listing `json:"listings"`
	// Fetched is false when no document could be obtained; the snapshot is
	// left untouched in that case.
	Fetched bool `json:"fetched"`
	// Saved reports whether the snapshot was replaced. A run in which some
	// search page failed reports its delta but keeps the previous snapshot.
	Saved      bool      `json:"saved"`
	FailedURLs []string  `json:"failedUrls,omitempty"`
	Dropped    int       `json:"dropped"`
	FinishedAt time.Time `json:"finishedAt"`
}

// InsightReport summarises a run for presentation.
type InsightReport struct {
	CurrentListings  int
	PreviousListings int
	NewListings      int
	MatchingListings int
	DroppedCards     int
	PricedListings   int
	AveragePrice     float64
	MinPrice         int
	MaxPrice         int
	Cheapest         *Listing
	MostExpensive    *Listing
}
