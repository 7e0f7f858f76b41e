package services

import (
	"testing"

	"listing-delta/models"
)

func withIDs(ids ...string) []*models.Listing {
	out := make([]*models.Listing, 0, len(ids))
	for _, id := range ids {
		out = append(out, &models.Listing{ID: id, Title: "title " + id})
	}
	return out
}

func ids(listings []*models.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func equalIDs(t *testing.T, got []*models.Listing, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("ids: got %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("ids: got %v, want %v", g, want)
		}
	}
}

func TestDeltaReportsOnlyNew(t *testing.T) {
	got := Delta(withIDs("a", "c"), withIDs("a", "b"))
	equalIDs(t, got, "c")
}

func TestDeltaFirstRunReportsEverything(t *testing.T) {
	got := Delta(withIDs("a", "b", "c"), nil)
	equalIDs(t, got, "a", "b", "c")
}

func TestDeltaEmptyCurrent(t *testing.T) {
	got := Delta(nil, withIDs("a", "b"))
	if len(got) != 0 {
		t.Errorf("expected no new listings, got %v", ids(got))
	}
}

func TestDeltaPreservesOrderAndCollapsesDuplicates(t *testing.T) {
	got := Delta(withIDs("z", "x", "z", "y", "x"), withIDs("y"))
	equalIDs(t, got, "z", "x")
}
