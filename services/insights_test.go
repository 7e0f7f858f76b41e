package services

import (
	"bytes"
	"strings"
	"testing"

	"listing-delta/models"
	"listing-delta/utils"
)

func sampleRun() *models.RunResult {
	current := []*models.Listing{
		{Title: "Villa A", Link: "/a.htm", Price: models.IntPtr(200000)},
		{Title: "Studio B", Link: "/b.htm", Price: models.IntPtr(50000)},
		{Title: "Loft C", Link: "/c.htm", Price: models.IntPtr(120000)},
		{Title: "Cabin D", Link: "/d.htm", Price: models.IntPtr(300000)},
		{Title: "Flat E", Link: "#"},
	}
	return &models.RunResult{
		Current:  current,
		Previous: current[:2],
		New:      current[2:],
		Matching: current[3:],
		Fetched:  true,
		Dropped:  1,
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleRun())
	if r.CurrentListings != 5 {
		t.Errorf("CurrentListings: got %d, want 5", r.CurrentListings)
	}
	if r.PreviousListings != 2 || r.NewListings != 3 || r.MatchingListings != 2 {
		t.Errorf("previous/new/matching: got %d/%d/%d, want 2/3/2",
			r.PreviousListings, r.NewListings, r.MatchingListings)
	}
	if r.DroppedCards != 1 {
		t.Errorf("DroppedCards: got %d, want 1", r.DroppedCards)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(sampleRun())
	if r.PricedListings != 4 {
		t.Errorf("PricedListings: got %d, want 4", r.PricedListings)
	}
	if r.AveragePrice != 167500 {
		t.Errorf("AveragePrice: got %.2f, want 167500", r.AveragePrice)
	}
	if r.MinPrice != 50000 || r.Cheapest.Title != "Studio B" {
		t.Errorf("MinPrice: got %d (%v)", r.MinPrice, r.Cheapest)
	}
	if r.MaxPrice != 300000 || r.MostExpensive.Title != "Cabin D" {
		t.Errorf("MaxPrice: got %d (%v)", r.MaxPrice, r.MostExpensive)
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewDiscardLogger())
	r := svc.Generate(nil)
	if r.CurrentListings != 0 || r.PricedListings != 0 {
		t.Errorf("expected an empty report for nil input")
	}

	var buf bytes.Buffer
	svc.WithOutput(&buf).Print(r)
	if !strings.Contains(buf.String(), "No price data available") {
		t.Errorf("empty report output:\n%s", buf.String())
	}
}

func TestPrintListings(t *testing.T) {
	var buf bytes.Buffer
	svc := NewInsightService(utils.NewDiscardLogger()).
		WithOutput(&buf).
		WithBaseURL("https://www.seloger.com/list.htm")

	svc.PrintListings(sampleRun().Current[3:])
	out := buf.String()

	for _, want := range []string{
		"Cabin D",
		"https://www.seloger.com/d.htm",
		"300 000 €",
		"Flat E",
		UnknownPrice,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "https://www.seloger.com/#") {
		t.Errorf("placeholder link was resolved:\n%s", out)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   *int
		want string
	}{
		{nil, UnknownPrice},
		{models.IntPtr(0), "0 €"},
		{models.IntPtr(950), "950 €"},
		{models.IntPtr(1250), "1 250 €"},
		{models.IntPtr(1250000), "1 250 000 €"},
		{models.IntPtr(-4500), "-4 500 €"},
	}
	for _, tt := range tests {
		if got := FormatPrice(tt.in); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q; want %q", tt.in, got, tt.want)
		}
	}
}

func TestInsightLogsSummary(t *testing.T) {
	var logs bytes.Buffer
	svc := NewInsightService(utils.NewLoggerTo(&logs, &logs, true))

	svc.Generate(nil)
	if !strings.Contains(logs.String(), "No run result") {
		t.Errorf("nil run was not logged:\n%s", logs.String())
	}

	logs.Reset()
	svc.Generate(sampleRun())
	if !strings.Contains(logs.String(), "4/5 current listings priced") {
		t.Errorf("summary not logged:\n%s", logs.String())
	}
}
