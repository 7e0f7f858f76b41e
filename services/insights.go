package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"listing-delta/models"
	"listing-delta/utils"
)

// UnknownPrice is shown in place of a price that could not be parsed.
const UnknownPrice = "Prix inconnu"

type InsightService struct {
	logger  *utils.Logger
	out     io.Writer
	baseURL string
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger, out: os.Stdout}
}

// WithOutput redirects printing to w.
func (s *InsightService) WithOutput(w io.Writer) *InsightService {
	s.out = w
	return s
}

// WithBaseURL makes printed links absolute against base.
func (s *InsightService) WithBaseURL(base string) *InsightService {
	s.baseURL = base
	return s
}

func (s *InsightService) Generate(run *models.RunResult) *models.InsightReport {
	report := &models.InsightReport{}
	if run == nil {
		s.logger.Warn("[insights] No run result to summarise")
		return report
	}

	report.CurrentListings = len(run.Current)
	report.PreviousListings = len(run.Previous)
	report.NewListings = len(run.New)
	report.MatchingListings = len(run.Matching)
	report.DroppedCards = run.Dropped

	// Price stats over the current page (only listings with a known price)
	var total float64
	for _, l := range run.Current {
		if !l.HasPrice() {
			continue
		}
		price := l.PriceValue()
		if report.PricedListings == 0 || price < report.MinPrice {
			report.MinPrice = price
			report.Cheapest = l
		}
		if report.PricedListings == 0 || price > report.MaxPrice {
			report.MaxPrice = price
			report.MostExpensive = l
		}
		total += float64(price)
		report.PricedListings++
	}
	if report.PricedListings > 0 {
		report.AveragePrice = round2(total / float64(report.PricedListings))
	}

	s.logger.Debug("[insights] %d/%d current listings priced, average %.2f",
		report.PricedListings, report.CurrentListings, report.AveragePrice)

	return report
}

// PrintListings writes one block per listing, in order.
func (s *InsightService) PrintListings(listings []*models.Listing) {
	thin := strings.Repeat("─", 54)

	if len(listings) == 0 {
		fmt.Fprintf(s.out, "  Aucune nouvelle annonce correspondant aux critères.\n\n")
		return
	}

	for i, l := range listings {
		fmt.Fprintf(s.out, "\033[1m%d. %s\033[0m\n", i+1, l.Title)
		fmt.Fprintf(s.out, "   Lien        : %s\n", utils.ResolveURL(s.baseURL, l.Link))
		if l.Address != "" {
			fmt.Fprintf(s.out, "   Adresse     : %s\n", l.Address)
		}
		if l.Description != "" {
			fmt.Fprintf(s.out, "   Description : %s\n", truncate(l.Description, 120))
		}
		fmt.Fprintf(s.out, "   Prix        : \033[1;32m%s\033[0m\n", FormatPrice(l.Price))
		if l.Amenities != "" {
			fmt.Fprintf(s.out, "   Atouts      : %s\n", l.Amenities)
		}
		if l.Agency != "" {
			fmt.Fprintf(s.out, "   Agence      : %s\n", l.Agency)
		}
		fmt.Fprintf(s.out, "  %s\n", thin)
	}
	fmt.Fprintln(s.out)
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Fprintf(s.out, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(s.out, "\033[1;35m  📊 RÉSUMÉ DE LA RECHERCHE\033[0m\n")
	fmt.Fprintf(s.out, "\033[1;35m%s\033[0m\n\n", sep)

	fmt.Fprintf(s.out, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	fmt.Fprintf(s.out, "  Current listings   : \033[1m%d\033[0m\n", r.CurrentListings)
	fmt.Fprintf(s.out, "  Previous snapshot  : \033[1m%d\033[0m\n", r.PreviousListings)
	fmt.Fprintf(s.out, "  New since last run : \033[1m%d\033[0m\n", r.NewListings)
	fmt.Fprintf(s.out, "  New and matching   : \033[1m%d\033[0m\n", r.MatchingListings)
	if r.DroppedCards > 0 {
		fmt.Fprintf(s.out, "  Dropped cards      : \033[1;31m%d\033[0m\n", r.DroppedCards)
	}
	fmt.Fprintln(s.out)

	fmt.Fprintf(s.out, "\033[1;33m  Price Statistics\033[0m\n")
	fmt.Fprintf(s.out, "  %s\n", thin)
	if r.PricedListings > 0 {
		fmt.Fprintf(s.out, "  Priced listings : %d/%d\n", r.PricedListings, r.CurrentListings)
		fmt.Fprintf(s.out, "  Average price   : \033[1;32m%.2f €\033[0m\n", r.AveragePrice)
		fmt.Fprintf(s.out, "  Minimum price   : \033[1;32m%s\033[0m  %s\n", FormatPrice(&r.MinPrice), truncate(r.Cheapest.Title, 30))
		fmt.Fprintf(s.out, "  Maximum price   : \033[1;32m%s\033[0m  %s\n", FormatPrice(&r.MaxPrice), truncate(r.MostExpensive.Title, 30))
	} else {
		fmt.Fprintf(s.out, "  No price data available\n")
	}

	fmt.Fprintf(s.out, "\n\033[1;35m%s\033[0m\n\n", sep)
}

// FormatPrice renders a whole-euro price with French digit grouping, or
// UnknownPrice.
func FormatPrice(price *int) string {
	if price == nil {
		return UnknownPrice
	}

	digits := fmt.Sprintf("%d", *price)
	neg := strings.HasPrefix(digits, "-")
	digits = strings.TrimPrefix(digits, "-")

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	out := b.String() + " €"
	if neg {
		out = "-" + out
	}
	return out
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
