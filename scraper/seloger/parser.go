package seloger

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"listing-delta/models"
	"listing-delta/services"
	"listing-delta/utils"
)

// PriceSource selects where a card's price is read from.
type PriceSource string

const (
	// PriceFromField reads the dedicated price region and falls back to the title.
	PriceFromField PriceSource = "field"
	// PriceFromTitle always derives the price from the title text.
	PriceFromTitle PriceSource = "title"
)

// ErrCardPanic wraps a panic raised while extracting one card.
var ErrCardPanic = errors.New("card extraction panicked")

// CardResult is the outcome of extracting one card. Exactly one of Listing
// and Err is set.
type CardResult struct {
	Index   int
	Listing *models.Listing
	Err     error
}

// ParserConfig tunes the Parser.
type ParserConfig struct {
	PriceSource PriceSource
	// Timestamps stamps each listing with its extraction time.
	Timestamps bool
}

// Parser turns a search results document into listings.
type Parser struct {
	schema *Schema
	cfg    ParserConfig
	logger *utils.Logger
	now    func() time.Time
}

// NewParser creates a Parser over a compiled schema.
func NewParser(schema *Schema, cfg ParserConfig, logger *utils.Logger) *Parser {
	if cfg.PriceSource == "" {
		cfg.PriceSource = PriceFromField
	}
	return &Parser{
		schema: schema,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Parse reads an HTML document and returns the listings of every card that
// could be extracted, in document order, plus the number of dropped cards.
// An error is returned only when the document itself cannot be read.
func (p *Parser) Parse(r io.Reader) ([]*models.Listing, int, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, 0, fmt.Errorf("seloger: parse document: %w", err)
	}
	listings, dropped := p.ParseDocument(goquery.NewDocumentFromNode(root))
	return listings, dropped, nil
}

// ParseDocument aggregates ParseCards, logging and skipping failed cards.
func (p *Parser) ParseDocument(doc *goquery.Document) ([]*models.Listing, int) {
	results := p.ParseCards(doc)

	listings := make([]*models.Listing, 0, len(results))
	dropped := 0
	for _, res := range results {
		if res.Err != nil {
			dropped++
			p.logger.Warn("[seloger] Dropping card %d: %v", res.Index, res.Err)
			continue
		}
		listings = append(listings, res.Listing)
	}

	p.logger.Debug("[seloger] Parsed %d cards → %d listings (dropped %d)",
		len(results), len(listings), dropped)
	return listings, dropped
}

// ParseCards extracts every card independently.
func (p *Parser) ParseCards(doc *goquery.Document) []CardResult {
	cards := doc.FindMatcher(p.schema.cardMatcher)
	results := make([]CardResult, 0, cards.Length())
	observedAt := p.now()

	cards.Each(func(i int, card *goquery.Selection) {
		listing, err := p.parseCard(card, observedAt)
		results = append(results, CardResult{Index: i, Listing: listing, Err: err})
	})
	return results
}

func (p *Parser) parseCard(card *goquery.Selection, observedAt time.Time) (listing *models.Listing, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing = nil
			err = fmt.Errorf("%w: %v", ErrCardPanic, r)
		}
	}()

	s := p.schema
	l := &models.Listing{
		Title:       ExtractText(card, s.Field(FieldTitle)),
		Link:        ExtractText(card, s.Field(FieldLink)),
		Address:     ExtractText(card, s.Field(FieldAddress)),
		Description: ExtractText(card, s.Field(FieldDescription)),
		Agency:      ExtractText(card, s.Field(FieldAgency)),
		Images:      ExtractList(card, s.Field(FieldImages)),
	}
	if facts := ExtractList(card, s.Field(FieldKeyfacts)); len(facts) > 0 {
		l.Amenities = strings.Join(facts, s.AmenitySeparator)
	}

	l.Price = p.price(card, l.Title)
	l.ID = services.Identify(l.Title, l.Link)
	if p.cfg.Timestamps {
		t := observedAt
		l.ObservedAt = &t
	}
	return l, nil
}

func (p *Parser) price(card *goquery.Selection, title string) *int {
	if p.cfg.PriceSource == PriceFromField {
		if text := ExtractText(card, p.schema.Field(FieldPrice)); text != "" {
			if price := services.ExtractPricePtr(text); price != nil {
				return price
			}
		}
	}
	return services.ExtractPricePtr(title)
}
