package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"listing-delta/models"
	"listing-delta/utils"
)

var csvHeader = []string{
	"id", "title", "link", "address", "description", "price",
	"amenities", "images", "agency", "observedAt",
}

// CSVWriter exports listings to a CSV file, one row per listing. It is safe
// for concurrent use.
type CSVWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	baseURL string
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
// Relative links are resolved against baseURL when it is set.
func NewCSVWriter(path, baseURL string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w, baseURL: baseURL}, nil
}

// Export appends one row per listing. An unknown price is an empty cell.
func (c *CSVWriter) Export(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(c.row(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

func (c *CSVWriter) row(l *models.Listing) []string {
	price := ""
	if l.Price != nil {
		price = strconv.Itoa(*l.Price)
	}
	observed := ""
	if l.ObservedAt != nil {
		observed = l.ObservedAt.Format(time.RFC3339)
	}
	return []string{
		l.ID,
		l.Title,
		utils.ResolveURL(c.baseURL, l.Link),
		l.Address,
		l.Description,
		price,
		l.Amenities,
		strings.Join(l.Images, "|"),
		l.Agency,
		observed,
	}
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}
