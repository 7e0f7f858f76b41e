package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"listing-delta/models"
)

// PostgresStore keeps the snapshot in a single table. Save replaces the
// table contents inside one transaction, so readers see either the old or
// the new snapshot.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection, waits for the server to accept it
// and creates the schema if needed.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	ps := &PostgresStore{db: db}
	if err := ps.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return ps, nil
}

func (ps *PostgresStore) migrate() error {
	_, err := ps.db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_listings (
			position    INTEGER      PRIMARY KEY,
			id          CHAR(32)     NOT NULL,
			title       TEXT         NOT NULL,
			link        TEXT         NOT NULL,
			address     TEXT         NOT NULL DEFAULT '',
			description TEXT         NOT NULL DEFAULT '',
			price       BIGINT,
			amenities   TEXT         NOT NULL DEFAULT '',
			images      TEXT[],
			agency      TEXT         NOT NULL DEFAULT '',
			observed_at TIMESTAMPTZ
		);

		CREATE INDEX IF NOT EXISTS idx_snapshot_listings_id ON snapshot_listings(id);
	`)
	return err
}

func (ps *PostgresStore) Load(ctx context.Context) ([]*models.Listing, error) {
	rows, err := ps.db.QueryContext(ctx, `
		SELECT id, title, link, address, description, price, amenities, images, agency, observed_at
		FROM snapshot_listings
		ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load: %w", err)
	}
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		l := &models.Listing{}
		var price sql.NullInt64
		var observed sql.NullTime
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Link, &l.Address, &l.Description,
			&price, &l.Amenities, pq.Array(&l.Images), &l.Agency, &observed,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if price.Valid {
			l.Price = models.IntPtr(int(price.Int64))
		}
		if observed.Valid {
			t := observed.Time
			l.ObservedAt = &t
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (ps *PostgresStore) Save(ctx context.Context, listings []*models.Listing) error {
	tx, err := ps.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM snapshot_listings"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := insertBatch(ctx, tx, i, listings[i:end]); err != nil {
			return fmt.Errorf("postgres: insert: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

const snapshotColumns = 11

func insertBatch(ctx context.Context, tx *sql.Tx, offset int, batch []*models.Listing) error {
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*snapshotColumns)

	for idx, l := range batch {
		base := idx * snapshotColumns
		placeholders := make([]string, snapshotColumns)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")

		var price interface{}
		if l.Price != nil {
			price = int64(*l.Price)
		}
		var observed interface{}
		if l.ObservedAt != nil {
			observed = *l.ObservedAt
		}
		valueArgs = append(valueArgs,
			offset+idx, l.ID, l.Title, l.Link, l.Address, l.Description,
			price, l.Amenities, pq.Array(l.Images), l.Agency, observed)
	}

	query := fmt.Sprintf(`
		INSERT INTO snapshot_listings
			(position, id, title, link, address, description, price, amenities, images, agency, observed_at)
		VALUES %s
	`, strings.Join(valueStrings, ","))

	_, err := tx.ExecContext(ctx, query, valueArgs...)
	return err
}

func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}
