package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"listing-delta/models"
)

// PgxStore keeps every saved snapshot as a numbered run. Load returns the
// listings of the most recent run; older runs stay available for auditing.
type PgxStore struct {
	pool *pgxpool.Pool
}

// NewPgxStore opens a connection pool and creates the schema if needed.
func NewPgxStore(ctx context.Context, dsn string, maxConns int) (*PgxStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgx: parse dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgx: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx: ping: %w", err)
	}

	s := &PgxStore{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgx: migrate: %w", err)
	}
	return s, nil
}

func (s *PgxStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS snapshot_runs (
			run_id        BIGSERIAL   PRIMARY KEY,
			listing_count INTEGER     NOT NULL,
			saved_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS snapshot_run_listings (
			run_id      BIGINT   NOT NULL REFERENCES snapshot_runs(run_id) ON DELETE CASCADE,
			position    INTEGER  NOT NULL,
			id          CHAR(32) NOT NULL,
			title       TEXT     NOT NULL,
			link        TEXT     NOT NULL,
			address     TEXT     NOT NULL DEFAULT '',
			description TEXT     NOT NULL DEFAULT '',
			price       BIGINT,
			amenities   TEXT     NOT NULL DEFAULT '',
			images      TEXT[],
			agency      TEXT     NOT NULL DEFAULT '',
			observed_at TIMESTAMPTZ,
			PRIMARY KEY (run_id, position)
		);
	`)
	return err
}

func (s *PgxStore) Load(ctx context.Context) ([]*models.Listing, error) {
	var runID int64
	err := s.pool.QueryRow(ctx, `SELECT run_id FROM snapshot_runs ORDER BY run_id DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return []*models.Listing{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("pgx: latest run: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, link, address, description, price, amenities, images, agency, observed_at
		FROM snapshot_run_listings
		WHERE run_id = $1
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("pgx: load run %d: %w", runID, err)
	}
	defer rows.Close()

	listings := []*models.Listing{}
	for rows.Next() {
		l := &models.Listing{}
		var price *int64
		if err := rows.Scan(
			&l.ID, &l.Title, &l.Link, &l.Address, &l.Description,
			&price, &l.Amenities, &l.Images, &l.Agency, &l.ObservedAt,
		); err != nil {
			return nil, fmt.Errorf("pgx: scan row: %w", err)
		}
		if price != nil {
			l.Price = models.IntPtr(int(*price))
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (s *PgxStore) Save(ctx context.Context, listings []*models.Listing) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgx: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var runID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO snapshot_runs (listing_count) VALUES ($1) RETURNING run_id`,
		len(listings),
	).Scan(&runID); err != nil {
		return fmt.Errorf("pgx: create run: %w", err)
	}

	b := &pgx.Batch{}
	for i, l := range listings {
		var price *int64
		if l.Price != nil {
			p := int64(*l.Price)
			price = &p
		}
		b.Queue(`
			INSERT INTO snapshot_run_listings
				(run_id, position, id, title, link, address, description, price, amenities, images, agency, observed_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
			runID, i, l.ID, l.Title, l.Link, l.Address, l.Description,
			price, l.Amenities, l.Images, l.Agency, l.ObservedAt,
		)
	}

	br := tx.SendBatch(ctx, b)
	for i := 0; i < len(listings); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("pgx: insert listing %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("pgx: close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("pgx: commit: %w", err)
	}
	return nil
}

func (s *PgxStore) Close() error {
	s.pool.Close()
	return nil
}
