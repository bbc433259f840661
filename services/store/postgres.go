package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"listingscout/internal/scraper"
	"listingscout/pkg/errors"
)

// Store persists scraped listings
type Store interface {
	// SaveListings inserts listings for a query and returns how many
	// were actually new
	SaveListings(ctx context.Context, query string, listings []scraper.ListingRecord) (int, error)

	// Close releases the underlying connections
	Close()
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS listings (
	id          BIGSERIAL PRIMARY KEY,
	query       TEXT NOT NULL,
	title       TEXT,
	price       BIGINT,
	url         TEXT UNIQUE,
	location    TEXT NOT NULL DEFAULT '',
	year        INT,
	quantity    BIGINT,
	raw_text    TEXT NOT NULL DEFAULT '',
	scraped_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const insertSQL = `
INSERT INTO listings (query, title, price, url, location, year, quantity, raw_text)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (url) DO NOTHING`

// PostgresStore implements Store on a pgx connection pool. Listings are
// deduplicated by URL at the database level, so replaying a scrape is
// harmless.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to Postgres and ensures the listings table
// exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, errors.NewStore("invalid postgres DSN", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, errors.NewStore("failed to connect to postgres", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, errors.NewStore("failed to ensure listings table", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// SaveListings batch-inserts listings and reports how many rows were new.
// Listings whose URL already exists are silently skipped.
func (s *PostgresStore) SaveListings(ctx context.Context, query string, listings []scraper.ListingRecord) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, l := range listings {
		batch.Queue(insertSQL, query, l.Title, l.Price, l.URL, l.Location, l.Year, l.Quantity, l.RawText)
	}

	inserted := 0
	br := s.pool.SendBatch(ctx, batch)
	for range listings {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return inserted, errors.NewStore("failed to save listings", err)
		}
		inserted += int(tag.RowsAffected())
	}
	if err := br.Close(); err != nil {
		return inserted, errors.NewStore("failed to close batch", err)
	}
	return inserted, nil
}

// Close releases the connection pool
func (s *PostgresStore) Close() {
	s.pool.Close()
}
