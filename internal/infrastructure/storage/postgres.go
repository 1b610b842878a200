package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"holdup/internal/domain"
	"holdup/internal/ports"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const pgSchema = `
CREATE TABLE IF NOT EXISTS staging_batches (
    id         BIGSERIAL PRIMARY KEY,
    day        DATE        NOT NULL,
    provider   TEXT        NOT NULL,
    ticker     TEXT        NOT NULL,
    fetched_at TIMESTAMPTZ NOT NULL,
    payload    JSONB       NOT NULL
);
CREATE INDEX IF NOT EXISTS staging_batches_day_idx ON staging_batches (day);

CREATE TABLE IF NOT EXISTS catalog_entries (
    day        DATE    NOT NULL,
    ticker     TEXT    NOT NULL,
    article_id TEXT    NOT NULL,
    position   INTEGER NOT NULL,
    record     JSONB   NOT NULL,
    PRIMARY KEY (day, ticker, article_id)
);
`

// EnsureSchema creates the staging and catalog tables if they are absent.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PostgresStaging is the append-only staging log backed by an insert-only
// table. Batch payloads are stored as JSONB, verbatim.
type PostgresStaging struct {
	db *sql.DB
}

var _ ports.StagingStore = (*PostgresStaging)(nil)

// NewPostgresStaging wires a sql.DB implementation.
func NewPostgresStaging(db *sql.DB) *PostgresStaging {
	return &PostgresStaging{db: db}
}

// Append inserts one batch row; rows are never updated or deleted here.
func (s *PostgresStaging) Append(ctx context.Context, day time.Time, batch domain.Batch) error {
	key := domain.DayKey(day)

	payload, err := json.Marshal(batch.Articles)
	if err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: fmt.Errorf("marshal batch: %w", err)}
	}

	query, args, err := psql.Insert("staging_batches").
		Columns("day", "provider", "ticker", "fetched_at", "payload").
		Values(key, batch.Provider, batch.Ticker, batch.FetchedAt.UTC(), payload).
		ToSql()
	if err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: err}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &domain.StorageWriteError{Kind: "staging", Day: key, Err: err}
	}

	return nil
}

// Read returns all batches for day in insert order.
func (s *PostgresStaging) Read(ctx context.Context, day time.Time) ([]domain.Batch, error) {
	key := domain.DayKey(day)

	query, args, err := psql.Select("provider", "ticker", "fetched_at", "payload").
		From("staging_batches").
		Where(sq.Eq{"day": key}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: err}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: err}
	}
	defer rows.Close()

	var batches []domain.Batch
	for rows.Next() {
		var (
			batch   domain.Batch
			payload []byte
		)
		if err := rows.Scan(&batch.Provider, &batch.Ticker, &batch.FetchedAt, &payload); err != nil {
			return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: err}
		}
		if err := json.Unmarshal(payload, &batch.Articles); err != nil {
			return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: fmt.Errorf("decode payload: %w", err)}
		}
		batch.FetchedAt = batch.FetchedAt.UTC()
		batches = append(batches, batch)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageReadError{Kind: "staging", Day: key, Err: err}
	}

	return batches, nil
}

// ReadRange reads each day in [from, to] independently, same failure
// semantics as the file store.
func (s *PostgresStaging) ReadRange(ctx context.Context, from, to time.Time) (map[string][]domain.Batch, error) {
	out := map[string][]domain.Batch{}
	var firstErr error

	for day := from.UTC().Truncate(24 * time.Hour); !day.After(to.UTC()); day = day.Add(24 * time.Hour) {
		batches, err := s.Read(ctx, day)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(batches) > 0 {
			out[domain.DayKey(day)] = batches
		}
	}

	return out, firstErr
}

// Days lists distinct staged partition dates in ascending order.
func (s *PostgresStaging) Days(ctx context.Context) ([]string, error) {
	return listPgDays(ctx, s.db, "staging_batches")
}

// PostgresCatalog stores catalog partitions as ordered per-ticker rows. A
// replace happens inside one transaction, so readers never observe a
// half-built day.
type PostgresCatalog struct {
	db *sql.DB
}

var _ ports.CatalogStore = (*PostgresCatalog)(nil)

// NewPostgresCatalog wires a sql.DB implementation.
func NewPostgresCatalog(db *sql.DB) *PostgresCatalog {
	return &PostgresCatalog{db: db}
}

// Replace swaps the whole partition for day in one transaction.
func (c *PostgresCatalog) Replace(ctx context.Context, day time.Time, catalog domain.Catalog) error {
	key := domain.DayKey(day)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}

	fail := func(err error) error {
		_ = tx.Rollback()
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}

	query, args, err := psql.Delete("catalog_entries").Where(sq.Eq{"day": key}).ToSql()
	if err != nil {
		return fail(err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fail(err)
	}

	for ticker, records := range catalog {
		for pos, record := range records {
			blob, err := json.Marshal(record)
			if err != nil {
				return fail(fmt.Errorf("marshal record %s: %w", record.ID, err))
			}
			query, args, err := psql.Insert("catalog_entries").
				Columns("day", "ticker", "article_id", "position", "record").
				Values(key, ticker, record.ID, pos, blob).
				ToSql()
			if err != nil {
				return fail(err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fail(err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return &domain.StorageWriteError{Kind: "catalog", Day: key, Err: err}
	}

	return nil
}

// Read loads the partition for day; a missing day is an empty catalog.
func (c *PostgresCatalog) Read(ctx context.Context, day time.Time) (domain.Catalog, error) {
	key := domain.DayKey(day)

	query, args, err := psql.Select("ticker", "record").
		From("catalog_entries").
		Where(sq.Eq{"day": key}).
		OrderBy("ticker", "position").
		ToSql()
	if err != nil {
		return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: err}
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: err}
	}
	defer rows.Close()

	catalog := domain.Catalog{}
	for rows.Next() {
		var (
			ticker string
			blob   []byte
			record domain.ArticleRecord
		)
		if err := rows.Scan(&ticker, &blob); err != nil {
			return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: err}
		}
		if err := json.Unmarshal(blob, &record); err != nil {
			return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: fmt.Errorf("decode record: %w", err)}
		}
		catalog[ticker] = append(catalog[ticker], record)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.StorageReadError{Kind: "catalog", Day: key, Err: err}
	}

	return catalog, nil
}

// Days lists distinct built partition dates in ascending order.
func (c *PostgresCatalog) Days(ctx context.Context) ([]string, error) {
	return listPgDays(ctx, c.db, "catalog_entries")
}

func listPgDays(ctx context.Context, db *sql.DB, table string) ([]string, error) {
	query, args, err := psql.Select("DISTINCT day").From(table).OrderBy("day").ToSql()
	if err != nil {
		return nil, fmt.Errorf("list %s days: %w", table, err)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s days: %w", table, err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("scan %s day: %w", table, err)
		}
		days = append(days, domain.DayKey(day))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s days: %w", table, err)
	}

	return days, nil
}
