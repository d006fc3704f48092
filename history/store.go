// Package history provides the SQLite-backed price history and wishlist
// store. Price observations are append-only: rows are inserted, never
// updated, so the history is a true time series.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aluiziolira/go-bookfinder/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a wishlist entry does not exist.
var ErrNotFound = errors.New("history: not found")

// Store persists price observations and wishlist entries.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open creates (or opens) the store at path, configures pragmas, and runs
// the schema migration.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append inserts a batch of observations inside one transaction, so readers
// either see the whole batch or none of it.
func (s *Store) Append(ctx context.Context, records []models.PriceHistoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_history
			(isbn, title, author, price, shipping, currency, condition, source, url, query_context, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare append: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		l := r.Listing
		fetched := l.FetchedAt
		if fetched.IsZero() {
			fetched = time.Now()
		}
		if _, err := stmt.ExecContext(ctx,
			l.ISBN, l.Title, l.Author, l.Price, l.Shipping, l.Currency,
			string(l.Condition), l.Source, l.URL, r.QueryContext,
			fetched.UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("insert observation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	s.logger.Debug("appended price observations", slog.Int("count", len(records)))
	return nil
}

// Query returns observations matching the filter, most recent first.
func (s *Store) Query(ctx context.Context, f models.HistoryFilter) ([]models.PriceHistoryRecord, error) {
	query := `SELECT id, isbn, title, author, price, shipping, currency, condition, source, url, query_context, fetched_at
		FROM price_history`
	where, args := filterClauses(f)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY fetched_at DESC, id DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 200
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	var records []models.PriceHistoryRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// LowestPrice returns the cheapest observation ever recorded for a book,
// or ErrNotFound when nothing matches.
func (s *Store) LowestPrice(ctx context.Context, f models.HistoryFilter) (models.PriceHistoryRecord, error) {
	query := `SELECT id, isbn, title, author, price, shipping, currency, condition, source, url, query_context, fetched_at
		FROM price_history`
	where, args := filterClauses(f)
	where = append(where, "price > 0")
	query += " WHERE " + strings.Join(where, " AND ")
	query += " ORDER BY price + shipping ASC LIMIT 1"

	row := s.db.QueryRowContext(ctx, query, args...)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PriceHistoryRecord{}, ErrNotFound
	}
	return record, err
}

func filterClauses(f models.HistoryFilter) (where []string, args []any) {
	if f.ISBN != "" {
		where = append(where, "isbn = ?")
		args = append(args, f.ISBN)
	} else if f.Title != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+f.Title+"%")
	}
	if f.MinPrice != nil {
		where = append(where, "price + shipping >= ?")
		args = append(args, *f.MinPrice)
	}
	if f.MaxPrice != nil {
		where = append(where, "price + shipping <= ?")
		args = append(args, *f.MaxPrice)
	}
	return where, args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (models.PriceHistoryRecord, error) {
	var (
		record    models.PriceHistoryRecord
		isbn      sql.NullString
		author    sql.NullString
		condition sql.NullString
		url       sql.NullString
		queryCtx  sql.NullString
		fetched   string
	)
	err := row.Scan(
		&record.ID, &isbn, &record.Listing.Title, &author,
		&record.Listing.Price, &record.Listing.Shipping, &record.Listing.Currency,
		&condition, &record.Listing.Source, &url, &queryCtx, &fetched,
	)
	if err != nil {
		return models.PriceHistoryRecord{}, err
	}

	record.Listing.ISBN = isbn.String
	record.Listing.Author = author.String
	record.Listing.URL = url.String
	record.QueryContext = queryCtx.String
	if condition.Valid && condition.String != "" {
		record.Listing.Condition = models.Condition(condition.String)
	} else {
		record.Listing.Condition = models.ConditionUnknown
	}
	if t, err := time.Parse(time.RFC3339, fetched); err == nil {
		record.Listing.FetchedAt = t
	}
	return record, nil
}

// WishlistAdd inserts an entry and returns its assigned id.
func (s *Store) WishlistAdd(ctx context.Context, entry models.WishlistEntry) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO wishlist (title, author, isbn, max_price, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Title, entry.Author, entry.ISBN, entry.MaxPrice,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert wishlist entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("wishlist entry id: %w", err)
	}
	return id, nil
}

// WishlistRemove deletes an entry by id.
func (s *Store) WishlistRemove(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM wishlist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete wishlist entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete wishlist entry: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// WishlistList returns every entry, newest first.
func (s *Store) WishlistList(ctx context.Context) ([]models.WishlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, author, isbn, max_price, created_at FROM wishlist ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query wishlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WishlistEntry
	for rows.Next() {
		var (
			entry   models.WishlistEntry
			author  sql.NullString
			isbn    sql.NullString
			created string
		)
		if err := rows.Scan(&entry.ID, &entry.Title, &author, &isbn, &entry.MaxPrice, &created); err != nil {
			return nil, err
		}
		entry.Author = author.String
		entry.ISBN = isbn.String
		if t, err := time.Parse(time.RFC3339, created); err == nil {
			entry.CreatedAt = t
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
