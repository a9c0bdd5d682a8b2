// Package sqlstore persists favorites in SQLite or PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"github.com/openheads/headcatalog/internal/domain/favorite"
)

// Dialect selects placeholder style and DDL.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

var prefixPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,40}$`)

// FavoriteStore implements favorite.Store on a *sql.DB. Rows live in
// <prefix>_favorites, unique on (player_id, category, head_name); List orders
// by insertion id.
type FavoriteStore struct {
	db      *sql.DB
	dialect Dialect
	table   string

	insertSQL string
	deleteSQL string
	hasSQL    string
	listSQL   string
}

// New wraps an open database. The schema is not touched; call EnsureSchema.
func New(db *sql.DB, dialect Dialect, tablePrefix string) (*FavoriteStore, error) {
	if !prefixPattern.MatchString(tablePrefix) {
		return nil, fmt.Errorf("invalid table prefix %q", tablePrefix)
	}
	s := &FavoriteStore{db: db, dialect: dialect, table: tablePrefix + "_favorites"}
	s.insertSQL = s.rebind(fmt.Sprintf(
		"INSERT INTO %s (player_id, category, head_name, created_at) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT (player_id, category, head_name) DO NOTHING", s.table))
	s.deleteSQL = s.rebind(fmt.Sprintf(
		"DELETE FROM %s WHERE player_id = ? AND category = ? AND head_name = ?", s.table))
	s.hasSQL = s.rebind(fmt.Sprintf(
		"SELECT 1 FROM %s WHERE player_id = ? AND category = ? AND head_name = ? LIMIT 1", s.table))
	s.listSQL = s.rebind(fmt.Sprintf(
		"SELECT category, head_name FROM %s WHERE player_id = ? ORDER BY id", s.table))
	return s, nil
}

// OpenSQLite opens (creating if needed) a SQLite database file and ensures the schema.
func OpenSQLite(ctx context.Context, path, tablePrefix string) (*FavoriteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer connection avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)
	return open(ctx, db, SQLite, tablePrefix)
}

// OpenPostgres connects through pgx and ensures the schema.
func OpenPostgres(ctx context.Context, dsn, tablePrefix string) (*FavoriteStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return open(ctx, db, Postgres, tablePrefix)
}

func open(ctx context.Context, db *sql.DB, dialect Dialect, tablePrefix string) (*FavoriteStore, error) {
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	s, err := New(db, dialect, tablePrefix)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database handle.
func (s *FavoriteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks the connection.
func (s *FavoriteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Add inserts the favorite, ignoring duplicates.
func (s *FavoriteStore) Add(ctx context.Context, userID, category, item string) error {
	if _, err := s.db.ExecContext(ctx, s.insertSQL, userID, category, item, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("insert favorite: %w", err)
	}
	return nil
}

// Remove deletes the favorite.
func (s *FavoriteStore) Remove(ctx context.Context, userID, category, item string) error {
	if _, err := s.db.ExecContext(ctx, s.deleteSQL, userID, category, item); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// Has reports whether the favorite exists.
func (s *FavoriteStore) Has(ctx context.Context, userID, category, item string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, s.hasSQL, userID, category, item).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query favorite: %w", err)
	}
	return true, nil
}

// List returns the user's favorites in insertion order.
func (s *FavoriteStore) List(ctx context.Context, userID string) ([]favorite.Record, error) {
	rows, err := s.db.QueryContext(ctx, s.listSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	var out []favorite.Record
	for rows.Next() {
		r := favorite.Record{UserID: userID}
		if err := rows.Scan(&r.Category, &r.Item); err != nil {
			return nil, fmt.Errorf("scan favorite: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate favorites: %w", err)
	}
	return out, nil
}

// rebind turns ? placeholders into $n for Postgres.
func (s *FavoriteStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var _ favorite.Store = (*FavoriteStore)(nil)
