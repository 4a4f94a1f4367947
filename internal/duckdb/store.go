// Package duckdb stores merged variant documents in an embedded DuckDB
// database. Canonical fields are plain columns written once per key. The two
// evidence sets live in child tables holding one JSON sub-document per row,
// so evidence is only ever inserted and the variants row is never updated.
package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/document"
)

const (
	tableVariants = "variants"
	tableStaging  = "variants_staging"
	tableFiles    = "variant_files"
	tableStats    = "variant_stats"
)

// columns maps top-level document fields to table columns.
var columns = map[string]string{
	document.FieldID:         "id",
	document.FieldChromosome: "chr",
	document.FieldStart:      "start",
	document.FieldEnd:        "end_pos",
	document.FieldLength:     "len",
	document.FieldReference:  "ref",
	document.FieldAlternate:  "alt",
	document.FieldType:       "type",
	document.FieldIDs:        "ids",
	document.FieldHGVS:       "hgvs",
	document.FieldAnnotation: "annot",
}

// Store manages a DuckDB connection holding the variants table.
type Store struct {
	db     *sql.DB
	path   string
	logger *zap.Logger

	// Serializes batches; the staging table is shared.
	mu sync.Mutex
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// SetLogger sets the logger for index provisioning and batch messages.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file, empty for an in-memory database.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + tableVariants + ` (
		id VARCHAR PRIMARY KEY,
		chr VARCHAR NOT NULL,
		start BIGINT NOT NULL,
		end_pos BIGINT NOT NULL,
		len BIGINT NOT NULL,
		ref VARCHAR NOT NULL,
		alt VARCHAR NOT NULL,
		type VARCHAR NOT NULL,
		ids VARCHAR,
		hgvs VARCHAR,
		annot VARCHAR
	)`); err != nil {
		return err
	}

	for _, t := range []string{tableFiles, tableStats} {
		if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + t + ` (
			id VARCHAR NOT NULL,
			elem VARCHAR NOT NULL
		)`); err != nil {
			return err
		}
		if _, err := s.db.Exec(fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_id ON %s (id)", t, t)); err != nil {
			return err
		}
	}

	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS ` + tableStaging + ` (
		id VARCHAR,
		chr VARCHAR,
		start BIGINT,
		end_pos BIGINT,
		len BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		type VARCHAR,
		ids VARCHAR,
		hgvs VARCHAR,
		annot VARCHAR
	)`)
	return err
}

// EnsureIndexes creates the indexes whose fields are all plain columns.
// Indexes over nested evidence fields are skipped.
func (s *Store) EnsureIndexes(ctx context.Context, indexes []document.Index) error {
	for _, idx := range indexes {
		cols, ok := indexColumns(idx)
		if !ok {
			s.logger.Debug("skipping nested index", zap.String("index", idx.Name))
			continue
		}
		stmt := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s_%s ON %s (%s)",
			tableVariants, idx.Name, tableVariants, strings.Join(cols, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

func indexColumns(idx document.Index) ([]string, bool) {
	if !idx.TopLevel() {
		return nil, false
	}
	cols := make([]string, 0, len(idx.Fields))
	for _, f := range idx.Fields {
		c, ok := columns[f]
		if !ok {
			return nil, false
		}
		cols = append(cols, c)
	}
	return cols, true
}

// Count returns the number of stored variant documents.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+tableVariants).Scan(&n); err != nil {
		return 0, fmt.Errorf("count variants: %w", err)
	}
	return n, nil
}
