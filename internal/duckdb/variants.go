package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-variants/internal/document"
	"github.com/inodb/vibe-variants/internal/merge"
	"github.com/inodb/vibe-variants/internal/variant"
)

const backend = "duckdb"

// ErrNotFound is returned by Lookup for an unknown key.
var ErrNotFound = errors.New("variant not found")

// BulkUpsert applies a batch of merge-upsert operations in one transaction.
//
// The canonical rows of the batch are appended to the staging table first
// and copied into the variants table with ON CONFLICT DO NOTHING, so an
// existing document keeps its canonical fields. Every evidence element is
// then inserted into its child table unless an identical element is already
// stored for the same key.
func (s *Store) BulkUpsert(ctx context.Context, ops []merge.Operation) error {
	if len(ops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.bulkUpsert(ctx, ops); err != nil {
		return &merge.WriteError{Backend: backend, Ops: len(ops), Err: err}
	}
	s.logger.Debug("batch applied", zap.Int("operations", len(ops)))
	return nil
}

func (s *Store) bulkUpsert(ctx context.Context, ops []merge.Operation) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "DELETE FROM "+tableStaging); err != nil {
		return fmt.Errorf("clear staging: %w", err)
	}
	if err := stageCanonical(conn, ops); err != nil {
		return err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `INSERT INTO `+tableVariants+`
		SELECT id, chr, start, end_pos, len, ref, alt, type, ids, hgvs, annot
		FROM `+tableStaging+`
		ON CONFLICT (id) DO NOTHING`); err != nil {
		return fmt.Errorf("insert canonical: %w", err)
	}

	addFile, err := tx.PrepareContext(ctx, appendStatement(tableFiles))
	if err != nil {
		return fmt.Errorf("prepare files append: %w", err)
	}
	defer addFile.Close()

	addStats, err := tx.PrepareContext(ctx, appendStatement(tableStats))
	if err != nil {
		return fmt.Errorf("prepare stats append: %w", err)
	}
	defer addStats.Close()

	for _, op := range ops {
		for _, f := range op.AddFiles {
			if err := appendElement(ctx, addFile, op.ID, f); err != nil {
				return fmt.Errorf("append file evidence to %s: %w", op.ID, err)
			}
		}
		for _, st := range op.AddStats {
			if err := appendElement(ctx, addStats, op.ID, st); err != nil {
				return fmt.Errorf("append stats evidence to %s: %w", op.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// appendStatement builds the conditional insert into an evidence table.
// Parameters: id, element, id, element.
func appendStatement(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (id, elem)
		SELECT CAST(? AS VARCHAR), CAST(? AS VARCHAR)
		WHERE NOT EXISTS (SELECT 1 FROM %s WHERE id = ? AND elem = ?)`,
		table, table)
}

func appendElement(ctx context.Context, stmt *sql.Stmt, id string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	elem := string(raw)
	_, err = stmt.ExecContext(ctx, id, elem, id, elem)
	return err
}

// stageCanonical writes the canonical row of every distinct key in ops to
// the staging table using the Appender API. Only the first operation per
// key is staged.
func stageCanonical(conn *sql.Conn, ops []merge.Operation) error {
	seen := make(map[string]bool, len(ops))

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", tableStaging)
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}

	for _, op := range ops {
		if seen[op.ID] {
			continue
		}
		seen[op.ID] = true

		c := op.SetOnInsert
		ids, err := jsonColumn(c.IDs, len(c.IDs) == 0)
		if err != nil {
			appender.Close()
			return err
		}
		hgvs, err := jsonColumn(c.HGVS, len(c.HGVS) == 0)
		if err != nil {
			appender.Close()
			return err
		}
		annot, err := jsonColumn(c.Annotation, c.Annotation == nil)
		if err != nil {
			appender.Close()
			return err
		}

		if err := appender.AppendRow(
			op.ID, c.Chromosome, c.Start, c.End, c.Length,
			c.Reference, c.Alternate, c.Type, ids, hgvs, annot,
		); err != nil {
			appender.Close()
			return fmt.Errorf("append canonical row: %w", err)
		}
	}

	if err := appender.Close(); err != nil {
		return fmt.Errorf("flush staging: %w", err)
	}
	return nil
}

// jsonColumn encodes v as JSON text, or returns nil (SQL NULL) when empty.
func jsonColumn(v any, empty bool) (driver.Value, error) {
	if empty {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode column: %w", err)
	}
	return string(raw), nil
}

// Lookup reads the document stored under id. Attribute keys are returned
// unescaped.
func (s *Store) Lookup(ctx context.Context, id string) (*document.Variant, error) {
	doc := &document.Variant{ID: id}
	var ids, hgvs, annot sql.NullString

	err := s.db.QueryRowContext(ctx, `SELECT chr, start, end_pos, len, ref, alt, type, ids, hgvs, annot
		FROM `+tableVariants+` WHERE id = ?`, id).Scan(
		&doc.Chromosome, &doc.Start, &doc.End, &doc.Length,
		&doc.Reference, &doc.Alternate, &doc.Type, &ids, &hgvs, &annot,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query variant: %w", err)
	}
	if _, err := variant.ParseType(doc.Type); err != nil {
		return nil, fmt.Errorf("variant %s: %w", id, err)
	}

	if ids.Valid {
		if err := json.Unmarshal([]byte(ids.String), &doc.IDs); err != nil {
			return nil, fmt.Errorf("decode ids: %w", err)
		}
	}
	if hgvs.Valid {
		if err := json.Unmarshal([]byte(hgvs.String), &doc.HGVS); err != nil {
			return nil, fmt.Errorf("decode hgvs: %w", err)
		}
	}
	if annot.Valid {
		doc.Annotation = &document.Annotation{}
		if err := json.Unmarshal([]byte(annot.String), doc.Annotation); err != nil {
			return nil, fmt.Errorf("decode annotation: %w", err)
		}
	}

	if doc.Files, err = lookupList[document.Source](ctx, s.db, tableFiles, id); err != nil {
		return nil, err
	}
	if doc.Stats, err = lookupList[document.Stats](ctx, s.db, tableStats, id); err != nil {
		return nil, err
	}
	doc.UnescapeKeys()
	return doc, nil
}

// lookupList decodes the evidence elements stored for id in insertion order.
func lookupList[T any](ctx context.Context, db *sql.DB, table, id string) ([]T, error) {
	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT elem FROM %s WHERE id = ? ORDER BY rowid", table), id)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		var v T
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode %s: %w", table, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return out, nil
}
