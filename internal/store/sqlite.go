package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS efile_documents (
	id          TEXT PRIMARY KEY,
	file_name   TEXT NOT NULL,
	parsed_at   INTEGER NOT NULL,
	size        INTEGER NOT NULL DEFAULT 0,
	table_count INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS efile_tables (
	document_id  TEXT NOT NULL,
	name         TEXT NOT NULL,
	position     INTEGER NOT NULL,
	columns      TEXT NOT NULL,
	column_types TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	uniform      INTEGER NOT NULL,
	PRIMARY KEY (document_id, name)
);
CREATE TABLE IF NOT EXISTS efile_rows (
	document_id TEXT NOT NULL,
	table_name  TEXT NOT NULL,
	row_index   INTEGER NOT NULL,
	cells       TEXT NOT NULL,
	PRIMARY KEY (document_id, table_name, row_index)
);
CREATE TABLE IF NOT EXISTS efile_anomalies (
	document_id TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	kind        TEXT NOT NULL,
	section     TEXT NOT NULL,
	line        INTEGER NOT NULL,
	detail      TEXT NOT NULL,
	PRIMARY KEY (document_id, seq)
);
CREATE INDEX IF NOT EXISTS idx_efile_documents_parsed_at ON efile_documents(parsed_at);
`

// SQLite stores documents in an embedded SQLite database. Header and cells
// are kept as JSON arrays.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite: empty database path")
	}
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: SQLite serializes writers and :memory: is per connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() {
	s.db.Close()
}

func (s *SQLite) Save(ctx context.Context, doc *core.Document) error {
	d, tables := recordsOf(doc)
	id := d.ID.String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSQLite(ctx, tx, id); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO efile_documents (id, file_name, parsed_at, size, table_count) VALUES (?, ?, ?, ?, ?)`,
		id, d.FileName, d.ParsedAt.UnixNano(), d.Size, d.TableCount)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO efile_rows (document_id, table_name, row_index, cells) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer rowStmt.Close()

	for _, t := range tables {
		columns, err := jsonText(t.Columns)
		if err != nil {
			return fmt.Errorf("encode columns of %q: %w", t.Name, err)
		}
		types, err := jsonText(t.Types)
		if err != nil {
			return fmt.Errorf("encode column types of %q: %w", t.Name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO efile_tables (document_id, name, position, columns, column_types, row_count, uniform)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, t.Name, t.Position, columns, types, t.RowCount, t.Uniform)
		if err != nil {
			return fmt.Errorf("insert table %q: %w", t.Name, err)
		}

		for i, cells := range t.Rows {
			data, err := jsonText(cells)
			if err != nil {
				return fmt.Errorf("encode row %d of %q: %w", i, t.Name, err)
			}
			if _, err := rowStmt.ExecContext(ctx, id, t.Name, i, data); err != nil {
				return fmt.Errorf("insert row %d of %q: %w", i, t.Name, err)
			}
		}
	}

	for i, a := range doc.Anomalies {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO efile_anomalies (document_id, seq, kind, section, line, detail) VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, string(a.Kind), a.Section, a.Line, a.Detail)
		if err != nil {
			return fmt.Errorf("insert anomaly: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func deleteSQLite(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"efile_rows", "efile_tables", "efile_anomalies"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE document_id = ?", id); err != nil {
			return fmt.Errorf("delete from %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM efile_documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	var (
		d        documentRecord
		parsedAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT file_name, parsed_at, size, table_count FROM efile_documents WHERE id = ?`,
		id.String()).Scan(&d.FileName, &parsedAt, &d.Size, &d.TableCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	d.ID = id
	d.ParsedAt = time.Unix(0, parsedAt)

	tables, err := s.tables(ctx, id.String())
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT table_name, cells FROM efile_rows WHERE document_id = ? ORDER BY table_name, row_index`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name, data string
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		var cells []string
		if err := json.Unmarshal([]byte(data), &cells); err != nil {
			return nil, fmt.Errorf("decode row of %q: %w", name, err)
		}
		if i, ok := index[name]; ok {
			tables[i].Rows = append(tables[i].Rows, cells)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	anomalies, err := s.anomalies(ctx, id.String())
	if err != nil {
		return nil, err
	}
	return rebuild(d, tables, anomalies)
}

func (s *SQLite) tables(ctx context.Context, id string) ([]tableRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, position, columns, column_types, row_count, uniform
		 FROM efile_tables WHERE document_id = ? ORDER BY position`, id)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var out []tableRecord
	for rows.Next() {
		var (
			t              tableRecord
			columns, types string
		)
		if err := rows.Scan(&t.Name, &t.Position, &columns, &types, &t.RowCount, &t.Uniform); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		if err := json.Unmarshal([]byte(columns), &t.Columns); err != nil {
			return nil, fmt.Errorf("decode columns of %q: %w", t.Name, err)
		}
		if err := json.Unmarshal([]byte(types), &t.Types); err != nil {
			return nil, fmt.Errorf("decode column types of %q: %w", t.Name, err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) anomalies(ctx context.Context, id string) ([]efile.Anomaly, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, section, line, detail FROM efile_anomalies WHERE document_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	defer rows.Close()

	var out []efile.Anomaly
	for rows.Next() {
		var (
			a    efile.Anomaly
			kind string
		)
		if err := rows.Scan(&kind, &a.Section, &a.Line, &a.Detail); err != nil {
			return nil, fmt.Errorf("scan anomaly: %w", err)
		}
		a.Kind = efile.AnomalyKind(kind)
		out = append(out, a)
	}
	return out, rows.Err()
}

// List returns stored documents, most recently parsed first.
func (s *SQLite) List(ctx context.Context) ([]core.DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.file_name, d.parsed_at, d.size, d.table_count,
		        (SELECT count(*) FROM efile_anomalies a WHERE a.document_id = d.id)
		 FROM efile_documents d ORDER BY d.parsed_at DESC, d.id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	type listed struct {
		rec       documentRecord
		anomalies int
	}
	var docs []listed
	for rows.Next() {
		var (
			l        listed
			id       string
			parsedAt int64
		)
		if err := rows.Scan(&id, &l.rec.FileName, &parsedAt, &l.rec.Size, &l.rec.TableCount, &l.anomalies); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan document: %w", err)
		}
		if l.rec.ID, err = uuid.Parse(id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("stored document id %q: %w", id, err)
		}
		l.rec.ParsedAt = time.Unix(0, parsedAt)
		docs = append(docs, l)
	}
	// release the single connection before querying tables
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	out := make([]core.DocumentSummary, 0, len(docs))
	for _, l := range docs {
		tables, err := s.tables(ctx, l.rec.ID.String())
		if err != nil {
			return nil, err
		}
		out = append(out, summaryOf(l.rec, tables, l.anomalies))
	}
	return out, nil
}

func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM efile_documents WHERE id = ?`, id.String()).Scan(&n); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	if err := deleteSQLite(ctx, tx, id.String()); err != nil {
		return err
	}
	return tx.Commit()
}

var _ Backend = (*SQLite)(nil)

// jsonText encodes v for the TEXT columns that hold JSON arrays.
func jsonText(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
