package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/efile/internal/core"
	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is the part of pgxpool.Pool and pgx.Tx the queries need.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS efile_documents (
	id          uuid PRIMARY KEY,
	file_name   text NOT NULL,
	parsed_at   timestamptz NOT NULL,
	size        bigint NOT NULL DEFAULT 0,
	table_count int NOT NULL
);

CREATE TABLE IF NOT EXISTS efile_tables (
	document_id  uuid NOT NULL REFERENCES efile_documents(id) ON DELETE CASCADE,
	name         text NOT NULL,
	position     int NOT NULL,
	columns      text[] NOT NULL,
	column_types text[] NOT NULL,
	row_count    int NOT NULL,
	uniform      boolean NOT NULL,
	PRIMARY KEY (document_id, name)
);

CREATE TABLE IF NOT EXISTS efile_rows (
	document_id uuid NOT NULL REFERENCES efile_documents(id) ON DELETE CASCADE,
	table_name  text NOT NULL,
	row_index   int NOT NULL,
	cells       text[] NOT NULL,
	PRIMARY KEY (document_id, table_name, row_index)
);

CREATE TABLE IF NOT EXISTS efile_anomalies (
	document_id uuid NOT NULL REFERENCES efile_documents(id) ON DELETE CASCADE,
	seq         int NOT NULL,
	kind        text NOT NULL,
	section     text NOT NULL,
	line        int NOT NULL,
	detail      text NOT NULL,
	PRIMARY KEY (document_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_efile_documents_parsed_at ON efile_documents(parsed_at DESC);
`

// Postgres stores documents in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ConnectPostgres creates a pool for rawURL, sized by pc, and pings it.
func ConnectPostgres(ctx context.Context, rawURL string, pc PoolConfig) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if pc.MaxConns > 0 {
		poolConfig.MaxConns = int32(pc.MaxConns)
	}
	if pc.MinConns > 0 {
		poolConfig.MinConns = int32(pc.MinConns)
	}
	if pc.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = pc.MaxConnLifetime
	}
	if pc.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = pc.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Pool returns the underlying pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() {
	p.pool.Close()
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	return pgtype.UUID{Bytes: id, Valid: true}
}

// Save replaces any stored document with the same id. The document, its
// tables and anomalies are written in one transaction; rows go through COPY.
func (p *Postgres) Save(ctx context.Context, doc *core.Document) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if err := saveDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func saveDocument(ctx context.Context, q DBTX, doc *core.Document) error {
	d, tables := recordsOf(doc)
	id := pgUUID(d.ID)

	if _, err := q.Exec(ctx, `DELETE FROM efile_documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("replace document: %w", err)
	}

	_, err := q.Exec(ctx,
		`INSERT INTO efile_documents (id, file_name, parsed_at, size, table_count) VALUES ($1, $2, $3, $4, $5)`,
		id, d.FileName, d.ParsedAt, d.Size, d.TableCount)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	var rows [][]any
	for _, t := range tables {
		_, err := q.Exec(ctx,
			`INSERT INTO efile_tables (document_id, name, position, columns, column_types, row_count, uniform)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			id, t.Name, t.Position, t.Columns, t.Types, t.RowCount, t.Uniform)
		if err != nil {
			return fmt.Errorf("insert table %q: %w", t.Name, err)
		}
		for i, cells := range t.Rows {
			rows = append(rows, []any{id, t.Name, i, cells})
		}
	}

	if len(rows) > 0 {
		_, err := q.CopyFrom(ctx,
			pgx.Identifier{"efile_rows"},
			[]string{"document_id", "table_name", "row_index", "cells"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}
	}

	if len(doc.Anomalies) > 0 {
		_, err := q.CopyFrom(ctx,
			pgx.Identifier{"efile_anomalies"},
			[]string{"document_id", "seq", "kind", "section", "line", "detail"},
			pgx.CopyFromSlice(len(doc.Anomalies), func(i int) ([]any, error) {
				a := doc.Anomalies[i]
				return []any{id, i, string(a.Kind), a.Section, a.Line, a.Detail}, nil
			}))
		if err != nil {
			return fmt.Errorf("copy anomalies: %w", err)
		}
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context, id uuid.UUID) (*core.Document, error) {
	d, err := loadDocumentRecord(ctx, p.pool, id)
	if err != nil {
		return nil, err
	}

	tables, err := loadTables(ctx, p.pool, id)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, len(tables))
	for i, t := range tables {
		index[t.Name] = i
	}

	rows, err := p.pool.Query(ctx,
		`SELECT table_name, cells FROM efile_rows WHERE document_id = $1 ORDER BY table_name, row_index`,
		pgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		var cells []string
		if err := rows.Scan(&name, &cells); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if i, ok := index[name]; ok {
			tables[i].Rows = append(tables[i].Rows, cells)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}

	anomalies, err := loadAnomalies(ctx, p.pool, id)
	if err != nil {
		return nil, err
	}
	return rebuild(d, tables, anomalies)
}

func loadDocumentRecord(ctx context.Context, q DBTX, id uuid.UUID) (documentRecord, error) {
	var (
		d   documentRecord
		pid pgtype.UUID
	)
	err := q.QueryRow(ctx,
		`SELECT id, file_name, parsed_at, size, table_count FROM efile_documents WHERE id = $1`,
		pgUUID(id)).Scan(&pid, &d.FileName, &d.ParsedAt, &d.Size, &d.TableCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return d, fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	if err != nil {
		return d, fmt.Errorf("query document: %w", err)
	}
	d.ID = uuid.UUID(pid.Bytes)
	return d, nil
}

func loadTables(ctx context.Context, q DBTX, id uuid.UUID) ([]tableRecord, error) {
	rows, err := q.Query(ctx,
		`SELECT name, position, columns, column_types, row_count, uniform
		 FROM efile_tables WHERE document_id = $1 ORDER BY position`,
		pgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (tableRecord, error) {
		var t tableRecord
		err := row.Scan(&t.Name, &t.Position, &t.Columns, &t.Types, &t.RowCount, &t.Uniform)
		return t, err
	})
}

func loadAnomalies(ctx context.Context, q DBTX, id uuid.UUID) ([]efile.Anomaly, error) {
	rows, err := q.Query(ctx,
		`SELECT kind, section, line, detail FROM efile_anomalies WHERE document_id = $1 ORDER BY seq`,
		pgUUID(id))
	if err != nil {
		return nil, fmt.Errorf("query anomalies: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (efile.Anomaly, error) {
		var (
			a    efile.Anomaly
			kind string
		)
		err := row.Scan(&kind, &a.Section, &a.Line, &a.Detail)
		a.Kind = efile.AnomalyKind(kind)
		return a, err
	})
}

// List returns stored documents, most recently parsed first.
func (p *Postgres) List(ctx context.Context) ([]core.DocumentSummary, error) {
	rows, err := p.pool.Query(ctx,
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
	docs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (listed, error) {
		var (
			l   listed
			pid pgtype.UUID
		)
		err := row.Scan(&pid, &l.rec.FileName, &l.rec.ParsedAt, &l.rec.Size, &l.rec.TableCount, &l.anomalies)
		l.rec.ID = uuid.UUID(pid.Bytes)
		return l, err
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	out := make([]core.DocumentSummary, 0, len(docs))
	for _, l := range docs {
		tables, err := loadTables(ctx, p.pool, l.rec.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, summaryOf(l.rec, tables, l.anomalies))
	}
	return out, nil
}

func (p *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM efile_documents WHERE id = $1`, pgUUID(id))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", core.ErrDocumentNotFound, id)
	}
	return nil
}

// Truncate removes every stored document.
func (p *Postgres) Truncate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `TRUNCATE efile_documents CASCADE`)
	return err
}

var (
	_ Backend = (*Postgres)(nil)
	_ DBTX    = (*pgxpool.Pool)(nil)
	_ DBTX    = (pgx.Tx)(nil)
)
