package core

import (
	"context"
	"log/slog"
	"time"

	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/metrics"
	"github.com/google/uuid"
)

// Document is one parsed efile. It is immutable once returned by the
// Service.
type Document struct {
	ID        uuid.UUID
	FileName  string
	ParsedAt  time.Time
	Size      int64
	Result    *efile.Result
	Anomalies []efile.Anomaly
}

// Table returns the named table of the document.
func (d *Document) Table(name string) (*efile.Table, error) {
	t, ok := d.Result.Get(name)
	if !ok {
		return nil, &TableNotFoundError{Document: d.ID, Name: name}
	}
	return t, nil
}

// Summary describes the document without its cells.
func (d *Document) Summary() DocumentSummary {
	tables := make([]TableSummary, 0, d.Result.Len())
	for _, t := range d.Result.Tables() {
		tables = append(tables, SummarizeTable(t))
	}
	return DocumentSummary{
		ID:         d.ID,
		FileName:   d.FileName,
		ParsedAt:   d.ParsedAt,
		Size:       d.Size,
		TableCount: len(tables),
		Tables:     tables,
		Anomalies:  len(d.Anomalies),
	}
}

// DocumentSummary is the listing view of a document.
type DocumentSummary struct {
	ID         uuid.UUID      `json:"id"`
	FileName   string         `json:"file_name"`
	ParsedAt   time.Time      `json:"parsed_at"`
	Size       int64          `json:"size"`
	TableCount int            `json:"table_count"`
	Tables     []TableSummary `json:"tables,omitempty"`
	Anomalies  int            `json:"anomalies"`
}

// TableSummary describes one table without its cells.
type TableSummary struct {
	Name    string         `json:"name"`
	Columns []efile.Column `json:"columns"`
	Rows    int            `json:"rows"`
	Uniform bool           `json:"uniform"`
}

// SummarizeTable returns the TableSummary of t.
func SummarizeTable(t *efile.Table) TableSummary {
	return TableSummary{
		Name:    t.Name(),
		Columns: t.Schema(),
		Rows:    t.NumRows(),
		Uniform: t.Uniform(),
	}
}

// Store persists documents. Implementations return ErrDocumentNotFound for
// unknown ids.
type Store interface {
	Save(ctx context.Context, doc *Document) error
	Load(ctx context.Context, id uuid.UUID) (*Document, error)
	List(ctx context.Context) ([]DocumentSummary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Options tunes a Service. Zero values select the defaults.
type Options struct {
	MaxFileSize    int64
	MaxConcurrent  int
	MaxWait        time.Duration
	MaxCached      int
	StrictRowWidth bool

	Logger  *slog.Logger
	Metrics *metrics.Registry

	// Now overrides the clock used for ParsedAt.
	Now func() time.Time
}

// Defaults for Options.
const (
	DefaultMaxFileSize = 32 << 20
	DefaultMaxCached   = 100
)

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.MaxCached <= 0 {
		o.MaxCached = DefaultMaxCached
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
