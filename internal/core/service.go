package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/metrics"
	"github.com/google/uuid"
)

// Service parses documents, keeps the recent ones in memory and moves them
// to and from a Store.
type Service struct {
	spec    efile.FormatSpec
	store   Store
	opts    Options
	limiter *ParseLimiter
	metrics *metrics.Registry
	logger  *slog.Logger

	mu     sync.RWMutex
	docs   map[uuid.UUID]*Document
	cached map[uuid.UUID]time.Time
	order  []uuid.UUID // oldest first
}

// NewService creates a Service parsing with spec. store may be nil, in
// which case storage operations return ErrStoreDisabled.
func NewService(spec efile.FormatSpec, store Store, opts Options) *Service {
	opts = opts.withDefaults()

	s := &Service{
		spec:    spec,
		store:   store,
		opts:    opts,
		limiter: NewParseLimiter(opts.MaxConcurrent, opts.MaxWait),
		metrics: opts.Metrics,
		logger:  opts.Logger,
		docs:    make(map[uuid.UUID]*Document),
		cached:  make(map[uuid.UUID]time.Time),
	}
	s.limiter.onChange = s.metrics.SetParsesActive
	return s
}

// Spec returns the format tokens documents are parsed and written with.
func (s *Service) Spec() efile.FormatSpec {
	return s.spec
}

// Limiter returns the parse limiter, for status reporting and shutdown.
func (s *Service) Limiter() *ParseLimiter {
	return s.limiter
}

// StoreEnabled reports whether documents can be saved.
func (s *Service) StoreEnabled() bool {
	return s.store != nil
}

// Parse reads one document from r and caches the result. size is the
// declared size, or -1 when unknown; the limit is enforced on the bytes
// actually read either way.
func (s *Service) Parse(ctx context.Context, fileName string, r io.Reader, size int64) (*Document, error) {
	if size > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, size, s.opts.MaxFileSize)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	data, err := io.ReadAll(io.LimitReader(r, s.opts.MaxFileSize+1))
	if err != nil {
		return nil, &efile.FileReadError{Path: fileName, Err: err}
	}
	if int64(len(data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w: limit %d bytes", ErrFileTooLarge, s.opts.MaxFileSize)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyFile
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := s.parse(ctx, fileName, data)
	if err != nil {
		return nil, err
	}

	s.put(doc)
	return doc, nil
}

func (s *Service) parse(ctx context.Context, fileName string, data []byte) (*Document, error) {
	id := uuid.New()
	logger := s.logger.With("document_id", id, "file", fileName).With(clientAttrs(ctx)...)

	var anomalies efile.AnomalyCollector
	opts := []efile.Option{
		efile.WithLogger(logger),
		efile.WithAnomalyHandler(func(a efile.Anomaly) {
			anomalies.Add(a)
			s.metrics.ObserveAnomaly(string(a.Kind))
		}),
	}
	if s.opts.StrictRowWidth {
		opts = append(opts, efile.WithStrictRowWidth())
	}

	start := time.Now()
	result, err := efile.NewParser(s.spec, opts...).ParseBytes(fileName, data)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.ObserveParse(false, int64(len(data)), elapsed, 0, 0)
		logger.WarnContext(ctx, "parse failed", "error", err)
		return nil, err
	}

	rows := 0
	for _, t := range result.Tables() {
		rows += t.NumRows()
	}
	s.metrics.ObserveParse(true, int64(len(data)), elapsed, result.Len(), rows)

	logger.InfoContext(ctx, "document parsed",
		"tables", result.Len(),
		"rows", rows,
		"anomalies", len(anomalies.Anomalies()),
		"duration", elapsed,
	)

	return &Document{
		ID:        id,
		FileName:  fileName,
		ParsedAt:  s.opts.Now().UTC(),
		Size:      int64(len(data)),
		Result:    result,
		Anomalies: anomalies.Anomalies(),
	}, nil
}

// put caches doc, evicting the oldest documents beyond MaxCached.
func (s *Service) put(doc *Document) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; ok {
		s.order = slices.DeleteFunc(s.order, func(id uuid.UUID) bool { return id == doc.ID })
	}
	s.docs[doc.ID] = doc
	s.cached[doc.ID] = s.opts.Now()
	s.order = append(s.order, doc.ID)

	for len(s.order) > s.opts.MaxCached {
		evicted := s.order[0]
		s.order = s.order[1:]
		delete(s.docs, evicted)
		delete(s.cached, evicted)
		s.logger.Debug("document evicted", "document_id", evicted)
	}
	s.metrics.SetDocumentsCached(len(s.docs))
}

// Document returns a cached document.
func (s *Service) Document(id uuid.UUID) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	}
	return doc, nil
}

// Documents lists cached documents, newest first.
func (s *Service) Documents() []DocumentSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]DocumentSummary, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.docs[s.order[i]].Summary())
	}
	return out
}

// Table returns one table of a cached document.
func (s *Service) Table(id uuid.UUID, name string) (*efile.Table, error) {
	doc, err := s.Document(id)
	if err != nil {
		return nil, err
	}
	return doc.Table(name)
}

// Forget drops a document from the cache. It reports whether the document
// was cached.
func (s *Service) Forget(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return false
	}
	delete(s.docs, id)
	delete(s.cached, id)
	s.order = slices.DeleteFunc(s.order, func(o uuid.UUID) bool { return o == id })
	s.metrics.SetDocumentsCached(len(s.docs))
	return true
}

// Export writes a cached document, or one of its tables, in format.
func (s *Service) Export(w io.Writer, id uuid.UUID, table string, format Format) error {
	doc, err := s.Document(id)
	if err != nil {
		return err
	}
	if err := Export(w, doc, table, format, s.spec); err != nil {
		return err
	}
	s.metrics.ObserveExport(string(format))
	return nil
}

// Save persists a cached document.
func (s *Service) Save(ctx context.Context, id uuid.UUID) error {
	if s.store == nil {
		return ErrStoreDisabled
	}
	doc, err := s.Document(id)
	if err != nil {
		return err
	}

	err = s.store.Save(ctx, doc)
	s.metrics.ObserveStore("save", err)
	if err != nil {
		return fmt.Errorf("save document %s: %w", id, err)
	}
	s.logger.InfoContext(ctx, "document saved", "document_id", id, "file", doc.FileName)
	return nil
}

// Stored lists persisted documents.
func (s *Service) Stored(ctx context.Context) ([]DocumentSummary, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	list, err := s.store.List(ctx)
	s.metrics.ObserveStore("list", err)
	if err != nil {
		return nil, fmt.Errorf("list stored documents: %w", err)
	}
	return list, nil
}

// LoadStored reads a persisted document and caches it.
func (s *Service) LoadStored(ctx context.Context, id uuid.UUID) (*Document, error) {
	if s.store == nil {
		return nil, ErrStoreDisabled
	}
	doc, err := s.store.Load(ctx, id)
	s.metrics.ObserveStore("load", err)
	if err != nil {
		return nil, fmt.Errorf("load document %s: %w", id, err)
	}
	s.put(doc)
	return doc, nil
}

// DeleteStored removes a persisted document. The cached copy, if any, stays.
func (s *Service) DeleteStored(ctx context.Context, id uuid.UUID) error {
	if s.store == nil {
		return ErrStoreDisabled
	}
	err := s.store.Delete(ctx, id)
	s.metrics.ObserveStore("delete", err)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// Shutdown waits for in-flight parses to finish.
func (s *Service) Shutdown(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
