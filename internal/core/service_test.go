package core

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/efile/internal/efile"
	"github.com/JonMunkholm/efile/internal/metrics"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tariffDoc = `<units>
@ year month voltage price
# - - kV yuan/kWh
</units>
<values>
@ year month voltage price
# 2023 1 220 0.3512
# 2023 2 110 0.4
</values>
`

// memStore is an in-memory Store.
type memStore struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*Document
	err  error
}

func newMemStore() *memStore {
	return &memStore{docs: make(map[uuid.UUID]*Document)}
}

func (m *memStore) Save(_ context.Context, doc *Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.docs[doc.ID] = doc
	return nil
}

func (m *memStore) Load(_ context.Context, id uuid.UUID) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (m *memStore) List(context.Context) ([]DocumentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []DocumentSummary
	for _, d := range m.docs {
		out = append(out, d.Summary())
	}
	return out, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return ErrDocumentNotFound
	}
	delete(m.docs, id)
	return nil
}

func newTestService(t *testing.T, store Store, opts Options) *Service {
	t.Helper()
	return NewService(efile.DefaultFormatSpec(), store, opts)
}

func TestService_Parse(t *testing.T) {
	reg := metrics.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := newTestService(t, nil, Options{Metrics: reg, Now: func() time.Time { return now }})

	doc, err := svc.Parse(context.Background(), "tariff.Qs", strings.NewReader(tariffDoc), int64(len(tariffDoc)))
	require.NoError(t, err)

	assert.Equal(t, "tariff.Qs", doc.FileName)
	assert.Equal(t, now, doc.ParsedAt)
	assert.Equal(t, int64(len(tariffDoc)), doc.Size)
	assert.Equal(t, []string{"units", "values"}, doc.Result.Names())
	assert.Empty(t, doc.Anomalies)

	cached, err := svc.Document(doc.ID)
	require.NoError(t, err)
	assert.Same(t, doc, cached)

	assert.Equal(t, 1.0, testutil.ToFloat64(reg.ParsesTotal.WithLabelValues("ok")))
	assert.Equal(t, 3.0, testutil.ToFloat64(reg.RowsParsed))
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.DocumentsCached))
}

func TestService_ParseAnomalies(t *testing.T) {
	reg := metrics.New()
	svc := newTestService(t, nil, Options{Metrics: reg})

	doc, err := svc.Parse(context.Background(), "a.Qs", strings.NewReader("<t>\n@ a b\n# 1\n</t>\n</x>\n"), -1)
	require.NoError(t, err)

	kinds := make([]efile.AnomalyKind, len(doc.Anomalies))
	for i, a := range doc.Anomalies {
		kinds[i] = a.Kind
	}
	assert.Equal(t, []efile.AnomalyKind{efile.AnomalyUnmatchedClose, efile.AnomalyRowWidth}, kinds)
	assert.Equal(t, 2, doc.Summary().Anomalies)
	assert.Equal(t, 1.0, testutil.ToFloat64(reg.Anomalies.WithLabelValues("row_width")))
}

func TestService_ParseStrict(t *testing.T) {
	svc := newTestService(t, nil, Options{StrictRowWidth: true})

	_, err := svc.Parse(context.Background(), "a.Qs", strings.NewReader("<t>\n@ a b\n# 1\n</t>\n"), -1)

	var rwe *efile.RowWidthError
	require.ErrorAs(t, err, &rwe)
	assert.Equal(t, "PAR001", MapError(err).Code)
	assert.Empty(t, svc.Documents())
}

func TestService_ParseLimits(t *testing.T) {
	svc := newTestService(t, nil, Options{MaxFileSize: 16})
	ctx := context.Background()

	_, err := svc.Parse(ctx, "big.Qs", strings.NewReader(tariffDoc), int64(len(tariffDoc)))
	assert.ErrorIs(t, err, ErrFileTooLarge, "declared size")

	_, err = svc.Parse(ctx, "big.Qs", strings.NewReader(tariffDoc), -1)
	assert.ErrorIs(t, err, ErrFileTooLarge, "actual size")

	_, err = svc.Parse(ctx, "empty.Qs", strings.NewReader(" \n\n"), -1)
	assert.ErrorIs(t, err, ErrEmptyFile)

	_, err = svc.Parse(ctx, "bad.Qs", bytes.NewReader([]byte("<t>\xff")), -1)
	assert.ErrorIs(t, err, efile.ErrInvalidUTF8)
}

func TestService_ParseBusy(t *testing.T) {
	svc := newTestService(t, nil, Options{MaxConcurrent: 1, MaxWait: 20 * time.Millisecond})

	require.True(t, svc.Limiter().TryAcquire())
	defer svc.Limiter().Release()

	_, err := svc.Parse(context.Background(), "a.Qs", strings.NewReader(tariffDoc), -1)
	assert.ErrorIs(t, err, ErrTooManyParses)
}

func TestService_CacheEviction(t *testing.T) {
	svc := newTestService(t, nil, Options{MaxCached: 2})
	ctx := context.Background()

	var ids []uuid.UUID
	for _, name := range []string{"a.Qs", "b.Qs", "c.Qs"} {
		doc, err := svc.Parse(ctx, name, strings.NewReader(tariffDoc), -1)
		require.NoError(t, err)
		ids = append(ids, doc.ID)
	}

	_, err := svc.Document(ids[0])
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	list := svc.Documents()
	require.Len(t, list, 2)
	assert.Equal(t, "c.Qs", list[0].FileName, "newest first")
	assert.Equal(t, "b.Qs", list[1].FileName)
}

func TestService_TableAndForget(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	doc, err := svc.Parse(context.Background(), "a.Qs", strings.NewReader(tariffDoc), -1)
	require.NoError(t, err)

	table, err := svc.Table(doc.ID, "values")
	require.NoError(t, err)
	assert.Equal(t, 2, table.NumRows())

	_, err = svc.Table(doc.ID, "ranges")
	assert.ErrorIs(t, err, ErrTableNotFound)

	assert.True(t, svc.Forget(doc.ID))
	assert.False(t, svc.Forget(doc.ID))
	_, err = svc.Table(doc.ID, "values")
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestService_Store(t *testing.T) {
	store := newMemStore()
	svc := newTestService(t, store, Options{})
	ctx := context.Background()

	doc, err := svc.Parse(ctx, "a.Qs", strings.NewReader(tariffDoc), -1)
	require.NoError(t, err)
	require.NoError(t, svc.Save(ctx, doc.ID))

	list, err := svc.Stored(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, doc.ID, list[0].ID)

	svc.Forget(doc.ID)
	loaded, err := svc.LoadStored(ctx, doc.ID)
	require.NoError(t, err)
	assert.True(t, loaded.Result.Equal(doc.Result))

	_, err = svc.Document(doc.ID)
	assert.NoError(t, err, "loaded documents are cached")

	require.NoError(t, svc.DeleteStored(ctx, doc.ID))
	_, err = svc.LoadStored(ctx, doc.ID)
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	store.err = errors.New("connection refused")
	err = svc.Save(ctx, doc.ID)
	assert.Equal(t, "DB002", MapError(err).Code)
}

func TestService_StoreDisabled(t *testing.T) {
	svc := newTestService(t, nil, Options{})
	ctx := context.Background()

	assert.False(t, svc.StoreEnabled())
	assert.ErrorIs(t, svc.Save(ctx, uuid.New()), ErrStoreDisabled)
	_, err := svc.Stored(ctx)
	assert.ErrorIs(t, err, ErrStoreDisabled)
	_, err = svc.LoadStored(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrStoreDisabled)
	assert.ErrorIs(t, svc.DeleteStored(ctx, uuid.New()), ErrStoreDisabled)
}

func TestService_Concurrent(t *testing.T) {
	svc := newTestService(t, nil, Options{MaxConcurrent: 2, MaxCached: 50})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Parse(context.Background(), "a.Qs", strings.NewReader(tariffDoc), -1); err != nil {
				t.Errorf("Parse: %v", err)
			}
			svc.Documents()
		}()
	}
	wg.Wait()

	assert.Len(t, svc.Documents(), 20)
	assert.NoError(t, svc.Shutdown(context.Background()))
}
