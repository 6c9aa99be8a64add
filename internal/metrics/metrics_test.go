package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveParse(t *testing.T) {
	r := New()

	r.ObserveParse(true, 2048, 3*time.Millisecond, 3, 7)
	r.ObserveParse(false, 10, time.Millisecond, 0, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.ParsesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ParsesTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.TablesParsed))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.RowsParsed))
}

func TestRegistry_Counters(t *testing.T) {
	r := New()

	r.ObserveAnomaly("row_width")
	r.ObserveAnomaly("row_width")
	r.ObserveExport("csv")
	r.ObserveStore("save", nil)
	r.ObserveStore("save", errors.New("boom"))
	r.SetDocumentsCached(4)
	r.ObserveRequest("GET", "/api/documents/{id}", 404, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Anomalies.WithLabelValues("row_width")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Exports.WithLabelValues("csv")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StoreOps.WithLabelValues("save", "error")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.DocumentsCached))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.APIRequests.WithLabelValues("GET", "/api/documents/{id}", "4xx")))
}

func TestRegistry_Nil(t *testing.T) {
	var r *Registry

	assert.NotPanics(t, func() {
		r.ObserveParse(true, 1, time.Millisecond, 1, 1)
		r.ObserveAnomaly("x")
		r.SetParsesActive(1)
		r.SetDocumentsCached(1)
		r.ObserveExport("csv")
		r.ObserveStore("save", nil)
		r.ObserveRequest("GET", "/", 200, time.Millisecond)
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestRegistry_Handler(t *testing.T) {
	r := New()
	r.ObserveExport("yaml")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `efile_exports_total{format="yaml"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
