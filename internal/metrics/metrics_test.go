package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/freight-doc-review/internal/analysis"
	"github.com/jonathan/freight-doc-review/internal/llm"
)

var (
	_ analysis.Recorder = (*Metrics)(nil)
	_ llm.Observer      = (*Metrics)(nil)
)

func TestMiddleware_CountsRequestsByStatus(t *testing.T) {
	m := New("test")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))

	for _, path := range []string{"/health", "/health", "/missing"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("test", "GET", "/health", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("test", "GET", "/missing", "404")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.requestInFlight))
}

func TestNormalizePath(t *testing.T) {
	assert.Equal(t, "/document-comparison/rules/{id}", normalizePath("/document-comparison/rules/7f1c"))
	assert.Equal(t, "/document-comparison/history/{id}", normalizePath("/document-comparison/history/abc"))
	assert.Equal(t, "/document-comparison/rules", normalizePath("/document-comparison/rules"))
}

func TestPipelineObservations(t *testing.T) {
	m := New("test")

	m.ObserveAnalysis(analysis.OutcomeSuccess, 3*time.Second)
	m.ObserveAnalysis("", time.Second)
	m.ObserveDownload(true)
	m.ObserveDownload(false)
	m.ObserveDownload(false)
	m.ObserveExtraction(analysis.ExtractionUnparseable)
	m.ObserveFallbackSections(2)
	m.ObserveFallbackSections(0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisTotal.WithLabelValues("test", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analysisTotal.WithLabelValues("test", "unknown")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.downloadsTotal.WithLabelValues("test", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extractionsTotal.WithLabelValues("test", "unparseable")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fallbackSections))
}

func TestObserveModelCall(t *testing.T) {
	m := New("test")

	m.ObserveModelCall("generate_json", "gemini-2.5-flash", time.Second, nil)
	m.ObserveModelCall("generate_content", "gemini-2.5-pro", time.Second, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCallsTotal.WithLabelValues("test", "generate_json", "gemini-2.5-flash", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.modelCallsTotal.WithLabelValues("test", "generate_content", "gemini-2.5-pro", "error")))
}

func TestHandler_ExposesRegistry(t *testing.T) {
	m := New("test")
	m.ObserveDownload(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "doc_review_analysis_downloads_total")
}
