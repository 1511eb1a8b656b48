package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/jobsel/internal/log"
)

func TestCorrelation(t *testing.T) {
	var correlationID, requestID string
	handler := middleware.RequestID(Correlation(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		correlationID = log.CorrelationID(r.Context())
		requestID = log.RequestID(r.Context())
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "corr-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "corr-1", correlationID)
	assert.Equal(t, "corr-1", w.Header().Get(CorrelationIDHeader))
	assert.NotEmpty(t, requestID)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(CorrelationIDHeader))
	assert.NotEqual(t, "corr-1", correlationID)
}

func TestLogging_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "request completed", record["msg"])
	assert.Equal(t, float64(http.StatusNotFound), record["status"])
	assert.Equal(t, "/missing", record["path"])
}
