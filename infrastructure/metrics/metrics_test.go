package metrics

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixml/jobsel/application/service"
	"github.com/helixml/jobsel/domain/selection"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{selection.ErrUnknownQueue, "unknown_queue"},
		{fmt.Errorf("walk: %w", selection.ErrOutOfMemory), "out_of_memory"},
		{fmt.Errorf("boom"), OutcomeOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err))
	}
}

func TestRecorder_ObserveQuery(t *testing.T) {
	r := NewRecorder()

	r.ObserveQuery(service.KindSelectJobs, 3, 10*time.Millisecond, nil)
	r.ObserveQuery(service.KindSelectJobs, 2, time.Millisecond, nil)
	r.ObserveQuery(service.KindSelectStatus, 0, time.Millisecond, selection.ErrInvalidValue)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.queriesTotal.WithLabelValues("select_jobs", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.queriesTotal.WithLabelValues("select_status", "invalid_value")))
	assert.Equal(t, 5.0, testutil.ToFloat64(r.matchedJobs.WithLabelValues("select_jobs")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.matchedJobs.WithLabelValues("select_status")))
}

func TestRecorder_Middleware(t *testing.T) {
	r := NewRecorder()
	router := chi.NewRouter()
	router.Use(r.Middleware)
	router.Get("/jobs/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	router.Get("/ok", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	for _, path := range []string{"/jobs/1", "/jobs/2", "/ok"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("GET", "/jobs/{id}", "418")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.requestsTotal.WithLabelValues("GET", "/ok", "200")))
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveQuery(service.KindSelectJobs, 1, time.Millisecond, nil)

	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "jobsel_queries_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
