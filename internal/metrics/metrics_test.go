package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/blog/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Handle("/metrics", m.Handler())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/blog/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requests.WithLabelValues("/blog/{slug}", "GET", "404")))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "clinic_http_requests_total")
}

func TestRecorder(t *testing.T) {
	m := New()
	m.ObserveUpload(10*time.Millisecond, nil)
	m.ObserveUpload(time.Millisecond, errors.New("boom"))
	m.ObserveRelease(nil)
	m.LoginThrottled()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.mediaUploads.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mediaUploads.WithLabelValues("error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.mediaReleases.WithLabelValues("ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.loginThrottled))
}
