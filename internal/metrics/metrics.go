// Package metrics exposes Prometheus collectors for HTTP traffic and the blob store.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one registry
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	mediaUploads    *prometheus.CounterVec
	uploadDuration  prometheus.Histogram
	mediaReleases   *prometheus.CounterVec
	loginThrottled  prometheus.Counter
}

// New registers the collectors on a fresh registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "clinic_http_request_duration_seconds",
			Help:    "HTTP request latency by route and method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		mediaUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_media_uploads_total",
			Help: "Blob store uploads by result.",
		}, []string{"result"}),
		uploadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "clinic_media_upload_duration_seconds",
			Help:    "Blob store upload latency.",
			Buckets: prometheus.DefBuckets,
		}),
		mediaReleases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinic_media_releases_total",
			Help: "Blob store deletes by result.",
		}, []string{"result"}),
		loginThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinic_login_throttled_total",
			Help: "Login attempts rejected by the rate limiter.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.mediaUploads,
		m.uploadDuration,
		m.mediaReleases,
		m.loginThrottled,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Middleware records request counts and latency keyed by the chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// ObserveUpload implements media.Recorder
func (m *Metrics) ObserveUpload(duration time.Duration, err error) {
	m.mediaUploads.WithLabelValues(result(err)).Inc()
	m.uploadDuration.Observe(duration.Seconds())
}

// ObserveRelease implements media.Recorder
func (m *Metrics) ObserveRelease(err error) {
	m.mediaReleases.WithLabelValues(result(err)).Inc()
}

// LoginThrottled counts a rate limited login
func (m *Metrics) LoginThrottled() {
	m.loginThrottled.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
