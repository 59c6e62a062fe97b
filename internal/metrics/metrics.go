package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/question"
)

type Metrics struct {
	Evaluations *prometheus.CounterVec
	Duration    *prometheus.HistogramVec
	Requests    *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New registers the grading collectors on reg. Pass a fresh
// prometheus.NewRegistry() in tests.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grading_evaluations_total",
				Help: "Graded question responses by question type and status",
			},
			[]string{"type", "status"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grading_evaluation_duration_seconds",
				Help:    "Time spent grading one question response",
				Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
			},
			[]string{"type"},
		),
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		gatherer: reg,
	}
	reg.MustRegister(m.Evaluations, m.Duration, m.Requests)
	return m
}

func (m *Metrics) ObserveEvaluation(t question.Type, status grading.Status, took time.Duration) {
	typ := string(t)
	if typ == "" {
		typ = "unknown"
	}
	m.Evaluations.WithLabelValues(typ, string(status)).Inc()
	m.Duration.WithLabelValues(typ).Observe(took.Seconds())
}

// Middleware counts requests by method and response status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		m.Requests.WithLabelValues(r.Method, http.StatusText(sw.status)).Inc()
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
