package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mind-engage/mindengage-grading/internal/grading"
	"github.com/mind-engage/mindengage-grading/internal/question"
)

func TestObserveEvaluation(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveEvaluation(question.TypeMCQ, grading.StatusGraded, time.Millisecond)
	m.ObserveEvaluation(question.TypeMCQ, grading.StatusGraded, time.Millisecond)
	m.ObserveEvaluation("", grading.StatusConfigurationErr, time.Millisecond)

	if got := testutil.ToFloat64(m.Evaluations.WithLabelValues("MCQ", "graded")); got != 2 {
		t.Fatalf("MCQ graded = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Evaluations.WithLabelValues("unknown", "configuration_error")); got != 1 {
		t.Fatalf("unknown errors = %v, want 1", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("GET", http.StatusText(http.StatusTeapot))); got != 1 {
		t.Fatalf("requests = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "http_requests_total") {
		t.Fatalf("metrics output missing counter: %s", rec.Body.String())
	}
}
