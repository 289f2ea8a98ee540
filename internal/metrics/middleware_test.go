package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/ajax", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("0"))
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/ajax", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/ajax", "200")); v < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", v)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMiddleware_RoutePatternLabel(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/facets/{kind}/{key}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, path := range []string{"/facets/terms/color", "/facets/meta/size"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, http.NoBody))
	}

	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/facets/{kind}/{key}", "404")); v < 2 {
		t.Errorf("expected both requests under the route pattern, got %f", v)
	}
}

func TestRouteLabel_Unrouted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nowhere", http.NoBody)
	if got := routeLabel(req); got != "unknown" {
		t.Errorf("routeLabel() = %q, want unknown", got)
	}
}

func TestStatusWriter_FirstStatusWins(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &statusWriter{ResponseWriter: rr, status: http.StatusOK}

	_, _ = w.Write([]byte("x"))
	w.WriteHeader(http.StatusTeapot)

	if w.status != http.StatusOK {
		t.Errorf("status = %d, want 200", w.status)
	}
}

func TestRegister_Idempotent(t *testing.T) {
	Register()
	Register()

	CompileTotal.WithLabelValues("empty").Inc()
	if v := testutil.ToFloat64(CompileTotal.WithLabelValues("empty")); v < 1 {
		t.Errorf("compile_total{empty} = %f, want >= 1", v)
	}
}
