package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flexireact/flexi"
)

func limiterContext(remoteAddr string) *flexi.Context {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = remoteAddr
	return flexi.NewContext(httptest.NewRecorder(), r)
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	mw := RateLimit(WithRate(1, 3))

	for i := 0; i < 3; i++ {
		out := mw.Handler(limiterContext("10.0.0.1:5000"))
		if out.Kind != flexi.OutcomeContinue {
			t.Fatalf("request %d: outcome kind = %v, want Continue", i, out.Kind)
		}
	}
}

func TestRateLimitRejectsOverBurst(t *testing.T) {
	mw := RateLimit(WithRate(1, 2))

	mw.Handler(limiterContext("10.0.0.2:5000"))
	mw.Handler(limiterContext("10.0.0.2:5000"))
	out := mw.Handler(limiterContext("10.0.0.2:5000"))

	if out.Kind != flexi.OutcomeResponse {
		t.Fatalf("outcome kind = %v, want Response", out.Kind)
	}
	if out.Status != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", out.Status)
	}
	if out.Headers.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestRateLimitKeysClientsSeparately(t *testing.T) {
	mw := RateLimit(WithRate(1, 1))

	if out := mw.Handler(limiterContext("10.0.0.3:5000")); out.Kind != flexi.OutcomeContinue {
		t.Fatalf("first client blocked: %v", out.Kind)
	}
	if out := mw.Handler(limiterContext("10.0.0.3:5000")); out.Kind != flexi.OutcomeResponse {
		t.Fatalf("first client not limited on second request: %v", out.Kind)
	}
	// A different IP has its own bucket.
	if out := mw.Handler(limiterContext("10.0.0.4:5000")); out.Kind != flexi.OutcomeContinue {
		t.Errorf("second client blocked by first client's bucket: %v", out.Kind)
	}
}

func TestRateLimitCustomKeyFunc(t *testing.T) {
	mw := RateLimit(
		WithRate(1, 1),
		WithKeyFunc(func(ctx *flexi.Context) string {
			return ctx.Header("X-API-Key")
		}),
	)

	withKey := func(key string) *flexi.Context {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-API-Key", key)
		return flexi.NewContext(httptest.NewRecorder(), r)
	}

	mw.Handler(withKey("alpha"))
	if out := mw.Handler(withKey("alpha")); out.Kind != flexi.OutcomeResponse {
		t.Errorf("same key not limited: %v", out.Kind)
	}
	if out := mw.Handler(withKey("beta")); out.Kind != flexi.OutcomeContinue {
		t.Errorf("different key limited: %v", out.Kind)
	}
}

func TestStatusWriterCapturesStatusAndSize(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}

	sw.WriteHeader(http.StatusNotFound)
	sw.WriteHeader(http.StatusOK) // second call must not overwrite
	sw.Write([]byte("not found"))

	if sw.status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", sw.status)
	}
	if sw.bytes != int64(len("not found")) {
		t.Errorf("bytes = %d", sw.bytes)
	}
}

func TestStatusWriterImplicitOK(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	sw.Write([]byte("body"))
	if sw.status != http.StatusOK {
		t.Errorf("status = %d, want implicit 200", sw.status)
	}
}

func TestStatusWriterForwardsFlush(t *testing.T) {
	rec := httptest.NewRecorder()
	sw := &statusWriter{ResponseWriter: rec}
	sw.Flush()
	if !rec.Flushed {
		t.Error("Flush not forwarded to underlying writer")
	}
}

func TestPrometheusWrapperCollects(t *testing.T) {
	reg := prometheus.NewRegistry()
	wrap := Prometheus(WithRegistry(reg))

	handler := wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tea", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("wrapped handler status = %d", rec.Code)
	}

	metricsRec := httptest.NewRecorder()
	promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).
		ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := metricsRec.Body.String()

	if !strings.Contains(body, "requests_total") {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
	if !strings.Contains(body, `status="418"`) {
		t.Errorf("exposition missing captured status label:\n%s", body)
	}
}
