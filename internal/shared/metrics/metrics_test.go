package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200 from metrics handler, got %d", rec.Code)
	}
	return rec.Body.String()
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/patients/{patientID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, id := range []string{"p1", "p2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/patients/"+id, nil))
	}

	body := scrape(t)
	if !strings.Contains(body, `path="/patients/{patientID}"`) {
		t.Error("Expected requests labelled with the route pattern")
	}
	if strings.Contains(body, `path="/patients/p1"`) {
		t.Error("Raw paths must not be used as labels")
	}
}

func TestSessionMetricsExposed(t *testing.T) {
	RecordLoginAttempt("success")
	RecordSessionRestore("restored")
	RecordLogout()
	SetAuthenticated(true)
	RecordGuardDecision("redirect")
	RecordStoreOperation("memory", "save", 0)
	RecordAuthorizationDecision("consultation", "write", false)

	body := scrape(t)
	for _, want := range []string{
		`session_login_attempts_total{outcome="success"}`,
		`session_restores_total{outcome="restored"}`,
		"session_logouts_total",
		"session_authenticated 1",
		`route_guard_decisions_total{decision="redirect"}`,
		`session_store_operation_duration_seconds_count{backend="memory",operation="save"}`,
		`authorization_decisions_total{action="write",decision="deny",resource_type="consultation"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected %s in exposition", want)
		}
	}

	SetAuthenticated(false)
	if !strings.Contains(scrape(t), "session_authenticated 0") {
		t.Error("Expected authenticated gauge reset to 0")
	}
}
