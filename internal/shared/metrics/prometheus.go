package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Session metrics
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_login_attempts_total",
			Help: "Total number of login attempts by outcome",
		},
		[]string{"outcome"},
	)

	sessionRestores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_restores_total",
			Help: "Startup session restores by outcome",
		},
		[]string{"outcome"},
	)

	logouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_logouts_total",
			Help: "Total number of logouts",
		},
	)

	sessionAuthenticated = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "session_authenticated",
			Help: "1 while a user is signed in, 0 otherwise",
		},
	)

	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_store_operation_duration_seconds",
			Help:    "Session store operation duration in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "operation"},
	)

	// Navigation metrics
	guardDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "route_guard_decisions_total",
			Help: "Total number of route guard decisions",
		},
		[]string{"decision"},
	)

	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of role checks",
		},
		[]string{"resource_type", "action", "decision"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(wrapped, r)

		status := wrapped.Status()
		if status == 0 {
			status = http.StatusOK
		}

		path := routePattern(r)
		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routePattern labels requests by their chi route template so that
// /patients/p1 and /patients/p2 share a series.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// --- Session metric helpers ---

// RecordLoginAttempt records a login outcome: "success", "invalid_credentials" or "error".
func RecordLoginAttempt(outcome string) {
	loginAttempts.WithLabelValues(outcome).Inc()
}

// RecordSessionRestore records a startup restore: "restored", "absent" or "discarded".
func RecordSessionRestore(outcome string) {
	sessionRestores.WithLabelValues(outcome).Inc()
}

// RecordLogout records a logout
func RecordLogout() {
	logouts.Inc()
}

// SetAuthenticated tracks whether a session is currently active.
func SetAuthenticated(active bool) {
	if active {
		sessionAuthenticated.Set(1)
		return
	}
	sessionAuthenticated.Set(0)
}

// RecordStoreOperation records a session store call duration
func RecordStoreOperation(backend, operation string, duration time.Duration) {
	storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
}

// RecordGuardDecision records a route guard decision
func RecordGuardDecision(decision string) {
	guardDecisions.WithLabelValues(decision).Inc()
}

// RecordAuthorizationDecision records a role check
func RecordAuthorizationDecision(resourceType, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authorizationDecisions.WithLabelValues(resourceType, action, decision).Inc()
}
