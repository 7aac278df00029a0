package web

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gymfloor/internal/adapters/http/middleware"
	"gymfloor/internal/adapters/http/perf"
	"gymfloor/internal/adapters/metrics"
	attendanceStore "gymfloor/internal/adapters/storage/attendance"
	identityStore "gymfloor/internal/adapters/storage/identity"
)

// Stores holds all storage dependencies.
type Stores struct {
	AttendanceStore attendanceStore.Store
	IdentityStore   identityStore.Store
}

// Options configures NewMux. The zero value serves UTC reports with no
// metrics endpoint.
type Options struct {
	Location           *time.Location        // anchors today/month windows
	Metrics            *metrics.Metrics      // optional
	Gatherer           prometheus.Gatherer   // optional: nil disables /metrics
	CSRFKey            []byte                // 32 bytes
	SecureCookies      bool
	TrustedOrigins     []string
	RateLimitPerSecond int
	SlowRequest        time.Duration
}

// Global stores instance (set by NewMux)
var stores *Stores

// Global perf collector (set by NewMux)
var perfCollector *perf.Collector

// Global report settings (set by NewMux)
var (
	reportLocation = time.UTC
	appMetrics     *metrics.Metrics
)

// NewMux wires HTTP handlers for the app. Background work started here
// stops when ctx is cancelled.
func NewMux(ctx context.Context, s *Stores, collector *perf.Collector, opts Options) http.Handler {
	stores = s
	perfCollector = collector
	appMetrics = opts.Metrics
	if opts.Location != nil {
		reportLocation = opts.Location
	}

	mux := http.NewServeMux()
	registerRoutes(mux)
	if opts.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	limiter := middleware.NewRateLimiter(ctx, opts.RateLimitPerSecond, time.Second)

	// Timing -> RateLimit -> CSRF -> SecurityHeaders -> Mux
	return middleware.Chain(mux,
		middleware.SecurityHeaders,
		middleware.CSRF(opts.CSRFKey, middleware.CSRFOptions{
			Secure:         opts.SecureCookies,
			TrustedOrigins: opts.TrustedOrigins,
		}),
		middleware.RateLimit(limiter),
		middleware.Timing(collector, opts.SlowRequest),
	)
}

// registerRoutes maps every API path to its handler.
func registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/attendance/report", handleGetAttendanceReport)
	mux.HandleFunc("/api/attendance/log", handleGetCheckInLog)
	mux.HandleFunc("/api/attendance/history", handleGetUserHistory)
	mux.HandleFunc("/api/attendance/checkin", handlePostCheckIn)
	mux.HandleFunc("/api/attendance/checkout", handlePostCheckOut)
	mux.HandleFunc("/api/csrf", handleGetCSRFToken)
	mux.HandleFunc("/api/admin/perf", handleGetAdminPerf)
}
