package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "modernc.org/sqlite"

	web "gymfloor/internal/adapters/http"
	"gymfloor/internal/adapters/http/perf"
	"gymfloor/internal/adapters/metrics"
	"gymfloor/internal/adapters/storage"
	attendanceStore "gymfloor/internal/adapters/storage/attendance"
	identityStore "gymfloor/internal/adapters/storage/identity"
	"gymfloor/internal/application/orchestrators"
	"gymfloor/internal/config"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvName("config")), "optional YAML config file")
	flag.Parse()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			slog.Error("config_invalid", "error", err.Error())
		}
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// WAL mode, foreign keys and busy timeout on every connection
	dsn := cfg.DBPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		fatal("failed to open database", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)

	if err := db.Ping(); err != nil {
		fatal("database unreachable", err)
	}
	if err := storage.MigrateDB(db, cfg.DBPath); err != nil {
		fatal("failed to migrate database", err)
	}

	// Query timing feeds the same collector as request timing
	collector := perf.NewCollector(perf.DefaultRingSize)
	timedDB := storage.NewTimedDB(db, collector, cfg.SlowQuery())
	stores := &web.Stores{
		AttendanceStore: attendanceStore.NewSQLiteStore(timedDB),
		IdentityStore:   identityStore.NewSQLiteStore(timedDB),
	}

	if cfg.SeedSynthetic {
		result, err := orchestrators.ExecuteSeedSynthetic(ctx, orchestrators.SeedSyntheticInput{
			Now:  time.Now().In(cfg.Location()),
			Seed: time.Now().UnixNano(),
		}, orchestrators.SeedSyntheticDeps{
			IdentityStore:   stores.IdentityStore,
			AttendanceStore: stores.AttendanceStore,
		})
		if err != nil {
			fatal("failed to seed synthetic data", err)
		}
		slog.Info("seed_event", "event", "synthetic_done", "skipped", result.Skipped, "events", result.Events)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics()
	if err := appMetrics.Register(reg); err != nil {
		fatal("failed to register metrics", err)
	}

	csrfKey, err := cfg.CSRFKeyBytes()
	if err != nil {
		fatal("failed to load csrf key", err)
	}

	handler := web.NewMux(ctx, stores, collector, web.Options{
		Location:           cfg.Location(),
		Metrics:            appMetrics,
		Gatherer:           reg,
		CSRFKey:            csrfKey,
		SecureCookies:      cfg.IsProduction(),
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		SlowRequest:        cfg.SlowRequest(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		fatal("failed to listen", err)
	}

	slog.Info("server_starting",
		"version", version,
		"addr", ln.Addr().String(),
		"env", cfg.Env,
		"timezone", cfg.Timezone,
		"schema", storage.LatestSchemaVersion(),
	)
	if err := serve(ctx, srv, ln, shutdownTimeout); err != nil {
		slog.Error("server_failed", "error", err.Error())
		db.Close()
		os.Exit(1)
	}
	slog.Info("server_stopped")
}

// shutdownTimeout bounds how long in-flight requests may drain.
const shutdownTimeout = 10 * time.Second

// serve runs srv on ln until ctx is cancelled, then shuts it down and waits
// for in-flight requests to finish or timeout to pass.
// POST: when serve returns no handler is still running, unless it reports
// a shutdown error
func serve(ctx context.Context, srv *http.Server, ln net.Listener, timeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("server_stopping")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// setupLogging installs a JSON handler in production and a text handler
// otherwise.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if cfg.IsProduction() {
		h = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}

func fatal(msg string, err error) {
	slog.Error(msg, "error", err.Error())
	os.Exit(1)
}
