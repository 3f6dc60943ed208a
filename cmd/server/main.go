package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/renterra-solution/tenancy-lifecycle-service/internal/monitoring"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/service"
	"github.com/renterra-solution/tenancy-lifecycle-service/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	var (
		httpPort  = flag.Int("http-port", 8081, "Port for health checks and metrics")
		dbHost    = flag.String("db-host", envOr("DB_HOST", "localhost"), "Database host")
		dbPort    = flag.Int("db-port", 5432, "Database port")
		dbUser    = flag.String("db-user", envOr("DB_USER", "admin"), "Database user")
		dbPass    = flag.String("db-pass", envOr("DB_PASS", ""), "Database password")
		dbName    = flag.String("db-name", envOr("DB_NAME", "tenancy_registry"), "Database name")
		redisAddr = flag.String("redis-addr", envOr("REDIS_ADDR", ""), "Redis address for the read cache (empty disables)")
		interval  = flag.Duration("reconcile-interval", 0, "Interval between reconciliation runs (0 disables; schedule belongs to the operator)")
	)
	flag.Parse()

	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		*dbHost, *dbPort, *dbUser, *dbPass, *dbName)

	st, err := store.New(dsn, *redisAddr)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer st.Close()

	monitoring.InitMetrics()

	engine := service.NewEngine(st, nil)
	defer engine.Close()

	log.Info().Msgf("Starting Tenancy Lifecycle Service on port %d", *httpPort)

	stop := make(chan struct{})
	if *interval > 0 {
		go func() {
			ticker := time.NewTicker(*interval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					report, err := engine.Reconcile(context.Background())
					if err != nil {
						log.Error().Err(err).Msg("Scheduled reconciliation failed")
						continue
					}
					if report.IssuesFound > 0 {
						log.Warn().
							Int("issues_found", report.IssuesFound).
							Int("issues_fixed", report.IssuesFixed).
							Msg("Scheduled reconciliation repaired drift")
					}
				case <-stop:
					return
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		report, err := engine.CheckConsistency(r.Context())
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "consistency check failed")
			return
		}
		if !report.Healthy {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, "DEGRADED: %d invariant violations\n", len(report.Violations))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Read-only lookups served through the cache. Workflow mutations go
	// through tenancyctl, not this surface.
	mux.HandleFunc("/v1/properties/", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/v1/properties/"))
		if err != nil {
			http.Error(w, "invalid property id", http.StatusBadRequest)
			return
		}
		p, err := st.GetProperty(r.Context(), id)
		if err != nil {
			log.Error().Err(err).Str("property_id", id.String()).Msg("Property lookup failed")
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		if p == nil {
			http.Error(w, "property not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("/v1/accounts/", func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"))
		if err != nil {
			http.Error(w, "invalid account id", http.StatusBadRequest)
			return
		}
		a, err := st.GetAccount(r.Context(), id)
		if err != nil {
			log.Error().Err(err).Str("account_id", id.String()).Msg("Account lookup failed")
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		if a == nil {
			http.Error(w, "account not found", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(a)
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", *httpPort),
		Handler: mux,
	}

	go func() {
		log.Info().Msgf("HTTP server for health checks and metrics started on port %d", *httpPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	close(stop)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown error")
	}
	log.Info().Msg("Server exiting")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
