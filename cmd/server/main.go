// Package main runs the ledger HTTP service:
// - API: queries and mutations under /v1, live events on /ws/events
// - Event log: committed events recorded to ClickHouse or memory
// - Metrics: Prometheus /metrics with /health and /status
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"incentive-token/internal/api"
	"incentive-token/internal/app"
	"incentive-token/internal/config"
	"incentive-token/internal/eventlog"
	"incentive-token/internal/ledger"
	"incentive-token/internal/observability"
)

// Server holds the running components.
type Server struct {
	ledger   *ledger.Ledger
	recorder *eventlog.Recorder
	hub      *api.Hub
	started  time.Time
	logger   *log.Logger
}

func main() {
	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	// Parse flags (env vars as defaults)
	cfg := config.RegisterFlags(flag.CommandLine)
	eventBuffer := flag.Int("event-buffer", 1024, "Pending event buffer size")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	scheme, err := cfg.Scheme()
	if err != nil {
		logger.Fatalf("Invalid identity scheme: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open state store: %v", err)
	}
	defer closeStore()

	events, closeEvents, err := app.OpenEventLog(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to open event log: %v", err)
	}
	defer closeEvents()

	recorder := eventlog.NewRecorder(eventlog.RecorderOptions{
		Log:        events,
		BufferSize: *eventBuffer,
		Logger:     log.New(os.Stdout, "[events] ", log.LstdFlags|log.Lshortfile),
	})
	hub := api.NewHub(logger)

	l, err := app.OpenLedger(ctx, cfg, ledger.Options{
		Store:     store,
		Observers: []ledger.Observer{recorder, hub, observability.LedgerObserver{}},
		Logger:    log.New(os.Stdout, "[ledger] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		logger.Fatalf("Failed to open ledger: %v", err)
	}
	observability.UpdateLedgerState(l.TotalSupply(), l.IsPaused(), l.MintCounter())

	if report := l.Audit(); !report.OK() {
		logger.Printf("WARNING: ledger audit failed: supply=%d balances=%d missing_records=%v",
			report.TotalSupply, report.BalanceSum, report.MissingRecords)
	}

	server := &Server{
		ledger:   l,
		recorder: recorder,
		hub:      hub,
		started:  time.Now(),
		logger:   logger,
	}

	apiServer := api.NewServer(api.Options{
		Ledger:    l,
		Events:    events,
		Scheme:    scheme,
		Hub:       hub,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
		Logger:    log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	})

	var httpServers []*http.Server
	if cfg.MetricsAddr == "" {
		// Single listener: metrics and status next to the API
		mux := server.metricsMux()
		mux.Handle("/", apiServer.Handler())
		httpServers = append(httpServers, &http.Server{Addr: cfg.HTTPAddr, Handler: mux})
	} else {
		httpServers = append(httpServers,
			&http.Server{Addr: cfg.HTTPAddr, Handler: apiServer.Handler()},
			&http.Server{Addr: cfg.MetricsAddr, Handler: server.metricsMux()},
		)
	}

	var wg sync.WaitGroup

	// Event recorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := recorder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("Event recorder error: %v", err)
		}
	}()

	for _, srv := range httpServers {
		srv := srv
		go func() {
			logger.Printf("Starting HTTP server on %s", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Printf("HTTP server error: %v", err)
				cancel()
			}
		}()
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case <-ctx.Done():
		logger.Println("Context cancelled, shutting down...")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	for _, srv := range httpServers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error on %s: %v", srv.Addr, err)
		}
	}

	// Stop the recorder after the API so the last events are flushed
	cancel()
	wg.Wait()

	logger.Printf("Shutdown complete: recorded=%d dropped=%d", recorder.Recorded(), recorder.Dropped())
}

// metricsMux serves health, metrics and status.
func (s *Server) metricsMux() *http.ServeMux {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status         string    `json:"status"`
	Uptime         string    `json:"uptime"`
	Started        time.Time `json:"started"`
	TotalSupply    int64     `json:"total_supply"`
	MintCounter    uint64    `json:"mint_counter"`
	Paused         bool      `json:"paused"`
	AuditOK        bool      `json:"audit_ok"`
	EventsRecorded int64     `json:"events_recorded"`
	EventsDropped  int64     `json:"events_dropped"`
	StreamClients  int       `json:"stream_clients"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Status:         "running",
		Uptime:         time.Since(s.started).Round(time.Second).String(),
		Started:        s.started,
		TotalSupply:    s.ledger.TotalSupply(),
		MintCounter:    s.ledger.MintCounter(),
		Paused:         s.ledger.IsPaused(),
		AuditOK:        s.ledger.Audit().OK(),
		EventsRecorded: s.recorder.Recorded(),
		EventsDropped:  s.recorder.Dropped(),
		StreamClients:  s.hub.Clients(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
