// Package api is the HTTP hosting shell around the ledger. Callers are
// authenticated upstream and identified by the X-Caller header.
package api

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"incentive-token/internal/identity"
	"incentive-token/internal/ledger"
	"incentive-token/internal/storage"
)

// CallerHeader carries the authenticated caller identity.
const CallerHeader = "X-Caller"

// Server serves the ledger API.
type Server struct {
	ledger  *ledger.Ledger
	events  storage.EventLog
	scheme  identity.Scheme
	hub     *Hub
	limiter *callerLimiter
	logger  *log.Logger
}

// Options contains configuration for creating a Server.
type Options struct {
	Ledger    *ledger.Ledger
	Events    storage.EventLog // optional, enables GET /v1/events
	Scheme    identity.Scheme  // Default: opaque
	Hub       *Hub             // optional, enables GET /ws/events
	RateLimit float64          // mutating requests per second per caller, 0 disables
	RateBurst int              // Default: 1
	Logger    *log.Logger
}

// NewServer creates a new API server.
func NewServer(opts Options) *Server {
	scheme := opts.Scheme
	if scheme == nil {
		scheme = identity.Opaque{}
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		ledger: opts.Ledger,
		events: opts.Events,
		scheme: scheme,
		hub:    opts.Hub,
		logger: logger,
	}
	if opts.RateLimit > 0 {
		s.limiter = newCallerLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/token", s.handleToken)
		r.Get("/balances/{account}", s.handleBalance)
		r.Get("/minters/{account}", s.handleIsMinter)
		r.Get("/mints/{id}", s.handleMintRecord)
		r.Get("/audit", s.handleAudit)
		if s.events != nil {
			r.Get("/events", s.handleEvents)
		}

		r.Group(func(r chi.Router) {
			if s.limiter != nil {
				r.Use(s.limiter.middleware)
			}
			r.Post("/mint", s.handleMint)
			r.Post("/transfer", s.handleTransfer)
			r.Post("/burn", s.handleBurn)
			r.Put("/admin", s.handleSetAdmin)
			r.Post("/pause", s.handlePause)
			r.Post("/unpause", s.handleUnpause)
			r.Post("/minters", s.handleAddMinter)
			r.Delete("/minters/{account}", s.handleRemoveMinter)
			r.Put("/token/uri", s.handleSetTokenURI)
		})
	})

	if s.hub != nil {
		r.Get("/ws/events", s.handleStream)
	}

	return r
}
