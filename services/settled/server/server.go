package server

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"intentsettle/core/events"
	"intentsettle/native/bank"
	"intentsettle/native/governance"
	"intentsettle/native/reserve"
	"intentsettle/native/settlement"
	"intentsettle/native/vault"
	"intentsettle/observability"
	"intentsettle/services/settled/archive"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Engine     *settlement.Engine
	Governance *governance.Engine
	Vault      *vault.Vault
	Reserve    *reserve.Account
	// Ledger is the in-state token ledger. Without it the bank routes are
	// not mounted, as when settlement runs against external tokens.
	Ledger *bank.Ledger
	Stream *events.Broadcaster
	// Archive is optional; without it /v1/events serves the stream history.
	Archive   *archive.Store
	HostToken string
	MaxSkew   time.Duration
	RateLimit RateLimit
	Logger    *slog.Logger
	Now       func() time.Time
}

// Server exposes the settlement core over HTTP.
type Server struct {
	engine     *settlement.Engine
	governance *governance.Engine
	vault      *vault.Vault
	reserve    *reserve.Account
	ledger     *bank.Ledger
	stream     *events.Broadcaster
	archive    *archive.Store
	hostToken  string
	sigAuth    *signatureAuth
	limiter    *rateLimiter
	logger     *slog.Logger

	router http.Handler
}

// New constructs a configured HTTP router.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil || cfg.Governance == nil || cfg.Vault == nil || cfg.Reserve == nil {
		return nil, errors.New("server: engine, governance, vault and reserve are required")
	}
	if cfg.Stream == nil {
		cfg.Stream = events.NewBroadcaster(0)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	srv := &Server{
		engine:     cfg.Engine,
		governance: cfg.Governance,
		vault:      cfg.Vault,
		reserve:    cfg.Reserve,
		ledger:     cfg.Ledger,
		stream:     cfg.Stream,
		archive:    cfg.Archive,
		hostToken:  strings.TrimSpace(cfg.HostToken),
		sigAuth:    newSignatureAuth(cfg.MaxSkew, cfg.Now),
		limiter:    newRateLimiter(cfg.RateLimit, cfg.Now),
		logger:     cfg.Logger,
	}
	srv.router = srv.buildRouter()
	return srv, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(api chi.Router) {
		api.Group(func(hooks chi.Router) {
			hooks.Use(s.requireHost)
			hooks.Post("/hooks/before-swap", s.handleBeforeSwap)
			hooks.Post("/hooks/after-swap", s.handleAfterSwap)
			hooks.Post("/hooks/abort", s.handleAbort)
		})

		api.Group(func(signed chi.Router) {
			signed.Use(s.limiter.middleware)
			signed.Use(s.requireSignature)
			signed.Post("/claim", s.handleClaim)
			signed.Post("/governance/reward-rate/propose", s.handleProposeRate)
			signed.Post("/governance/reward-rate/apply", s.handleApplyRate)
			signed.Post("/governance/guardians", s.handleSetGuardian)
			signed.Post("/governance/pause", s.handlePause)
			signed.Post("/governance/owner", s.handleTransferOwnership)
			signed.Post("/reserve/withdraw", s.handleWithdrawReserve)
			if s.ledger != nil {
				signed.Post("/bank/mint", s.handleMint)
				signed.Post("/bank/approve", s.handleApprove)
			}
		})

		api.Group(func(reads chi.Router) {
			reads.Use(s.limiter.middleware)
			reads.Get("/nonces/{trader}", s.handleNonce)
			reads.Get("/rewards/{trader}", s.handleRewards)
			reads.Get("/rewards/{trader}/{asset}", s.handleReward)
			reads.Get("/reserves", s.handleReserves)
			reads.Get("/reserves/{asset}", s.handleReserve)
			reads.Get("/governance", s.handleGovernance)
			reads.Get("/domain", s.handleDomain)
			reads.Get("/events", s.handleEvents)
			reads.Get("/events/stream", s.handleEventStream)
			if s.ledger != nil {
				reads.Get("/bank/balances/{token}/{holder}", s.handleTokenBalance)
				reads.Get("/bank/allowances/{token}/{owner}", s.handleAllowance)
			}
		})
	})
	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack is required by the websocket upgrade.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("server: response writer cannot be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return hijacker.Hijack()
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		observability.ModuleMetrics().Observe("settled", route, rec.status, time.Since(start))
	})
}
