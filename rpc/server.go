package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vegov/app"
	coreerrors "vegov/core/errors"
	"vegov/core/types"
	"vegov/native/delegation"
	"vegov/native/escrow"
	"vegov/native/governance"
	"vegov/native/params"
)

// Backend is the engine surface the server exposes.
type Backend interface {
	Execute(ctx context.Context, env app.Env, op app.Operation) (*app.Result, error)
	Simulate(ctx context.Context, env app.Env, op app.Operation) (*app.Result, error)

	Global() (*params.GlobalState, error)
	HolderEntries(owner string) ([]*escrow.VoteTokenEntry, error)
	HolderEntriesByDenom(owner, denom string) ([]*escrow.VoteTokenEntry, error)
	Supply(denom string) (*escrow.SupplyTotals, error)
	Proposal(id uint64) (*governance.Proposal, error)
	CurrentProposal(appID uint64) (*governance.Proposal, error)
	CompletedProposals(appID uint64) ([]uint64, error)
	Vote(proposalID uint64, voter string) (*governance.Vote, error)
	PairTotal(proposalID, pair uint64) (*big.Int, error)
	BribePool(proposalID, pair uint64) (types.Coins, error)
	Emission(appID uint64) (*governance.Emission, error)
	ClaimCursor(appID uint64, claimant string) (uint64, error)
	DelegationAt(delegator string, height uint64) (*delegation.Delegation, error)
	DelegateStatsAt(delegate, denom string, height uint64) (*delegation.Stats, error)
	DelegateInfoAt(delegate string, height uint64) (*delegation.Info, error)
}

// Config controls the server.
type Config struct {
	RequestsPerMinute float64
	Burst             int
	// EnableSubmit mounts POST /v1/submit. Without it the server is read-only
	// apart from simulation.
	EnableSubmit bool
	Logger       *slog.Logger
	// Registry receives the rpc metrics and backs /metrics. Nil uses the
	// prometheus default registry.
	Registry *prometheus.Registry
}

// Server serves queries and operations over HTTP.
type Server struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
	handler http.Handler
}

// NewServer builds the router.
func NewServer(backend Backend, cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{backend: backend, cfg: cfg, logger: logger}

	var (
		reg      prometheus.Registerer = prometheus.DefaultRegisterer
		gatherer prometheus.Gatherer   = prometheus.DefaultGatherer
	)
	if cfg.Registry != nil {
		reg, gatherer = cfg.Registry, cfg.Registry
	}
	obs := newObservability(reg, logger)
	limiter := NewRateLimiter(cfg.RequestsPerMinute, cfg.Burst)

	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(v chi.Router) {
		v.Use(limiter.Middleware)
		v.With(obs.middleware("global")).Get("/global", s.handleGlobal)
		v.With(obs.middleware("holders")).Get("/holders/{owner}/entries", s.handleHolderEntries)
		v.With(obs.middleware("supply")).Get("/supply/{denom}", s.handleSupply)
		v.With(obs.middleware("proposals")).Get("/proposals/{id}", s.handleProposal)
		v.With(obs.middleware("votes")).Get("/proposals/{id}/votes/{voter}", s.handleVote)
		v.With(obs.middleware("pairs")).Get("/proposals/{id}/pairs/{pair}", s.handlePair)
		v.With(obs.middleware("apps")).Get("/apps/{app}/proposal", s.handleCurrentProposal)
		v.With(obs.middleware("apps")).Get("/apps/{app}/completed", s.handleCompleted)
		v.With(obs.middleware("apps")).Get("/apps/{app}/emission", s.handleEmission)
		v.With(obs.middleware("apps")).Get("/apps/{app}/cursors/{claimant}", s.handleCursor)
		v.With(obs.middleware("delegations")).Get("/delegations/{delegator}", s.handleDelegation)
		v.With(obs.middleware("delegates")).Get("/delegates/{delegate}", s.handleDelegate)
		v.With(obs.middleware("simulate")).Post("/simulate", s.handleOperation(false))
		if cfg.EnableSubmit {
			v.With(obs.middleware("submit")).Post("/submit", s.handleOperation(true))
		}
	})
	s.handler = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.handler }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readHeaderTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	errCh := make(chan error, 1)
	s.logger.Info("rpc listening", slog.String("address", addr))
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// ErrorBody is the error envelope.
type ErrorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

type envelope struct {
	Result any        `json:"result,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

func writeResult(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(envelope{Result: result})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Error: &ErrorBody{Code: code, Message: message, RequestID: RequestID(r.Context())}})
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind coreerrors.Kind) int {
	switch kind {
	case coreerrors.KindValidation:
		return http.StatusBadRequest
	case coreerrors.KindNotFound:
		return http.StatusNotFound
	case coreerrors.KindUnauthorized:
		return http.StatusForbidden
	case coreerrors.KindArithmetic:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := coreerrors.KindOf(err)
	status := statusFor(kind)
	message := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error("rpc internal error", slog.String("request_id", RequestID(r.Context())), slog.String("error", err.Error()))
		message = http.StatusText(status)
	}
	writeError(w, r, status, string(kind), message)
}
