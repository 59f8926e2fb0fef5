// Package httpapi implements the thin inbound HTTP/SSE layer of spec.md
// §6.1: archive ingestion, style-profile aggregation, generation requests
// streamed as progress events, feedback submission, and read-only
// projections of the state C1-C10 produce. It trusts the caller's
// asserted user identity; authentication is out of scope (spec.md §6.1).
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/aureuma/styleengine/internal/bandit"
	"github.com/aureuma/styleengine/internal/database"
	"github.com/aureuma/styleengine/internal/feedback"
	"github.com/aureuma/styleengine/internal/ingest"
	"github.com/aureuma/styleengine/internal/orchestrator"
	"github.com/aureuma/styleengine/internal/profile"
	"github.com/aureuma/styleengine/internal/redis"
	"github.com/aureuma/styleengine/internal/rlhf"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// userIDHeader carries the caller's asserted identity; every inbound
// endpoint requires it (spec.md §6.1: "the core receives a UserId and
// trusts it").
const userIDHeader = "X-User-Id"

type ctxKey int

const userIDCtxKey ctxKey = iota

var errMissingUserIDHeader = errors.New("httpapi: X-User-Id header is required")

// Server wires C1-C10's already-constructed component graph to chi routes.
type Server struct {
	db           database.Client
	ingest       *ingest.Pipeline
	profile      *profile.Aggregator
	orchestrator *orchestrator.Orchestrator
	bandit       *bandit.Store
	rlhf         *rlhf.Store
	feedback     *feedback.Processor
	redisManager *redis.Manager
	logger       *zap.Logger
}

// Dependencies bundles the components a Server dispatches requests to; its
// fields mirror internal/setup.App's subset wired to inbound traffic.
type Dependencies struct {
	DB           database.Client
	Ingest       *ingest.Pipeline
	Profile      *profile.Aggregator
	Orchestrator *orchestrator.Orchestrator
	Bandit       *bandit.Store
	RLHF         *rlhf.Store
	Feedback     *feedback.Processor
	RedisManager *redis.Manager
	Logger       *zap.Logger
}

// New creates a Server.
func New(deps Dependencies) *Server {
	return &Server{
		db:           deps.DB,
		ingest:       deps.Ingest,
		profile:      deps.Profile,
		orchestrator: deps.Orchestrator,
		bandit:       deps.Bandit,
		rlhf:         deps.RLHF,
		feedback:     deps.Feedback,
		redisManager: deps.RedisManager,
		logger:       deps.Logger.Named("httpapi"),
	}
}

// Router builds the full route tree matching spec.md §6.1.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)

	r.Group(func(r chi.Router) {
		r.Use(s.requireUserID)

		r.Post("/ingest", s.handleIngest)
		r.Get("/ingest/progress/{portfolioID}", s.handleIngestProgress)
		r.Post("/profile/aggregate/{portfolioID}", s.handleAggregate)
		r.Post("/generate", s.handleGenerate)
		r.Post("/feedback", s.handleFeedback)

		r.Get("/profile", s.handleGetProfile)
		r.Get("/generations", s.handleListGenerations)
		r.Get("/generations/{id}", s.handleGetGeneration)
		r.Get("/prompts", s.handleListPrompts)
		r.Get("/prompts/{id}", s.handleGetPrompt)
		r.Get("/bandit/snapshot", s.handleBanditSnapshot)
		r.Get("/rlhf/weights", s.handleRLHFWeights)
		r.Get("/coverage/gaps", s.handleCoverageGaps)
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requireUserID rejects any request missing the asserted identity header
// and stashes it in the request context for handlers to read.
func (s *Server) requireUserID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeError(w, http.StatusUnauthorized, errMissingUserIDHeader)
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userIDFromContext(ctx context.Context) string {
	userID, _ := ctx.Value(userIDCtxKey).(string)
	return userID
}

// requestLogger replaces chi's stdlib-backed middleware.Logger with one
// structured through the application's zap logger.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.String("requestId", middleware.GetReqID(r.Context())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
