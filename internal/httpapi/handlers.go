package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/aureuma/styleengine/internal/feedback"
	"github.com/aureuma/styleengine/internal/ingest"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxArchiveBytes bounds one ingest request body; larger archives must be
// chunked across multiple AddImages calls out of band.
const maxArchiveBytes = 256 << 20

// handleIngest accepts a zip archive of outfit photographs as the raw
// request body and runs C3's full ingest pipeline synchronously, returning
// the created Portfolio. Callers watch /ingest/progress/:portfolio_id for
// live per-image analysis status.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	archive, err := io.ReadAll(io.LimitReader(r.Body, maxArchiveBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if len(archive) > maxArchiveBytes {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("httpapi: archive exceeds maximum size"))
		return
	}

	portfolio, err := s.ingest.Ingest(r.Context(), userID, archive)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, portfolio)
}

// handleIngestProgress streams ingest.Event updates for one portfolio as
// server-sent events until the client disconnects or ctx is cancelled.
func (s *Server) handleIngestProgress(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	streamSSE(w, r, s.redisManager, ingest.Channel(portfolioID), s.logger)
}

// handleAggregate runs C4 against a portfolio's persisted Descriptors and
// returns the resulting StyleProfile.
func (s *Server) handleAggregate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	portfolioID, err := uuid.Parse(chi.URLParam(r, "portfolioID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sp, err := s.profile.Aggregate(r.Context(), userID, portfolioID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, sp)
}

// handleGetProfile returns the latest StyleProfile for the caller's active
// portfolio.
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	portfolio, err := s.db.Model().Portfolio().GetActive(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	sp, err := s.db.Model().StyleProfile().GetByPortfolio(r.Context(), portfolio.ID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, sp)
}

// handleListGenerations returns every Generation produced for the caller.
func (s *Server) handleListGenerations(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	generations, err := s.db.Model().Generation().ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, generations)
}

// handleGetGeneration returns one persisted Generation by id.
func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	gen, err := s.db.Model().Generation().Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, gen)
}

// handleListPrompts returns every PromptSpec built for the caller.
func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	specs, err := s.db.Model().Prompt().ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, specs)
}

// handleGetPrompt returns one persisted PromptSpec by id.
func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	spec, err := s.db.Model().Prompt().Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}

	writeJSON(w, http.StatusOK, spec)
}

// handleBanditSnapshot returns C5's full posterior state across every
// AttributeSlot for the caller.
func (s *Server) handleBanditSnapshot(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	snapshot, err := s.bandit.Snapshot(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

// handleRLHFWeights returns C6's token weights across every category for
// the caller.
func (s *Server) handleRLHFWeights(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	weights, err := s.db.Model().RLHF().ListByUser(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, weights)
}

// handleCoverageGaps returns C9's currently active AttributeGaps for the
// caller.
func (s *Server) handleCoverageGaps(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	gaps, err := s.db.Model().Coverage().ActiveGaps(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, gaps)
}

// feedbackRequest is the /feedback request body (spec.md §6.1:
// `{ generation_id, kind, payload }`).
type feedbackRequest struct {
	GenerationID uuid.UUID      `json:"generationId"`
	Kind         string         `json:"kind"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// handleFeedback decodes one FeedbackEvent and runs C10's Process path
// synchronously, giving the caller an immediate idempotency/ownership
// result instead of the fire-and-forget Submit queue.
func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req feedbackRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	kind, err := enum.ParseFeedbackKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	event := &types.FeedbackEvent{
		ID:           uuid.New(),
		GenerationID: req.GenerationID,
		UserID:       userID,
		Kind:         kind,
		Payload:      req.Payload,
	}

	if err := s.feedback.Process(r.Context(), event); err != nil {
		if errors.Is(err, feedback.ErrGenerationNotOwned) {
			writeError(w, http.StatusForbidden, err)
			return
		}

		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusAccepted, event)
}
