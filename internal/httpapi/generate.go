package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/orchestrator"
	"github.com/aureuma/styleengine/internal/redis"
	"github.com/bytedance/sonic"
)

// generateRequest is the /generate request body (spec.md §6.1:
// `{ count, command?, options }`).
type generateRequest struct {
	Count       int    `json:"count"`
	Command     string `json:"command,omitempty"`
	QualityTier string `json:"qualityTier,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
}

// completeEvent is the final SSE event of a /generate stream.
type completeEvent struct {
	Generations []*types.Generation `json:"generations"`
}

var errGenerateStreamingUnsupported = errors.New("httpapi: response writer does not support flushing")

// handleGenerate runs C8's fan-out and streams its progress as
// server-sent events: "progress" for every in-flight update (each one
// doubling as "preview" once its PreviewURLs are populated), then
// "complete" once every Generation has been produced, uploaded, and
// persisted (spec.md §6.1).
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(r.Context())

	var req generateRequest
	if err := readJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errGenerateStreamingUnsupported)
		return
	}

	client, err := s.redisManager.GetClient(redis.ProgressDBIndex)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	dedicated, cancel := client.Dedicate()
	defer cancel()

	ctx, stop := context.WithCancel(r.Context())
	defer stop()

	subscribeCmd := dedicated.B().Subscribe().Channel(orchestrator.Channel(userID)).Build()

	sub := newPubSubRelay()
	go func() {
		_ = dedicated.Receive(ctx, subscribeCmd, sub.onMessage)
		sub.close()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	resultCh := make(chan generateResult, 1)

	go func() {
		generations, err := s.orchestrator.Generate(r.Context(), userID, req.Count, orchestrator.Options{
			Command:     req.Command,
			QualityTier: req.QualityTier,
			Width:       req.Width,
			Height:      req.Height,
		})
		resultCh <- generateResult{generations: generations, err: err}
	}()

	for {
		select {
		case payload := <-sub.messages:
			writeSSEEvent(w, "progress", payload)
			flusher.Flush()
		case result := <-resultCh:
			if result.err != nil {
				writeSSEEvent(w, "error", []byte(fmt.Sprintf("%q", result.err.Error())))
				flusher.Flush()
				return
			}

			payload, err := sonic.Marshal(completeEvent{Generations: result.generations})
			if err != nil {
				return
			}

			writeSSEEvent(w, "complete", payload)
			flusher.Flush()

			return
		case <-r.Context().Done():
			return
		}
	}
}

type generateResult struct {
	generations []*types.Generation
	err         error
}

func writeSSEEvent(w http.ResponseWriter, event string, data []byte) {
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
