package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/aureuma/styleengine/internal/feedback"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubEvents struct {
	mu   sync.Mutex
	seen map[uuid.UUID]bool
}

func newStubEvents() *stubEvents { return &stubEvents{seen: map[uuid.UUID]bool{}} }

func (s *stubEvents) TryAppend(_ context.Context, event *types.FeedbackEvent) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen[event.ID] {
		return false, nil
	}

	s.seen[event.ID] = true

	return true, nil
}

type stubGenerations struct {
	byID map[uuid.UUID]*types.Generation
}

func (s *stubGenerations) Get(_ context.Context, id uuid.UUID) (*types.Generation, error) {
	g, ok := s.byID[id]
	if !ok {
		return nil, errors.New("generation not found")
	}

	return g, nil
}

type stubPrompts struct {
	byID map[uuid.UUID]*types.PromptSpec
}

func (s *stubPrompts) Get(_ context.Context, id uuid.UUID) (*types.PromptSpec, error) {
	p, ok := s.byID[id]
	if !ok {
		return nil, errors.New("prompt not found")
	}

	return p, nil
}

type stubBandit struct {
	mu    sync.Mutex
	calls int
}

func (s *stubBandit) Update(_ context.Context, _ string, _ enum.AttributeSlot, _ string, _ float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return nil
}

type stubRLHF struct {
	mu    sync.Mutex
	calls int
}

func (s *stubRLHF) Reward(_ context.Context, _ string, _ enum.RLHFCategory, _ string, _ enum.FeedbackKind, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return nil
}

func (s *stubRLHF) ApplyRaw(_ context.Context, _ string, _ enum.RLHFCategory, _ string, _ float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++

	return nil
}

type stubCritique struct{}

func (s *stubCritique) Parse(context.Context, *types.PromptSpec, string) (feedback.Delta, error) {
	return feedback.Delta{}, nil
}

type stubInvalidator struct{}

func (s *stubInvalidator) Invalidate(context.Context, string) error { return nil }

func buildFeedbackFixture() (genID, promptID uuid.UUID, generations *stubGenerations, prompts *stubPrompts) {
	genID = uuid.New()
	promptID = uuid.New()

	generations = &stubGenerations{byID: map[uuid.UUID]*types.Generation{
		genID: {ID: genID, UserID: "user-1", PromptID: promptID},
	}}

	prompts = &stubPrompts{byID: map[uuid.UUID]*types.PromptSpec{
		promptID: {
			ID:           promptID,
			UserID:       "user-1",
			Garment:      "blazer",
			Fabric:       "wool",
			Lighting:     types.Lighting{Type: "soft-diffused"},
			ColorPalette: []string{"charcoal"},
			RLHFPicks:    map[string]string{"mood": "editorial", "lighting": "soft-diffused"},
		},
	}}

	return genID, promptID, generations, prompts
}

func newTestServer(proc *feedback.Processor) *Server {
	return New(Dependencies{
		Feedback: proc,
		Logger:   zap.NewNop(),
	})
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestRequireUserID_RejectsRequestMissingHeader(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleFeedback_ProcessesSynchronouslyAndReturnsAccepted(t *testing.T) {
	genID, _, generations, prompts := buildFeedbackFixture()
	bandit := &stubBandit{}
	rlhf := &stubRLHF{}

	proc := feedback.New(newStubEvents(), generations, prompts, bandit, rlhf, &stubCritique{}, &stubInvalidator{}, 2, 4, zap.NewNop())
	defer proc.Close()

	s := newTestServer(proc)

	body, err := sonic.Marshal(feedbackRequest{GenerationID: genID, Kind: "like"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(string(body)))
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.NotZero(t, bandit.calls)

	var got types.FeedbackEvent
	require.NoError(t, sonic.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, enum.FeedbackKindLike, got.Kind)
	assert.Equal(t, "user-1", got.UserID)
}

func TestHandleFeedback_RejectsUnknownKind(t *testing.T) {
	genID, _, generations, prompts := buildFeedbackFixture()
	proc := feedback.New(newStubEvents(), generations, prompts, &stubBandit{}, &stubRLHF{}, &stubCritique{}, nil, 1, 4, zap.NewNop())
	defer proc.Close()

	s := newTestServer(proc)

	body, err := sonic.Marshal(feedbackRequest{GenerationID: genID, Kind: "not-a-real-kind"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(string(body)))
	req.Header.Set("X-User-Id", "user-1")
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFeedback_RejectsGenerationNotOwnedByCaller(t *testing.T) {
	genID, _, generations, prompts := buildFeedbackFixture()
	proc := feedback.New(newStubEvents(), generations, prompts, &stubBandit{}, &stubRLHF{}, &stubCritique{}, nil, 1, 4, zap.NewNop())
	defer proc.Close()

	s := newTestServer(proc)

	body, err := sonic.Marshal(feedbackRequest{GenerationID: genID, Kind: "like"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/feedback", strings.NewReader(string(body)))
	req.Header.Set("X-User-Id", "someone-else")
	rec := httptest.NewRecorder()

	s.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
