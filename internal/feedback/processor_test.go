package feedback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
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

type banditCall struct {
	slot   enum.AttributeSlot
	value  string
	reward float64
}

type stubBandit struct {
	mu    sync.Mutex
	calls []banditCall
}

func (s *stubBandit) Update(_ context.Context, _ string, slot enum.AttributeSlot, value string, reward float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, banditCall{slot: slot, value: value, reward: reward})

	return nil
}

type rlhfCall struct {
	category enum.RLHFCategory
	token    string
	kind     enum.FeedbackKind
	raw      *float64
}

type stubRLHF struct {
	mu    sync.Mutex
	calls []rlhfCall
}

func (s *stubRLHF) Reward(_ context.Context, _ string, category enum.RLHFCategory, token string, kind enum.FeedbackKind, _ int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, rlhfCall{category: category, token: token, kind: kind})

	return nil
}

func (s *stubRLHF) ApplyRaw(_ context.Context, _ string, category enum.RLHFCategory, token string, reward float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := reward
	s.calls = append(s.calls, rlhfCall{category: category, token: token, raw: &r})

	return nil
}

type stubCritique struct {
	delta Delta
}

func (s *stubCritique) Parse(context.Context, *types.PromptSpec, string) (Delta, error) {
	return s.delta, nil
}

type stubInvalidator struct {
	mu        sync.Mutex
	calledFor []string
}

func (s *stubInvalidator) Invalidate(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calledFor = append(s.calledFor, userID)

	return nil
}

func buildFixture() (genID, promptID uuid.UUID, generations *stubGenerations, prompts *stubPrompts) {
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

func TestProcess_LikeAppliesPositiveRewardsToRenderedSlotsAndTokens(t *testing.T) {
	genID, _, generations, prompts := buildFixture()
	events := newStubEvents()
	bandit := &stubBandit{}
	rlhf := &stubRLHF{}

	p := New(events, generations, prompts, bandit, rlhf, &stubCritique{}, nil, 2, 4, zap.NewNop())
	defer p.Close()

	err := p.Process(context.Background(), &types.FeedbackEvent{
		ID: uuid.New(), GenerationID: genID, UserID: "user-1", Kind: enum.FeedbackKindLike,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, bandit.calls)
	for _, c := range bandit.calls {
		assert.Equal(t, 0.1, c.reward)
	}

	assert.Len(t, rlhf.calls, 2)
}

func TestProcess_ReplayedEventIDIsANoop(t *testing.T) {
	genID, promptID, generations, prompts := buildFixture()
	events := newStubEvents()
	bandit := &stubBandit{}
	rlhf := &stubRLHF{}

	p := New(events, generations, prompts, bandit, rlhf, &stubCritique{}, nil, 1, 4, zap.NewNop())
	defer p.Close()

	event := &types.FeedbackEvent{ID: uuid.New(), GenerationID: genID, UserID: "user-1", Kind: enum.FeedbackKindLike}

	require.NoError(t, p.Process(context.Background(), event))
	require.NoError(t, p.Process(context.Background(), event))

	assert.Len(t, bandit.calls, len(slotValues(prompts.byID[promptID])))
}

func TestProcess_RejectsFeedbackForGenerationNotOwnedByUser(t *testing.T) {
	genID, _, generations, prompts := buildFixture()
	p := New(newStubEvents(), generations, prompts, &stubBandit{}, &stubRLHF{}, &stubCritique{}, nil, 1, 4, zap.NewNop())
	defer p.Close()

	err := p.Process(context.Background(), &types.FeedbackEvent{
		ID: uuid.New(), GenerationID: genID, UserID: "someone-else", Kind: enum.FeedbackKindLike,
	})
	require.ErrorIs(t, err, ErrGenerationNotOwned)
}

func TestProcess_CritiqueAppliesStrongSignedRewardsAndInvalidatesProfile(t *testing.T) {
	genID, _, generations, prompts := buildFixture()
	rlhf := &stubRLHF{}
	bandit := &stubBandit{}
	invalidator := &stubInvalidator{}

	critique := &stubCritique{delta: Delta{
		Add:    []CategorizedToken{{Category: enum.CategoryMood, Token: "dramatic"}},
		Remove: []CategorizedToken{{Category: enum.CategoryLighting, Token: "soft-diffused"}},
		SlotOverrides: map[enum.AttributeSlot]string{
			enum.SlotFabric: "silk",
		},
	}}

	p := New(newStubEvents(), generations, prompts, bandit, rlhf, critique, invalidator, 1, 4, zap.NewNop())
	defer p.Close()

	err := p.Process(context.Background(), &types.FeedbackEvent{
		ID: uuid.New(), GenerationID: genID, UserID: "user-1", Kind: enum.FeedbackKindCritique,
		Payload: map[string]any{"text": "make it more dramatic, less soft lighting, use silk"},
	})
	require.NoError(t, err)

	require.Len(t, rlhf.calls, 2)
	assert.InDelta(t, 0.3, *rlhf.calls[0].raw, 1e-9)
	assert.InDelta(t, -0.3, *rlhf.calls[1].raw, 1e-9)

	require.Len(t, bandit.calls, 1)
	assert.Equal(t, "silk", bandit.calls[0].value)

	assert.Equal(t, []string{"user-1"}, invalidator.calledFor)
}

func TestProcess_SwipeIsANoopForBothStores(t *testing.T) {
	genID, _, generations, prompts := buildFixture()
	bandit := &stubBandit{}
	rlhf := &stubRLHF{}

	p := New(newStubEvents(), generations, prompts, bandit, rlhf, &stubCritique{}, nil, 1, 4, zap.NewNop())
	defer p.Close()

	err := p.Process(context.Background(), &types.FeedbackEvent{
		ID: uuid.New(), GenerationID: genID, UserID: "user-1", Kind: enum.FeedbackKindSwipe,
	})
	require.NoError(t, err)

	assert.Empty(t, bandit.calls)
	assert.Empty(t, rlhf.calls)
}

func TestSubmit_ProcessesAsynchronouslyThroughTheWorkerPool(t *testing.T) {
	genID, _, generations, prompts := buildFixture()
	events := newStubEvents()
	bandit := &stubBandit{}
	rlhf := &stubRLHF{}

	p := New(events, generations, prompts, bandit, rlhf, &stubCritique{}, nil, 2, 4, zap.NewNop())

	ok := p.Submit(&types.FeedbackEvent{ID: uuid.New(), GenerationID: genID, UserID: "user-1", Kind: enum.FeedbackKindSave})
	assert.True(t, ok)

	p.Close()

	assert.NotEmpty(t, bandit.calls)
}
