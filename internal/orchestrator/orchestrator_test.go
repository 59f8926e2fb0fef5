package orchestrator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aureuma/styleengine/internal/adapter/imagegen"
	"github.com/aureuma/styleengine/internal/adapter/objectstore"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/promptbuilder"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPrompts struct {
	mu      sync.Mutex
	garment string
	built   int
}

func (s *stubPrompts) NextPrompt(_ context.Context, userID string, _ promptbuilder.Options) (*types.PromptSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.built++

	return &types.PromptSpec{
		ID:           uuid.New(),
		UserID:       userID,
		Garment:      s.garment,
		RenderedText: "a prompt",
	}, nil
}

type erroringPrompts struct{}

func (erroringPrompts) NextPrompt(context.Context, string, promptbuilder.Options) (*types.PromptSpec, error) {
	return nil, errors.New("no profile available")
}

type stubGenerationRepo struct {
	mu      sync.Mutex
	inserts [][]*types.Generation
}

func (s *stubGenerationRepo) InsertBatch(_ context.Context, generations []*types.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inserts = append(s.inserts, generations)

	return nil
}

type stubProgress struct {
	mu     sync.Mutex
	events []Event
}

func (p *stubProgress) Publish(_ context.Context, _ string, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

func TestGenerate_OverGeneratesAndPairsSiblingsWithinPrompt(t *testing.T) {
	prompts := &stubPrompts{garment: "blazer"}
	repo := &stubGenerationRepo{}
	store := objectstore.NewMemory("https://cdn.local/")
	adapter := imagegen.NewStub(10, "")
	progress := &stubProgress{}

	orch := New(prompts, repo, store, adapter, progress, "stub", 0.2, 2, 3, zap.NewNop())

	generations, err := orch.Generate(context.Background(), "user-1", 4, Options{Width: 512, Height: 768})
	require.NoError(t, err)

	// ceil(4*1.2)=5 target, ceil(5/2)=3 prompts x 2 images = 6 units.
	assert.Equal(t, 3, prompts.built)
	assert.Len(t, generations, 6)

	paired := 0
	for _, g := range generations {
		if g.PairedWithID != nil {
			paired++
		}
	}
	assert.Equal(t, 6, paired, "every generation should be paired with its prompt sibling")

	require.Len(t, repo.inserts, 1)
	assert.Len(t, repo.inserts[0], 6)
}

func TestGenerate_PerItemFailureIsolatesSiblings(t *testing.T) {
	prompts := &stubPrompts{garment: "dress"}
	repo := &stubGenerationRepo{}
	store := objectstore.NewMemory("https://cdn.local/")
	adapter := imagegen.NewStub(10, "dress")
	progress := &stubProgress{}

	orch := New(prompts, repo, store, adapter, progress, "stub", 0, 1, 2, zap.NewNop())

	generations, err := orch.Generate(context.Background(), "user-2", 2, Options{})
	require.NoError(t, err)

	assert.Empty(t, generations, "every unit shares the failing garment, so none should survive")
}

func TestGenerate_NoPromptsAvailableReturnsError(t *testing.T) {
	repo := &stubGenerationRepo{}
	store := objectstore.NewMemory("https://cdn.local/")
	adapter := imagegen.NewStub(10, "")
	progress := &stubProgress{}

	orch := New(erroringPrompts{}, repo, store, adapter, progress, "stub", 0.2, 2, 3, zap.NewNop())

	_, err := orch.Generate(context.Background(), "user-3", 2, Options{})
	require.Error(t, err)
}

func TestGenerate_PublishesMonotonicProgressEndingInDone(t *testing.T) {
	prompts := &stubPrompts{garment: "coat"}
	repo := &stubGenerationRepo{}
	store := objectstore.NewMemory("https://cdn.local/")
	adapter := imagegen.NewStub(10, "")
	progress := &stubProgress{}

	orch := New(prompts, repo, store, adapter, progress, "stub", 0, 2, 2, zap.NewNop())

	_, err := orch.Generate(context.Background(), "user-4", 2, Options{})
	require.NoError(t, err)

	require.NotEmpty(t, progress.events)
	last := progress.events[len(progress.events)-1]
	assert.True(t, last.Done)
	assert.LessOrEqual(t, len(last.PreviewURLs), previewWindow)

	for i := 1; i < len(progress.events); i++ {
		assert.GreaterOrEqual(t, progress.events[i].Processed, progress.events[i-1].Processed)
	}
}
