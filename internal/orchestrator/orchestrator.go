// Package orchestrator implements C8: turning a requested output count
// into a fan-out of prompt-building and paired image-generation calls,
// bounded in concurrency, tolerant of per-item adapter failure, and
// streamed as progress events.
package orchestrator

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/aureuma/styleengine/internal/adapter/imagegen"
	"github.com/aureuma/styleengine/internal/adapter/objectstore"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/promptbuilder"
	"github.com/aureuma/styleengine/pkg/utils"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// previewWindow is the number of most-recent preview URLs retained on a
// progress Event.
const previewWindow = 6

// PromptProvider builds and persists one fresh PromptSpec, wiring together
// C4's StyleProfile, C5's bandit sample, C6's RLHF pick, and C9's active
// gaps the way the /generate request handler otherwise would.
type PromptProvider interface {
	NextPrompt(ctx context.Context, userID string, opts promptbuilder.Options) (*types.PromptSpec, error)
}

// GenerationRepo persists the Generation rows this request produces.
type GenerationRepo interface {
	InsertBatch(ctx context.Context, generations []*types.Generation) error
}

// Event is one progress update for an in-flight /generate request.
type Event struct {
	UserID        string   `json:"userId"`
	Processed     int      `json:"processed"`
	Total         int      `json:"total"`
	PreviewURLs   []string `json:"previewUrls"`
	CurrentPrompt string   `json:"currentPrompt,omitempty"`
	Done          bool     `json:"done"`
}

// Progress streams Events for one in-flight generation request.
type Progress interface {
	Publish(ctx context.Context, userID string, event Event) error
}

// Options configures one Generate call.
type Options struct {
	Command       string
	QualityTier   string
	Width, Height int
}

// Orchestrator fans a generation request out across a bounded pool of
// adapter calls.
type Orchestrator struct {
	prompts     PromptProvider
	generations GenerationRepo
	uploads     objectstore.Store
	adapter     imagegen.Adapter
	progress    Progress
	logger      *zap.Logger

	overgenBufferPct     float64
	imagesPerPrompt      int
	maxConcurrentPrompts int
	providerName         string
}

// New creates an Orchestrator. overgenBufferPct is the fractional
// over-generation buffer b (spec default 0.2); imagesPerPrompt is k
// (spec default 2); maxConcurrentPrompts bounds how many prompts are
// in flight at once (combined with imagesPerPrompt this yields the
// P_prompts x k_images fan-out width, e.g. 3x2=6).
func New(
	prompts PromptProvider, generations GenerationRepo, uploads objectstore.Store, adapter imagegen.Adapter,
	progress Progress, providerName string, overgenBufferPct float64, imagesPerPrompt, maxConcurrentPrompts int,
	logger *zap.Logger,
) *Orchestrator {
	if imagesPerPrompt < 1 {
		imagesPerPrompt = 2
	}

	if maxConcurrentPrompts < 1 {
		maxConcurrentPrompts = 3
	}

	if providerName == "" {
		providerName = "default"
	}

	return &Orchestrator{
		prompts:              prompts,
		generations:          generations,
		uploads:              uploads,
		adapter:              adapter,
		progress:             progress,
		overgenBufferPct:     overgenBufferPct,
		imagesPerPrompt:      imagesPerPrompt,
		maxConcurrentPrompts: maxConcurrentPrompts,
		providerName:         providerName,
		logger:               logger.Named("orchestrator"),
	}
}

// unitOfWork is one (prompt, image-index) pair to generate; siblings
// sharing a PromptSpec are paired via PairedWithID once both settle.
type unitOfWork struct {
	spec  *types.PromptSpec
	index int
}

// Generate issues enough over-generated calls to cover count requested
// outputs, fanned out with bounded concurrency, and returns every
// Generation that was successfully produced, uploaded, and persisted.
// A single failed adapter call never aborts its siblings.
func (o *Orchestrator) Generate(ctx context.Context, userID string, count int, opts Options) ([]*types.Generation, error) {
	if count < 1 {
		count = 1
	}

	totalTarget := int(math.Ceil(float64(count) * (1 + o.overgenBufferPct)))
	numPrompts := int(math.Ceil(float64(totalTarget) / float64(o.imagesPerPrompt)))

	specs := make([]*types.PromptSpec, 0, numPrompts)

	for i := 0; i < numPrompts; i++ {
		spec, err := o.prompts.NextPrompt(ctx, userID, promptbuilder.Options{Command: opts.Command})
		if err != nil {
			o.logger.Error("failed to build prompt", zap.Error(err))
			continue
		}

		specs = append(specs, spec)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("orchestrator: no prompts available for user %s", userID)
	}

	units := make([]unitOfWork, 0, len(specs)*o.imagesPerPrompt)
	for _, spec := range specs {
		for i := 0; i < o.imagesPerPrompt; i++ {
			units = append(units, unitOfWork{spec: spec, index: i})
		}
	}

	results := o.fanOut(ctx, userID, opts, units)

	o.pair(results)

	generations := make([]*types.Generation, 0, len(results))
	for _, r := range results {
		if r != nil {
			generations = append(generations, r)
		}
	}

	if err := o.generations.InsertBatch(ctx, generations); err != nil {
		return nil, fmt.Errorf("persist generations for user %s: %w", userID, err)
	}

	return generations, nil
}

// fanOut runs every unit of work through the adapter with bounded
// concurrency, isolating per-item failure. Returns one slot per unit,
// nil where that unit failed or was cancelled.
func (o *Orchestrator) fanOut(ctx context.Context, userID string, opts Options, units []unitOfWork) []*types.Generation {
	var (
		pl      = pool.New().WithContext(ctx).WithMaxGoroutines(o.maxConcurrentPrompts * o.imagesPerPrompt)
		sem     = semaphore.NewWeighted(int64(o.maxConcurrentPrompts * o.imagesPerPrompt))
		results = make([]*types.Generation, len(units))
		tracker = newProgressTracker(len(units))
	)

	// publishMu keeps record and Publish together so published Processed
	// values never go backwards.
	var publishMu sync.Mutex

	for i, unit := range units {
		i, unit := i, unit

		pl.Go(func(ctx context.Context) error {
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			defer sem.Release(1)

			gen := o.generateOne(ctx, userID, unit, opts)
			if ctx.Err() != nil {
				// Cancelled: discard even a completed result.
				return nil
			}

			results[i] = gen

			preview := ""
			if gen != nil {
				preview = gen.URL
			}

			publishMu.Lock()
			event := tracker.record(userID, unit.spec.RenderedText, preview)
			if err := o.progress.Publish(ctx, userID, event); err != nil {
				o.logger.Warn("failed to publish generation progress", zap.Error(err))
			}
			publishMu.Unlock()

			return nil
		})
	}

	_ = pl.Wait()

	final := tracker.final(userID)
	if err := o.progress.Publish(ctx, userID, final); err != nil {
		o.logger.Warn("failed to publish final generation progress", zap.Error(err))
	}

	return results
}

// generateOne calls the adapter, uploads the resulting bytes, and builds
// a Generation row. Returns nil (never an error) so callers can treat a
// failed unit identically to a cancelled one: simply absent.
func (o *Orchestrator) generateOne(ctx context.Context, userID string, unit unitOfWork, opts Options) *types.Generation {
	settings := imagegen.Settings{Width: opts.Width, Height: opts.Height, QualityTier: opts.QualityTier}

	result, err := o.adapter.Generate(ctx, unit.spec, settings)
	if err != nil {
		o.logger.Warn("adapter generate failed",
			zap.String("promptId", unit.spec.ID.String()), zap.Int("index", unit.index), zap.Error(err))

		return nil
	}

	data := result.Bytes
	if len(data) == 0 && result.URL == "" {
		o.logger.Warn("adapter returned neither bytes nor url",
			zap.String("promptId", unit.spec.ID.String()))

		return nil
	}

	key := fmt.Sprintf("generations/%s/%d", unit.spec.ID, unit.index)

	url := result.URL
	if len(data) > 0 {
		var uploaded string

		err := utils.WithRetry(ctx, func() error {
			u, err := o.uploads.Put(ctx, key, data, objectstore.Metadata{"promptId": unit.spec.ID.String()})
			if err != nil {
				return err
			}

			uploaded = u

			return nil
		}, utils.GetThumbnailRetryOptions())
		if err != nil {
			o.logger.Warn("upload failed after bounded retry", zap.String("key", key), zap.Error(err))
			return nil
		}

		url = uploaded
	}

	return &types.Generation{
		ID:        uuid.New(),
		UserID:    userID,
		PromptID:  unit.spec.ID,
		Provider:  o.providerName,
		URL:       url,
		Width:     settings.Width,
		Height:    settings.Height,
		CostCents: result.CostCents,
	}
}

// pair links the first two successful Generations sharing a PromptID via
// PairedWithID, mirroring the k=2 over-generation default.
func (o *Orchestrator) pair(results []*types.Generation) {
	byPrompt := map[uuid.UUID][]*types.Generation{}

	for _, g := range results {
		if g == nil {
			continue
		}

		byPrompt[g.PromptID] = append(byPrompt[g.PromptID], g)
	}

	for _, group := range byPrompt {
		if len(group) < 2 {
			continue
		}

		first, second := group[0], group[1]
		first.PairedWithID = &second.ID
		second.PairedWithID = &first.ID
	}
}

// progressTracker accumulates a monotonic processed count and a
// last-N preview-URL window across concurrent generateOne completions.
type progressTracker struct {
	total int
	mu    sync.Mutex

	processed int
	preview   []string
}

func newProgressTracker(total int) *progressTracker {
	return &progressTracker{total: total}
}

func (t *progressTracker) record(userID, currentPrompt, previewURL string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++

	if previewURL != "" {
		t.preview = append(t.preview, previewURL)
		if len(t.preview) > previewWindow {
			t.preview = t.preview[len(t.preview)-previewWindow:]
		}
	}

	return Event{
		UserID:        userID,
		Processed:     t.processed,
		Total:         t.total,
		PreviewURLs:   append([]string(nil), t.preview...),
		CurrentPrompt: currentPrompt,
	}
}

func (t *progressTracker) final(userID string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Event{
		UserID:      userID,
		Processed:   t.processed,
		Total:       t.total,
		PreviewURLs: append([]string(nil), t.preview...),
		Done:        true,
	}
}
