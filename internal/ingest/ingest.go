// Package ingest implements C3: unpacking an uploaded archive of outfit
// photographs into a Portfolio, deduplicating by content hash, fanning the
// novel images out across C2 extraction with bounded parallelism, and
// streaming progress as it goes.
package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

// ErrNoImagesFound is returned when an archive contains no file recognized
// as a supported image format.
var ErrNoImagesFound = errors.New("ingest: archive contains no supported images")

// ErrPortfolioSuperseded reports that a newer ingest for the same user has
// superseded a Portfolio. Nothing in this package returns it: an ingest in
// progress runs to completion even after a newer one has deactivated its
// Portfolio.
var ErrPortfolioSuperseded = errors.New("ingest: portfolio superseded by a newer ingest")

// allowedContentTypes are the image MIME types C2's vision model accepts.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// PortfolioRepo persists Portfolio lifecycle state.
type PortfolioRepo interface {
	Create(ctx context.Context, userID string) (*types.Portfolio, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Portfolio, error)
	GetActive(ctx context.Context, userID string) (*types.Portfolio, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PortfolioStatus) error
	IncrementImageCount(ctx context.Context, id uuid.UUID, delta int) error
}

// ImageRepo persists Image rows and resolves dedup state.
type ImageRepo interface {
	InsertNovel(ctx context.Context, images []*types.Image) ([]*types.Image, error)
	ExistingHashes(ctx context.Context, portfolioID uuid.UUID) (map[string]struct{}, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ImageStatus, failedReason string) error
}

// DescriptorStore persists the C2 output for one Image.
type DescriptorStore interface {
	Upsert(ctx context.Context, descriptor *types.Descriptor, corrections []*types.DescriptorCorrection) error
}

// Uploader stores raw image bytes and returns the storage key C2's
// ImageSource resolves back to decoded content.
type Uploader interface {
	Put(ctx context.Context, portfolioID uuid.UUID, contentHash string, data []byte) (storageKey string, err error)
}

// Extractor runs C2 against one already-uploaded image.
type Extractor interface {
	Extract(ctx context.Context, storageKey string) (*taxonomy.Descriptor, error)
}

// ProfileInvalidator drops any cached StyleProfile derived from a
// Portfolio so the next read recomputes it from fresh Descriptors.
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, portfolioID uuid.UUID) error
}

// Progress streams ingestion progress events for one Portfolio.
type Progress interface {
	Publish(ctx context.Context, portfolioID uuid.UUID, event Event) error
}

// Event is one progress update, published through Progress;
// RedisProgress sends it on a per-portfolio Redis pub/sub channel.
type Event struct {
	PortfolioID  uuid.UUID `json:"portfolioId"`
	Processed    int       `json:"processed"`
	Total        int       `json:"total"`
	PreviewURLs  []string  `json:"previewUrls"`
	CurrentImage string    `json:"currentImage,omitempty"`
	Done         bool      `json:"done"`
	Failed       bool      `json:"failed,omitempty"`
}

// previewWindow is the number of most-recent preview URLs retained on an
// Event; older entries are dropped as new ones arrive.
const previewWindow = 6

// Pipeline wires the C3 ingestion flow together.
type Pipeline struct {
	portfolios PortfolioRepo
	images     ImageRepo
	descriptors DescriptorStore
	uploader   Uploader
	extractor  Extractor
	profiles   ProfileInvalidator
	progress   Progress
	logger     *zap.Logger

	concurrency int
}

// New creates a Pipeline bounded to concurrency simultaneous C2 calls
// (the P_analyze fan-out width, typically 3-5).
func New(
	portfolios PortfolioRepo, images ImageRepo, descriptors DescriptorStore,
	uploader Uploader, extractor Extractor, profiles ProfileInvalidator, progress Progress,
	concurrency int, logger *zap.Logger,
) *Pipeline {
	if concurrency < 1 {
		concurrency = 1
	}

	return &Pipeline{
		portfolios:  portfolios,
		images:      images,
		descriptors: descriptors,
		uploader:    uploader,
		extractor:   extractor,
		profiles:    profiles,
		progress:    progress,
		concurrency: concurrency,
		logger:      logger.Named("ingest"),
	}
}

// unpacked is one candidate image extracted from the archive, before
// dedup or upload.
type unpacked struct {
	name string
	hash string
	data []byte
}

// Ingest creates a brand-new Portfolio for userID and populates it from
// archive, processing every recognized image through C2. Any previously
// active Portfolio for the user is deactivated.
func (p *Pipeline) Ingest(ctx context.Context, userID string, archive []byte) (*types.Portfolio, error) {
	portfolio, err := p.portfolios.Create(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("create portfolio: %w", err)
	}

	candidates, err := unpackArchive(archive)
	if err != nil {
		return nil, fmt.Errorf("unpack archive: %w", err)
	}

	if len(candidates) == 0 {
		if statusErr := p.portfolios.UpdateStatus(ctx, portfolio.ID, enum.PortfolioStatusFailed); statusErr != nil {
			p.logger.Warn("failed to mark empty portfolio failed", zap.Error(statusErr))
		}

		return nil, ErrNoImagesFound
	}

	if err := p.processBatch(ctx, portfolio.ID, userID, candidates, nil); err != nil {
		return nil, err
	}

	final, err := p.portfolios.Get(ctx, portfolio.ID)
	if err != nil {
		return nil, fmt.Errorf("reload portfolio %s: %w", portfolio.ID, err)
	}

	return final, nil
}

// AddImages appends new images to an existing Portfolio. Only content
// hashes not already present are inserted and processed; the Portfolio's
// cached StyleProfile is invalidated so the next aggregation reflects the
// addition.
func (p *Pipeline) AddImages(ctx context.Context, portfolioID uuid.UUID, archive []byte) error {
	candidates, err := unpackArchive(archive)
	if err != nil {
		return fmt.Errorf("unpack archive: %w", err)
	}

	existing, err := p.images.ExistingHashes(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("list existing hashes for %s: %w", portfolioID, err)
	}

	novel := candidates[:0]
	for _, c := range candidates {
		if _, ok := existing[c.hash]; !ok {
			novel = append(novel, c)
		}
	}

	if len(novel) == 0 {
		return nil
	}

	portfolio, err := p.portfolios.Get(ctx, portfolioID)
	if err != nil {
		return fmt.Errorf("get portfolio %s: %w", portfolioID, err)
	}

	if err := p.processBatch(ctx, portfolioID, portfolio.UserID, novel, existing); err != nil {
		return err
	}

	if p.profiles != nil {
		if err := p.profiles.Invalidate(ctx, portfolioID); err != nil {
			p.logger.Warn("failed to invalidate style profile cache",
				zap.String("portfolioId", portfolioID.String()), zap.Error(err))
		}
	}

	return nil
}

// processBatch uploads, inserts, and analyzes one set of novel candidate
// images, streaming progress and finally settling the Portfolio's status.
func (p *Pipeline) processBatch(
	ctx context.Context, portfolioID uuid.UUID, userID string, candidates []unpacked, existing map[string]struct{},
) error {
	rows := make([]*types.Image, 0, len(candidates))
	uploadOrder := len(existing)

	for _, c := range candidates {
		storageKey, err := p.uploader.Put(ctx, portfolioID, c.hash, c.data)
		if err != nil {
			p.logger.Warn("upload failed, skipping image",
				zap.String("name", c.name), zap.Error(err))

			continue
		}

		rows = append(rows, &types.Image{
			PortfolioID: portfolioID,
			StorageKey:  storageKey,
			ContentHash: c.hash,
			UploadOrder: uploadOrder,
			Status:      enum.ImageStatusPending,
		})
		uploadOrder++
	}

	inserted, err := p.images.InsertNovel(ctx, rows)
	if err != nil {
		return fmt.Errorf("insert images for portfolio %s: %w", portfolioID, err)
	}

	if len(inserted) == 0 {
		return ErrNoImagesFound
	}

	if err := p.portfolios.IncrementImageCount(ctx, portfolioID, len(inserted)); err != nil {
		p.logger.Warn("failed to increment image count", zap.Error(err))
	}

	succeeded := p.analyzeAll(ctx, portfolioID, userID, inserted)

	status := enum.PortfolioStatusFailed
	if succeeded > 0 {
		status = enum.PortfolioStatusAnalyzed
	}

	if err := p.portfolios.UpdateStatus(ctx, portfolioID, status); err != nil {
		return fmt.Errorf("update portfolio %s status: %w", portfolioID, err)
	}

	return nil
}

// analyzeAll fans inserted images out across bounded C2 calls, persisting
// a Descriptor per success and a failure status per miss, and streams
// progress events as each image settles. Returns the number that succeeded.
func (p *Pipeline) analyzeAll(ctx context.Context, portfolioID uuid.UUID, userID string, images []*types.Image) int {
	var (
		pl          = pool.New().WithContext(ctx).WithMaxGoroutines(p.concurrency)
		processed   = newProgressTracker(len(images))
		succeededCh = make(chan bool, len(images))
	)

	for _, img := range images {
		img := img

		pl.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return nil
			}

			ok := p.analyzeOne(ctx, img)
			succeededCh <- ok

			event := processed.record(portfolioID, img.StorageKey)
			if publishErr := p.progress.Publish(ctx, portfolioID, event); publishErr != nil {
				p.logger.Warn("failed to publish progress event",
					zap.String("portfolioId", portfolioID.String()), zap.Error(publishErr))
			}

			return nil
		})
	}

	_ = pl.Wait()
	close(succeededCh)

	var succeeded int
	for ok := range succeededCh {
		if ok {
			succeeded++
		}
	}

	final := processed.final(portfolioID)
	if err := p.progress.Publish(ctx, portfolioID, final); err != nil {
		p.logger.Warn("failed to publish final progress event",
			zap.String("portfolioId", portfolioID.String()), zap.Error(err))
	}

	return succeeded
}

// analyzeOne runs C2 on a single Image and persists the outcome. It never
// returns an error: failures are recorded on the Image row itself so one
// image's failure never aborts its siblings.
func (p *Pipeline) analyzeOne(ctx context.Context, img *types.Image) bool {
	descriptor, err := p.extractor.Extract(ctx, img.StorageKey)
	if err != nil {
		if updateErr := p.images.UpdateStatus(ctx, img.ID, enum.ImageStatusFailed, err.Error()); updateErr != nil {
			p.logger.Error("failed to record image failure",
				zap.String("imageId", img.ID.String()), zap.Error(updateErr))
		}

		return false
	}

	record := &types.Descriptor{
		ImageID:                img.ID,
		PromptVersion:          descriptor.PromptVersion,
		Document:               *descriptor,
		OverallConfidence:      descriptor.Metadata.OverallConfidence,
		CompletenessPercentage: descriptor.Metadata.CompletenessPercentage,
	}

	if err := p.descriptors.Upsert(ctx, record, nil); err != nil {
		p.logger.Error("failed to persist descriptor",
			zap.String("imageId", img.ID.String()), zap.Error(err))

		if updateErr := p.images.UpdateStatus(ctx, img.ID, enum.ImageStatusFailed, err.Error()); updateErr != nil {
			p.logger.Error("failed to record image failure", zap.Error(updateErr))
		}

		return false
	}

	if err := p.images.UpdateStatus(ctx, img.ID, enum.ImageStatusAnalyzed, ""); err != nil {
		p.logger.Error("failed to record image success",
			zap.String("imageId", img.ID.String()), zap.Error(err))
	}

	return true
}

// unpackArchive walks a zip archive, filters to supported image MIME
// types by sniffing content, and returns one unpacked candidate per
// distinct content hash (later duplicate names lose to the first seen).
func unpackArchive(archive []byte) ([]unpacked, error) {
	reader, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	seen := map[string]bool{}
	var candidates []unpacked

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}

		data, err := readZipFile(f)
		if err != nil {
			continue
		}

		if !allowedContentTypes[http.DetectContentType(data)] {
			continue
		}

		hash := contentHash(data)
		if seen[hash] {
			continue
		}
		seen[hash] = true

		candidates = append(candidates, unpacked{name: f.Name, hash: hash, data: data})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].name < candidates[j].name })

	return candidates, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", f.Name, err)
	}

	return data, nil
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// progressTracker accumulates a monotonic processed count and a
// last-N preview-URL window across concurrent analyzeOne completions.
type progressTracker struct {
	total int
	mu    sync.Mutex

	processed int
	preview   []string
}

func newProgressTracker(total int) *progressTracker {
	return &progressTracker{total: total}
}

func (t *progressTracker) record(portfolioID uuid.UUID, storageKey string) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.processed++
	t.preview = append(t.preview, storageKey)
	if len(t.preview) > previewWindow {
		t.preview = t.preview[len(t.preview)-previewWindow:]
	}

	return Event{
		PortfolioID:  portfolioID,
		Processed:    t.processed,
		Total:        t.total,
		PreviewURLs:  append([]string(nil), t.preview...),
		CurrentImage: storageKey,
	}
}

func (t *progressTracker) final(portfolioID uuid.UUID) Event {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Event{
		PortfolioID: portfolioID,
		Processed:   t.processed,
		Total:       t.total,
		PreviewURLs: append([]string(nil), t.preview...),
		Done:        true,
	}
}
