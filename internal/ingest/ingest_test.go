package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func buildZip(t *testing.T, files map[string][]byte) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	for name, data := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write(data)
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())

	return buf.Bytes()
}

type stubPortfolios struct {
	mu       sync.Mutex
	created  []*types.Portfolio
	statuses map[uuid.UUID]enum.PortfolioStatus
	counts   map[uuid.UUID]int
}

func newStubPortfolios() *stubPortfolios {
	return &stubPortfolios{
		statuses: map[uuid.UUID]enum.PortfolioStatus{},
		counts:   map[uuid.UUID]int{},
	}
}

func (s *stubPortfolios) Create(_ context.Context, userID string) (*types.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &types.Portfolio{ID: uuid.New(), UserID: userID, Status: enum.PortfolioStatusProcessing, Active: true}
	s.created = append(s.created, p)
	s.statuses[p.ID] = p.Status

	return p, nil
}

func (s *stubPortfolios) Get(_ context.Context, id uuid.UUID) (*types.Portfolio, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.created {
		if p.ID == id {
			status := s.statuses[id]
			return &types.Portfolio{ID: p.ID, UserID: p.UserID, Status: status, Active: true, ImageCount: s.counts[id]}, nil
		}
	}

	return nil, assert.AnError
}

func (s *stubPortfolios) GetActive(_ context.Context, userID string) (*types.Portfolio, error) {
	return nil, assert.AnError
}

func (s *stubPortfolios) UpdateStatus(_ context.Context, id uuid.UUID, status enum.PortfolioStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[id] = status

	return nil
}

func (s *stubPortfolios) IncrementImageCount(_ context.Context, id uuid.UUID, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counts[id] += delta

	return nil
}

type stubImages struct {
	mu       sync.Mutex
	rows     []*types.Image
	statuses map[uuid.UUID]enum.ImageStatus
}

func newStubImages() *stubImages {
	return &stubImages{statuses: map[uuid.UUID]enum.ImageStatus{}}
}

func (s *stubImages) InsertNovel(_ context.Context, images []*types.Image) ([]*types.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, img := range images {
		img.ID = uuid.New()
		s.rows = append(s.rows, img)
		s.statuses[img.ID] = img.Status
	}

	return images, nil
}

func (s *stubImages) ExistingHashes(_ context.Context, portfolioID uuid.UUID) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := map[string]struct{}{}
	for _, img := range s.rows {
		if img.PortfolioID == portfolioID {
			set[img.ContentHash] = struct{}{}
		}
	}

	return set, nil
}

func (s *stubImages) UpdateStatus(_ context.Context, id uuid.UUID, status enum.ImageStatus, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[id] = status

	return nil
}

type stubDescriptors struct {
	mu    sync.Mutex
	count int
}

func (s *stubDescriptors) Upsert(_ context.Context, _ *types.Descriptor, _ []*types.DescriptorCorrection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++

	return nil
}

type stubUploader struct{}

func (stubUploader) Put(_ context.Context, _ uuid.UUID, hash string, _ []byte) (string, error) {
	return "key-" + hash, nil
}

type stubExtractor struct {
	failStorageKeys map[string]bool
}

func (e stubExtractor) Extract(_ context.Context, storageKey string) (*taxonomy.Descriptor, error) {
	if e.failStorageKeys[storageKey] {
		return nil, assert.AnError
	}

	return &taxonomy.Descriptor{
		PromptVersion: "v1",
		Metadata:      taxonomy.DescriptorMetadata{OverallConfidence: 0.9, CompletenessPercentage: 95},
	}, nil
}

type stubProgress struct {
	mu     sync.Mutex
	events []Event
}

func (p *stubProgress) Publish(_ context.Context, _ uuid.UUID, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.events = append(p.events, event)

	return nil
}

type stubInvalidator struct {
	mu          sync.Mutex
	invalidated []uuid.UUID
}

func (s *stubInvalidator) Invalidate(_ context.Context, portfolioID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.invalidated = append(s.invalidated, portfolioID)

	return nil
}

func newTestPipeline(extractor Extractor) (*Pipeline, *stubPortfolios, *stubImages, *stubDescriptors, *stubProgress, *stubInvalidator) {
	portfolios := newStubPortfolios()
	images := newStubImages()
	descriptors := &stubDescriptors{}
	progress := &stubProgress{}
	invalidator := &stubInvalidator{}

	p := New(portfolios, images, descriptors, stubUploader{}, extractor, invalidator, progress, 3, zap.NewNop())

	return p, portfolios, images, descriptors, progress, invalidator
}

func TestIngest_DeduplicatesAndAnalyzesNovelImages(t *testing.T) {
	archive := buildZip(t, map[string][]byte{
		"a.png": pngMagic,
		"b.png": append(append([]byte{}, pngMagic...), 0x01),
		"c.txt": []byte("not an image"),
	})

	p, portfolios, images, descriptors, progress, _ := newTestPipeline(stubExtractor{})

	portfolio, err := p.Ingest(context.Background(), "user-1", archive)
	require.NoError(t, err)

	assert.Equal(t, enum.PortfolioStatusAnalyzed, portfolio.Status)
	assert.Len(t, images.rows, 2)
	assert.Equal(t, 2, descriptors.count)
	assert.Equal(t, 2, portfolios.counts[portfolio.ID])

	require.NotEmpty(t, progress.events)
	last := progress.events[len(progress.events)-1]
	assert.True(t, last.Done)
	assert.Equal(t, 2, last.Processed)
	assert.LessOrEqual(t, len(last.PreviewURLs), previewWindow)
}

func TestIngest_EmptyArchiveReturnsErrNoImagesFound(t *testing.T) {
	archive := buildZip(t, map[string][]byte{"notes.txt": []byte("hello")})

	p, portfolios, _, _, _, _ := newTestPipeline(stubExtractor{})

	portfolio, err := p.Ingest(context.Background(), "user-2", archive)
	require.ErrorIs(t, err, ErrNoImagesFound)
	assert.Nil(t, portfolio)
	assert.Equal(t, 1, len(portfolios.created))
	assert.Equal(t, enum.PortfolioStatusFailed, portfolios.statuses[portfolios.created[0].ID])
}

func TestIngest_PartialExtractionFailureStillAnalyzesPortfolio(t *testing.T) {
	goodContent := pngMagic
	badContent := append(append([]byte{}, pngMagic...), 0x02)

	archive := buildZip(t, map[string][]byte{
		"a.png": goodContent,
		"b.png": badContent,
	})

	badKey := "key-" + contentHash(badContent)
	extractor := stubExtractor{failStorageKeys: map[string]bool{badKey: true}}

	p, _, images, descriptors, _, _ := newTestPipeline(extractor)

	portfolio, err := p.Ingest(context.Background(), "user-3", archive)
	require.NoError(t, err)
	assert.Equal(t, enum.PortfolioStatusAnalyzed, portfolio.Status)

	assert.Len(t, images.rows, 2)
	assert.Equal(t, 1, descriptors.count)

	var failedCount, analyzedCount int
	for _, status := range images.statuses {
		switch status {
		case enum.ImageStatusFailed:
			failedCount++
		case enum.ImageStatusAnalyzed:
			analyzedCount++
		}
	}
	assert.Equal(t, 1, failedCount)
	assert.Equal(t, 1, analyzedCount)
}

func TestAddImages_OnlyProcessesNovelHashesAndInvalidatesCache(t *testing.T) {
	p, portfolios, images, descriptors, _, invalidator := newTestPipeline(stubExtractor{})

	first := buildZip(t, map[string][]byte{"a.png": pngMagic})
	portfolio, err := p.Ingest(context.Background(), "user-4", first)
	require.NoError(t, err)

	second := buildZip(t, map[string][]byte{
		"a.png": pngMagic, // duplicate, should be skipped
		"b.png": append(append([]byte{}, pngMagic...), 0x03),
	})

	err = p.AddImages(context.Background(), portfolio.ID, second)
	require.NoError(t, err)

	assert.Len(t, images.rows, 2)
	assert.Equal(t, 2, descriptors.count)
	assert.Equal(t, 2, portfolios.counts[portfolio.ID])
	require.Len(t, invalidator.invalidated, 1)
	assert.Equal(t, portfolio.ID, invalidator.invalidated[0])
}

func TestAddImages_NoNovelImagesIsANoop(t *testing.T) {
	p, _, images, _, _, invalidator := newTestPipeline(stubExtractor{})

	archive := buildZip(t, map[string][]byte{"a.png": pngMagic})
	portfolio, err := p.Ingest(context.Background(), "user-5", archive)
	require.NoError(t, err)

	err = p.AddImages(context.Background(), portfolio.ID, archive)
	require.NoError(t, err)

	assert.Len(t, images.rows, 1)
	assert.Empty(t, invalidator.invalidated)
}

func TestUnpackArchive_SkipsNonImageFilesAndDuplicateContent(t *testing.T) {
	archive := buildZip(t, map[string][]byte{
		"a.png":    pngMagic,
		"dup.png":  pngMagic,
		"notes.md": []byte("# hello"),
	})

	candidates, err := unpackArchive(archive)
	require.NoError(t, err)
	assert.Len(t, candidates, 1)
}
