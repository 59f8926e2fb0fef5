package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder

	"github.com/HugoSmits86/nativewebp"
	"github.com/google/uuid"
)

// ImageFetcher adapts a Store to C2's extract.ImageSource contract,
// decoding stored bytes into an image.Image. JPEG and PNG are decoded via
// the standard library's registered formats; WebP falls back to
// nativewebp, since the stdlib image package has no WebP decoder.
type ImageFetcher struct {
	store Store
}

// NewImageFetcher wraps store for use as an extract.ImageSource.
func NewImageFetcher(store Store) *ImageFetcher {
	return &ImageFetcher{store: store}
}

// Fetch implements extract.ImageSource.
func (f *ImageFetcher) Fetch(ctx context.Context, storageKey string) (image.Image, error) {
	data, err := f.store.Get(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", storageKey, err)
	}

	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	img, err := nativewebp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode %q: %w", storageKey, err)
	}

	return img, nil
}

// Uploader adapts a Store to C3's ingest.Uploader contract, namespacing
// every key under the owning Portfolio.
type Uploader struct {
	store Store
}

// NewUploader wraps store for use as an ingest.Uploader.
func NewUploader(store Store) *Uploader {
	return &Uploader{store: store}
}

// Put implements ingest.Uploader.
func (u *Uploader) Put(ctx context.Context, portfolioID uuid.UUID, contentHash string, data []byte) (string, error) {
	key := "portfolios/" + portfolioID.String() + "/" + contentHash

	if _, err := u.store.Put(ctx, key, data, Metadata{"contentHash": contentHash}); err != nil {
		return "", fmt.Errorf("put %q: %w", key, err)
	}

	return key, nil
}
