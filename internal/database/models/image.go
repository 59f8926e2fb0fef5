package models

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/database/dbretry"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// ImageModel handles database operations for Image records.
type ImageModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewImage creates an ImageModel.
func NewImage(db *bun.DB, logger *zap.Logger) *ImageModel {
	return &ImageModel{db: db, logger: logger.Named("db_image")}
}

// InsertNovel inserts only images whose content hash is not already present
// for the portfolio, returning the rows actually inserted.
func (m *ImageModel) InsertNovel(ctx context.Context, images []*types.Image) ([]*types.Image, error) {
	if len(images) == 0 {
		return nil, nil
	}

	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Image, error) {
		var inserted []*types.Image

		_, err := m.db.NewInsert().
			Model(&images).
			On("CONFLICT (portfolio_id, content_hash) DO NOTHING").
			Returning("*").
			Exec(ctx, &inserted)
		if err != nil {
			return nil, fmt.Errorf("insert novel images: %w", err)
		}

		return inserted, nil
	})
}

// ExistingHashes returns the set of content hashes already stored for a portfolio.
func (m *ImageModel) ExistingHashes(ctx context.Context, portfolioID uuid.UUID) (map[string]struct{}, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (map[string]struct{}, error) {
		var hashes []string

		err := m.db.NewSelect().
			Model((*types.Image)(nil)).
			Column("content_hash").
			Where("portfolio_id = ?", portfolioID).
			Scan(ctx, &hashes)
		if err != nil {
			return nil, fmt.Errorf("list existing hashes for %s: %w", portfolioID, err)
		}

		set := make(map[string]struct{}, len(hashes))
		for _, h := range hashes {
			set[h] = struct{}{}
		}

		return set, nil
	})
}

// ListByPortfolio returns every Image belonging to a Portfolio, ordered by
// upload order.
func (m *ImageModel) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*types.Image, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Image, error) {
		var images []*types.Image

		err := m.db.NewSelect().
			Model(&images).
			Where("portfolio_id = ?", portfolioID).
			OrderExpr("upload_order ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list images for %s: %w", portfolioID, err)
		}

		return images, nil
	})
}

// UpdateStatus transitions one Image's analysis status.
func (m *ImageModel) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.ImageStatus, failedReason string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Image)(nil)).
			Set("status = ?", status).
			Set("failed_reason = ?", failedReason).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update image %s status: %w", id, err)
		}

		return nil
	})
}
