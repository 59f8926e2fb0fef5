package models

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/database/dbretry"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// StyleProfileModel handles database operations for StyleProfile records.
type StyleProfileModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewStyleProfile creates a StyleProfileModel.
func NewStyleProfile(db *bun.DB, logger *zap.Logger) *StyleProfileModel {
	return &StyleProfileModel{db: db, logger: logger.Named("db_style_profile")}
}

// Replace atomically swaps in a freshly-aggregated StyleProfile for a
// Portfolio. A second aggregate call always replaces, never mutates.
func (m *StyleProfileModel) Replace(ctx context.Context, profile *types.StyleProfile) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewInsert().
			Model(profile).
			On("CONFLICT (portfolio_id) DO UPDATE").
			Set("garment_distribution = EXCLUDED.garment_distribution").
			Set("color_distribution = EXCLUDED.color_distribution").
			Set("fabric_distribution = EXCLUDED.fabric_distribution").
			Set("silhouette_distribution = EXCLUDED.silhouette_distribution").
			Set("lighting_distribution = EXCLUDED.lighting_distribution").
			Set("camera_distribution = EXCLUDED.camera_distribution").
			Set("background_distribution = EXCLUDED.background_distribution").
			Set("aesthetic_themes = EXCLUDED.aesthetic_themes").
			Set("construction_patterns = EXCLUDED.construction_patterns").
			Set("signature_pieces = EXCLUDED.signature_pieces").
			Set("summary_text = EXCLUDED.summary_text").
			Set("total_images = EXCLUDED.total_images").
			Set("avg_confidence = EXCLUDED.avg_confidence").
			Set("avg_completeness = EXCLUDED.avg_completeness").
			Set("created_at = current_timestamp").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("replace style profile for portfolio %s: %w", profile.PortfolioID, err)
		}

		return nil
	})
}

// GetByPortfolio fetches the current StyleProfile for a Portfolio.
func (m *StyleProfileModel) GetByPortfolio(ctx context.Context, portfolioID uuid.UUID) (*types.StyleProfile, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.StyleProfile, error) {
		profile := new(types.StyleProfile)

		err := m.db.NewSelect().Model(profile).Where("portfolio_id = ?", portfolioID).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get style profile for portfolio %s: %w", portfolioID, err)
		}

		return profile, nil
	})
}
