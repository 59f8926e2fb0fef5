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

// DescriptorModel handles database operations for Descriptor records.
type DescriptorModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewDescriptor creates a DescriptorModel.
func NewDescriptor(db *bun.DB, logger *zap.Logger) *DescriptorModel {
	return &DescriptorModel{db: db, logger: logger.Named("db_descriptor")}
}

// Upsert replaces the Descriptor for an Image (exactly one per analyzed
// Image; replaced, not appended, on reanalysis), plus its correction audit
// trail, in a single transaction.
func (m *DescriptorModel) Upsert(
	ctx context.Context, descriptor *types.Descriptor, corrections []*types.DescriptorCorrection,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			_, err := tx.NewInsert().
				Model(descriptor).
				On("CONFLICT (image_id) DO UPDATE").
				Set("prompt_version = EXCLUDED.prompt_version").
				Set("document = EXCLUDED.document").
				Set("overall_confidence = EXCLUDED.overall_confidence").
				Set("completeness_percentage = EXCLUDED.completeness_percentage").
				Returning("id").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("upsert descriptor for image %s: %w", descriptor.ImageID, err)
			}

			if _, err := tx.NewDelete().
				Model((*types.DescriptorCorrection)(nil)).
				Where("descriptor_id = ?", descriptor.ID).
				Exec(ctx); err != nil {
				return fmt.Errorf("clear prior corrections for descriptor %s: %w", descriptor.ID, err)
			}

			if len(corrections) == 0 {
				return nil
			}

			for _, c := range corrections {
				c.DescriptorID = descriptor.ID
			}

			if _, err := tx.NewInsert().Model(&corrections).Exec(ctx); err != nil {
				return fmt.Errorf("insert corrections for descriptor %s: %w", descriptor.ID, err)
			}

			return nil
		})
	})
}

// ListByPortfolio returns every Descriptor for images in a Portfolio, the
// input to C4's aggregation.
func (m *DescriptorModel) ListByPortfolio(ctx context.Context, portfolioID uuid.UUID) ([]*types.Descriptor, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Descriptor, error) {
		var descriptors []*types.Descriptor

		err := m.db.NewSelect().
			Model(&descriptors).
			Join("JOIN portfolio_images AS img ON img.id = descriptor.image_id").
			Where("img.portfolio_id = ?", portfolioID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list descriptors for portfolio %s: %w", portfolioID, err)
		}

		return descriptors, nil
	})
}
