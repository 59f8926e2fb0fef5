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

// GenerationModel handles database operations for Generation records.
type GenerationModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewGeneration creates a GenerationModel.
func NewGeneration(db *bun.DB, logger *zap.Logger) *GenerationModel {
	return &GenerationModel{db: db, logger: logger.Named("db_generation")}
}

// InsertBatch persists every Generation produced for a single request,
// including already-resolved pairing links (k=2 pairing is computed
// before insertion so PairedWithID round-trips both directions).
func (m *GenerationModel) InsertBatch(ctx context.Context, generations []*types.Generation) error {
	if len(generations) == 0 {
		return nil
	}

	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := m.db.NewInsert().Model(&generations).Exec(ctx); err != nil {
			return fmt.Errorf("insert generation batch: %w", err)
		}

		return nil
	})
}

// Get fetches a Generation by ID.
func (m *GenerationModel) Get(ctx context.Context, id uuid.UUID) (*types.Generation, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Generation, error) {
		generation := new(types.Generation)

		err := m.db.NewSelect().Model(generation).Where("id = ?", id).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get generation %s: %w", id, err)
		}

		return generation, nil
	})
}

// ListByPrompt returns every Generation produced from a PromptSpec, the
// candidate pool C9 selects from.
func (m *GenerationModel) ListByPrompt(ctx context.Context, promptID uuid.UUID) ([]*types.Generation, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Generation, error) {
		var generations []*types.Generation

		err := m.db.NewSelect().
			Model(&generations).
			Where("prompt_id = ?", promptID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list generations for prompt %s: %w", promptID, err)
		}

		return generations, nil
	})
}

// ListByUser returns every Generation produced for a user, newest first,
// for the GET /generations read-only projection.
func (m *GenerationModel) ListByUser(ctx context.Context, userID string) ([]*types.Generation, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.Generation, error) {
		var generations []*types.Generation

		err := m.db.NewSelect().
			Model(&generations).
			Where("user_id = ?", userID).
			OrderExpr("created_at DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list generations for user %s: %w", userID, err)
		}

		return generations, nil
	})
}

// UpdateQuality records a Generation's Scorer output.
func (m *GenerationModel) UpdateQuality(ctx context.Context, id uuid.UUID, score float64) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Generation)(nil)).
			Set("quality_score = ?", score).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update generation %s quality: %w", id, err)
		}

		return nil
	})
}

// UpdateValidationStatus records C9's selection decision for a Generation.
func (m *GenerationModel) UpdateValidationStatus(ctx context.Context, id uuid.UUID, status enum.ValidationStatus) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Generation)(nil)).
			Set("validation_status = ?", status).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update generation %s validation status: %w", id, err)
		}

		return nil
	})
}
