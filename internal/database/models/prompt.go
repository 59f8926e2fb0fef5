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

// PromptModel handles database operations for PromptSpec records.
type PromptModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPrompt creates a PromptModel.
func NewPrompt(db *bun.DB, logger *zap.Logger) *PromptModel {
	return &PromptModel{db: db, logger: logger.Named("db_prompt")}
}

// Create persists a newly-built PromptSpec.
func (m *PromptModel) Create(ctx context.Context, spec *types.PromptSpec) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := m.db.NewInsert().Model(spec).Exec(ctx); err != nil {
			return fmt.Errorf("insert prompt spec: %w", err)
		}

		return nil
	})
}

// Get fetches a PromptSpec by ID.
func (m *PromptModel) Get(ctx context.Context, id uuid.UUID) (*types.PromptSpec, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.PromptSpec, error) {
		spec := new(types.PromptSpec)

		err := m.db.NewSelect().Model(spec).Where("id = ?", id).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get prompt spec %s: %w", id, err)
		}

		return spec, nil
	})
}

// ListByUser returns every PromptSpec built for a user, newest first, for
// the GET /prompts read-only projection.
func (m *PromptModel) ListByUser(ctx context.Context, userID string) ([]*types.PromptSpec, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.PromptSpec, error) {
		var specs []*types.PromptSpec

		err := m.db.NewSelect().
			Model(&specs).
			Where("user_id = ?", userID).
			OrderExpr("created_at DESC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list prompt specs for user %s: %w", userID, err)
		}

		return specs, nil
	})
}
