package models

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/database/dbretry"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// RLHFModel handles database operations for RLHFTokenWeight and
// RLHFFeedbackLog records.
type RLHFModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewRLHF creates an RLHFModel.
func NewRLHF(db *bun.DB, logger *zap.Logger) *RLHFModel {
	return &RLHFModel{db: db, logger: logger.Named("db_rlhf")}
}

// GetCategory fetches every token weight for one (user, category) pair.
func (m *RLHFModel) GetCategory(ctx context.Context, userID string, category enum.RLHFCategory) ([]*types.RLHFTokenWeight, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.RLHFTokenWeight, error) {
		var weights []*types.RLHFTokenWeight

		err := m.db.NewSelect().
			Model(&weights).
			Where("user_id = ?", userID).
			Where("category = ?", category).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get rlhf category %s for %s: %w", category, userID, err)
		}

		return weights, nil
	})
}

// ListByUser fetches every token weight across all categories for a user,
// for the GET /rlhf/weights read-only projection.
func (m *RLHFModel) ListByUser(ctx context.Context, userID string) ([]*types.RLHFTokenWeight, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.RLHFTokenWeight, error) {
		var weights []*types.RLHFTokenWeight

		err := m.db.NewSelect().
			Model(&weights).
			Where("user_id = ?", userID).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list rlhf weights for %s: %w", userID, err)
		}

		return weights, nil
	})
}

// ApplyReward upserts an (user, category, token) weight under the EMA
// update rule and appends an RLHFFeedbackLog row recording the transition.
func (m *RLHFModel) ApplyReward(
	ctx context.Context, userID string, category enum.RLHFCategory, token string, before, after, reward float64,
) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			weight := &types.RLHFTokenWeight{UserID: userID, Category: category, Token: token, Weight: after}

			if _, err := tx.NewInsert().
				Model(weight).
				On("CONFLICT (user_id, category, token) DO UPDATE").
				Set("weight = EXCLUDED.weight").
				Set("updated_at = current_timestamp").
				Exec(ctx); err != nil {
				return fmt.Errorf("upsert rlhf weight %s/%s/%s: %w", userID, category, token, err)
			}

			log := &types.RLHFFeedbackLog{
				UserID: userID, Category: category, Token: token,
				Reward: reward, WeightBefore: before, WeightAfter: after,
			}
			if _, err := tx.NewInsert().Model(log).Exec(ctx); err != nil {
				return fmt.Errorf("insert rlhf feedback log %s/%s/%s: %w", userID, category, token, err)
			}

			return nil
		})
	})
}
