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

// BanditModel handles database operations for BanditState records, the
// Beta posteriors behind C5's Thompson Sampling.
type BanditModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewBandit creates a BanditModel.
func NewBandit(db *bun.DB, logger *zap.Logger) *BanditModel {
	return &BanditModel{db: db, logger: logger.Named("db_bandit")}
}

// GetSlot fetches every BanditState row for one (user, slot) pair, the
// value population a Thompson Sampling draw is made over.
func (m *BanditModel) GetSlot(ctx context.Context, userID string, slot enum.AttributeSlot) ([]*types.BanditState, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.BanditState, error) {
		var states []*types.BanditState

		err := m.db.NewSelect().
			Model(&states).
			Where("user_id = ?", userID).
			Where("slot = ?", slot).
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get bandit slot %s for %s: %w", slot, userID, err)
		}

		return states, nil
	})
}

// SeedUniform inserts an (user, slot, value) row with a uniform prior if
// one does not already exist, leaving any existing posterior untouched.
func (m *BanditModel) SeedUniform(ctx context.Context, userID string, slot enum.AttributeSlot, value string) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		state := &types.BanditState{UserID: userID, Slot: slot, Value: value, Alpha: 1, Beta: 1}

		_, err := m.db.NewInsert().
			Model(state).
			On("CONFLICT (user_id, slot, value) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("seed bandit state %s/%s/%s: %w", userID, slot, value, err)
		}

		return nil
	})
}

// Update applies a reward observation to one (user, slot, value)
// posterior: success increments Alpha, failure increments Beta.
func (m *BanditModel) Update(ctx context.Context, userID string, slot enum.AttributeSlot, value string, success bool) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		column := "beta"
		if success {
			column = "alpha"
		}

		state := &types.BanditState{UserID: userID, Slot: slot, Value: value, Alpha: 1, Beta: 1}

		_, err := m.db.NewInsert().
			Model(state).
			On("CONFLICT (user_id, slot, value) DO UPDATE").
			Set(column+" = bandit_state."+column+" + 1").
			Set("updated_at = current_timestamp").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update bandit state %s/%s/%s: %w", userID, slot, value, err)
		}

		return nil
	})
}
