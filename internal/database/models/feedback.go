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

// FeedbackModel handles database operations for FeedbackEvent records.
type FeedbackModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewFeedback creates a FeedbackModel.
func NewFeedback(db *bun.DB, logger *zap.Logger) *FeedbackModel {
	return &FeedbackModel{db: db, logger: logger.Named("db_feedback")}
}

// Append inserts one FeedbackEvent. Events are never updated or deleted.
func (m *FeedbackModel) Append(ctx context.Context, event *types.FeedbackEvent) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		if _, err := m.db.NewInsert().Model(event).Exec(ctx); err != nil {
			return fmt.Errorf("append feedback event: %w", err)
		}

		return nil
	})
}

// TryAppend inserts one FeedbackEvent, reporting inserted=false instead of
// an error when event.ID was already processed. The caller uses this to
// reject replays of the same event id without a separate existence check.
func (m *FeedbackModel) TryAppend(ctx context.Context, event *types.FeedbackEvent) (inserted bool, err error) {
	err = dbretry.NoResult(ctx, func(ctx context.Context) error {
		res, execErr := m.db.NewInsert().
			Model(event).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
		if execErr != nil {
			return fmt.Errorf("try-append feedback event %s: %w", event.ID, execErr)
		}

		rows, raErr := res.RowsAffected()
		if raErr != nil {
			return fmt.Errorf("try-append feedback event %s: %w", event.ID, raErr)
		}

		inserted = rows > 0

		return nil
	})

	return inserted, err
}

// ListByGeneration returns every FeedbackEvent recorded against a Generation.
func (m *FeedbackModel) ListByGeneration(ctx context.Context, generationID uuid.UUID) ([]*types.FeedbackEvent, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.FeedbackEvent, error) {
		var events []*types.FeedbackEvent

		err := m.db.NewSelect().
			Model(&events).
			Where("generation_id = ?", generationID).
			OrderExpr("created_at ASC").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list feedback for generation %s: %w", generationID, err)
		}

		return events, nil
	})
}
