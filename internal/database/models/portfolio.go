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

// PortfolioModel handles database operations for Portfolio records.
type PortfolioModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewPortfolio creates a PortfolioModel.
func NewPortfolio(db *bun.DB, logger *zap.Logger) *PortfolioModel {
	return &PortfolioModel{db: db, logger: logger.Named("db_portfolio")}
}

// Create inserts a new Portfolio in the "processing" state and deactivates
// any previously-active portfolio for the same user.
func (m *PortfolioModel) Create(ctx context.Context, userID string) (*types.Portfolio, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Portfolio, error) {
		portfolio := &types.Portfolio{
			UserID: userID,
			Status: enum.PortfolioStatusProcessing,
			Active: true,
		}

		err := m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewUpdate().
				Model((*types.Portfolio)(nil)).
				Set("active = false").
				Where("user_id = ?", userID).
				Where("active = true").
				Exec(ctx); err != nil {
				return fmt.Errorf("deactivate prior portfolios: %w", err)
			}

			if _, err := tx.NewInsert().Model(portfolio).Exec(ctx); err != nil {
				return fmt.Errorf("insert portfolio: %w", err)
			}

			return nil
		})

		return portfolio, err
	})
}

// Get fetches a Portfolio by ID.
func (m *PortfolioModel) Get(ctx context.Context, id uuid.UUID) (*types.Portfolio, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Portfolio, error) {
		portfolio := new(types.Portfolio)

		err := m.db.NewSelect().Model(portfolio).Where("id = ?", id).Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get portfolio %s: %w", id, err)
		}

		return portfolio, nil
	})
}

// GetActive fetches the currently-active Portfolio for a user, if any.
func (m *PortfolioModel) GetActive(ctx context.Context, userID string) (*types.Portfolio, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) (*types.Portfolio, error) {
		portfolio := new(types.Portfolio)

		err := m.db.NewSelect().
			Model(portfolio).
			Where("user_id = ?", userID).
			Where("active = true").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("get active portfolio for %s: %w", userID, err)
		}

		return portfolio, nil
	})
}

// UpdateStatus transitions a Portfolio's status.
func (m *PortfolioModel) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.PortfolioStatus) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Portfolio)(nil)).
			Set("status = ?", status).
			Set("updated_at = current_timestamp").
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update portfolio %s status: %w", id, err)
		}

		return nil
	})
}

// IncrementImageCount bumps the image count after an additive ingest.
func (m *PortfolioModel) IncrementImageCount(ctx context.Context, id uuid.UUID, delta int) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		_, err := m.db.NewUpdate().
			Model((*types.Portfolio)(nil)).
			Set("image_count = image_count + ?", delta).
			Set("updated_at = current_timestamp").
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("increment portfolio %s image count: %w", id, err)
		}

		return nil
	})
}
