package models

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/database/dbretry"
	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// CoverageModel handles database operations for CoverageReport and
// AttributeGap records.
type CoverageModel struct {
	db     *bun.DB
	logger *zap.Logger
}

// NewCoverage creates a CoverageModel.
func NewCoverage(db *bun.DB, logger *zap.Logger) *CoverageModel {
	return &CoverageModel{db: db, logger: logger.Named("db_coverage")}
}

// Record persists a CoverageReport and deactivates prior AttributeGap rows
// for the user before inserting the fresh set, so C7 always reads the
// latest gap analysis.
func (m *CoverageModel) Record(ctx context.Context, report *types.CoverageReport, gaps []*types.AttributeGap) error {
	return dbretry.NoResult(ctx, func(ctx context.Context) error {
		return m.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			if _, err := tx.NewInsert().Model(report).Exec(ctx); err != nil {
				return fmt.Errorf("insert coverage report: %w", err)
			}

			if _, err := tx.NewUpdate().
				Model((*types.AttributeGap)(nil)).
				Set("active = false").
				Where("user_id = ?", report.UserID).
				Where("active = true").
				Exec(ctx); err != nil {
				return fmt.Errorf("deactivate prior attribute gaps for %s: %w", report.UserID, err)
			}

			if len(gaps) == 0 {
				return nil
			}

			for _, g := range gaps {
				g.CoverageReportID = report.ID
			}

			if _, err := tx.NewInsert().Model(&gaps).Exec(ctx); err != nil {
				return fmt.Errorf("insert attribute gaps for %s: %w", report.UserID, err)
			}

			return nil
		})
	})
}

// ActiveGaps returns the current active AttributeGap set for a user, the
// input to C7's slot-weight boosting.
func (m *CoverageModel) ActiveGaps(ctx context.Context, userID string) ([]*types.AttributeGap, error) {
	return dbretry.Operation(ctx, func(ctx context.Context) ([]*types.AttributeGap, error) {
		var gaps []*types.AttributeGap

		err := m.db.NewSelect().
			Model(&gaps).
			Where("user_id = ?", userID).
			Where("active = true").
			Scan(ctx)
		if err != nil {
			return nil, fmt.Errorf("list active attribute gaps for %s: %w", userID, err)
		}

		return gaps, nil
	})
}
