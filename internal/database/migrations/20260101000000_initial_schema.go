package migrations

import (
	"context"
	"fmt"

	"github.com/aureuma/styleengine/internal/database/types"
	"github.com/uptrace/bun"
)

func init() { //nolint:gochecknoinits
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.Portfolio)(nil),
			(*types.Image)(nil),
			(*types.Descriptor)(nil),
			(*types.DescriptorCorrection)(nil),
			(*types.StyleProfile)(nil),
			(*types.PromptSpec)(nil),
			(*types.Generation)(nil),
			(*types.BanditState)(nil),
			(*types.RLHFTokenWeight)(nil),
			(*types.RLHFFeedbackLog)(nil),
			(*types.FeedbackEvent)(nil),
			(*types.CoverageReport)(nil),
			(*types.AttributeGap)(nil),
		}

		for _, model := range models {
			if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("create table for %T: %w", model, err)
			}
		}

		indexes := []struct {
			table, name, expr string
		}{
			{"portfolio_images", "portfolio_images_portfolio_id_content_hash_idx", "(portfolio_id, content_hash)"},
			{"descriptor_corrections", "descriptor_corrections_descriptor_id_idx", "(descriptor_id)"},
			{"generations", "generations_prompt_id_idx", "(prompt_id)"},
			{"interaction_events", "interaction_events_generation_id_idx", "(generation_id)"},
			{"attribute_gaps", "attribute_gaps_user_id_active_idx", "(user_id, active)"},
		}

		for _, idx := range indexes {
			_, err := db.NewRaw(fmt.Sprintf(
				`CREATE INDEX IF NOT EXISTS %s ON %s %s`, idx.name, idx.table, idx.expr,
			)).Exec(ctx)
			if err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}

		return nil
	}, func(ctx context.Context, db *bun.DB) error {
		models := []any{
			(*types.AttributeGap)(nil),
			(*types.CoverageReport)(nil),
			(*types.FeedbackEvent)(nil),
			(*types.RLHFFeedbackLog)(nil),
			(*types.RLHFTokenWeight)(nil),
			(*types.BanditState)(nil),
			(*types.Generation)(nil),
			(*types.PromptSpec)(nil),
			(*types.StyleProfile)(nil),
			(*types.DescriptorCorrection)(nil),
			(*types.Descriptor)(nil),
			(*types.Image)(nil),
			(*types.Portfolio)(nil),
		}

		for _, model := range models {
			if _, err := db.NewDropTable().Model(model).IfExists().Exec(ctx); err != nil {
				return fmt.Errorf("drop table for %T: %w", model, err)
			}
		}

		return nil
	})
}
