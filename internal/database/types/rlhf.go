package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// RLHFTokenWeight is one (user, category, token) scalar weight in [0, 2],
// default 1. Upserted; never duplicated.
type RLHFTokenWeight struct {
	bun.BaseModel `bun:"table:rlhf_token_weights"`

	UserID   string             `bun:",pk" json:"userId"`
	Category enum.RLHFCategory  `bun:",pk" json:"category"`
	Token    string             `bun:",pk" json:"token"`

	Weight float64 `bun:"type:decimal(4,3),notnull,default:1" json:"weight"`

	UpdatedAt time.Time `bun:",notnull,default:current_timestamp" json:"updatedAt"`
}

// RLHFFeedbackLog records one reward application against an
// RLHFTokenWeight, for analytics and replay.
type RLHFFeedbackLog struct {
	bun.BaseModel `bun:"table:rlhf_feedback_log"`

	ID           int64             `bun:",pk,autoincrement" json:"id"`
	UserID       string            `bun:",notnull"          json:"userId"`
	Category     enum.RLHFCategory `bun:",notnull"          json:"category"`
	Token        string            `bun:",notnull"          json:"token"`
	Reward       float64           `bun:"type:decimal(4,3),notnull" json:"reward"`
	WeightBefore float64           `bun:"type:decimal(4,3),notnull" json:"weightBefore"`
	WeightAfter  float64           `bun:"type:decimal(4,3),notnull" json:"weightAfter"`
	CreatedAt    time.Time         `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
