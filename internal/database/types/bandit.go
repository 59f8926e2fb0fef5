package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/uptrace/bun"
)

// BanditState is one Beta(alpha, beta) posterior for a (user, slot, value)
// triple. Invariant: Alpha >= 1, Beta >= 1 (Jeffreys-like floor).
type BanditState struct {
	bun.BaseModel `bun:"table:bandit_state"`

	UserID string             `bun:",pk"        json:"userId"`
	Slot   enum.AttributeSlot `bun:",pk"        json:"slot"`
	Value  string             `bun:",pk"        json:"value"`

	Alpha float64 `bun:"type:decimal(10,4),notnull,default:1" json:"alpha"`
	Beta  float64 `bun:"type:decimal(10,4),notnull,default:1" json:"beta"`

	UpdatedAt time.Time `bun:",notnull,default:current_timestamp" json:"updatedAt"`
}
