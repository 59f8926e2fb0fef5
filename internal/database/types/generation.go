package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Generation is one image synthesized from one PromptSpec.
type Generation struct {
	bun.BaseModel `bun:"table:generations"`

	ID       uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID   string    `bun:",notnull"                                json:"userId"`
	PromptID uuid.UUID `bun:",notnull"                                json:"promptId"`

	Provider   string `bun:",notnull" json:"provider"`
	URL        string `bun:",notnull" json:"url"`
	Width      int    `bun:",notnull" json:"width"`
	Height     int    `bun:",notnull" json:"height"`
	CostCents  int    `bun:",notnull" json:"costCents"`

	QualityScore     *float64            `bun:"type:decimal(5,2)" json:"qualityScore,omitempty"`
	ValidationStatus enum.ValidationStatus `bun:",notnull,default:0" json:"validationStatus"`

	PairedWithID *uuid.UUID `bun:"type:uuid" json:"pairedWithId,omitempty"`

	CreatedAt time.Time `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
