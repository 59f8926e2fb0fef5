package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Image is one picture in a Portfolio. Deduplicated by content hash within
// a Portfolio; destroyed only with its parent.
type Image struct {
	bun.BaseModel `bun:"table:portfolio_images"`

	ID           uuid.UUID        `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	PortfolioID  uuid.UUID        `bun:",notnull,unique:portfolio_content_hash"  json:"portfolioId"`
	StorageKey   string           `bun:",notnull"                                json:"storageKey"`
	ContentHash  string           `bun:",notnull,unique:portfolio_content_hash"  json:"contentHash"`
	UploadOrder  int              `bun:",notnull"                                json:"uploadOrder"`
	Status       enum.ImageStatus `bun:",notnull,default:0"                      json:"status"`
	FailedReason string           `bun:",nullzero"                               json:"failedReason,omitempty"`
	CreatedAt    time.Time        `bun:",notnull,default:current_timestamp"      json:"createdAt"`
}
