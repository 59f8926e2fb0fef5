package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Portfolio is an ordered collection of Images owned by one user. Only one
// Portfolio per user is "active" for profile derivation at a time; older
// portfolios are retained but dormant.
type Portfolio struct {
	bun.BaseModel `bun:"table:portfolios"`

	ID        uuid.UUID         `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID    string            `bun:",notnull"                                json:"userId"`
	Status    enum.PortfolioStatus `bun:",notnull,default:0"                   json:"status"`
	Active    bool              `bun:",notnull,default:true"                   json:"active"`
	ImageCount int              `bun:",notnull,default:0"                      json:"imageCount"`
	CreatedAt time.Time         `bun:",notnull,default:current_timestamp"      json:"createdAt"`
	UpdatedAt time.Time         `bun:",notnull,default:current_timestamp"      json:"updatedAt"`
}
