package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// FeedbackEvent is one append-only signal against a Generation: explicit
// (like, dislike, save, share, generate_similar, delete, critique) or
// implicit (impression_ms, swipe).
type FeedbackEvent struct {
	bun.BaseModel `bun:"table:interaction_events"`

	ID           uuid.UUID         `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	GenerationID uuid.UUID         `bun:",notnull"                                json:"generationId"`
	UserID       string            `bun:",notnull"                                json:"userId"`
	Kind         enum.FeedbackKind `bun:",notnull"                                json:"kind"`
	Payload      map[string]any    `bun:"type:jsonb"                              json:"payload,omitempty"`
	CreatedAt    time.Time         `bun:",notnull,default:current_timestamp"      json:"createdAt"`
}
