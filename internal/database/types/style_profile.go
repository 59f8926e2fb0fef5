package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Distribution counts occurrences of each value observed for one slot
// across every Garment of every Descriptor in a Portfolio.
type Distribution map[string]int

// SignaturePiece is a high-confidence standout garment surfaced in a
// StyleProfile as a named exemplar.
type SignaturePiece struct {
	GarmentType string  `json:"garmentType"`
	Detail      string  `json:"detail"`
	Confidence  float64 `json:"confidence"`
}

// ConstructionPattern is one construction detail ranked by frequency.
type ConstructionPattern struct {
	Detail    string `json:"detail"`
	Frequency int    `json:"frequency"`
}

// StyleProfile is derived from all Descriptors of a Portfolio. Regenerated
// on demand; never mutated in place — a second aggregate call replaces the
// row atomically.
type StyleProfile struct {
	bun.BaseModel `bun:"table:style_profiles"`

	ID          uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	PortfolioID uuid.UUID `bun:",notnull,unique"                         json:"portfolioId"`
	UserID      string    `bun:",notnull"                                json:"userId"`

	GarmentDistribution    Distribution `bun:"type:jsonb,notnull" json:"garmentDistribution"`
	ColorDistribution      Distribution `bun:"type:jsonb,notnull" json:"colorDistribution"`
	FabricDistribution     Distribution `bun:"type:jsonb,notnull" json:"fabricDistribution"`
	SilhouetteDistribution Distribution `bun:"type:jsonb,notnull" json:"silhouetteDistribution"`
	LightingDistribution   Distribution `bun:"type:jsonb,notnull" json:"lightingDistribution"`
	CameraDistribution     Distribution `bun:"type:jsonb,notnull" json:"cameraDistribution"`
	BackgroundDistribution Distribution `bun:"type:jsonb,notnull" json:"backgroundDistribution"`

	AestheticThemes      []string              `bun:"type:jsonb,notnull" json:"aestheticThemes"`
	ConstructionPatterns []ConstructionPattern `bun:"type:jsonb,notnull" json:"constructionPatterns"`
	SignaturePieces      []SignaturePiece      `bun:"type:jsonb,notnull" json:"signaturePieces"`

	SummaryText string `bun:",notnull" json:"summaryText"`

	TotalImages     int     `bun:",notnull"                   json:"totalImages"`
	AvgConfidence   float64 `bun:"type:decimal(4,3),notnull"  json:"avgConfidence"`
	AvgCompleteness float64 `bun:"type:decimal(5,2),notnull"  json:"avgCompleteness"`

	CreatedAt time.Time `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
