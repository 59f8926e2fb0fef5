package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Lighting is a PromptSpec's lighting slot value.
type Lighting struct {
	Type      string `json:"type"`
	Direction string `json:"direction"`
}

// Camera is a PromptSpec's camera slot value.
type Camera struct {
	Angle  string `json:"angle"`
	Height string `json:"height"`
}

// PromptSpec is the structured intent C7 produces; rendered to text
// separately. It is the canonical object a Generation references.
type PromptSpec struct {
	bun.BaseModel `bun:"table:prompts"`

	ID     uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID string    `bun:",notnull"                                json:"userId"`

	Garment      string   `bun:",notnull"          json:"garment"`
	Silhouette   string   `bun:",notnull"          json:"silhouette"`
	ColorPalette []string `bun:"type:jsonb"        json:"colorPalette"`
	Fabric       string   `bun:",notnull"          json:"fabric"`
	Finish       string   `bun:",nullzero"         json:"finish,omitempty"`
	Lighting     Lighting `bun:"type:jsonb"        json:"lighting"`
	Camera       Camera   `bun:"type:jsonb"        json:"camera"`
	Background   string   `bun:",nullzero"         json:"background,omitempty"`
	Details      []string `bun:"type:jsonb"        json:"details"`
	ClusterLabel string   `bun:",nullzero"         json:"clusterLabel,omitempty"`

	WeightMap     map[string]float64 `bun:"type:jsonb,notnull" json:"weightMap"`
	RLHFPicks     map[string]string  `bun:"type:jsonb"         json:"rlhfPicks,omitempty"`
	Creativity    float64            `bun:"type:decimal(3,2),notnull" json:"creativity"`
	IsExploration bool               `bun:",notnull,default:false"    json:"isExploration"`

	RenderedText string `bun:",notnull"  json:"renderedText"`
	NegativeText string `bun:",notnull"  json:"negativeText"`
	Truncated    bool   `bun:",notnull,default:false" json:"truncated"`

	CreatedAt time.Time `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
