package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/taxonomy"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Descriptor is the persisted, validated analysis record for one Image.
// Exactly one per analyzed Image; replaced, not appended, on reanalysis.
type Descriptor struct {
	bun.BaseModel `bun:"table:descriptors"`

	ID                     uuid.UUID           `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ImageID                uuid.UUID           `bun:",notnull,unique"                          json:"imageId"`
	PromptVersion          string              `bun:",notnull"                                 json:"promptVersion"`
	Document               taxonomy.Descriptor `bun:"type:jsonb,notnull"                        json:"document"`
	OverallConfidence      float64             `bun:"type:decimal(4,3),notnull"                json:"overallConfidence"`
	CompletenessPercentage float64             `bun:"type:decimal(5,2),notnull"                json:"completenessPercentage"`
	CreatedAt              time.Time           `bun:",notnull,default:current_timestamp"       json:"createdAt"`
}

// DescriptorCorrection is one row of the audit log: a logical-consistency
// rule firing during C1 validation, before a Descriptor was persisted.
type DescriptorCorrection struct {
	bun.BaseModel `bun:"table:descriptor_corrections"`

	ID           int64     `bun:",pk,autoincrement" json:"id"`
	DescriptorID uuid.UUID `bun:",notnull"          json:"descriptorId"`
	FieldPath    string    `bun:",notnull"          json:"fieldPath"`
	AIValue      string    `bun:",nullzero"         json:"aiValue,omitempty"`
	CorrectedValue string  `bun:",notnull"          json:"correctedValue"`
	RuleID       string    `bun:",notnull"          json:"ruleId"`
	CreatedAt    time.Time `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
