package types

import (
	"time"

	"github.com/aureuma/styleengine/internal/database/types/enum"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CoverageReport is one C9 selection run's per-slot coverage analysis over
// the selected Generation set.
type CoverageReport struct {
	bun.BaseModel `bun:"table:coverage_reports"`

	ID              uuid.UUID      `bun:",pk,type:uuid,default:gen_random_uuid()" json:"id"`
	UserID          string         `bun:",notnull"                                json:"userId"`
	PromptID        uuid.UUID      `bun:",notnull"                                json:"promptId"`
	DiversityScore  float64        `bun:"type:decimal(4,3),notnull"               json:"diversityScore"`
	SlotCoverage    map[string]float64 `bun:"type:jsonb,notnull"                  json:"slotCoverage"`
	CreatedAt       time.Time      `bun:",notnull,default:current_timestamp"      json:"createdAt"`
}

// AttributeGap is one slot whose coverage fell below target in a
// CoverageReport; read by C7 on the next request and turned into a
// slot-weight boost.
type AttributeGap struct {
	bun.BaseModel `bun:"table:attribute_gaps"`

	ID               int64              `bun:",pk,autoincrement" json:"id"`
	CoverageReportID uuid.UUID          `bun:",notnull"          json:"coverageReportId"`
	UserID           string             `bun:",notnull"          json:"userId"`
	Slot             enum.AttributeSlot `bun:",notnull"          json:"slot"`
	UncoveredValues  []string           `bun:"type:jsonb"        json:"uncoveredValues"`
	Severity         float64            `bun:"type:decimal(4,3),notnull" json:"severity"`
	RecommendedBoost float64            `bun:"type:decimal(3,2),notnull" json:"recommendedBoost"`
	Active           bool               `bun:",notnull,default:true"     json:"active"`
	CreatedAt        time.Time          `bun:",notnull,default:current_timestamp" json:"createdAt"`
}
