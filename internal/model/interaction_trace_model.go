package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// InteractionTrace is one successful component invocation.
type InteractionTrace struct {
	ID        uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	Component string                      `gorm:"type:varchar(100);not null;index:idx_traces_component_created,priority:1" json:"component"`
	Method    string                      `gorm:"type:varchar(10);not null" json:"method"`
	Path      string                      `gorm:"type:varchar(200);not null" json:"path"`
	Changed   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"changed"`
	Fields    datatypes.JSON              `gorm:"type:jsonb" json:"fields,omitempty"`
	CreatedAt time.Time                   `gorm:"not null;index:idx_traces_component_created,priority:2" json:"created_at"`
}

func (InteractionTrace) TableName() string { return "interaction_traces" }
