package models

import (
	"time"

	"gorm.io/datatypes"
)

// BotInstance is one launched bot deployment. ActiveControllers and
// StoppedControllers hold StrategyConfig display names and stay disjoint;
// the stop operation moves a name from one list to the other.
type BotInstance struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_instance_user_name,priority:1"`

	DisplayName string `gorm:"type:varchar(120);not null;uniqueIndex:idx_instance_user_name,priority:2"`
	// ExternalName is the orchestrator-side instance name, derived from the
	// display name, owner, and launch timestamp so relaunches never collide.
	ExternalName string `gorm:"type:varchar(250);uniqueIndex;not null"`

	ActiveControllers  datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	StoppedControllers datatypes.JSONSlice[string] `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (BotInstance) TableName() string {
	return "bot_instances"
}
