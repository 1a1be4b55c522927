package models

import (
	"time"

	"gorm.io/datatypes"
)

// StrategyConfig is one user-authored controller configuration, stored
// pre-normalization so it can be displayed and edited as authored.
type StrategyConfig struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_strategy_user_display,priority:1"`

	// DisplayName is "<name>_<version>", unique per user.
	DisplayName string `gorm:"type:varchar(120);not null;uniqueIndex:idx_strategy_user_display,priority:2"`
	// ExternalName is "<userID>_<displayName>", the globally unique name the
	// orchestrator knows this config by.
	ExternalName string `gorm:"type:varchar(200);uniqueIndex;not null"`

	ControllerKind     string `gorm:"type:varchar(50);not null"`
	ControllerCategory string `gorm:"type:varchar(50);not null"`

	RawConfig datatypes.JSON `gorm:"type:jsonb;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (StrategyConfig) TableName() string {
	return "strategy_configs"
}
