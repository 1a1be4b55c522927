package models

import "time"

// Account is a user-scoped credential profile mirrored on the orchestrator.
type Account struct {
	ID     uint64 `gorm:"primaryKey;autoIncrement"`
	UserID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_account_user_name,priority:1"`

	Name string `gorm:"type:varchar(120);not null;uniqueIndex:idx_account_user_name,priority:2"`
	// ExternalName is "<name>-<userID>", the orchestrator-side profile name.
	ExternalName string `gorm:"type:varchar(200);uniqueIndex;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Account) TableName() string {
	return "accounts"
}
