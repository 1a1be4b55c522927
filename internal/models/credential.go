package models

import "time"

// Credential records that connector keys exist on the orchestrator for an
// account. The keys themselves are never stored here.
type Credential struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	AccountID uint64 `gorm:"not null;uniqueIndex:idx_credential_account_connector,priority:1"`

	ConnectorName string `gorm:"type:varchar(80);not null;uniqueIndex:idx_credential_account_connector,priority:2"`
	FileName      string `gorm:"type:varchar(120);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Credential) TableName() string {
	return "credentials"
}
