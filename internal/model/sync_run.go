package model

import "time"

// SyncRun represents a log entry for one sync attempt
type SyncRun struct {
	ID           uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	ConnectionID string      `json:"connection_id" gorm:"type:varchar(36);not null;index"`
	Trigger      SyncTrigger `json:"trigger" gorm:"type:varchar(32);not null"`
	Status       SyncStatus  `json:"status" gorm:"type:varchar(32);not null"`
	Processed    int         `json:"processed"`
	Total        int         `json:"total"`
	Failed       int         `json:"failed"`
	ErrorMsg     string      `json:"error_msg" gorm:"type:text"`
	CreatedAt    time.Time   `json:"created_at"`
}

// TableName specifies the table name for SyncRun
func (SyncRun) TableName() string {
	return "sync_runs"
}
