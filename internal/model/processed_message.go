package model

import (
	"time"

	"gorm.io/gorm"
)

// ProcessedMessage is the audit row written once per external message.
// The unique (source, source_message_id) index is the at-most-once guard.
type ProcessedMessage struct {
	ID               string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProductID        string    `json:"product_id" gorm:"type:varchar(36);not null;index"`
	ConnectionID     string    `json:"connection_id" gorm:"type:varchar(36);index"`
	Source           Channel   `json:"source" gorm:"type:varchar(32);not null;uniqueIndex:idx_processed_source_message"`
	SourceMessageID  string    `json:"source_message_id" gorm:"type:varchar(255);not null;uniqueIndex:idx_processed_source_message"`
	SourceThreadID   *string   `json:"source_thread_id,omitempty" gorm:"type:varchar(255)"`
	Subject          string    `json:"subject" gorm:"type:text"`
	SenderEmail      string    `json:"sender_email" gorm:"type:varchar(255)"`
	SenderName       *string   `json:"sender_name,omitempty" gorm:"type:varchar(255)"`
	Content          string    `json:"content" gorm:"type:text"`
	IsFeatureRequest bool      `json:"is_feature_request" gorm:"not null"`
	FeatureRequestID *string   `json:"feature_request_id" gorm:"type:varchar(36);index"`
	FeedbackID       *string   `json:"feedback_id" gorm:"type:varchar(36);index"`
	ReceivedAt       time.Time `json:"received_at"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// TableName specifies the table name for ProcessedMessage
func (ProcessedMessage) TableName() string {
	return "processed_messages"
}

func (m *ProcessedMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = newID()
	}
	if m.ProcessedAt.IsZero() {
		m.ProcessedAt = time.Now()
	}
	return nil
}
