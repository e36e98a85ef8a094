package model

import (
	"time"

	"gorm.io/gorm"
)

// FeatureRequest is a deduplicated product request.
// FeedbackCount is maintained by the repository alongside Feedback writes.
type FeatureRequest struct {
	ID              string        `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProductID       string        `json:"product_id" gorm:"type:varchar(36);not null;index"`
	Title           string        `json:"title" gorm:"type:varchar(255);not null"`
	Description     string        `json:"description" gorm:"type:text"`
	Category        Category      `json:"category" gorm:"type:varchar(32);not null"`
	Status          RequestStatus `json:"status" gorm:"type:varchar(32);not null"`
	FeedbackCount   int           `json:"feedback_count" gorm:"not null;default:0"`
	AIGenerated     bool          `json:"ai_generated" gorm:"not null"`
	SourceMessageID *string       `json:"source_message_id,omitempty" gorm:"type:varchar(255)"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// TableName specifies the table name for FeatureRequest
func (FeatureRequest) TableName() string {
	return "feature_requests"
}

func (r *FeatureRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = newID()
	}
	if r.Status == "" {
		r.Status = StatusUntriaged
	}
	return nil
}
