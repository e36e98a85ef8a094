package model

import (
	"time"

	"gorm.io/gorm"
)

// Feedback is one customer voice attached (or not yet attached) to a request
type Feedback struct {
	ID               string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProductID        string    `json:"product_id" gorm:"type:varchar(36);not null;index"`
	FeatureRequestID *string   `json:"feature_request_id" gorm:"type:varchar(36);index"`
	ContactID        *string   `json:"contact_id,omitempty" gorm:"type:varchar(36);index"`
	Content          string    `json:"content" gorm:"type:text;not null"`
	Sentiment        Sentiment `json:"sentiment" gorm:"type:varchar(16);not null"`
	Source           *Channel  `json:"source,omitempty" gorm:"type:varchar(32)"`
	SenderEmail      *string   `json:"sender_email,omitempty" gorm:"type:varchar(255)"`
	SenderName       *string   `json:"sender_name,omitempty" gorm:"type:varchar(255)"`
	AIExtracted      bool      `json:"ai_extracted" gorm:"not null"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Feedback
func (Feedback) TableName() string {
	return "feedback"
}

func (f *Feedback) BeforeCreate(tx *gorm.DB) error {
	if f.ID == "" {
		f.ID = newID()
	}
	if f.Sentiment == "" {
		f.Sentiment = SentimentNeutral
	}
	return nil
}
