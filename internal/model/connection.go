package model

import (
	"time"

	"gorm.io/gorm"
)

// Connection links a product to one external account
type Connection struct {
	ID                string     `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProductID         string     `json:"product_id" gorm:"type:varchar(36);not null;index"`
	Channel           Channel    `json:"channel" gorm:"type:varchar(32);not null;uniqueIndex:idx_connection_account"`
	AccountIdentifier string     `json:"account_identifier" gorm:"type:varchar(255);not null;uniqueIndex:idx_connection_account"`
	AccessToken       string     `json:"-" gorm:"type:text"`
	RefreshToken      string     `json:"-" gorm:"type:text"`
	TokenExpiry       *time.Time `json:"token_expiry,omitempty"`
	Cursor            *string    `json:"cursor,omitempty" gorm:"type:varchar(255)"`
	Active            bool       `json:"active" gorm:"not null;index"`
	WatchExpiration   *time.Time `json:"watch_expiration,omitempty"`
	WebhookSecret     string     `json:"-" gorm:"type:varchar(255)"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Connection
func (Connection) TableName() string {
	return "connections"
}

func (c *Connection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}

// CursorValue returns the stored cursor or an empty string
func (c *Connection) CursorValue() string {
	if c.Cursor == nil {
		return ""
	}
	return *c.Cursor
}
