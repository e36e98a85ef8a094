package model

import (
	"time"

	"gorm.io/gorm"
)

// Contact is a sender identity, unique per product and email
type Contact struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_contact_product_email"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex:idx_contact_product_email"`
	Name      *string   `json:"name,omitempty" gorm:"type:varchar(255)"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Contact
func (Contact) TableName() string {
	return "contacts"
}

func (c *Contact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = newID()
	}
	return nil
}
