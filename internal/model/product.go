package model

import (
	"time"

	"gorm.io/gorm"
)

// Product is the scope that owns requests, feedback and contacts
type Product struct {
	ID                string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Name              string    `json:"name" gorm:"type:varchar(255);not null"`
	AutoDraftsEnabled bool      `json:"auto_drafts_enabled" gorm:"not null"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for Product
func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = newID()
	}
	return nil
}
