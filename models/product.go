package models

import "time"

// Product is the catalog entity line items reference. The catalog itself is
// maintained elsewhere; this module only reads it.
type Product struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SKU       string    `gorm:"size:254" json:"sku,omitempty"`
	Name      string    `gorm:"size:254" json:"name" validate:"required"`
	Price     float64   `json:"price" validate:"required"`
	HasSizes  bool      `json:"has_sizes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
