package models

import (
	"database/sql"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"boutique/config"
)

type Order struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	OrderNumber    string          `gorm:"size:32;uniqueIndex" json:"order_number"`
	FullName       string          `gorm:"size:50" json:"full_name" validate:"required"`
	Email          string          `gorm:"size:254" json:"email" validate:"required"`
	PhoneNumber    string          `gorm:"size:20" json:"phone_number" validate:"required"`
	Country        string          `gorm:"size:40" json:"country" validate:"required"`
	Postcode       string          `gorm:"size:20" json:"postcode,omitempty"`
	TownOrCity     string          `gorm:"size:40" json:"town_or_city" validate:"required"`
	StreetAddress1 string          `gorm:"size:80" json:"street_address1" validate:"required"`
	StreetAddress2 string          `gorm:"size:80" json:"street_address2,omitempty"`
	County         string          `gorm:"size:80" json:"county,omitempty"`
	Date           time.Time       `gorm:"autoCreateTime" json:"date"`
	DeliveryCost   float64         `json:"delivery_cost"`
	OrderTotal     float64         `json:"order_total"`
	GrandTotal     float64         `json:"grand_total"`
	OriginalBag    string          `gorm:"type:text" json:"original_bag"`
	StripePID      string          `gorm:"column:stripe_pid;size:255;index" json:"stripe_pid"`
	UserProfileID  *uint           `json:"user_profile_id,omitempty"`
	LineItems      []OrderLineItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"line_items,omitempty"`
}

// BeforeCreate assigns the order number on first persistence. Subsequent saves
// never regenerate it.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderNumber == "" {
		o.OrderNumber = GenerateOrderNumber()
	}
	return nil
}

// GenerateOrderNumber returns a random 32-character uppercase hex identifier.
// Uniqueness rests on the width of the identifier, there is no collision retry.
func GenerateOrderNumber() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
}

// UpdateTotals recomputes order_total, delivery_cost and grand_total from the
// order's current line items and persists all three. Every code path that
// inserts, updates or deletes a line item must call this in the same unit of
// work so the totals are never stale.
func (o *Order) UpdateTotals(tx *gorm.DB) error {
	var sum sql.NullFloat64
	if err := tx.Model(&OrderLineItem{}).
		Where("order_id = ?", o.ID).
		Select("SUM(lineitem_total)").
		Scan(&sum).Error; err != nil {
		return err
	}
	// an order with no line items sums to NULL, which counts as zero
	o.OrderTotal = Round2(sum.Float64)
	if o.OrderTotal < config.C.FreeDeliveryThreshold {
		o.DeliveryCost = Round2(o.OrderTotal * config.C.StandardDeliveryPercentage / 100)
	} else {
		o.DeliveryCost = 0
	}
	o.GrandTotal = Round2(o.OrderTotal + o.DeliveryCost)

	return tx.Model(o).Updates(map[string]interface{}{
		"order_total":   o.OrderTotal,
		"delivery_cost": o.DeliveryCost,
		"grand_total":   o.GrandTotal,
	}).Error
}

type OrderLineItem struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"index" json:"order_id"`
	ProductID     uint      `json:"product_id"`
	ProductSize   string    `gorm:"size:2" json:"product_size,omitempty"` // XS, S, M, L, XL
	Quantity      int       `json:"quantity" validate:"required,min=1"`
	LineitemTotal float64   `json:"lineitem_total"`
	Product       Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BeforeSave recomputes the line item total from the current product price, so
// a re-save after a price change picks up the new price.
func (li *OrderLineItem) BeforeSave(tx *gorm.DB) error {
	var product Product
	if err := tx.First(&product, li.ProductID).Error; err != nil {
		return err
	}
	li.LineitemTotal = Round2(product.Price * float64(li.Quantity))
	return nil
}

// Round2 rounds a monetary amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
