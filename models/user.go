package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	Username  string       `gorm:"size:150;uniqueIndex" json:"username" validate:"required"`
	Password  string       `gorm:"size:128" json:"-"`
	FullName  string       `gorm:"size:50" json:"full_name"`
	Email     string       `gorm:"size:254" json:"email"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
	Profile   *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
}

// AfterCreate makes sure every user gets a profile row alongside the account.
func (u *User) AfterCreate(tx *gorm.DB) error {
	return tx.Create(&UserProfile{UserID: u.ID}).Error
}

// UserProfile holds a user's default delivery information, used to prefill the
// order form and optionally updated after checkout.
type UserProfile struct {
	ID                    uint    `gorm:"primaryKey" json:"id"`
	UserID                uint    `gorm:"uniqueIndex" json:"user_id"`
	DefaultPhoneNumber    string  `gorm:"size:20" json:"default_phone_number,omitempty"`
	DefaultCountry        string  `gorm:"size:40" json:"default_country,omitempty"`
	DefaultPostcode       string  `gorm:"size:20" json:"default_postcode,omitempty"`
	DefaultTownOrCity     string  `gorm:"size:40" json:"default_town_or_city,omitempty"`
	DefaultStreetAddress1 string  `gorm:"size:80" json:"default_street_address1,omitempty"`
	DefaultStreetAddress2 string  `gorm:"size:80" json:"default_street_address2,omitempty"`
	DefaultCounty         string  `gorm:"size:80" json:"default_county,omitempty"`
	Orders                []Order `gorm:"foreignKey:UserProfileID" json:"orders,omitempty"`
}
