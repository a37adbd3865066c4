package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Customer struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	// Legacy export _ID; nil for customers created in-app. Nullable so
	// the unique index only binds imported rows.
	ExternalID *string `gorm:"uniqueIndex"`

	FirstName string
	LastName  string `gorm:"index"`
	Phone     string // raw value as imported
	// E.164 form of Phone, empty when the raw value could not be classified.
	// This is the column dedup lookups run against.
	NormalizedPhone string `gorm:"index"`
	Email           string `gorm:"index"`
	AddressLine1    string
	City            string
	Postcode        string
	CompanyName     string
	IsActive        bool `gorm:"default:true"`

	Vehicles  []Vehicle  `gorm:"foreignKey:OwnerID"`
	Documents []Document `gorm:"foreignKey:CustomerID"`

	gorm.Model
}

func (c *Customer) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return
}

// FullName joins the name parts, tolerating either being empty.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}
