package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Vehicle struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`

	// Registration is stored normalized (upper-cased, whitespace stripped)
	// and acts as the natural key joining documents to vehicles.
	Registration string `gorm:"uniqueIndex;not null"`

	Make       string
	Model      string
	Year       int
	Colour     string
	FuelType   string
	Derivative string

	// Single ownership column. The legacy export carried two parallel
	// columns for this relationship; the importer coalesces them here.
	OwnerID *uuid.UUID `gorm:"type:uuid;index"`

	MOTExpiry *time.Time
	TaxDue    *time.Time

	// Fields of gorm.Model, spelled out because embedding it would
	// collide with the Model column above.
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) (err error) {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return
}
