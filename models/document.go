package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Document types as stored in doc_type.
const (
	DocTypeInvoice    = "invoice"
	DocTypeJobSheet   = "jobsheet"
	DocTypeEstimate   = "estimate"
	DocTypeCreditNote = "credit_note"
	DocTypeVoid       = "void"
)

type Document struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key"`
	ExternalID string    `gorm:"uniqueIndex;not null"` // legacy export _id

	DocType    string `gorm:"type:varchar(20);index"`
	DocNumber  string `gorm:"index"`
	IssuedDate *time.Time

	CustomerID *uuid.UUID `gorm:"type:uuid;index"`

	// Free-text registration carried over from the export; may be malformed
	// or empty. VehicleID is only set once reconciliation resolves it.
	VehicleRegistration string     `gorm:"index"`
	VehicleID           *uuid.UUID `gorm:"type:uuid;index"`

	TotalGross float64 `gorm:"type:decimal(10,2);default:0.0"`
	TotalNet   float64 `gorm:"type:decimal(10,2);default:0.0"`
	TotalTax   float64 `gorm:"type:decimal(10,2);default:0.0"`
	Status     string  `gorm:"type:varchar(20)"`

	Items  []DocumentItem  `gorm:"foreignKey:DocumentID"`
	Extras []DocumentExtra `gorm:"foreignKey:DocumentID"`

	gorm.Model
}

func (d *Document) BeforeCreate(tx *gorm.DB) (err error) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return
}

type DocumentItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	DocumentID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Description string
	Quantity    float64 `gorm:"default:1"`
	UnitPrice   float64 `gorm:"type:decimal(10,2);default:0.0"`
	TotalPrice  float64 `gorm:"type:decimal(10,2);default:0.0"`
}

func (i *DocumentItem) BeforeCreate(tx *gorm.DB) (err error) {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return
}

// DocumentExtra holds the free-text labour descriptions attached to a
// job sheet or invoice in the legacy export.
type DocumentExtra struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	DocumentID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Description string    `gorm:"type:text"`
	Notes       string    `gorm:"type:text"`
}

func (e *DocumentExtra) BeforeCreate(tx *gorm.DB) (err error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return
}

// DocTypeFromCode maps legacy export document codes onto doc_type values.
// Unknown codes fall through to invoice, matching how the export treated
// anything it could not classify.
func DocTypeFromCode(code string) string {
	switch strings.ToUpper(strings.TrimSpace(code)) {
	case "SI", "INVOICE", "IN":
		return DocTypeInvoice
	case "JS", "JOBSHEET":
		return DocTypeJobSheet
	case "ES", "ESTIMATE":
		return DocTypeEstimate
	case "CR", "CN", "CREDIT":
		return DocTypeCreditNote
	case "XS", "VOID":
		return DocTypeVoid
	default:
		return DocTypeInvoice
	}
}
