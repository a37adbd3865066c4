// models/reconcile_log.go
package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reconciliation strategies. Every link the engine writes is attributed
// to exactly one of these.
const (
	StrategyDocumentHistory   = "document_history"
	StrategyContactMatch      = "contact_match"
	StrategyRoundRobin        = "round_robin"
	StrategyRegistrationMatch = "registration_match"
)

type ReconcileLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primary_key"`
	VehicleID  *uuid.UUID `gorm:"type:uuid;index"`
	DocumentID *uuid.UUID `gorm:"type:uuid;index"`
	CustomerID uuid.UUID  `gorm:"type:uuid;index;not null"`
	Strategy   string     `gorm:"type:varchar(30);not null"`
	Detail     string     `gorm:"type:text"` // registration or document number the match keyed on
	gorm.Model
}

func (r *ReconcileLog) BeforeCreate(tx *gorm.DB) (err error) {
	r.ID = uuid.New()
	return
}
