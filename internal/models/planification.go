package models

import (
	"time"
)

// Planification is the second workflow phase. CapaciteExecution stays nil until
// someone estimates it; zero is a valid estimate.
type Planification struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	DateCreation      time.Time `json:"dateCreation" gorm:"column:date_creation"`
	InterventionID    *uint     `json:"interventionId" gorm:"uniqueIndex"`
	CapaciteExecution *int      `json:"capaciteExecution" gorm:"column:capacite_execution"`
	UrgencePrise      bool      `json:"urgencePrise" gorm:"column:urgence_prise;not null"`
	DisponibilitePDR  bool      `json:"disponibilitePDR" gorm:"column:disponibilite_pdr;not null"`
}

func (Planification) TableName() string {
	return "planifications"
}
