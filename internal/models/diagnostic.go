package models

import (
	"time"
)

// Diagnostic is the first workflow phase. The three lists are value lists kept
// in their own tables and always rewritten as a whole.
type Diagnostic struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	DateCreation   time.Time `json:"dateCreation" gorm:"column:date_creation"`
	InterventionID uint      `json:"interventionId" gorm:"not null;uniqueIndex"`

	TravailRequis    []string `json:"travailRequis" gorm:"-"`
	BesoinPDR        []string `json:"besoinPDR" gorm:"-"`
	ChargesRealisees []string `json:"chargesRealisees" gorm:"-"`
}

func (Diagnostic) TableName() string {
	return "diagnostics"
}

// DiagnosticItem is the shared row shape of the three diagnostic list tables.
type DiagnosticItem struct {
	ID           uint   `gorm:"primaryKey"`
	DiagnosticID uint   `gorm:"not null;index"`
	Position     int    `gorm:"not null"`
	Label        string `gorm:"type:text;not null"`
}

type DiagnosticTravailRequis struct {
	DiagnosticItem
}

func (DiagnosticTravailRequis) TableName() string {
	return "diagnostic_travaux_requis"
}

type DiagnosticBesoinPDR struct {
	DiagnosticItem
}

func (DiagnosticBesoinPDR) TableName() string {
	return "diagnostic_besoins_pdr"
}

type DiagnosticChargeRealisee struct {
	DiagnosticItem
}

func (DiagnosticChargeRealisee) TableName() string {
	return "diagnostic_charges_realisees"
}
