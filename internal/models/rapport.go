package models

import (
	"time"
)

// Rapport is a free-form report; an intervention may have several.
type Rapport struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	DateCreation   time.Time `json:"dateCreation" gorm:"column:date_creation"`
	InterventionID uint      `json:"interventionId" gorm:"not null;index"`
	Contenu        string    `json:"contenu" gorm:"type:text;not null"`
	Valide         bool      `json:"valide" gorm:"not null;default:false"`
}

func (Rapport) TableName() string {
	return "rapports"
}
