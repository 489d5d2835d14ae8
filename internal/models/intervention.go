package models

import (
	"time"
)

// Intervention is one maintenance job against a piece of equipment.
type Intervention struct {
	ID          uint               `json:"id" gorm:"primaryKey"`
	Date        Date               `json:"date" gorm:"type:date"`
	Description string             `json:"description" gorm:"type:text"`
	Status      InterventionStatus `json:"statut" gorm:"column:statut;type:varchar(20);not null;default:'PLANIFIEE';index"`
	Urgent      bool               `json:"urgent" gorm:"not null"`
	EquipmentID uint               `json:"equipementId" gorm:"column:equipement_id;not null;index"`
	Equipment   *Equipment         `json:"equipement,omitempty" gorm:"foreignKey:EquipmentID"`
	CreatedByID *uint              `json:"createurId" gorm:"column:createur_id"`
	CreatedBy   *User              `json:"createur,omitempty" gorm:"foreignKey:CreatedByID"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

func (Intervention) TableName() string {
	return "interventions"
}
