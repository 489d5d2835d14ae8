package models

import (
	"time"
)

// Equipment is owned by the equipment CRUD; the workflow only references it.
type Equipment struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Designation  string    `json:"designation" gorm:"not null"`
	NumeroSerie  string    `json:"numeroSerie" gorm:"column:numero_serie"`
	Localisation string    `json:"localisation"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (Equipment) TableName() string {
	return "equipements"
}
