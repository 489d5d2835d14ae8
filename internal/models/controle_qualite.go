package models

import (
	"time"
)

type ControleQualite struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	DateControle      time.Time `json:"dateControle" gorm:"column:date_controle"`
	InterventionID    uint      `json:"interventionId" gorm:"not null;uniqueIndex"`
	ResultatsEssais   *string   `json:"resultatsEssais" gorm:"column:resultats_essais;type:text"`
	AnalyseVibratoire *string   `json:"analyseVibratoire" gorm:"column:analyse_vibratoire;type:text"`
}

func (ControleQualite) TableName() string {
	return "controles_qualite"
}
