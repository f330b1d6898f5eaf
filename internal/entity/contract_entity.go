package entity

import (
	"time"

	"github.com/google/uuid"
)

type Contract struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectId      uuid.UUID `gorm:"type:uuid;index"`
	OrganisationId uuid.UUID `gorm:"type:uuid;index"`
	Status         string    `gorm:"index"`
	Value          float64
	SignedAt       time.Time
	CreatedAt      time.Time
}

func (Contract) TableName() string {
	return "contracts"
}
