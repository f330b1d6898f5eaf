package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Project struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name           string    `gorm:"index"`
	Status         string    `gorm:"index"`
	Region         string    `gorm:"index"`
	OrganisationId uuid.UUID `gorm:"type:uuid;index"`
	Budget         float64
	Attrs          datatypes.JSON `gorm:"type:jsonb"`
	StartedAt      time.Time
	CompletedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

func (Project) TableName() string {
	return "projects"
}
