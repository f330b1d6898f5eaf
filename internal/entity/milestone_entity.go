package entity

import (
	"time"

	"github.com/google/uuid"
)

type Milestone struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProjectId uuid.UUID `gorm:"type:uuid;index"`
	Name      string
	Status    string `gorm:"index"`
	DueAt     time.Time
	CreatedAt time.Time
}

func (Milestone) TableName() string {
	return "milestones"
}
