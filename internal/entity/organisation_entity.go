package entity

import (
	"time"

	"github.com/google/uuid"
)

type Organisation struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"index"`
	Sector    string    `gorm:"index"`
	Region    string    `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt *time.Time
}

func (Organisation) TableName() string {
	return "organisations"
}
