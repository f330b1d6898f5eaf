package entity

import (
	"time"

	"github.com/google/uuid"
)

// GlossaryTerm maps a free-text term to a canonical field/value pair plus
// its human definition. Doubles as the resolver's term catalog.
type GlossaryTerm struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Term       string    `gorm:"uniqueIndex"`
	Field      string
	Value      string
	Definition string `gorm:"type:text"`
	CreatedAt  time.Time
	UpdatedAt  *time.Time
}

func (GlossaryTerm) TableName() string {
	return "glossary_terms"
}
