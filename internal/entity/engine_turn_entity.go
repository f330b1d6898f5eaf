package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EngineTurn is the durable record of one completed engine turn, written
// by the background persistence worker.
type EngineTurn struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId  string    `gorm:"index"`
	Query      string    `gorm:"type:text"`
	Response   string    `gorm:"type:text"`
	Category   string
	Persona    string
	Path       string
	Confidence float64
	TokensIn   int
	TokensOut  int
	Steps      datatypes.JSON `gorm:"type:jsonb"`
	Timing     datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time
}

func (EngineTurn) TableName() string {
	return "engine_turns"
}
