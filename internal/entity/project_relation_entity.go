package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProjectRelation is one edge in the dataset's relationship graph.
// Edges are directional; traversal follows source -> target.
type ProjectRelation struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceModel string    `gorm:"index:idx_relation_source"`
	SourceId    uuid.UUID `gorm:"type:uuid;index:idx_relation_source"`
	TargetModel string
	TargetId    uuid.UUID `gorm:"type:uuid"`
	Field       string
	Label       string
	CreatedAt   time.Time
}

func (ProjectRelation) TableName() string {
	return "project_relations"
}
