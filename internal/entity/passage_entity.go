package entity

import (
	"time"

	"github.com/google/uuid"
)

type Passage struct {
	Id             uuid.UUID
	Text           string
	EmbeddingValue []float32
	DocumentId     uuid.UUID
	ChunkIndex     int
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}
