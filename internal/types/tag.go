package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag is a global registry entry, upserted opportunistically during commit.
// NormalizedKey is the idempotency key.
type Tag struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	NormalizedKey string         `gorm:"column:normalized_key;not null;uniqueIndex" json:"normalized_key"`
	DisplayName   string         `gorm:"column:display_name;not null" json:"display_name"`
	UsageCount    int            `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Tag) TableName() string { return "tag" }
