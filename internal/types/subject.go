package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// UnitsFormat distinguishes the two unit representations a Subject may
// carry: a plain list of unit names, or structured records with per-unit
// counts and notes. Both shapes are accepted at commit time; the taxonomy
// package owns the conversion.
type UnitsFormat string

const (
	UnitsFormatNames      UnitsFormat = "names"
	UnitsFormatStructured UnitsFormat = "structured"
)

type Subject struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string         `gorm:"column:name;not null" json:"name"`
	NormalizedKey string         `gorm:"column:normalized_key;not null;uniqueIndex" json:"normalized_key"`
	UnitsFormat   UnitsFormat    `gorm:"column:units_format;not null;default:structured" json:"units_format"`
	Units         datatypes.JSON `gorm:"type:jsonb;column:units" json:"units"`
	ItemCount     int            `gorm:"column:item_count;not null;default:0" json:"item_count"`
	CardCount     int            `gorm:"column:card_count;not null;default:0" json:"card_count"`
	Notes         string         `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Subject) TableName() string { return "subject" }
