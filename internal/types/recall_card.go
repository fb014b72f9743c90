package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RecallCard is a committed front/back recall card. Same lifecycle rules as
// StudyItem: written by commit, removed by rollback, never mutated between.
type RecallCard struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject     *Subject  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	SubjectName string    `gorm:"column:subject_name;not null" json:"subject_name"`
	UnitName    string    `gorm:"column:unit_name;not null" json:"unit_name"`
	UnitKey     string    `gorm:"column:unit_key;not null;index" json:"unit_key"`

	Front string `gorm:"column:front;type:text;not null" json:"front"`
	Back  string `gorm:"column:back;type:text;not null" json:"back"`

	Origin      ContentOrigin  `gorm:"column:origin;not null" json:"origin"`
	SourceJobID uuid.UUID      `gorm:"type:uuid;column:source_job_id;not null;index" json:"source_job_id"`
	Tags        datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags,omitempty"`

	Status     string     `gorm:"column:status;not null;default:approved" json:"status"`
	ApprovedBy uuid.UUID  `gorm:"type:uuid;column:approved_by" json:"approved_by"`
	ApprovedAt *time.Time `gorm:"column:approved_at" json:"approved_at,omitempty"`

	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (RecallCard) TableName() string { return "recall_card" }
