package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StudyItem is a committed, approved question/answer item. Created only by
// the approval stage and deleted only by rollback operations; earlier stages
// never touch these rows.
type StudyItem struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SubjectID   uuid.UUID `gorm:"type:uuid;not null;index" json:"subject_id"`
	Subject     *Subject  `gorm:"constraint:OnDelete:CASCADE;foreignKey:SubjectID;references:ID" json:"subject,omitempty"`
	SubjectName string    `gorm:"column:subject_name;not null" json:"subject_name"`
	UnitName    string    `gorm:"column:unit_name;not null" json:"unit_name"`
	UnitKey     string    `gorm:"column:unit_key;not null;index" json:"unit_key"`

	Question    string `gorm:"column:question;type:text;not null" json:"question"`
	Answer      string `gorm:"column:answer;type:text;not null" json:"answer"`
	Explanation string `gorm:"column:explanation;type:text" json:"explanation,omitempty"`

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

func (StudyItem) TableName() string { return "study_item" }
