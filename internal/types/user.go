package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the minimal owner row jobs and committed content reference.
// Account creation and profile bootstrapping live in a separate service;
// this backend only trusts the id carried by the caller's token.
type User struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string         `gorm:"column:email;uniqueIndex" json:"email"`
	Name      string         `gorm:"column:name" json:"name"`
	IsAdmin   bool           `gorm:"column:is_admin;not null;default:false" json:"is_admin"`
	CreatedAt time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
