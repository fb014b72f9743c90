package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GenerationJob is the durable record driving one ingestion through the
// pipeline. Every stage reads it, validates its status, performs external
// work, and writes the new status plus result fields in one update.
type GenerationJob struct {
	ID      uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	User    *User      `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Variant JobVariant `gorm:"column:variant;not null" json:"variant"`
	Status  JobStatus  `gorm:"column:status;not null;index" json:"status"`

	SourceName string     `gorm:"column:source_name;not null" json:"source_name"`
	SourceKind SourceKind `gorm:"column:source_kind;not null" json:"source_kind"`
	StorageKey string     `gorm:"column:storage_key;not null" json:"storage_key"`
	SourceText string     `gorm:"column:source_text;type:text" json:"source_text,omitempty"`

	QuotaItemCount int `gorm:"column:quota_item_count;not null;default:0" json:"quota_item_count"`
	QuotaCardCount int `gorm:"column:quota_card_count;not null;default:0" json:"quota_card_count"`

	Chunks           datatypes.JSON `gorm:"type:jsonb;column:chunks" json:"chunks,omitempty"`
	TotalBatches     int            `gorm:"column:total_batches;not null;default:0" json:"total_batches"`
	CompletedBatches int            `gorm:"column:completed_batches;not null;default:0" json:"completed_batches"`

	StagedItems   datatypes.JSON `gorm:"type:jsonb;column:staged_items" json:"staged_items,omitempty"`
	StagedCards   datatypes.JSON `gorm:"type:jsonb;column:staged_cards" json:"staged_cards,omitempty"`
	Suggestions   datatypes.JSON `gorm:"type:jsonb;column:suggestions" json:"suggestions,omitempty"`
	SuggestedTags datatypes.JSON `gorm:"type:jsonb;column:suggested_tags" json:"suggested_tags,omitempty"`
	SeenItemTexts datatypes.JSON `gorm:"type:jsonb;column:seen_item_texts" json:"seen_item_texts,omitempty"`

	ErrorLog datatypes.JSON `gorm:"type:jsonb;column:error_log" json:"error_log,omitempty"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (GenerationJob) TableName() string { return "generation_job" }

// StagedItemList decodes the staged item array. A null column decodes to an
// empty slice.
func (j *GenerationJob) StagedItemList() ([]StagedItem, error) {
	return decodeJSONList[StagedItem](j.StagedItems)
}

func (j *GenerationJob) StagedCardList() ([]StagedCard, error) {
	return decodeJSONList[StagedCard](j.StagedCards)
}

func (j *GenerationJob) SuggestionList() ([]AssignmentSuggestion, error) {
	return decodeJSONList[AssignmentSuggestion](j.Suggestions)
}

func (j *GenerationJob) ChunkList() ([]string, error) {
	return decodeJSONList[string](j.Chunks)
}

func (j *GenerationJob) SeenItemTextList() ([]string, error) {
	return decodeJSONList[string](j.SeenItemTexts)
}

func (j *GenerationJob) SuggestedTagList() ([]string, error) {
	return decodeJSONList[string](j.SuggestedTags)
}

func (j *GenerationJob) ErrorLogList() ([]string, error) {
	return decodeJSONList[string](j.ErrorLog)
}

func decodeJSONList[T any](raw datatypes.JSON) ([]T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MustJSON marshals v for a jsonb column. Marshal failure of in-memory
// structs means a programming error, so it panics rather than returning one.
func MustJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return datatypes.JSON(b)
}
