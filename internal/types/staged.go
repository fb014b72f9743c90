package types

// StagedItem is a question/answer item living only inside the job record
// until an administrator approves it. Never persisted as a first-class row.
type StagedItem struct {
	Question    string        `json:"question"`
	Answer      string        `json:"answer"`
	Explanation string        `json:"explanation,omitempty"`
	Origin      ContentOrigin `json:"origin"`
	Tags        []string      `json:"tags,omitempty"`
}

// StagedCard is a recall card staged on the job record.
type StagedCard struct {
	Front  string        `json:"front"`
	Back   string        `json:"back"`
	Origin ContentOrigin `json:"origin"`
}

// AssignmentSuggestion maps staged content onto a Subject/Unit by index.
// Index lists reference the job's staged arrays; payloads are never copied
// into suggestions.
type AssignmentSuggestion struct {
	SubjectName string `json:"subject_name"`
	UnitName    string `json:"unit_name"`
	IsNewUnit   bool   `json:"is_new_unit"`
	ItemIndexes []int  `json:"item_indexes"`
	CardIndexes []int  `json:"card_indexes"`
}
