package domain

import "time"

type OperationType string

const (
	OperationInsert OperationType = "insert"
	OperationDelete OperationType = "delete"
	OperationModify OperationType = "modify"
)

// ChangeOperation is one diff entry. Location is the token index in the new
// text for inserts and modifies, and in the old text for deletes.
type ChangeOperation struct {
	Type       OperationType `json:"type"`
	Location   int           `json:"location"`
	OldText    string        `json:"old_text,omitempty"`
	NewText    string        `json:"new_text,omitempty"`
	Similarity float64       `json:"similarity"`
}

type Significance string

const (
	SignificanceCritical Significance = "CRITICAL"
	SignificanceHigh     Significance = "HIGH"
	SignificanceMedium   Significance = "MEDIUM"
	SignificanceLow      Significance = "LOW"
)

// CriticalChange details an operation that touched a critical term.
type CriticalChange struct {
	Type     OperationType `json:"type"`
	OldText  string        `json:"old_text,omitempty"`
	NewText  string        `json:"new_text,omitempty"`
	Keywords []string      `json:"keywords"`
}

// ChangeSet is the persisted diff of two document versions.
type ChangeSet struct {
	ID               string            `json:"id"`
	FromVersionID    string            `json:"from_version_id"`
	ToVersionID      string            `json:"to_version_id"`
	Operations       []ChangeOperation `json:"operations"`
	ChangePercentage float64           `json:"change_percentage"`
	Significance     Significance      `json:"significance"`
	Summary          string            `json:"summary"`
	CriticalChanges  []CriticalChange  `json:"critical_changes,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}
