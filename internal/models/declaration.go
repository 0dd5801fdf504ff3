// Package models defines the completion declaration structures.
package models

import (
	"encoding/json"
	"strings"
	"time"
)

// CompletionDeclaration is the structured record a user submits to close out a
// task. It is created only through explicit submission and is immutable once
// emitted upward.
type CompletionDeclaration struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	TaskID      string    `json:"task_id"`
	Summary     string    `json:"summary"`
	Decisions   []string  `json:"decisions,omitempty"`
	Actions     []string  `json:"actions,omitempty"`
	Documents   []string  `json:"documents,omitempty"`
	NextSteps   []string  `json:"next_steps,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// Validate checks declaration preconditions. A blank summary is declined.
func (d *CompletionDeclaration) Validate() error {
	if d.SessionID == "" {
		return ErrEmptySession
	}
	if strings.TrimSpace(d.Summary) == "" {
		return ErrEmptySummary
	}
	return nil
}

// ToJSON serializes the declaration for state storage.
func (d *CompletionDeclaration) ToJSON() (string, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes a declaration from state storage.
func (d *CompletionDeclaration) FromJSON(s string) error {
	return json.Unmarshal([]byte(s), d)
}
