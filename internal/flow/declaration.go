// Package flow provides draft capture for completion declarations.
package flow

import (
	"log/slog"
	"strings"
	"time"

	"github.com/venturelaunch/angel/internal/models"
)

// ListKind identifies one of the declaration's free-form lists.
type ListKind string

const (
	ListDecisions ListKind = "decisions"
	ListActions   ListKind = "actions"
	ListDocuments ListKind = "documents"
	ListNextSteps ListKind = "next_steps"
)

// DeclarationDraft accumulates a completion declaration across a sequence of
// list edits. Each list keeps a floor of one editable slot; removing the last
// remaining slot is a no-op rather than an error, which keeps the widget
// usable, not a data invariant.
type DeclarationDraft struct {
	SessionID string
	TaskID    string
	Summary   string
	lists     map[ListKind][]string
}

// NewDeclarationDraft creates an empty draft for the given session and task,
// with one blank slot per list.
func NewDeclarationDraft(sessionID, taskID string) *DeclarationDraft {
	return &DeclarationDraft{
		SessionID: sessionID,
		TaskID:    taskID,
		lists: map[ListKind][]string{
			ListDecisions: {""},
			ListActions:   {""},
			ListDocuments: {""},
			ListNextSteps: {""},
		},
	}
}

// Entries returns a copy of the named list's current slots.
func (d *DeclarationDraft) Entries(kind ListKind) []string {
	return append([]string(nil), d.lists[kind]...)
}

// AddEntry appends a new editable slot to the named list.
func (d *DeclarationDraft) AddEntry(kind ListKind) {
	d.lists[kind] = append(d.lists[kind], "")
}

// SetEntry updates the slot at the given index in the named list.
func (d *DeclarationDraft) SetEntry(kind ListKind, index int, value string) {
	list := d.lists[kind]
	if index < 0 || index >= len(list) {
		return
	}
	list[index] = value
}

// RemoveEntry removes the slot at the given index. Removing the last remaining
// slot is a no-op.
func (d *DeclarationDraft) RemoveEntry(kind ListKind, index int) {
	list := d.lists[kind]
	if len(list) <= 1 || index < 0 || index >= len(list) {
		return
	}
	d.lists[kind] = append(list[:index], list[index+1:]...)
}

// Submit validates the draft and emits the finalized declaration. A blank
// summary declines the submission (precondition gate, not a thrown fault).
// Blank entries are filtered from each list and the draft is cleared on
// success.
func (d *DeclarationDraft) Submit(now time.Time) (*models.CompletionDeclaration, error) {
	if strings.TrimSpace(d.Summary) == "" {
		slog.Debug("DeclarationDraft submit declined: blank summary", "sessionID", d.SessionID, "taskID", d.TaskID)
		return nil, models.ErrEmptySummary
	}

	declaration := &models.CompletionDeclaration{
		SessionID:   d.SessionID,
		TaskID:      d.TaskID,
		Summary:     d.Summary,
		Decisions:   filterBlank(d.lists[ListDecisions]),
		Actions:     filterBlank(d.lists[ListActions]),
		Documents:   filterBlank(d.lists[ListDocuments]),
		NextSteps:   filterBlank(d.lists[ListNextSteps]),
		CompletedAt: now,
	}
	if err := declaration.Validate(); err != nil {
		return nil, err
	}

	d.clear()
	slog.Info("DeclarationDraft submitted", "sessionID", declaration.SessionID, "taskID", declaration.TaskID)
	return declaration, nil
}

// clear resets the draft back to one blank slot per list.
func (d *DeclarationDraft) clear() {
	d.Summary = ""
	for kind := range d.lists {
		d.lists[kind] = []string{""}
	}
}

// filterBlank drops blank and whitespace-only entries.
func filterBlank(entries []string) []string {
	var kept []string
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			kept = append(kept, e)
		}
	}
	return kept
}
