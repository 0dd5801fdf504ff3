// Package models defines navigation and progress structures for the onboarding pipeline.
package models

import "time"

// PhaseID identifies one stage of the onboarding pipeline.
type PhaseID string

// Pipeline phase constants, in pipeline order.
const (
	PhaseIntake         PhaseID = "INTAKE"
	PhasePlanning       PhaseID = "PLANNING"
	PhaseRoadmapping    PhaseID = "ROADMAPPING"
	PhaseImplementation PhaseID = "IMPLEMENTATION"
)

// PhaseOrder lists the pipeline phases in their fixed order.
var PhaseOrder = []PhaseID{PhaseIntake, PhasePlanning, PhaseRoadmapping, PhaseImplementation}

// IsValidPhase checks if the given phase identifier is part of the pipeline.
func IsValidPhase(p PhaseID) bool {
	for _, phase := range PhaseOrder {
		if phase == p {
			return true
		}
	}
	return false
}

// ItemStatus represents the lifecycle status of a navigation item.
// The progression is locked -> upcoming -> current -> completed.
type ItemStatus string

const (
	// ItemStatusLocked indicates the item is not yet navigable.
	ItemStatusLocked ItemStatus = "locked"
	// ItemStatusUpcoming indicates the item is navigable but not started.
	ItemStatusUpcoming ItemStatus = "upcoming"
	// ItemStatusCurrent indicates the item holds the user's focus.
	ItemStatusCurrent ItemStatus = "current"
	// ItemStatusCompleted indicates the item is finished.
	ItemStatusCompleted ItemStatus = "completed"
)

// IsValidItemStatus checks if the given item status is valid.
func IsValidItemStatus(s ItemStatus) bool {
	switch s {
	case ItemStatusLocked, ItemStatusUpcoming, ItemStatusCurrent, ItemStatusCompleted:
		return true
	default:
		return false
	}
}

// NavigationItem represents a phase or a task within a phase. Children nest
// one level only; a locked item's children are not independently navigable.
type NavigationItem struct {
	ID       string           `json:"id"`
	Label    string           `json:"label"`
	Phase    PhaseID          `json:"phase"`
	Status   ItemStatus       `json:"status"`
	Expanded bool             `json:"expanded,omitempty"`
	Children []NavigationItem `json:"children,omitempty"`
}

// ProgressKind categorizes a progress indicator.
type ProgressKind string

const (
	// ProgressKindOverall is the externally supplied whole-journey percentage.
	ProgressKindOverall ProgressKind = "overall"
	// ProgressKindSection reflects a phase-level completion ratio.
	ProgressKindSection ProgressKind = "section"
	// ProgressKindTask reflects a single task's completion ratio.
	ProgressKindTask ProgressKind = "task"
)

// ProgressStatus is the badge derived from an indicator's numeric value.
type ProgressStatus string

const (
	// ProgressStatusPending indicates no progress yet (value 0).
	ProgressStatusPending ProgressStatus = "pending"
	// ProgressStatusInProgress indicates partial progress (0 < value < 100).
	ProgressStatusInProgress ProgressStatus = "in_progress"
	// ProgressStatusCompleted indicates full progress (value 100).
	ProgressStatusCompleted ProgressStatus = "completed"
	// ProgressStatusBlocked is set only via an explicit external flag.
	ProgressStatusBlocked ProgressStatus = "blocked"
)

// ProgressIndicator is a display projection of externally supplied completion
// ratios. It is derived state, never independently authoritative.
type ProgressIndicator struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Percent int            `json:"percent"` // clamped to [0,100]
	Kind    ProgressKind   `json:"kind"`
	Status  ProgressStatus `json:"status"`
	Phase   PhaseID        `json:"phase,omitempty"` // display grouping tag
	Blocked bool           `json:"blocked,omitempty"`
}

// PromptKind categorizes a guidance prompt.
type PromptKind string

const (
	// PromptKindNotification is a neutral informational prompt.
	PromptKindNotification PromptKind = "notification"
	// PromptKindReminder nudges the user toward a pending action.
	PromptKindReminder PromptKind = "reminder"
	// PromptKindSuggestion proposes a next step.
	PromptKindSuggestion PromptKind = "suggestion"
	// PromptKindWarning flags a problem needing attention.
	PromptKindWarning PromptKind = "warning"
	// PromptKindSuccess celebrates completed progress.
	PromptKindSuccess PromptKind = "success"
)

// PromptPriority orders guidance prompts for display.
type PromptPriority string

const (
	PromptPriorityLow      PromptPriority = "low"
	PromptPriorityMedium   PromptPriority = "medium"
	PromptPriorityHigh     PromptPriority = "high"
	PromptPriorityCritical PromptPriority = "critical"
)

// PromptAction is the optional single action attached to a guidance prompt.
type PromptAction struct {
	Label   string `json:"label"`
	Trigger string `json:"trigger"`
}

// GuidancePrompt is a transient, rule-generated advisory message. Prompts are
// recomputed from scratch whenever triggering state changes and are never
// persisted.
type GuidancePrompt struct {
	ID          string         `json:"id"`
	Kind        PromptKind     `json:"kind"`
	Title       string         `json:"title"`
	Message     string         `json:"message"`
	Action      *PromptAction  `json:"action,omitempty"`
	Dismissible bool           `json:"dismissible"`
	Priority    PromptPriority `json:"priority"`
	ExpiresAt   *time.Time     `json:"expires_at,omitempty"`
}

// Expired reports whether the prompt's optional expiry has passed.
func (p *GuidancePrompt) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && now.After(*p.ExpiresAt)
}
