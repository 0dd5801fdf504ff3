// Package flow provides rule-based guidance prompt evaluation.
package flow

import (
	"fmt"
	"log/slog"

	"github.com/venturelaunch/angel/internal/models"
)

// promptRule is a declarative predicate over (phase, progress snapshot) that
// may produce one prompt descriptor. Additional rules follow the same shape.
type promptRule func(phase models.PhaseID, snapshot []models.ProgressIndicator) *models.GuidancePrompt

// PromptEvaluator recomputes the active guidance prompt set from scratch on
// every evaluation. The session-scoped dismissal set lives beside the rules,
// keeping evaluation itself pure and testable.
type PromptEvaluator struct {
	rules     []promptRule
	dismissed map[string]bool
}

// NewPromptEvaluator creates an evaluator with the default rule set.
func NewPromptEvaluator() *PromptEvaluator {
	return &PromptEvaluator{
		rules:     defaultPromptRules(),
		dismissed: make(map[string]bool),
	}
}

// defaultPromptRules returns the built-in guidance rules.
func defaultPromptRules() []promptRule {
	return []promptRule{
		// Overall progress above zero earns a success summary.
		func(phase models.PhaseID, snapshot []models.ProgressIndicator) *models.GuidancePrompt {
			overall, ok := OverallIndicator(snapshot)
			if !ok || overall.Percent <= 0 {
				return nil
			}
			return &models.GuidancePrompt{
				ID:          "prompt.overall-progress",
				Kind:        models.PromptKindSuccess,
				Title:       "Great progress!",
				Message:     fmt.Sprintf("You're %d%% of the way through your launch journey.", overall.Percent),
				Dismissible: true,
				Priority:    models.PromptPriorityLow,
			}
		},
		// The implementation phase carries a standing completion reminder.
		func(phase models.PhaseID, snapshot []models.ProgressIndicator) *models.GuidancePrompt {
			if phase != models.PhaseImplementation {
				return nil
			}
			return &models.GuidancePrompt{
				ID:      "prompt.declare-completions",
				Kind:    models.PromptKindSuggestion,
				Title:   "Finished a task?",
				Message: "Declare completed tasks so your roadmap stays up to date.",
				Action: &models.PromptAction{
					Label:   "Declare completion",
					Trigger: "declare_completion",
				},
				Dismissible: true,
				Priority:    models.PromptPriorityMedium,
			}
		},
	}
}

// Evaluate recomputes the active prompt set for the given phase and progress
// snapshot. Prompts are not accumulated across calls; each call replaces the
// full set. A prompt dismissed earlier in the session stays suppressed until
// its identity changes.
func (pe *PromptEvaluator) Evaluate(phase models.PhaseID, snapshot []models.ProgressIndicator) []models.GuidancePrompt {
	var active []models.GuidancePrompt
	for _, rule := range pe.rules {
		prompt := rule(phase, snapshot)
		if prompt == nil {
			continue
		}
		if pe.dismissed[prompt.ID] {
			slog.Debug("PromptEvaluator suppressing dismissed prompt", "promptID", prompt.ID)
			continue
		}
		active = append(active, *prompt)
	}
	slog.Debug("PromptEvaluator evaluated", "phase", phase, "active", len(active))
	return active
}

// Dismiss records a session-scoped dismissal by prompt identifier.
func (pe *PromptEvaluator) Dismiss(promptID string) {
	pe.dismissed[promptID] = true
	slog.Debug("PromptEvaluator dismissed prompt", "promptID", promptID)
}

// Dismissed reports whether the given prompt ID is dismissed this session.
func (pe *PromptEvaluator) Dismissed(promptID string) bool {
	return pe.dismissed[promptID]
}

// DismissedIDs returns the dismissed prompt identifiers for state storage.
func (pe *PromptEvaluator) DismissedIDs() []string {
	ids := make([]string, 0, len(pe.dismissed))
	for id := range pe.dismissed {
		ids = append(ids, id)
	}
	return ids
}

// RestoreDismissed reloads dismissed prompt identifiers from state storage.
func (pe *PromptEvaluator) RestoreDismissed(ids []string) {
	for _, id := range ids {
		pe.dismissed[id] = true
	}
}
