// Package flow provides the phase controller, the sole authority for
// navigation status transitions and progress snapshots.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/venturelaunch/angel/internal/models"
)

// PhaseController owns every NavigationItem status transition. The navigation
// model emits focus requests and reflects the resulting state; it never
// decides transitions on its own initiative.
type PhaseController struct {
	stateManager StateManager
}

// NewPhaseController creates a controller backed by the given state manager.
func NewPhaseController(stateManager StateManager) *PhaseController {
	return &PhaseController{stateManager: stateManager}
}

// LoadNavigation restores the session's navigation model from state storage,
// seeding the default pipeline for fresh sessions.
func (pc *PhaseController) LoadNavigation(ctx context.Context, sessionID string) (*NavigationModel, error) {
	nm := NewNavigationModel(nil)
	serialized, err := pc.stateManager.GetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyNavigationState)
	if err != nil {
		return nil, fmt.Errorf("failed to load navigation state: %w", err)
	}
	if serialized == "" {
		return nm, nil
	}
	if err := nm.RestoreState(serialized); err != nil {
		return nil, fmt.Errorf("failed to restore navigation state: %w", err)
	}
	return nm, nil
}

// SaveNavigation persists the navigation model and refreshes the derived
// progress snapshot.
func (pc *PhaseController) SaveNavigation(ctx context.Context, sessionID string, nm *NavigationModel) error {
	if err := nm.CheckInvariant(); err != nil {
		return err
	}
	serialized, err := nm.MarshalState()
	if err != nil {
		return fmt.Errorf("failed to serialize navigation state: %w", err)
	}
	if err := pc.stateManager.SetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyNavigationState, serialized); err != nil {
		return err
	}
	return pc.storeProgress(ctx, sessionID, ReflectProgress(pc.computeRatios(nm)))
}

// FocusItem resolves a successful navigate request: the previous current item
// is resolved to completed (or stays completed if it already was) and the
// target takes focus. Focusing an already completed item is review and leaves
// every status untouched.
func (pc *PhaseController) FocusItem(ctx context.Context, sessionID string, nm *NavigationModel, itemID string) error {
	target, parent := nm.find(itemID)
	if target == nil {
		return models.ErrUnknownItem
	}
	if target.Status == models.ItemStatusLocked || (parent != nil && parent.Status == models.ItemStatusLocked) {
		return models.ErrLockedItem
	}
	if target.Status == models.ItemStatusCompleted || target.Status == models.ItemStatusCurrent {
		slog.Debug("PhaseController review focus, no status change", "sessionID", sessionID, "itemID", itemID)
		return nil
	}

	if currentID, ok := nm.CurrentItem(); ok && currentID != itemID {
		if err := nm.ApplyStatusUpdate(currentID, models.ItemStatusCompleted); err != nil {
			return err
		}
	}
	if err := nm.ApplyStatusUpdate(itemID, models.ItemStatusCurrent); err != nil {
		return err
	}
	slog.Info("PhaseController focus moved", "sessionID", sessionID, "itemID", itemID)
	return pc.SaveNavigation(ctx, sessionID, nm)
}

// CompleteTask marks a task completed and advances focus: the next upcoming
// sibling takes over; once a phase's tasks are all completed the phase itself
// completes and the next phase is unlocked with its first task focused.
func (pc *PhaseController) CompleteTask(ctx context.Context, sessionID string, nm *NavigationModel, taskID string) error {
	task, parent := nm.find(taskID)
	if task == nil || parent == nil {
		return models.ErrUnknownItem
	}
	if task.Status == models.ItemStatusLocked {
		return models.ErrLockedItem
	}

	if err := nm.ApplyStatusUpdate(taskID, models.ItemStatusCompleted); err != nil {
		return err
	}

	if next := firstWithStatus(parent.Children, models.ItemStatusUpcoming); next != "" {
		// The completed task may not have been the focused one. Resolve the
		// standing current item before promoting the sibling, as in FocusItem.
		if currentID, ok := nm.CurrentItem(); ok && currentID != next {
			if err := nm.ApplyStatusUpdate(currentID, models.ItemStatusCompleted); err != nil {
				return err
			}
		}
		if err := nm.ApplyStatusUpdate(next, models.ItemStatusCurrent); err != nil {
			return err
		}
	} else if allCompleted(parent.Children) {
		if err := nm.ApplyStatusUpdate(parent.ID, models.ItemStatusCompleted); err != nil {
			return err
		}
		if err := pc.unlockNextPhase(nm, parent.ID); err != nil {
			return err
		}
	}

	slog.Info("PhaseController task completed", "sessionID", sessionID, "taskID", taskID)
	return pc.SaveNavigation(ctx, sessionID, nm)
}

// Progress returns the stored progress snapshot for a session.
func (pc *PhaseController) Progress(ctx context.Context, sessionID string) ([]models.ProgressIndicator, error) {
	serialized, err := pc.stateManager.GetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyProgressSnapshot)
	if err != nil {
		return nil, err
	}
	if serialized == "" {
		nm, err := pc.LoadNavigation(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return ReflectProgress(pc.computeRatios(nm)), nil
	}
	var indicators []models.ProgressIndicator
	if err := json.Unmarshal([]byte(serialized), &indicators); err != nil {
		return nil, fmt.Errorf("failed to parse progress snapshot: %w", err)
	}
	return indicators, nil
}

// ApplyProgress accepts externally supplied completion ratios and replaces the
// stored snapshot with their projection.
func (pc *PhaseController) ApplyProgress(ctx context.Context, sessionID string, ratios []CompletionRatio) error {
	return pc.storeProgress(ctx, sessionID, ReflectProgress(ratios))
}

// unlockNextPhase promotes the phase after completedPhaseID from locked to
// upcoming and focuses its first task.
func (pc *PhaseController) unlockNextPhase(nm *NavigationModel, completedPhaseID string) error {
	items := nm.items
	for i := range items {
		if items[i].ID != completedPhaseID || i+1 >= len(items) {
			continue
		}
		next := &items[i+1]
		if next.Status != models.ItemStatusLocked {
			return nil
		}
		if err := nm.ApplyStatusUpdate(next.ID, models.ItemStatusUpcoming); err != nil {
			return err
		}
		for j := range next.Children {
			if err := nm.ApplyStatusUpdate(next.Children[j].ID, models.ItemStatusUpcoming); err != nil {
				return err
			}
		}
		if len(next.Children) > 0 {
			if err := nm.ApplyStatusUpdate(next.Children[0].ID, models.ItemStatusCurrent); err != nil {
				return err
			}
		}
		slog.Debug("PhaseController unlocked phase", "phaseID", next.ID)
		return nil
	}
	return nil
}

// computeRatios derives section ratios from task completion counts plus an
// equal-weight overall ratio. This is the controller's business logic; the
// navigation model itself never computes progress.
func (pc *PhaseController) computeRatios(nm *NavigationModel) []CompletionRatio {
	items := nm.Items()
	ratios := make([]CompletionRatio, 0, len(items)+1)
	total := 0
	for _, phase := range items {
		completed := 0
		for _, child := range phase.Children {
			if child.Status == models.ItemStatusCompleted {
				completed++
			}
		}
		percent := 0
		if len(phase.Children) > 0 {
			percent = completed * 100 / len(phase.Children)
		}
		total += percent
		ratios = append(ratios, CompletionRatio{
			ID:      "progress." + phase.ID,
			Label:   phase.Label,
			Percent: percent,
			Kind:    models.ProgressKindSection,
			Phase:   phase.Phase,
		})
	}
	overall := 0
	if len(items) > 0 {
		overall = total / len(items)
	}
	ratios = append(ratios, CompletionRatio{
		ID:      "progress.overall",
		Label:   "Launch journey",
		Percent: overall,
		Kind:    models.ProgressKindOverall,
	})
	return ratios
}

// storeProgress persists a progress snapshot as state data.
func (pc *PhaseController) storeProgress(ctx context.Context, sessionID string, indicators []models.ProgressIndicator) error {
	data, err := json.Marshal(indicators)
	if err != nil {
		return fmt.Errorf("failed to serialize progress snapshot: %w", err)
	}
	return pc.stateManager.SetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyProgressSnapshot, string(data))
}

// firstWithStatus returns the ID of the first child holding the given status.
func firstWithStatus(children []models.NavigationItem, status models.ItemStatus) string {
	for _, child := range children {
		if child.Status == status {
			return child.ID
		}
	}
	return ""
}

// allCompleted reports whether every child is completed.
func allCompleted(children []models.NavigationItem) bool {
	for _, child := range children {
		if child.Status != models.ItemStatusCompleted {
			return false
		}
	}
	return true
}
