// Package flow provides the phase/task navigation model for the onboarding
// pipeline.
package flow

import (
	"encoding/json"
	"log/slog"

	"github.com/venturelaunch/angel/internal/models"
)

// NavigateFunc receives phase-change requests emitted by successful Navigate
// calls. The receiver (the phase controller) is the sole authority for status
// transitions; the navigation model only observes and reflects state.
type NavigateFunc func(itemID string)

// NavigationModel maintains the directed pipeline of phases and their task
// items. It owns focus and expansion state for a single session; status
// mutations arrive exclusively through ApplyStatusUpdate.
type NavigationModel struct {
	items    []models.NavigationItem
	onChange NavigateFunc
}

// NewNavigationModel creates a navigation model seeded with the default
// pipeline. The onChange callback may be nil.
func NewNavigationModel(onChange NavigateFunc) *NavigationModel {
	return &NavigationModel{
		items:    DefaultPipeline(),
		onChange: onChange,
	}
}

// DefaultPipeline returns the fixed intake -> planning -> roadmapping ->
// implementation pipeline in its initial state: the first intake task holds
// focus, the remaining intake items are upcoming, and every later phase is
// locked along with its tasks.
func DefaultPipeline() []models.NavigationItem {
	pipeline := []models.NavigationItem{
		{
			ID: "intake", Label: "Getting to know you", Phase: models.PhaseIntake, Status: models.ItemStatusUpcoming,
			Children: []models.NavigationItem{
				{ID: "intake.profile", Label: "Background & goals", Phase: models.PhaseIntake, Status: models.ItemStatusCurrent},
				{ID: "intake.skills", Label: "Skills assessment", Phase: models.PhaseIntake, Status: models.ItemStatusUpcoming},
				{ID: "intake.idea", Label: "Business idea", Phase: models.PhaseIntake, Status: models.ItemStatusUpcoming},
			},
		},
		{
			ID: "planning", Label: "Business plan", Phase: models.PhasePlanning, Status: models.ItemStatusLocked,
			Children: []models.NavigationItem{
				{ID: "planning.market", Label: "Market research", Phase: models.PhasePlanning, Status: models.ItemStatusLocked},
				{ID: "planning.model", Label: "Business model", Phase: models.PhasePlanning, Status: models.ItemStatusLocked},
				{ID: "planning.financials", Label: "Financial plan", Phase: models.PhasePlanning, Status: models.ItemStatusLocked},
			},
		},
		{
			ID: "roadmap", Label: "Launch roadmap", Phase: models.PhaseRoadmapping, Status: models.ItemStatusLocked,
			Children: []models.NavigationItem{
				{ID: "roadmap.milestones", Label: "Milestones", Phase: models.PhaseRoadmapping, Status: models.ItemStatusLocked},
				{ID: "roadmap.legal", Label: "Legal & registration", Phase: models.PhaseRoadmapping, Status: models.ItemStatusLocked},
				{ID: "roadmap.launch", Label: "Launch checklist", Phase: models.PhaseRoadmapping, Status: models.ItemStatusLocked},
			},
		},
		{
			ID: "implementation", Label: "Making it happen", Phase: models.PhaseImplementation, Status: models.ItemStatusLocked,
			Children: []models.NavigationItem{
				{ID: "implementation.tasks", Label: "Task execution", Phase: models.PhaseImplementation, Status: models.ItemStatusLocked},
				{ID: "implementation.review", Label: "Progress review", Phase: models.PhaseImplementation, Status: models.ItemStatusLocked},
			},
		},
	}
	return pipeline
}

// Items returns a deep copy of the pipeline for rendering.
func (nm *NavigationModel) Items() []models.NavigationItem {
	return copyItems(nm.items)
}

// Navigate requests a focus transition to the given item. Locked targets are
// rejected with ErrLockedItem and nothing changes; the children of a locked
// parent are not independently navigable. On success a phase-change request is
// emitted to the external controller and no status is mutated here.
// Navigating to a completed item is review and leaves history untouched.
func (nm *NavigationModel) Navigate(itemID string) error {
	item, parent := nm.find(itemID)
	if item == nil {
		slog.Warn("NavigationModel Navigate unknown item", "itemID", itemID)
		return models.ErrUnknownItem
	}
	if item.Status == models.ItemStatusLocked || (parent != nil && parent.Status == models.ItemStatusLocked) {
		slog.Debug("NavigationModel Navigate rejected locked item", "itemID", itemID)
		return models.ErrLockedItem
	}
	slog.Debug("NavigationModel Navigate accepted", "itemID", itemID, "status", item.Status)
	if nm.onChange != nil {
		nm.onChange(itemID)
	}
	return nil
}

// ToggleExpand flips the child visibility of an item. Purely local UI state;
// status and progress are unaffected.
func (nm *NavigationModel) ToggleExpand(itemID string) error {
	item, _ := nm.find(itemID)
	if item == nil {
		return models.ErrUnknownItem
	}
	item.Expanded = !item.Expanded
	slog.Debug("NavigationModel ToggleExpand", "itemID", itemID, "expanded", item.Expanded)
	return nil
}

// ApplyStatusUpdate applies an authoritative status change from the external
// controller. The single-current invariant is checked explicitly on every
// update; a violating update is rolled back and reported.
func (nm *NavigationModel) ApplyStatusUpdate(itemID string, status models.ItemStatus) error {
	if !models.IsValidItemStatus(status) {
		return models.ErrUnknownItem
	}
	item, _ := nm.find(itemID)
	if item == nil {
		slog.Warn("NavigationModel ApplyStatusUpdate unknown item", "itemID", itemID)
		return models.ErrUnknownItem
	}
	previous := item.Status
	item.Status = status
	if status == models.ItemStatusCurrent && nm.countCurrent() > 1 {
		item.Status = previous
		slog.Error("NavigationModel ApplyStatusUpdate violates single-current invariant", "itemID", itemID)
		return models.ErrMultipleCurrent
	}
	slog.Debug("NavigationModel ApplyStatusUpdate", "itemID", itemID, "from", previous, "to", status)
	return nil
}

// CurrentItem returns the ID of the item currently holding focus, if any.
func (nm *NavigationModel) CurrentItem() (string, bool) {
	for i := range nm.items {
		if nm.items[i].Status == models.ItemStatusCurrent {
			return nm.items[i].ID, true
		}
		for j := range nm.items[i].Children {
			if nm.items[i].Children[j].Status == models.ItemStatusCurrent {
				return nm.items[i].Children[j].ID, true
			}
		}
	}
	return "", false
}

// CheckInvariant verifies that at most one item across the pipeline is
// current.
func (nm *NavigationModel) CheckInvariant() error {
	if nm.countCurrent() > 1 {
		return models.ErrMultipleCurrent
	}
	return nil
}

// MarshalState serializes item statuses and expansion for state storage.
func (nm *NavigationModel) MarshalState() (string, error) {
	data, err := json.Marshal(nm.items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// RestoreState replaces the pipeline with previously serialized state. The
// restored state must satisfy the single-current invariant.
func (nm *NavigationModel) RestoreState(serialized string) error {
	var items []models.NavigationItem
	if err := json.Unmarshal([]byte(serialized), &items); err != nil {
		return err
	}
	previous := nm.items
	nm.items = items
	if err := nm.CheckInvariant(); err != nil {
		nm.items = previous
		return err
	}
	return nil
}

// find locates an item by ID, returning the item and its parent for child
// items. One level of nesting only.
func (nm *NavigationModel) find(itemID string) (item, parent *models.NavigationItem) {
	for i := range nm.items {
		if nm.items[i].ID == itemID {
			return &nm.items[i], nil
		}
		for j := range nm.items[i].Children {
			if nm.items[i].Children[j].ID == itemID {
				return &nm.items[i].Children[j], &nm.items[i]
			}
		}
	}
	return nil, nil
}

// countCurrent counts items holding current status across the pipeline.
func (nm *NavigationModel) countCurrent() int {
	count := 0
	for i := range nm.items {
		if nm.items[i].Status == models.ItemStatusCurrent {
			count++
		}
		for j := range nm.items[i].Children {
			if nm.items[i].Children[j].Status == models.ItemStatusCurrent {
				count++
			}
		}
	}
	return count
}

// copyItems deep-copies the pipeline slice.
func copyItems(items []models.NavigationItem) []models.NavigationItem {
	out := make([]models.NavigationItem, len(items))
	for i, item := range items {
		out[i] = item
		out[i].Children = append([]models.NavigationItem(nil), item.Children...)
	}
	return out
}
