package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/store"
)

func newTestController(t *testing.T) (*PhaseController, StateManager) {
	t.Helper()
	st := store.NewInMemoryStore()
	sm := NewStoreBasedStateManager(st)
	return NewPhaseController(sm), sm
}

func TestLoadNavigationFreshSession(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, err := pc.LoadNavigation(ctx, "s_fresh")
	if err != nil {
		t.Fatalf("LoadNavigation failed: %v", err)
	}
	current, ok := nm.CurrentItem()
	if !ok || current != "intake.profile" {
		t.Errorf("fresh navigation current = %q, want intake.profile", current)
	}
}

func TestSaveAndReloadNavigation(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, err := pc.LoadNavigation(ctx, "s_1")
	if err != nil {
		t.Fatalf("LoadNavigation failed: %v", err)
	}
	if err := nm.ApplyStatusUpdate("intake.profile", models.ItemStatusCompleted); err != nil {
		t.Fatalf("status update failed: %v", err)
	}
	if err := pc.SaveNavigation(ctx, "s_1", nm); err != nil {
		t.Fatalf("SaveNavigation failed: %v", err)
	}

	reloaded, err := pc.LoadNavigation(ctx, "s_1")
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	items := reloaded.Items()
	if items[0].Children[0].Status != models.ItemStatusCompleted {
		t.Errorf("reloaded status = %s, want completed", items[0].Children[0].Status)
	}
}

func TestFocusItem(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, _ := pc.LoadNavigation(ctx, "s_1")
	if err := pc.FocusItem(ctx, "s_1", nm, "intake.skills"); err != nil {
		t.Fatalf("FocusItem failed: %v", err)
	}

	// The previous current item resolves to completed as focus moves on.
	items := nm.Items()
	if items[0].Children[0].Status != models.ItemStatusCompleted {
		t.Errorf("previous current = %s, want completed", items[0].Children[0].Status)
	}
	current, _ := nm.CurrentItem()
	if current != "intake.skills" {
		t.Errorf("current = %q, want intake.skills", current)
	}

	// Focusing back onto the completed item is review: no status changes.
	if err := pc.FocusItem(ctx, "s_1", nm, "intake.profile"); err != nil {
		t.Fatalf("review focus failed: %v", err)
	}
	items = nm.Items()
	if items[0].Children[0].Status != models.ItemStatusCompleted {
		t.Errorf("review focus changed status to %s", items[0].Children[0].Status)
	}
	current, _ = nm.CurrentItem()
	if current != "intake.skills" {
		t.Errorf("review focus moved current to %q", current)
	}
}

func TestFocusItemRejections(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, _ := pc.LoadNavigation(ctx, "s_1")
	if err := pc.FocusItem(ctx, "s_1", nm, "planning.market"); !errors.Is(err, models.ErrLockedItem) {
		t.Errorf("locked target = %v, want ErrLockedItem", err)
	}
	if err := pc.FocusItem(ctx, "s_1", nm, "missing"); !errors.Is(err, models.ErrUnknownItem) {
		t.Errorf("unknown target = %v, want ErrUnknownItem", err)
	}
}

func TestCompleteTaskAdvancesSibling(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, _ := pc.LoadNavigation(ctx, "s_1")
	if err := pc.CompleteTask(ctx, "s_1", nm, "intake.profile"); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	items := nm.Items()
	if items[0].Children[0].Status != models.ItemStatusCompleted {
		t.Errorf("completed task status = %s", items[0].Children[0].Status)
	}
	current, _ := nm.CurrentItem()
	if current != "intake.skills" {
		t.Errorf("focus advanced to %q, want intake.skills", current)
	}
}

func TestCompleteTaskOutOfFocus(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	// intake.profile holds focus; the participant declares intake.idea done.
	nm, _ := pc.LoadNavigation(ctx, "s_1")
	if err := pc.CompleteTask(ctx, "s_1", nm, "intake.idea"); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}

	items := nm.Items()
	if items[0].Children[2].Status != models.ItemStatusCompleted {
		t.Errorf("intake.idea status = %s, want completed", items[0].Children[2].Status)
	}
	if items[0].Children[0].Status != models.ItemStatusCompleted {
		t.Errorf("previously focused intake.profile status = %s, want completed", items[0].Children[0].Status)
	}
	current, ok := nm.CurrentItem()
	if !ok || current != "intake.skills" {
		t.Errorf("focus = %q, want intake.skills", current)
	}
	if err := nm.CheckInvariant(); err != nil {
		t.Errorf("invariant check failed: %v", err)
	}
}

func TestCompleteTaskUnlocksNextPhase(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, _ := pc.LoadNavigation(ctx, "s_1")
	for _, taskID := range []string{"intake.profile", "intake.skills", "intake.idea"} {
		if err := pc.CompleteTask(ctx, "s_1", nm, taskID); err != nil {
			t.Fatalf("CompleteTask(%s) failed: %v", taskID, err)
		}
	}

	items := nm.Items()
	if items[0].Status != models.ItemStatusCompleted {
		t.Errorf("intake phase = %s, want completed", items[0].Status)
	}
	if items[1].Status != models.ItemStatusUpcoming {
		t.Errorf("planning phase = %s, want upcoming", items[1].Status)
	}
	current, _ := nm.CurrentItem()
	if current != "planning.market" {
		t.Errorf("current = %q, want planning.market", current)
	}
	for _, task := range items[1].Children[1:] {
		if task.Status != models.ItemStatusUpcoming {
			t.Errorf("planning task %s = %s, want upcoming", task.ID, task.Status)
		}
	}
}

func TestCompleteTaskRejections(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	nm, _ := pc.LoadNavigation(ctx, "s_1")
	if err := pc.CompleteTask(ctx, "s_1", nm, "roadmap.legal"); !errors.Is(err, models.ErrLockedItem) {
		t.Errorf("locked task = %v, want ErrLockedItem", err)
	}
	if err := pc.CompleteTask(ctx, "s_1", nm, "missing"); !errors.Is(err, models.ErrUnknownItem) {
		t.Errorf("unknown task = %v, want ErrUnknownItem", err)
	}
	// Phases are not tasks: completing one directly is rejected.
	if err := pc.CompleteTask(ctx, "s_1", nm, "intake"); !errors.Is(err, models.ErrUnknownItem) {
		t.Errorf("phase as task = %v, want ErrUnknownItem", err)
	}
}

func TestProgressDerivedFromNavigation(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	// Without any stored snapshot progress is derived from navigation.
	indicators, err := pc.Progress(ctx, "s_1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if len(indicators) != 5 {
		t.Fatalf("expected 4 sections + overall, got %d", len(indicators))
	}
	overall, ok := OverallIndicator(indicators)
	if !ok || overall.Percent != 0 {
		t.Errorf("fresh overall = %v (ok=%v)", overall, ok)
	}

	// Completing a task refreshes and stores the snapshot.
	nm, _ := pc.LoadNavigation(ctx, "s_1")
	if err := pc.CompleteTask(ctx, "s_1", nm, "intake.profile"); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	indicators, err = pc.Progress(ctx, "s_1")
	if err != nil {
		t.Fatalf("Progress after completion failed: %v", err)
	}
	if indicators[0].Percent != 33 {
		t.Errorf("intake section percent = %d, want 33", indicators[0].Percent)
	}
	overall, _ = OverallIndicator(indicators)
	if overall.Percent == 0 {
		t.Error("overall progress still zero after task completion")
	}
}

func TestApplyProgressReplacesSnapshot(t *testing.T) {
	pc, _ := newTestController(t)
	ctx := context.Background()

	ratios := []CompletionRatio{
		{ID: "progress.intake", Label: "Getting to know you", Percent: 75, Kind: models.ProgressKindSection, Phase: models.PhaseIntake},
		{ID: "progress.overall", Label: "Launch journey", Percent: 20, Kind: models.ProgressKindOverall},
	}
	if err := pc.ApplyProgress(ctx, "s_1", ratios); err != nil {
		t.Fatalf("ApplyProgress failed: %v", err)
	}

	indicators, err := pc.Progress(ctx, "s_1")
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if len(indicators) != 2 {
		t.Fatalf("expected the applied snapshot, got %d indicators", len(indicators))
	}
	if indicators[0].Percent != 75 || indicators[0].Status != models.ProgressStatusInProgress {
		t.Errorf("applied indicator = %v", indicators[0])
	}
}
