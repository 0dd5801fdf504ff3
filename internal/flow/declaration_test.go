package flow

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/venturelaunch/angel/internal/models"
)

func TestDeclarationDraftListEditing(t *testing.T) {
	draft := NewDeclarationDraft("s_1", "intake.profile")

	// Each list starts with one blank slot.
	for _, kind := range []ListKind{ListDecisions, ListActions, ListDocuments, ListNextSteps} {
		entries := draft.Entries(kind)
		if len(entries) != 1 || entries[0] != "" {
			t.Errorf("list %s initial state = %v, want one blank slot", kind, entries)
		}
	}

	draft.SetEntry(ListDecisions, 0, "Chose the espresso bar format")
	draft.AddEntry(ListDecisions)
	draft.SetEntry(ListDecisions, 1, "Morning-focused hours")
	want := []string{"Chose the espresso bar format", "Morning-focused hours"}
	if got := draft.Entries(ListDecisions); !reflect.DeepEqual(got, want) {
		t.Errorf("decisions = %v, want %v", got, want)
	}

	// Out-of-range writes are ignored.
	draft.SetEntry(ListDecisions, 5, "ignored")
	draft.SetEntry(ListDecisions, -1, "ignored")
	if got := draft.Entries(ListDecisions); !reflect.DeepEqual(got, want) {
		t.Errorf("decisions after out-of-range writes = %v, want %v", got, want)
	}
}

func TestDeclarationDraftRemoveEntry(t *testing.T) {
	draft := NewDeclarationDraft("s_1", "intake.profile")
	draft.SetEntry(ListActions, 0, "first")
	draft.AddEntry(ListActions)
	draft.SetEntry(ListActions, 1, "second")

	draft.RemoveEntry(ListActions, 0)
	if got := draft.Entries(ListActions); !reflect.DeepEqual(got, []string{"second"}) {
		t.Errorf("actions after removal = %v, want [second]", got)
	}

	// The floor of one slot holds: removing the last slot is a no-op.
	draft.RemoveEntry(ListActions, 0)
	if got := draft.Entries(ListActions); len(got) != 1 {
		t.Errorf("last slot removed, got %v", got)
	}
}

func TestDeclarationDraftSubmit(t *testing.T) {
	draft := NewDeclarationDraft("s_1", "intake.profile")
	draft.Summary = "Locked in the business concept."
	draft.SetEntry(ListDecisions, 0, "Espresso bar")
	draft.AddEntry(ListDecisions)
	// Second decision slot deliberately left blank.
	draft.SetEntry(ListNextSteps, 0, "Scout locations")

	now := time.Now()
	declaration, err := draft.Submit(now)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if declaration.SessionID != "s_1" || declaration.TaskID != "intake.profile" {
		t.Errorf("declaration identity = %s/%s", declaration.SessionID, declaration.TaskID)
	}
	if !declaration.CompletedAt.Equal(now) {
		t.Errorf("CompletedAt = %v, want %v", declaration.CompletedAt, now)
	}
	if !reflect.DeepEqual(declaration.Decisions, []string{"Espresso bar"}) {
		t.Errorf("blank entries not filtered: %v", declaration.Decisions)
	}
	if len(declaration.Actions) != 0 || len(declaration.Documents) != 0 {
		t.Errorf("untouched lists should be empty, got %v / %v", declaration.Actions, declaration.Documents)
	}

	// Submit clears the draft back to its initial shape.
	if draft.Summary != "" {
		t.Error("summary not cleared after submit")
	}
	if entries := draft.Entries(ListDecisions); len(entries) != 1 || entries[0] != "" {
		t.Errorf("decisions not reset, got %v", entries)
	}
}

func TestDeclarationDraftSubmitBlankSummary(t *testing.T) {
	draft := NewDeclarationDraft("s_1", "intake.profile")
	draft.SetEntry(ListDecisions, 0, "Something substantive")

	for _, summary := range []string{"", "   ", "\n\t"} {
		draft.Summary = summary
		if _, err := draft.Submit(time.Now()); !errors.Is(err, models.ErrEmptySummary) {
			t.Errorf("Submit with summary %q = %v, want ErrEmptySummary", summary, err)
		}
	}

	// A declined submission leaves the draft intact for another attempt.
	if entries := draft.Entries(ListDecisions); entries[0] != "Something substantive" {
		t.Errorf("declined submit mutated the draft: %v", entries)
	}
}
