package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/venturelaunch/angel/internal/models"
)

func TestFormatFreeText(t *testing.T) {
	q := models.Question{
		SessionID: "s_1",
		Text:      "What kind of business are you dreaming about?",
		Decision:  models.ModalityDecision{Modality: models.ModalityFreeText},
	}
	got, err := Format(context.Background(), q)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if got != q.Text {
		t.Errorf("free text format = %q, want text unchanged", got)
	}
}

func TestFormatChoice(t *testing.T) {
	q := models.Question{
		SessionID: "s_1",
		Text:      "Have you registered your business name yet?",
		Decision: models.ModalityDecision{
			Modality: models.ModalityBinaryChoice,
			Options:  []string{"Yes", "No"},
		},
	}
	got, err := Format(context.Background(), q)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	if !strings.Contains(got, "1. Yes") || !strings.Contains(got, "2. No") {
		t.Errorf("choice format = %q", got)
	}
	if !strings.HasPrefix(got, q.Text) {
		t.Errorf("options should follow the question text, got %q", got)
	}
}

func TestFormatSkillRating(t *testing.T) {
	q := models.Question{
		SessionID: "s_1",
		Text:      "How comfortable are you with these business skills?",
		Decision:  models.ModalityDecision{Modality: models.ModalitySkillRating},
	}
	got, err := Format(context.Background(), q)
	if err != nil {
		t.Fatalf("Format failed: %v", err)
	}
	for i, skill := range SkillCatalog {
		if !strings.Contains(got, skill) {
			t.Errorf("skill %d (%s) missing from message", i, skill)
		}
	}
	if !strings.Contains(got, "from 1 to 5") {
		t.Errorf("rating instructions missing: %q", got)
	}
}

func TestFormatUnknownModality(t *testing.T) {
	q := models.Question{
		SessionID: "s_1",
		Text:      "?",
		Decision:  models.ModalityDecision{Modality: models.Modality("telepathy")},
	}
	if _, err := Format(context.Background(), q); err == nil {
		t.Error("expected error for unregistered modality")
	}
}
