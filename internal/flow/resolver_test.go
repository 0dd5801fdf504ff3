package flow

import (
	"reflect"
	"testing"

	"github.com/venturelaunch/angel/internal/models"
)

func TestResolveSkillRating(t *testing.T) {
	tests := []string{
		"How comfortable are you with these business skills?",
		"HOW COMFORTABLE ARE YOU WITH THESE BUSINESS SKILLS?",
		"Before we continue: how comfortable are you with these business skills? Rate each one.",
	}
	for _, text := range tests {
		decision := Resolve(text)
		if decision.Modality != models.ModalitySkillRating {
			t.Errorf("Resolve(%q) = %s, want skill rating", text, decision.Modality)
		}
		if len(decision.Options) != 0 {
			t.Errorf("Resolve(%q) returned options %v, skill rating derives none", text, decision.Options)
		}
	}
}

func TestResolveBinaryChoice(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"explicit yes/no with cue", "Are you ready to mark any tasks as done? Reply yes or no."},
		{"have-you cue with yes/no", "Have you decided yet? Answer yes or no."},
		{"leading cue without literal yes/no", "Have you registered your business name yet?"},
		{"would-you leading cue", "Would you consider a co-founder for this venture?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := Resolve(tt.text)
			if decision.Modality != models.ModalityBinaryChoice {
				t.Fatalf("Resolve(%q) = %s, want binary choice", tt.text, decision.Modality)
			}
			if !reflect.DeepEqual(decision.Options, []string{"Yes", "No"}) {
				t.Errorf("binary options = %v, want [Yes No]", decision.Options)
			}
		})
	}
}

func TestResolveCatalogFragments(t *testing.T) {
	tests := []struct {
		text        string
		wantOptions int
		wantFirst   string
	}{
		{"What's your current work situation?", 6, "Full-time employed"},
		{"Do you have any initial funding available?", 5, "None"},
		{"Would you like Angel to:", 3, "Suggest business ideas based on my skills"},
		{"What stage is your business idea at?", 4, "Just a thought"},
		{"How much time can you dedicate each week?", 4, "A few hours"},
		{"Which industry interests you most?", 6, "Technology"},
		{"What's your main goal for this business?", 4, "Replace my current income"},
		{"How soon do you want to launch?", 4, "Within a month"},
		{"Have you run a business before?", 3, "Yes, I run one now"},
		{"How will you reach your first customers?", 5, "Social media"},
		{"What's your biggest concern about starting?", 5, "Money / funding"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			decision := Resolve(tt.text)
			if decision.Modality != models.ModalityMultipleChoice {
				t.Fatalf("Resolve(%q) = %s, want multiple choice", tt.text, decision.Modality)
			}
			if len(decision.Options) != tt.wantOptions {
				t.Errorf("option count = %d, want %d", len(decision.Options), tt.wantOptions)
			}
			if decision.Options[0] != tt.wantFirst {
				t.Errorf("first option = %q, want %q", decision.Options[0], tt.wantFirst)
			}
		})
	}
}

func TestResolveCatalogSurroundedText(t *testing.T) {
	// Fragment matching is substring-based, so prefixes and suffixes around a
	// known question must not change the result.
	decision := Resolve("Thanks! Next up: what's your current work situation? Take your time.")
	if decision.Modality != models.ModalityMultipleChoice {
		t.Fatalf("expected multiple choice for embedded fragment, got %s", decision.Modality)
	}
	if len(decision.Options) != 6 {
		t.Errorf("expected the catalog option list, got %v", decision.Options)
	}
}

func TestResolveCatalogBeatsBinaryCue(t *testing.T) {
	// "Do you have any initial funding available" starts with a binary cue but
	// the catalog owns it: the literal option list wins over Yes/No.
	decision := Resolve("Do you have any initial funding available?")
	if decision.Modality != models.ModalityMultipleChoice {
		t.Fatalf("expected catalog match, got %s", decision.Modality)
	}
	if len(decision.Options) != 5 {
		t.Errorf("expected funding options, got %v", decision.Options)
	}
}

func TestResolveBulletExtraction(t *testing.T) {
	text := "How would you prefer to run the business?\n" +
		"• Full-time on the business\n" +
		"• Part-time alongside a job\n" +
		"• Flexible hours as a freelancer\n" +
		"• Together with a co-founder"
	decision := Resolve(text)
	if decision.Modality != models.ModalityMultipleChoice {
		t.Fatalf("expected multiple choice from bullets, got %s", decision.Modality)
	}
	want := []string{
		"Full-time on the business",
		"Part-time alongside a job",
		"Flexible hours as a freelancer",
		"Together with a co-founder",
	}
	if !reflect.DeepEqual(decision.Options, want) {
		t.Errorf("bullet options = %v, want %v", decision.Options, want)
	}
}

func TestResolveBulletSkipsQuestionLines(t *testing.T) {
	text := "Pick an approach:\n" +
		"• Bootstrap slowly\n" +
		"• Raise outside money\n" +
		"• Partner with an operator\n" +
		"- Or is there another way you prefer?"
	decision := Resolve(text)
	if decision.Modality != models.ModalityMultipleChoice {
		t.Fatalf("expected multiple choice, got %s", decision.Modality)
	}
	for _, opt := range decision.Options {
		if opt == "Or is there another way you prefer?" {
			t.Error("trailing question line leaked into the option list")
		}
	}
	if len(decision.Options) != 3 {
		t.Errorf("expected 3 options, got %v", decision.Options)
	}
}

func TestResolveFreeTextFallback(t *testing.T) {
	tests := []string{
		"What kind of business are you dreaming about?",
		"Who is your ideal customer? Describe them in a sentence or two.",
		"Tell me a bit more about that.",
	}
	for _, text := range tests {
		decision := Resolve(text)
		if decision.Modality != models.ModalityFreeText {
			t.Errorf("Resolve(%q) = %s, want free text", text, decision.Modality)
		}
		if len(decision.Options) != 0 {
			t.Errorf("free text should derive no options, got %v", decision.Options)
		}
	}
}

func TestResolveDeterministic(t *testing.T) {
	texts := []string{
		"How comfortable are you with these business skills?",
		"What's your current work situation?",
		"Have you registered your business name yet?",
		"What kind of business are you dreaming about?",
	}
	for _, text := range texts {
		first := Resolve(text)
		second := Resolve(text)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("Resolve(%q) not deterministic: %v vs %v", text, first, second)
		}
	}
}

func TestResolveOptionsAreCopies(t *testing.T) {
	decision := Resolve("What's your current work situation?")
	decision.Options[0] = "mutated"
	again := Resolve("What's your current work situation?")
	if again.Options[0] != "Full-time employed" {
		t.Error("mutating a returned option list leaked into the catalog")
	}
}
