// Package flow implements the adaptive conversation logic for Angel: question
// classification, pipeline navigation, guidance prompts, and completion capture.
//
// The modality resolver inspects the current question text and decides which
// input widget to present. Classification rules are evaluated top to bottom;
// they are not mutually exclusive in principle, so the order itself is a
// deliberate tie-break policy.
package flow

import (
	"log/slog"
	"strings"

	"github.com/venturelaunch/angel/internal/models"
)

// binaryCues are the anchoring phrases required (alongside "yes" and "no")
// for a question to classify as a binary choice.
var binaryCues = []string{"have you", "do you", "are you", "would you"}

// skillRatingTrigger is the fixed phrase that selects the skill-rating grid.
const skillRatingTrigger = "how comfortable are you with these business skills"

// catalogEntry maps a literal question fragment to its option list.
type catalogEntry struct {
	fragment string
	options  []string
}

// questionCatalog is the ordered fragment-to-options lookup table. Matching is
// case-insensitive substring; the first matching fragment wins, and its option
// list is presented verbatim in declared order.
var questionCatalog = []catalogEntry{
	{"what's your current work situation", []string{
		"Full-time employed",
		"Part-time employed",
		"Self-employed",
		"Student",
		"Between jobs",
		"Other",
	}},
	{"do you have any initial funding available", []string{
		"None",
		"Personal savings",
		"Friends/family",
		"External funding (loan, investor)",
		"Other",
	}},
	{"would you like angel to:", []string{
		"Suggest business ideas based on my skills",
		"Help me refine an idea I already have",
		"Guide me through launching step by step",
	}},
	{"what stage is your business idea at", []string{
		"Just a thought",
		"Researching the market",
		"Ready to start",
		"Already started",
	}},
	{"how much time can you dedicate each week", []string{
		"A few hours",
		"10-20 hours",
		"Full-time",
		"Not sure yet",
	}},
	{"which industry interests you most", []string{
		"Technology",
		"Retail / e-commerce",
		"Food & beverage",
		"Professional services",
		"Health & wellness",
		"Other",
	}},
	{"what's your main goal for this business", []string{
		"Replace my current income",
		"Build a side income",
		"Pursue a passion",
		"Solve a problem I care about",
	}},
	{"how soon do you want to launch", []string{
		"Within a month",
		"1-3 months",
		"3-6 months",
		"No fixed timeline",
	}},
	{"have you run a business before", []string{
		"Yes, I run one now",
		"Yes, in the past",
		"No, this is my first",
	}},
	{"how will you reach your first customers", []string{
		"Social media",
		"Word of mouth",
		"Online ads",
		"Local events / partnerships",
		"Not sure yet",
	}},
	{"what's your biggest concern about starting", []string{
		"Money / funding",
		"Finding customers",
		"Legal / paperwork",
		"Time commitment",
		"Confidence / know-how",
	}},
}

// BinaryOptions is the canonical option set for binary-choice questions.
var BinaryOptions = []string{"Yes", "No"}

// Resolve classifies the given question text into an input modality and, for
// choice modalities, derives the concrete option set. Resolution is a pure
// function of the text: identical input always yields a structurally identical
// decision.
func Resolve(questionText string) models.ModalityDecision {
	lower := strings.ToLower(questionText)

	// Rule 1: skill-rating grid on the fixed trigger phrase.
	if strings.Contains(lower, skillRatingTrigger) {
		slog.Debug("Resolver matched skill rating trigger")
		return models.ModalityDecision{Modality: models.ModalitySkillRating}
	}

	// Rule 2: binary choice requires "yes" and "no" plus an anchoring cue.
	if strings.Contains(lower, "yes") && strings.Contains(lower, "no") && containsAny(lower, binaryCues) {
		slog.Debug("Resolver matched binary choice pattern")
		return models.ModalityDecision{
			Modality: models.ModalityBinaryChoice,
			Options:  append([]string(nil), BinaryOptions...),
		}
	}

	// Rule 3: ordered catalog of known question fragments.
	for _, entry := range questionCatalog {
		if strings.Contains(lower, entry.fragment) {
			slog.Debug("Resolver matched catalog fragment", "fragment", entry.fragment)
			return models.ModalityDecision{
				Modality: models.ModalityMultipleChoice,
				Options:  append([]string(nil), entry.options...),
			}
		}
	}

	// Rule 4: heuristic bullet extraction. A candidate line containing a
	// question mark is discarded so a trailing follow-up question is not
	// mistaken for an option.
	if strings.Contains(questionText, "•") || strings.Contains(lower, "full-time") || strings.Contains(lower, "part-time") {
		if options := extractBulletOptions(questionText); len(options) > 2 {
			slog.Debug("Resolver extracted bullet options", "count", len(options))
			return models.ModalityDecision{
				Modality: models.ModalityMultipleChoice,
				Options:  options,
			}
		}
	}

	// A direct question opening with a binary cue is still a yes/no question
	// even when the body never spells out "yes"/"no". Checked after the
	// catalog and bullet rules so known multi-option questions like "do you
	// have any initial funding available" keep their literal option lists.
	if cue := leadingCue(lower); cue != "" {
		slog.Debug("Resolver matched leading binary cue", "cue", cue)
		return models.ModalityDecision{
			Modality: models.ModalityBinaryChoice,
			Options:  append([]string(nil), BinaryOptions...),
		}
	}

	// Rule 5: fallback to free text.
	return models.ModalityDecision{Modality: models.ModalityFreeText}
}

// leadingCue returns the binary cue the lower-cased text begins with, if any.
func leadingCue(lower string) string {
	trimmed := strings.TrimSpace(lower)
	for _, cue := range binaryCues {
		if strings.HasPrefix(trimmed, cue) {
			return cue
		}
	}
	return ""
}

// extractBulletOptions scans the text line by line, keeping lines that start
// with a bullet or dash marker, stripped of the marker.
func extractBulletOptions(text string) []string {
	var options []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		var candidate string
		switch {
		case strings.HasPrefix(trimmed, "•"):
			candidate = strings.TrimSpace(strings.TrimPrefix(trimmed, "•"))
		case strings.HasPrefix(trimmed, "-"):
			candidate = strings.TrimSpace(strings.TrimPrefix(trimmed, "-"))
		default:
			continue
		}
		if candidate == "" || strings.Contains(candidate, "?") {
			continue
		}
		options = append(options, candidate)
	}
	return options
}

// containsAny reports whether s contains at least one of the substrings.
func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
