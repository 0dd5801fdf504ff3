// Package flow provides outgoing message formatting per input modality.
package flow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/venturelaunch/angel/internal/models"
)

// Formatting constants for choice and rating widgets.
const (
	// ChoiceOptionFormat is the format string for a numbered choice option.
	ChoiceOptionFormat = "\n%d. %s"
	// SkillRatingInstruction closes a skill-rating message.
	SkillRatingInstruction = "\n\nReply with a rating from 1 to 5 for each skill, separated by commas."
)

// Formatter renders a question into a channel-ready message body for its
// modality.
type Formatter interface {
	Format(ctx context.Context, q models.Question) (string, error)
}

var registry = make(map[models.Modality]Formatter)

// Register associates a Modality with a Formatter implementation.
func Register(m models.Modality, f Formatter) {
	registry[m] = f
}

// Get retrieves the Formatter for a given Modality.
func Get(m models.Modality) (Formatter, bool) {
	f, ok := registry[m]
	return f, ok
}

// Format finds and runs the Formatter for the question's resolved modality.
func Format(ctx context.Context, q models.Question) (string, error) {
	slog.Debug("Flow Format invoked", "modality", q.Decision.Modality, "session", q.SessionID)
	if f, ok := Get(q.Decision.Modality); ok {
		result, err := f.Format(ctx, q)
		if err != nil {
			slog.Error("Flow formatter error", "modality", q.Decision.Modality, "session", q.SessionID, "error", err)
		}
		return result, err
	}
	slog.Error("No formatter registered for modality", "modality", q.Decision.Modality, "session", q.SessionID)
	return "", fmt.Errorf("no formatter registered for modality %s", q.Decision.Modality)
}

// FreeTextFormatter passes the question body through unchanged.
type FreeTextFormatter struct{}

// Format returns the question text as-is.
func (f *FreeTextFormatter) Format(ctx context.Context, q models.Question) (string, error) {
	return q.Text, nil
}

// ChoiceFormatter renders the question followed by its numbered options.
type ChoiceFormatter struct{}

// Format returns the body combined with the ordered option list.
func (f *ChoiceFormatter) Format(ctx context.Context, q models.Question) (string, error) {
	sb := q.Text
	for i, opt := range q.Decision.Options {
		sb += fmt.Sprintf(ChoiceOptionFormat, i+1, opt)
	}
	return sb, nil
}

// SkillRatingFormatter renders the fixed skill catalog with rating
// instructions.
type SkillRatingFormatter struct{}

// Format returns the body followed by the catalog and rating instructions.
func (f *SkillRatingFormatter) Format(ctx context.Context, q models.Question) (string, error) {
	sb := q.Text
	for i, skill := range SkillCatalog {
		sb += fmt.Sprintf(ChoiceOptionFormat, i+1, skill)
	}
	sb += SkillRatingInstruction
	return sb, nil
}

// Register default formatters
func init() {
	Register(models.ModalityFreeText, &FreeTextFormatter{})
	Register(models.ModalityBinaryChoice, &ChoiceFormatter{})
	Register(models.ModalityMultipleChoice, &ChoiceFormatter{})
	Register(models.ModalitySkillRating, &SkillRatingFormatter{})
}
