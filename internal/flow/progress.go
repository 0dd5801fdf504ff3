// Package flow provides progress indicator projection for the navigation model.
package flow

import "github.com/venturelaunch/angel/internal/models"

// CompletionRatio is an externally supplied completion value for a section or
// task. Overall progress is likewise supplied externally, since it depends on
// weighted business logic outside this layer.
type CompletionRatio struct {
	ID      string
	Label   string
	Percent int
	Kind    models.ProgressKind
	Phase   models.PhaseID
	Blocked bool
}

// DeriveProgressStatus derives the display badge from the numeric value.
// Blocked is reserved for the explicit external flag; the value alone is never
// sufficient to infer it.
func DeriveProgressStatus(percent int, blocked bool) models.ProgressStatus {
	if blocked {
		return models.ProgressStatusBlocked
	}
	switch {
	case percent <= 0:
		return models.ProgressStatusPending
	case percent >= 100:
		return models.ProgressStatusCompleted
	default:
		return models.ProgressStatusInProgress
	}
}

// ReflectProgress projects externally supplied completion ratios into display
// indicators. The only computed behavior is clamping, badge derivation, and
// ordering; the values themselves are never adjusted.
func ReflectProgress(ratios []CompletionRatio) []models.ProgressIndicator {
	indicators := make([]models.ProgressIndicator, 0, len(ratios))
	for _, r := range ratios {
		percent := r.Percent
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		indicators = append(indicators, models.ProgressIndicator{
			ID:      r.ID,
			Label:   r.Label,
			Percent: percent,
			Kind:    r.Kind,
			Status:  DeriveProgressStatus(percent, r.Blocked),
			Phase:   r.Phase,
			Blocked: r.Blocked,
		})
	}
	return indicators
}

// GroupByPhase filters indicators down to one display group.
func GroupByPhase(indicators []models.ProgressIndicator, phase models.PhaseID) []models.ProgressIndicator {
	var group []models.ProgressIndicator
	for _, ind := range indicators {
		if ind.Phase == phase {
			group = append(group, ind)
		}
	}
	return group
}

// OverallIndicator returns the overall-kind indicator from a snapshot, if one
// is present.
func OverallIndicator(indicators []models.ProgressIndicator) (models.ProgressIndicator, bool) {
	for _, ind := range indicators {
		if ind.Kind == models.ProgressKindOverall {
			return ind, true
		}
	}
	return models.ProgressIndicator{}, false
}
