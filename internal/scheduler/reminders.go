package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/venturelaunch/angel/internal/flow"
	"github.com/venturelaunch/angel/internal/messaging"
	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/store"
)

// DefaultReminderThreshold is how long an active question may sit unanswered
// before a reminder is sent.
const DefaultReminderThreshold = 24 * time.Hour

// ReminderJob re-sends the pending question to sessions that have gone quiet.
type ReminderJob struct {
	store        store.Store
	stateManager flow.StateManager
	msgService   messaging.Service
	threshold    time.Duration
}

// NewReminderJob creates a reminder job over the given store and messaging service.
func NewReminderJob(st store.Store, stateManager flow.StateManager, msgService messaging.Service, threshold time.Duration) *ReminderJob {
	if threshold <= 0 {
		threshold = DefaultReminderThreshold
	}
	return &ReminderJob{store: st, stateManager: stateManager, msgService: msgService, threshold: threshold}
}

// Run scans all sessions and nudges those with a stale unanswered question.
func (r *ReminderJob) Run(ctx context.Context) {
	sessions, err := r.store.ListSessions()
	if err != nil {
		slog.Error("ReminderJob failed to list sessions", "error", err)
		return
	}

	now := time.Now()
	nudged := 0
	for _, session := range sessions {
		if session.Status != models.SessionStatusActive || session.ActiveQuestion == "" {
			continue
		}
		if !r.isStale(ctx, session.ID, now) {
			continue
		}

		body := "Just checking in! Here's where we left off:\n\n" + session.ActiveQuestion
		if err := r.msgService.SendMessage(ctx, session.Recipient, body); err != nil {
			slog.Error("ReminderJob failed to send nudge", "error", err, "sessionID", session.ID)
			continue
		}
		// Reset the clock so the next scan does not nudge again immediately.
		if err := r.stateManager.SetStateData(ctx, session.ID, models.FlowTypeOnboarding,
			models.DataKeyLastAskedAt, now.Format(time.RFC3339)); err != nil {
			slog.Error("ReminderJob failed to record nudge time", "error", err, "sessionID", session.ID)
		}
		nudged++
	}
	if nudged > 0 {
		slog.Info("ReminderJob completed", "nudged", nudged, "scanned", len(sessions))
	}
}

// isStale reports whether the session's last question is older than the threshold.
func (r *ReminderJob) isStale(ctx context.Context, sessionID string, now time.Time) bool {
	lastAsked, err := r.stateManager.GetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyLastAskedAt)
	if err != nil || lastAsked == "" {
		return false
	}
	askedAt, err := time.Parse(time.RFC3339, lastAsked)
	if err != nil {
		slog.Warn("ReminderJob invalid lastAskedAt value", "sessionID", sessionID, "value", lastAsked)
		return false
	}
	return now.Sub(askedAt) >= r.threshold
}
