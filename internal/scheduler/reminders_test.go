package scheduler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/venturelaunch/angel/internal/flow"
	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/store"
)

// recordingService captures outgoing messages for assertions.
type recordingService struct {
	sentTo   []string
	sentBody []string
}

func (r *recordingService) ValidateAndCanonicalizeRecipient(recipient string) (string, error) {
	return recipient, nil
}

func (r *recordingService) SendMessage(ctx context.Context, to string, body string) error {
	r.sentTo = append(r.sentTo, to)
	r.sentBody = append(r.sentBody, body)
	return nil
}

func (r *recordingService) Start(ctx context.Context) error   { return nil }
func (r *recordingService) Stop() error                       { return nil }
func (r *recordingService) Receipts() <-chan models.Receipt   { return nil }
func (r *recordingService) Responses() <-chan models.Response { return nil }

func seedSession(t *testing.T, st store.Store, sm flow.StateManager, id, recipient, question string, askedAt time.Time, status models.SessionStatus) {
	t.Helper()
	session := models.Session{
		ID:             id,
		Recipient:      recipient,
		Status:         status,
		CurrentPhase:   models.PhaseIntake,
		ActiveQuestion: question,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	if err := st.SaveSession(session); err != nil {
		t.Fatalf("SaveSession failed: %v", err)
	}
	if !askedAt.IsZero() {
		if err := sm.SetStateData(context.Background(), id, models.FlowTypeOnboarding,
			models.DataKeyLastAskedAt, askedAt.Format(time.RFC3339)); err != nil {
			t.Fatalf("SetStateData failed: %v", err)
		}
	}
}

func TestReminderJobNudgesStaleSessions(t *testing.T) {
	st := store.NewInMemoryStore()
	sm := flow.NewStoreBasedStateManager(st)
	svc := &recordingService{}
	job := NewReminderJob(st, sm, svc, time.Hour)
	ctx := context.Background()

	stale := time.Now().Add(-2 * time.Hour)
	fresh := time.Now().Add(-10 * time.Minute)

	seedSession(t, st, sm, "s_stale", "15550000001", "What's your main goal for this business?", stale, models.SessionStatusActive)
	seedSession(t, st, sm, "s_fresh", "15550000002", "How soon do you want to launch?", fresh, models.SessionStatusActive)
	seedSession(t, st, sm, "s_done", "15550000003", "Leftover question", stale, models.SessionStatusCompleted)
	seedSession(t, st, sm, "s_idle", "15550000004", "", stale, models.SessionStatusActive)
	seedSession(t, st, sm, "s_never", "15550000005", "Question never timestamped", time.Time{}, models.SessionStatusActive)

	job.Run(ctx)

	if len(svc.sentTo) != 1 {
		t.Fatalf("expected exactly one nudge, got %d (%v)", len(svc.sentTo), svc.sentTo)
	}
	if svc.sentTo[0] != "15550000001" {
		t.Errorf("nudged %s, want the stale active session", svc.sentTo[0])
	}
	if !strings.Contains(svc.sentBody[0], "What's your main goal for this business?") {
		t.Errorf("nudge body = %q, want the pending question repeated", svc.sentBody[0])
	}
	if !strings.Contains(svc.sentBody[0], "checking in") {
		t.Errorf("nudge body = %q, want the check-in preamble", svc.sentBody[0])
	}
}

func TestReminderJobResetsClock(t *testing.T) {
	st := store.NewInMemoryStore()
	sm := flow.NewStoreBasedStateManager(st)
	svc := &recordingService{}
	job := NewReminderJob(st, sm, svc, time.Hour)
	ctx := context.Background()

	seedSession(t, st, sm, "s_1", "15550000001", "Have you registered your business name yet?",
		time.Now().Add(-2*time.Hour), models.SessionStatusActive)

	job.Run(ctx)
	if len(svc.sentTo) != 1 {
		t.Fatalf("expected one nudge, got %d", len(svc.sentTo))
	}

	// A second scan inside the threshold stays quiet.
	job.Run(ctx)
	if len(svc.sentTo) != 1 {
		t.Errorf("second scan nudged again: %d sends", len(svc.sentTo))
	}
}

func TestReminderJobDefaultThreshold(t *testing.T) {
	job := NewReminderJob(store.NewInMemoryStore(), flow.NewStoreBasedStateManager(store.NewInMemoryStore()), &recordingService{}, 0)
	if job.threshold != DefaultReminderThreshold {
		t.Errorf("threshold = %v, want default %v", job.threshold, DefaultReminderThreshold)
	}
}
