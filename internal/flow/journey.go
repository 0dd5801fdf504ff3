// Package flow provides the journey engine that drives one conversation turn.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/store"
	"github.com/venturelaunch/angel/internal/util"
)

// Journey drives a session through the onboarding pipeline: it fetches the
// next question, resolves its input modality, formats the outgoing message,
// and records incoming answers. Status transitions belong to the phase
// controller, never to the journey itself.
type Journey struct {
	stateManager StateManager
	store        store.Store
	questions    QuestionSource // optional; scripted questions are the fallback
}

// NewJourney creates a journey engine. The question source may be nil, in
// which case only the scripted questions are used.
func NewJourney(stateManager StateManager, st store.Store, questions QuestionSource) *Journey {
	return &Journey{
		stateManager: stateManager,
		store:        st,
		questions:    questions,
	}
}

// Start initializes flow state for a freshly enrolled session and returns the
// formatted first question for delivery.
func (j *Journey) Start(ctx context.Context, session *models.Session) (string, error) {
	slog.Info("Journey starting session", "sessionID", session.ID)

	if err := j.stateManager.SetCurrentState(ctx, session.ID, models.FlowTypeOnboarding, models.StateIntake); err != nil {
		return "", fmt.Errorf("failed to set initial state: %w", err)
	}
	if err := j.stateManager.SetStateData(ctx, session.ID, models.FlowTypeOnboarding, models.DataKeyQuestionIndex, "0"); err != nil {
		return "", fmt.Errorf("failed to initialize question index: %w", err)
	}

	return j.AskNext(ctx, session)
}

// AskNext selects the next question for the session, resolves its modality,
// stores it as the active question, and returns the formatted message body.
// If an earlier question is still unanswered it is simply superseded:
// last-write-wins, no queuing.
func (j *Journey) AskNext(ctx context.Context, session *models.Session) (string, error) {
	state, err := j.stateManager.GetCurrentState(ctx, session.ID, models.FlowTypeOnboarding)
	if err != nil {
		return "", fmt.Errorf("failed to get current state: %w", err)
	}
	if state == "" {
		state = models.StateIntake
	}
	if state == models.StateComplete {
		return "Your launch journey is complete. You can still review your roadmap or declare task completions.", nil
	}

	text, err := j.nextQuestionText(ctx, session, state)
	if err != nil {
		return "", err
	}

	question := models.Question{
		SessionID: session.ID,
		Text:      text,
		Decision:  Resolve(text),
		AskedAt:   time.Now(),
	}
	if err := question.Validate(); err != nil {
		return "", fmt.Errorf("generated question failed validation: %w", err)
	}

	if session.ActiveQuestion != "" && session.ActiveQuestion != text {
		slog.Debug("Journey superseding unanswered question", "sessionID", session.ID)
	}
	session.ActiveQuestion = text
	session.UpdatedAt = time.Now()
	if err := j.store.SaveSession(*session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	if err := j.stateManager.SetStateData(ctx, session.ID, models.FlowTypeOnboarding, models.DataKeyLastAskedAt, question.AskedAt.Format(time.RFC3339)); err != nil {
		slog.Warn("Journey failed to record ask timestamp", "error", err, "sessionID", session.ID)
	}

	return Format(ctx, question)
}

// HandleAnswer validates and records an incoming answer for the session's
// active question, then returns the formatted follow-up message. Invalid
// input for the active modality produces a gentle re-ask instead of an error:
// the preconditions are gates, not faults.
func (j *Journey) HandleAnswer(ctx context.Context, session *models.Session, body string, receivedAt time.Time) (string, error) {
	if session.ActiveQuestion == "" {
		slog.Debug("Journey answer with no active question", "sessionID", session.ID)
		return j.AskNext(ctx, session)
	}

	decision := Resolve(session.ActiveQuestion)
	canonical, ok := j.canonicalAnswer(decision, body)
	if !ok {
		return j.reaskMessage(decision), nil
	}

	answer := models.Answer{
		ID:         util.GenerateAnswerID(),
		SessionID:  session.ID,
		Question:   session.ActiveQuestion,
		Modality:   decision.Modality,
		Body:       canonical,
		AnsweredAt: receivedAt,
	}
	if err := answer.Validate(); err != nil {
		return "", fmt.Errorf("answer validation failed: %w", err)
	}
	if err := j.store.AddAnswer(answer); err != nil {
		return "", fmt.Errorf("failed to record answer: %w", err)
	}
	slog.Info("Journey recorded answer", "sessionID", session.ID, "modality", decision.Modality)

	session.ActiveQuestion = ""
	session.UpdatedAt = time.Now()
	if err := j.store.SaveSession(*session); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}

	if err := j.advanceScript(ctx, session); err != nil {
		return "", err
	}
	return j.AskNext(ctx, session)
}

// nextQuestionText asks the upstream source for the next question and falls
// back to the phase script when the source is missing or fails.
func (j *Journey) nextQuestionText(ctx context.Context, session *models.Session, state models.StateType) (string, error) {
	index, err := j.questionIndex(ctx, session.ID)
	if err != nil {
		return "", err
	}

	if j.questions != nil {
		history, histErr := j.store.GetAnswers(session.ID)
		if histErr != nil {
			slog.Warn("Journey failed to load answer history", "error", histErr, "sessionID", session.ID)
		}
		text, genErr := j.questions.NextQuestion(ctx, session, history)
		if genErr == nil && strings.TrimSpace(text) != "" {
			return text, nil
		}
		if genErr != nil {
			slog.Warn("Journey question source failed, using script", "error", genErr, "sessionID", session.ID)
		}
	}

	if text, ok := ScriptQuestion(state, index); ok {
		return text, nil
	}
	// Script exhausted without a phase transition recorded yet; repeat the
	// last scripted question rather than going silent.
	if length := ScriptLength(state); length > 0 {
		text, _ := ScriptQuestion(state, length-1)
		return text, nil
	}
	return "", fmt.Errorf("no question available for state %s", state)
}

// advanceScript bumps the scripted question index and transitions to the next
// phase state when the current script is exhausted.
func (j *Journey) advanceScript(ctx context.Context, session *models.Session) error {
	state, err := j.stateManager.GetCurrentState(ctx, session.ID, models.FlowTypeOnboarding)
	if err != nil {
		return err
	}
	if state == "" || state == models.StateComplete {
		return nil
	}

	index, err := j.questionIndex(ctx, session.ID)
	if err != nil {
		return err
	}
	index++

	if index >= ScriptLength(state) {
		next := nextState(state)
		if next != state {
			if err := j.stateManager.TransitionState(ctx, session.ID, models.FlowTypeOnboarding, state, next); err != nil {
				return err
			}
			session.CurrentPhase = models.StateToPhase(next)
			session.UpdatedAt = time.Now()
			if err := j.store.SaveSession(*session); err != nil {
				return err
			}
			index = 0
			slog.Info("Journey advanced phase", "sessionID", session.ID, "from", state, "to", next)
		} else {
			index = ScriptLength(state) - 1
		}
	}

	return j.stateManager.SetStateData(ctx, session.ID, models.FlowTypeOnboarding, models.DataKeyQuestionIndex, strconv.Itoa(index))
}

// canonicalAnswer maps the raw incoming body to the canonical answer payload
// for the modality. A numbered reply selects the corresponding option; the
// literal option text (case-insensitive) is accepted too, and re-submitting
// the same selection is idempotent by construction.
func (j *Journey) canonicalAnswer(decision models.ModalityDecision, body string) (string, bool) {
	trimmed := strings.TrimSpace(body)
	switch decision.Modality {
	case models.ModalityBinaryChoice, models.ModalityMultipleChoice:
		if n, err := strconv.Atoi(trimmed); err == nil {
			if n >= 1 && n <= len(decision.Options) {
				return decision.Options[n-1], true
			}
			return "", false
		}
		for _, opt := range decision.Options {
			if strings.EqualFold(opt, trimmed) {
				return opt, true
			}
		}
		return "", false
	case models.ModalitySkillRating:
		rs, err := DecodeRatings(trimmed)
		if err != nil {
			return "", false
		}
		encoded, err := rs.Encode()
		if err != nil {
			return "", false
		}
		return encoded, true
	default:
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	}
}

// reaskMessage builds the gate message shown when input does not satisfy the
// active modality's precondition.
func (j *Journey) reaskMessage(decision models.ModalityDecision) string {
	switch decision.Modality {
	case models.ModalityBinaryChoice, models.ModalityMultipleChoice:
		return fmt.Sprintf("Please answer with an option number between 1 and %d, or the option text itself.", len(decision.Options))
	case models.ModalitySkillRating:
		return fmt.Sprintf("Please rate all %d skills from 1 to 5, separated by commas (for example: 3, 4, 2, 5, 1, 3, 4).", len(SkillCatalog))
	default:
		return "Please send a short answer so we can keep going."
	}
}

// questionIndex reads the session's position within the current phase script.
func (j *Journey) questionIndex(ctx context.Context, sessionID string) (int, error) {
	raw, err := j.stateManager.GetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyQuestionIndex)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, nil
	}
	index, err := strconv.Atoi(raw)
	if err != nil {
		return 0, nil
	}
	return index, nil
}

// nextState returns the state that follows in the fixed pipeline.
func nextState(state models.StateType) models.StateType {
	switch state {
	case models.StateIntake:
		return models.StatePlanning
	case models.StatePlanning:
		return models.StateRoadmapping
	case models.StateRoadmapping:
		return models.StateImplementation
	case models.StateImplementation:
		return models.StateComplete
	default:
		return state
	}
}
