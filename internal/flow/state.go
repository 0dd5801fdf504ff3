// Package flow defines state management interfaces for stateful flows.
package flow

import (
	"context"

	"github.com/venturelaunch/angel/internal/models"
)

// StateManager defines the interface for managing per-session flow state.
type StateManager interface {
	// GetCurrentState retrieves the current state for a session in a flow
	GetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType) (models.StateType, error)

	// SetCurrentState updates the current state for a session in a flow
	SetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType, state models.StateType) error

	// GetStateData retrieves additional data associated with the session's state
	GetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey) (string, error)

	// SetStateData stores additional data associated with the session's state
	SetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey, value string) error

	// TransitionState transitions from one state to another
	TransitionState(ctx context.Context, sessionID string, flowType models.FlowType, fromState, toState models.StateType) error

	// ResetState removes all state data for a session in a flow
	ResetState(ctx context.Context, sessionID string, flowType models.FlowType) error
}

// QuestionSource supplies the next question text for a session turn. The
// upstream assistant is an opaque asynchronous collaborator; the flow
// re-evaluates synchronously once its value arrives.
type QuestionSource interface {
	NextQuestion(ctx context.Context, session *models.Session, history []models.Answer) (string, error)
}

// Dependencies holds all dependencies that can be injected into flow components.
type Dependencies struct {
	StateManager StateManager
	Questions    QuestionSource
}
