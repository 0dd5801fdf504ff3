// Package flow provides concrete implementations of state management.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/venturelaunch/angel/internal/models"
	"github.com/venturelaunch/angel/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetCurrentState retrieves the current state for a session in a flow.
func (sm *StoreBasedStateManager) GetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType) (models.StateType, error) {
	slog.Debug("StateManager GetCurrentState", "sessionID", sessionID, "flowType", flowType)

	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager GetCurrentState error", "error", err, "sessionID", sessionID, "flowType", flowType)
		return "", err
	}

	if flowState == nil {
		slog.Debug("StateManager GetCurrentState not found", "sessionID", sessionID, "flowType", flowType)
		return "", nil
	}

	return models.StateType(flowState.CurrentState), nil
}

// SetCurrentState updates the current state for a session in a flow.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType, state models.StateType) error {
	slog.Debug("StateManager SetCurrentState", "sessionID", sessionID, "flowType", flowType, "state", state)

	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager SetCurrentState get error", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}

	now := time.Now()
	if flowState == nil {
		flowState = &models.FlowState{
			SessionID:    sessionID,
			FlowType:     string(flowType),
			CurrentState: string(state),
			StateData:    make(map[string]string),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	} else {
		flowState.CurrentState = string(state)
		flowState.UpdatedAt = now
	}

	if err := sm.store.SaveFlowState(*flowState); err != nil {
		slog.Error("StateManager SetCurrentState save error", "error", err, "sessionID", sessionID, "flowType", flowType, "state", state)
		return err
	}

	slog.Debug("StateManager SetCurrentState succeeded", "sessionID", sessionID, "flowType", flowType, "state", state)
	return nil
}

// GetStateData retrieves additional data associated with the session's state.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey) (string, error) {
	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager GetStateData error", "error", err, "sessionID", sessionID, "flowType", flowType, "key", key)
		return "", err
	}

	if flowState == nil || flowState.StateData == nil {
		return "", nil
	}

	return flowState.StateData[string(key)], nil
}

// SetStateData stores additional data associated with the session's state.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey, value string) error {
	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager SetStateData get error", "error", err, "sessionID", sessionID, "flowType", flowType, "key", key)
		return err
	}

	now := time.Now()
	if flowState == nil {
		flowState = &models.FlowState{
			SessionID: sessionID,
			FlowType:  string(flowType),
			StateData: map[string]string{string(key): value},
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		if flowState.StateData == nil {
			flowState.StateData = make(map[string]string)
		}
		flowState.StateData[string(key)] = value
		flowState.UpdatedAt = now
	}

	if err := sm.store.SaveFlowState(*flowState); err != nil {
		slog.Error("StateManager SetStateData save error", "error", err, "sessionID", sessionID, "flowType", flowType, "key", key)
		return err
	}

	return nil
}

// TransitionState transitions from one state to another.
func (sm *StoreBasedStateManager) TransitionState(ctx context.Context, sessionID string, flowType models.FlowType, fromState, toState models.StateType) error {
	currentState, err := sm.GetCurrentState(ctx, sessionID, flowType)
	if err != nil {
		slog.Error("StateManager TransitionState get current state error", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}

	if currentState != fromState {
		err := fmt.Errorf("invalid state transition: expected %s, current is %s", fromState, currentState)
		slog.Error("StateManager TransitionState invalid transition", "error", err, "sessionID", sessionID, "flowType", flowType, "expected", fromState, "current", currentState)
		return err
	}

	if err := sm.SetCurrentState(ctx, sessionID, flowType, toState); err != nil {
		slog.Error("StateManager TransitionState set state error", "error", err, "sessionID", sessionID, "flowType", flowType, "to", toState)
		return err
	}

	slog.Info("StateManager TransitionState succeeded", "sessionID", sessionID, "flowType", flowType, "from", fromState, "to", toState)
	return nil
}

// ResetState removes all state data for a session in a flow.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, sessionID string, flowType models.FlowType) error {
	if err := sm.store.DeleteFlowState(sessionID, string(flowType)); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}

	slog.Info("StateManager ResetState succeeded", "sessionID", sessionID, "flowType", flowType)
	return nil
}
