// Package flow provides state management for conversational sessions.
package flow

import (
	"context"
	"log/slog"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	"github.com/joelbyler272/naturescripts-sub000/internal/store"
)

// StateManager defines how flows read and write per-session state. State is
// scoped to one session; flows never share state across sessions.
type StateManager interface {
	GetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType) (models.StateType, error)
	SetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType, state models.StateType) error
	GetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey) (string, error)
	SetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey, value string) error
	ResetState(ctx context.Context, sessionID string, flowType models.FlowType) error
}

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
	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager.GetCurrentState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return "", err
	}
	if flowState == nil {
		return "", nil
	}
	return flowState.CurrentState, nil
}

// SetCurrentState updates the current state for a session in a flow.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, sessionID string, flowType models.FlowType, state models.StateType) error {
	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager.SetCurrentState get failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}

	now := time.Now()
	if flowState == nil {
		flowState = &models.FlowState{
			SessionID:    sessionID,
			FlowType:     flowType,
			CurrentState: state,
			StateData:    make(map[models.DataKey]string),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	} else {
		flowState.CurrentState = state
		flowState.UpdatedAt = now
	}

	if err := sm.store.SaveFlowState(*flowState); err != nil {
		slog.Error("StateManager.SetCurrentState save failed", "error", err, "sessionID", sessionID, "flowType", flowType, "state", state)
		return err
	}
	slog.Debug("StateManager.SetCurrentState succeeded", "sessionID", sessionID, "flowType", flowType, "state", state)
	return nil
}

// GetStateData retrieves additional data associated with the session's state.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey) (string, error) {
	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager.GetStateData failed", "error", err, "sessionID", sessionID, "flowType", flowType, "key", key)
		return "", err
	}
	if flowState == nil || flowState.StateData == nil {
		return "", nil
	}
	return flowState.StateData[key], nil
}

// SetStateData stores additional data associated with the session's state.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, sessionID string, flowType models.FlowType, key models.DataKey, value string) error {
	flowState, err := sm.store.GetFlowState(sessionID, string(flowType))
	if err != nil {
		slog.Error("StateManager.SetStateData get failed", "error", err, "sessionID", sessionID, "flowType", flowType, "key", key)
		return err
	}

	now := time.Now()
	if flowState == nil {
		flowState = &models.FlowState{
			SessionID: sessionID,
			FlowType:  flowType,
			StateData: map[models.DataKey]string{key: value},
			CreatedAt: now,
			UpdatedAt: now,
		}
	} else {
		if flowState.StateData == nil {
			flowState.StateData = make(map[models.DataKey]string)
		}
		flowState.StateData[key] = value
		flowState.UpdatedAt = now
	}

	if err := sm.store.SaveFlowState(*flowState); err != nil {
		slog.Error("StateManager.SetStateData save failed", "error", err, "sessionID", sessionID, "flowType", flowType, "key", key)
		return err
	}
	return nil
}

// ResetState removes all state data for a session in a flow.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, sessionID string, flowType models.FlowType) error {
	if err := sm.store.DeleteFlowState(sessionID, string(flowType)); err != nil {
		slog.Error("StateManager.ResetState failed", "error", err, "sessionID", sessionID, "flowType", flowType)
		return err
	}
	slog.Info("StateManager.ResetState succeeded", "sessionID", sessionID, "flowType", flowType)
	return nil
}
