package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// rowScanner abstracts sql.Row and sql.Rows for shared scanning helpers.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanFlowState scans a flow_states row, deserializing the state-data JSON.
func scanFlowState(row rowScanner) (*models.FlowState, error) {
	var state models.FlowState
	var flowType, currentState, stateDataJSON string
	var createdAt, updatedAt time.Time

	if err := row.Scan(&state.SessionID, &flowType, &currentState, &stateDataJSON, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	state.FlowType = models.FlowType(flowType)
	state.CurrentState = models.StateType(currentState)
	state.CreatedAt = createdAt
	state.UpdatedAt = updatedAt

	if stateDataJSON != "" {
		if err := json.Unmarshal([]byte(stateDataJSON), &state.StateData); err != nil {
			return nil, fmt.Errorf("failed to parse state data: %w", err)
		}
	}
	return &state, nil
}
