// Package models defines state management structures for NatureScripts flows.
package models

import (
	"encoding/json"
	"time"
)

// FlowType identifies which conversational flow a session is in.
type FlowType string

const (
	// FlowTypeOnboarding is the fixed-question intake dialogue.
	FlowTypeOnboarding FlowType = "onboarding"
	// FlowTypeConsultation is the tier-aware live consultation chat.
	FlowTypeConsultation FlowType = "consultation"
)

// StateType represents a state within a flow.
type StateType string

// DataKey identifies a value stored alongside a flow state.
type DataKey string

const (
	// DataKeyOnboardingState stores the serialized OnboardingState.
	DataKeyOnboardingState DataKey = "onboarding_state"
	// DataKeyConversationHistory stores the serialized conversation transcript.
	DataKeyConversationHistory DataKey = "conversation_history"
	// DataKeyHealthContext stores the serialized structured health context.
	DataKeyHealthContext DataKey = "health_context"
)

// FlowState represents the current state of a session in a flow.
type FlowState struct {
	SessionID    string             `json:"session_id"`
	FlowType     FlowType           `json:"flow_type"`
	CurrentState StateType          `json:"current_state"`
	StateData    map[DataKey]string `json:"state_data,omitempty"` // Additional state-specific data
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// OnboardingStep enumerates the fixed onboarding dialogue stages in order.
type OnboardingStep string

const (
	StepInitial        OnboardingStep = "initial"
	StepAskName        OnboardingStep = "ask_name"
	StepAskDuration    OnboardingStep = "ask_duration"
	StepClarifying     OnboardingStep = "clarifying"
	StepAskConditions  OnboardingStep = "ask_conditions"
	StepAskMedications OnboardingStep = "ask_medications"
	StepAskEmail       OnboardingStep = "ask_email"
	StepReady          OnboardingStep = "ready"
	StepComplete       OnboardingStep = "complete"
)

// onboardingStepOrder fixes the forward-only ordering of onboarding steps.
var onboardingStepOrder = map[OnboardingStep]int{
	StepInitial:        0,
	StepAskName:        1,
	StepAskDuration:    2,
	StepClarifying:     3,
	StepAskConditions:  4,
	StepAskMedications: 5,
	StepAskEmail:       6,
	StepReady:          7,
	StepComplete:       8,
}

// StepOrder returns the position of a step in the fixed onboarding order,
// or -1 when the step is unknown.
func StepOrder(step OnboardingStep) int {
	if idx, ok := onboardingStepOrder[step]; ok {
		return idx
	}
	return -1
}

// OnboardingState holds the dialogue progress and collected fields for one
// onboarding session. Fields are populated exactly once as the matching step
// completes and are never cleared within a conversation.
type OnboardingState struct {
	SessionID        string         `json:"session_id"`
	Step             OnboardingStep `json:"step"`
	FirstName        string         `json:"first_name,omitempty"`
	PrimaryConcern   string         `json:"primary_concern,omitempty"`
	Duration         string         `json:"duration,omitempty"`
	Clarification    string         `json:"clarification,omitempty"`
	HealthConditions string         `json:"health_conditions,omitempty"`
	Medications      string         `json:"medications,omitempty"`
	Email            string         `json:"email,omitempty"`
	EmailRetries     int            `json:"email_retries,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// ToJSON serializes the onboarding state for state-data storage.
func (s *OnboardingState) ToJSON() (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes an onboarding state from state-data storage.
func (s *OnboardingState) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), s)
}
