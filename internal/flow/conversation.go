// Package flow provides conversation history types shared by the onboarding
// and consultation flows.
package flow

import (
	"encoding/json"
	"time"
)

// ConversationMessage represents a single message in the conversation history.
type ConversationMessage struct {
	Role      string    `json:"role"`      // "user" or "assistant"
	Content   string    `json:"content"`   // message content
	Timestamp time.Time `json:"timestamp"` // when the message was sent
}

// ConversationHistory represents the full conversation history for a session.
// The transcript is append-only and defines what is passed to the model.
type ConversationHistory struct {
	Messages []ConversationMessage `json:"messages"`
}

// UserMessageCount returns the number of user messages in the transcript,
// which is the exchange count the turn budget is measured against.
func (h *ConversationHistory) UserMessageCount() int {
	count := 0
	for _, msg := range h.Messages {
		if msg.Role == "user" {
			count++
		}
	}
	return count
}

// ToJSON serializes the history for state-data storage.
func (h *ConversationHistory) ToJSON() (string, error) {
	data, err := json.Marshal(h)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FromJSON deserializes a history from state-data storage.
func (h *ConversationHistory) FromJSON(data string) error {
	return json.Unmarshal([]byte(data), h)
}
