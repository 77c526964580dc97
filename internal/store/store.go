// Package store provides storage backends for NatureScripts.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores for persistent deployments. The store holds flow
// state (the key-value state data for conversational sessions), generated
// protocols, and daily model-usage counters.
package store

import (
	"sort"
	"sync"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// Store defines the persistence operations the flows and API need.
type Store interface {
	GetFlowState(sessionID, flowType string) (*models.FlowState, error)
	SaveFlowState(state models.FlowState) error
	DeleteFlowState(sessionID, flowType string) error

	SaveProtocol(p models.Protocol) error
	GetProtocols(sessionID string) ([]models.Protocol, error)
	GetProtocol(id string) (*models.Protocol, error)

	IncrementDailyUsage(day string, calls int) error
	GetDailyUsage(day string) (int, error)

	Close() error
}

// flowStateKey identifies a flow state by session and flow type.
type flowStateKey struct {
	sessionID string
	flowType  string
}

// InMemoryStore is a thread-safe in-memory store.
type InMemoryStore struct {
	mu         sync.RWMutex
	flowStates map[flowStateKey]models.FlowState
	protocols  map[string]models.Protocol
	usage      map[string]int
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		flowStates: make(map[flowStateKey]models.FlowState),
		protocols:  make(map[string]models.Protocol),
		usage:      make(map[string]int),
	}
}

// GetFlowState returns the flow state for a session, or nil when none exists.
func (s *InMemoryStore) GetFlowState(sessionID, flowType string) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.flowStates[flowStateKey{sessionID, flowType}]
	if !ok {
		return nil, nil
	}
	// Copy the state data map so callers cannot mutate stored state.
	copied := state
	copied.StateData = make(map[models.DataKey]string, len(state.StateData))
	for k, v := range state.StateData {
		copied.StateData[k] = v
	}
	return &copied, nil
}

// SaveFlowState upserts a flow state.
func (s *InMemoryStore) SaveFlowState(state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flowStates[flowStateKey{state.SessionID, string(state.FlowType)}] = state
	return nil
}

// DeleteFlowState removes a flow state.
func (s *InMemoryStore) DeleteFlowState(sessionID, flowType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flowStates, flowStateKey{sessionID, flowType})
	return nil
}

// SaveProtocol stores a generated protocol.
func (s *InMemoryStore) SaveProtocol(p models.Protocol) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.protocols[p.ID] = p
	return nil
}

// GetProtocols returns all protocols for a session, newest first.
func (s *InMemoryStore) GetProtocols(sessionID string) ([]models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []models.Protocol
	for _, p := range s.protocols {
		if p.SessionID == sessionID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// GetProtocol returns a protocol by ID, or nil when not found.
func (s *InMemoryStore) GetProtocol(id string) (*models.Protocol, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.protocols[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// IncrementDailyUsage adds model calls to a day's usage counter.
func (s *InMemoryStore) IncrementDailyUsage(day string, calls int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage[day] += calls
	return nil
}

// GetDailyUsage returns the model-call count recorded for a day.
func (s *InMemoryStore) GetDailyUsage(day string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.usage[day], nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
