// Package flow provides the tier-aware live consultation chat flow.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/genai"
	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	"github.com/openai/openai-go"
)

// ConsultationResult is the outcome of one consultation chat turn.
type ConsultationResult struct {
	Reply             string `json:"reply"`
	IsReadyToGenerate bool   `json:"is_ready_to_generate"`
}

// ConsultationFlow runs the live consultation chat: each user turn goes to
// the model with the full transcript, and every assistant reply is scanned
// for the readiness signal. Readiness detection is a heuristic; callers must
// always allow the user to request generation manually.
type ConsultationFlow struct {
	stateManager StateManager
	genaiClient  genai.ClientInterface
	budget       TurnBudgetPolicy
	usage        UsageRecorder

	mu       sync.Mutex
	inflight map[string]*inflightTurn // sessionID -> the outstanding model call
}

// inflightTurn tracks the cancel handle for a session's outstanding turn.
type inflightTurn struct {
	cancel context.CancelFunc
}

// NewConsultationFlow creates a consultation flow with dependencies.
func NewConsultationFlow(stateManager StateManager, genaiClient genai.ClientInterface, usage UsageRecorder) *ConsultationFlow {
	slog.Debug("ConsultationFlow.NewConsultationFlow: creating flow with dependencies", "hasGenAI", genaiClient != nil)
	return &ConsultationFlow{
		stateManager: stateManager,
		genaiClient:  genaiClient,
		usage:        usage,
		inflight:     make(map[string]*inflightTurn),
	}
}

// ProcessMessage applies one user turn. A new turn arriving while a prior
// model call for the same session is outstanding cancels the prior call
// (last-request-wins; no queuing). The transcript is persisted only after a
// successful model reply, so a failed turn can be resubmitted unchanged.
func (f *ConsultationFlow) ProcessMessage(ctx context.Context, sessionID string, tier models.Tier, message string) (*ConsultationResult, error) {
	slog.Debug("ConsultationFlow.ProcessMessage: processing message", "sessionID", sessionID, "tier", tier)

	ctx, done := f.claimSession(ctx, sessionID)
	defer done()

	history, err := f.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	history.Messages = append(history.Messages, ConversationMessage{
		Role:      "user",
		Content:   message,
		Timestamp: time.Now(),
	})

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(BuildConsultationSystemPrompt(tier)),
	}
	for _, msg := range history.Messages {
		switch msg.Role {
		case "user":
			messages = append(messages, openai.UserMessage(msg.Content))
		case "assistant":
			messages = append(messages, openai.AssistantMessage(msg.Content))
		}
	}
	if f.budget.BudgetExhausted(tier, history.UserMessageCount()) {
		messages = append(messages, openai.SystemMessage(WrapUpInstruction))
	}

	reply, err := f.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("ConsultationFlow.ProcessMessage: model call failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("consultation model call failed: %w", err)
	}
	f.recordUsage(1)

	history.Messages = append(history.Messages, ConversationMessage{
		Role:      "assistant",
		Content:   reply,
		Timestamp: time.Now(),
	})
	if err := f.saveHistory(ctx, sessionID, history); err != nil {
		slog.Warn("ConsultationFlow.ProcessMessage: failed to save history", "error", err, "sessionID", sessionID)
	}

	ready := ContainsReadinessSignal(reply)
	slog.Debug("ConsultationFlow.ProcessMessage: turn complete", "sessionID", sessionID, "ready", ready, "exchanges", history.UserMessageCount())
	return &ConsultationResult{Reply: reply, IsReadyToGenerate: ready}, nil
}

// History returns the session's transcript.
func (f *ConsultationFlow) History(ctx context.Context, sessionID string) (*ConversationHistory, error) {
	return f.loadHistory(ctx, sessionID)
}

// claimSession cancels any outstanding model call for the session and
// registers this turn as the new in-flight one.
func (f *ConsultationFlow) claimSession(ctx context.Context, sessionID string) (context.Context, func()) {
	turnCtx, cancel := context.WithCancel(ctx)
	turn := &inflightTurn{cancel: cancel}

	f.mu.Lock()
	if prior, ok := f.inflight[sessionID]; ok {
		slog.Debug("ConsultationFlow.claimSession: canceling outstanding turn", "sessionID", sessionID)
		prior.cancel()
	}
	f.inflight[sessionID] = turn
	f.mu.Unlock()

	return turnCtx, func() {
		f.mu.Lock()
		if f.inflight[sessionID] == turn {
			delete(f.inflight, sessionID)
		}
		f.mu.Unlock()
		cancel()
	}
}

func (f *ConsultationFlow) recordUsage(calls int) {
	if f.usage == nil {
		return
	}
	day := time.Now().Format(UsageDayFormat)
	if err := f.usage.IncrementDailyUsage(day, calls); err != nil {
		slog.Warn("ConsultationFlow: failed to record usage", "error", err, "day", day)
	}
}

func (f *ConsultationFlow) loadHistory(ctx context.Context, sessionID string) (*ConversationHistory, error) {
	data, err := f.stateManager.GetStateData(ctx, sessionID, models.FlowTypeConsultation, models.DataKeyConversationHistory)
	if err != nil {
		return nil, err
	}
	history := &ConversationHistory{Messages: []ConversationMessage{}}
	if data == "" {
		return history, nil
	}
	if err := history.FromJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse conversation history: %w", err)
	}
	return history, nil
}

func (f *ConsultationFlow) saveHistory(ctx context.Context, sessionID string, history *ConversationHistory) error {
	data, err := history.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize conversation history: %w", err)
	}
	return f.stateManager.SetStateData(ctx, sessionID, models.FlowTypeConsultation, models.DataKeyConversationHistory, data)
}
