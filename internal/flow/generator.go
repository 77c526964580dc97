// Package flow provides protocol generation orchestration: prompt assembly,
// the generation model call, tolerant parsing, and persistence.
package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/genai"
	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	"github.com/openai/openai-go"
)

// ProtocolSaver persists generated protocols keyed by session.
type ProtocolSaver interface {
	SaveProtocol(p models.Protocol) error
}

// ProtocolGenerator produces a protocol for a session from its accumulated
// health context and transcript.
type ProtocolGenerator struct {
	stateManager StateManager
	genaiClient  genai.ClientInterface
	parser       *ProtocolParser
	protocols    ProtocolSaver
	usage        UsageRecorder
}

// NewProtocolGenerator creates a protocol generator with dependencies.
func NewProtocolGenerator(stateManager StateManager, genaiClient genai.ClientInterface, parser *ProtocolParser, protocols ProtocolSaver, usage UsageRecorder) *ProtocolGenerator {
	slog.Debug("ProtocolGenerator.NewProtocolGenerator: creating generator", "hasGenAI", genaiClient != nil, "hasSaver", protocols != nil)
	return &ProtocolGenerator{
		stateManager: stateManager,
		genaiClient:  genaiClient,
		parser:       parser,
		protocols:    protocols,
		usage:        usage,
	}
}

// Generate builds the prompt, calls the model, parses the output, and
// persists the result. Conversation state is never rolled back on failure,
// so the user can retry generation with the same accumulated context.
func (g *ProtocolGenerator) Generate(ctx context.Context, sessionID string, tier models.Tier) (*models.Protocol, error) {
	slog.Info("ProtocolGenerator.Generate: generating protocol", "sessionID", sessionID, "tier", tier)

	healthCtx, err := g.loadHealthContext(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load health context: %w", err)
	}
	history, err := g.loadHistory(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	prompt := BuildProtocolPrompt(tier, healthCtx, history)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(prompt),
	}

	output, err := g.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		slog.Error("ProtocolGenerator.Generate: model call failed", "error", err, "sessionID", sessionID)
		return nil, fmt.Errorf("protocol model call failed: %w", err)
	}
	g.recordUsage(1)

	protocol, err := g.parser.Parse(output, tier)
	if err != nil {
		slog.Error("ProtocolGenerator.Generate: parse failed", "error", err, "sessionID", sessionID, "outputLength", len(output))
		return nil, fmt.Errorf("failed to parse protocol: %w", err)
	}
	protocol.SessionID = sessionID

	if g.protocols != nil {
		if err := g.protocols.SaveProtocol(*protocol); err != nil {
			slog.Warn("ProtocolGenerator.Generate: failed to persist protocol", "error", err, "sessionID", sessionID, "protocolID", protocol.ID)
		}
	}

	slog.Info("ProtocolGenerator.Generate: protocol generated", "sessionID", sessionID, "protocolID", protocol.ID, "recommendations", len(protocol.Recommendations))
	return protocol, nil
}

// loadHealthContext prefers an explicitly stored health context, falling
// back to the context collected during onboarding.
func (g *ProtocolGenerator) loadHealthContext(ctx context.Context, sessionID string) (models.HealthContext, error) {
	data, err := g.stateManager.GetStateData(ctx, sessionID, models.FlowTypeConsultation, models.DataKeyHealthContext)
	if err != nil {
		return models.HealthContext{}, err
	}
	if data != "" {
		var hc models.HealthContext
		if err := json.Unmarshal([]byte(data), &hc); err != nil {
			return models.HealthContext{}, fmt.Errorf("failed to parse health context: %w", err)
		}
		return hc, nil
	}

	stateData, err := g.stateManager.GetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyOnboardingState)
	if err != nil {
		return models.HealthContext{}, err
	}
	if stateData == "" {
		return models.HealthContext{}, nil
	}
	var state models.OnboardingState
	if err := state.FromJSON(stateData); err != nil {
		return models.HealthContext{}, fmt.Errorf("failed to parse onboarding state: %w", err)
	}
	return BuildHealthContext(&state), nil
}

func (g *ProtocolGenerator) loadHistory(ctx context.Context, sessionID string) ([]ConversationMessage, error) {
	data, err := g.stateManager.GetStateData(ctx, sessionID, models.FlowTypeConsultation, models.DataKeyConversationHistory)
	if err != nil {
		return nil, err
	}
	if data == "" {
		return nil, nil
	}
	var history ConversationHistory
	if err := history.FromJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse conversation history: %w", err)
	}
	return history.Messages, nil
}

func (g *ProtocolGenerator) recordUsage(calls int) {
	if g.usage == nil {
		return
	}
	day := time.Now().Format(UsageDayFormat)
	if err := g.usage.IncrementDailyUsage(day, calls); err != nil {
		slog.Warn("ProtocolGenerator: failed to record usage", "error", err, "day", day)
	}
}
