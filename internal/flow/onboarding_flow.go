// Package flow provides the store-backed onboarding flow service wrapping
// the pure step transition engine.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/genai"
	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	"github.com/openai/openai-go"
)

// UsageRecorder tracks model-call usage aggregated by day. Persisted through
// the store so counts survive process restarts.
type UsageRecorder interface {
	IncrementDailyUsage(day string, calls int) error
}

// UsageDayFormat is the key format for daily usage counters.
const UsageDayFormat = "2006-01-02"

// OnboardingFlow drives the fixed-question onboarding dialogue, persisting
// state between turns and performing the single clarifying model call when
// the engine signals for it.
type OnboardingFlow struct {
	stateManager StateManager
	genaiClient  genai.ClientInterface
	engine       *Engine
	usage        UsageRecorder // optional; nil disables usage tracking
}

// NewOnboardingFlow creates an onboarding flow with dependencies.
func NewOnboardingFlow(stateManager StateManager, genaiClient genai.ClientInterface, engine *Engine, usage UsageRecorder) *OnboardingFlow {
	slog.Debug("OnboardingFlow.NewOnboardingFlow: creating flow with dependencies", "hasGenAI", genaiClient != nil, "hasUsage", usage != nil)
	return &OnboardingFlow{
		stateManager: stateManager,
		genaiClient:  genaiClient,
		engine:       engine,
		usage:        usage,
	}
}

// ProcessMessage applies one user message to the session's onboarding state.
// State is persisted only after the turn fully succeeds, so a failed model
// call leaves the state unchanged and the same turn can be resubmitted.
func (f *OnboardingFlow) ProcessMessage(ctx context.Context, sessionID, message string) (string, *models.OnboardingState, error) {
	slog.Debug("OnboardingFlow.ProcessMessage: processing message", "sessionID", sessionID)

	state, err := f.loadState(ctx, sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load onboarding state: %w", err)
	}

	result := f.engine.Transition(state, message)

	reply := result.Reply
	if result.NeedsModelCall {
		if result.ModelCallKind != ModelCallClarifying {
			return "", nil, fmt.Errorf("unexpected model call kind %q in onboarding", result.ModelCallKind)
		}
		reply, err = f.generateClarifyingQuestion(ctx, state)
		if err != nil {
			// State is not saved; the turn can be resubmitted as-is.
			slog.Error("OnboardingFlow.ProcessMessage: clarifying question generation failed", "error", err, "sessionID", sessionID)
			return "", nil, fmt.Errorf("failed to generate clarifying question: %w", err)
		}
	}

	if err := f.saveState(ctx, sessionID, state); err != nil {
		return "", nil, fmt.Errorf("failed to save onboarding state: %w", err)
	}

	slog.Debug("OnboardingFlow.ProcessMessage: turn complete", "sessionID", sessionID, "step", state.Step, "modelCall", result.NeedsModelCall)
	return reply, state, nil
}

// CompleteSession marks a ready session complete after protocol generation.
func (f *OnboardingFlow) CompleteSession(ctx context.Context, sessionID string) error {
	state, err := f.loadState(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load onboarding state: %w", err)
	}
	state.Step = models.StepComplete
	state.UpdatedAt = time.Now()
	return f.saveState(ctx, sessionID, state)
}

// GetState returns the session's current onboarding state.
func (f *OnboardingFlow) GetState(ctx context.Context, sessionID string) (*models.OnboardingState, error) {
	return f.loadState(ctx, sessionID)
}

// HealthContext assembles the structured health context collected by the
// onboarding dialogue for protocol generation.
func (f *OnboardingFlow) HealthContext(ctx context.Context, sessionID string) (models.HealthContext, error) {
	state, err := f.loadState(ctx, sessionID)
	if err != nil {
		return models.HealthContext{}, err
	}
	return BuildHealthContext(state), nil
}

// BuildHealthContext maps collected onboarding fields into a HealthContext.
// "None mentioned" answers contribute nothing.
func BuildHealthContext(state *models.OnboardingState) models.HealthContext {
	var hc models.HealthContext

	if state.HealthConditions != "" && state.HealthConditions != NoneMentioned {
		hc.Conditions = []string{state.HealthConditions}
	}
	if state.Medications != "" && state.Medications != NoneMentioned {
		hc.Medications = []models.Medication{{Name: state.Medications}}
	}

	var notes []string
	if state.PrimaryConcern != "" {
		notes = append(notes, "Primary concern: "+state.PrimaryConcern)
	}
	if state.Duration != "" {
		notes = append(notes, "Duration and other symptoms: "+state.Duration)
	}
	if state.Clarification != "" {
		notes = append(notes, "Additional detail: "+state.Clarification)
	}
	hc.Notes = strings.Join(notes, "\n")

	return hc
}

// generateClarifyingQuestion performs the single paid model call of the
// onboarding flow and records it against the daily usage counter.
func (f *OnboardingFlow) generateClarifyingQuestion(ctx context.Context, state *models.OnboardingState) (string, error) {
	if f.genaiClient == nil {
		// No model configured; the canned fallback keeps the dialogue moving.
		return clarifyingFallbackQuestion, nil
	}

	systemPrompt, userPrompt := BuildClarifyingPrompt(state)
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userPrompt),
	}

	response, err := f.genaiClient.GenerateWithMessages(ctx, messages)
	if err != nil {
		return "", err
	}
	f.recordUsage(1)
	return strings.TrimSpace(response), nil
}

func (f *OnboardingFlow) recordUsage(calls int) {
	if f.usage == nil {
		return
	}
	day := time.Now().Format(UsageDayFormat)
	if err := f.usage.IncrementDailyUsage(day, calls); err != nil {
		slog.Warn("OnboardingFlow: failed to record usage", "error", err, "day", day)
	}
}

// loadState reads the session's onboarding state, returning a fresh initial
// state when none exists yet.
func (f *OnboardingFlow) loadState(ctx context.Context, sessionID string) (*models.OnboardingState, error) {
	data, err := f.stateManager.GetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyOnboardingState)
	if err != nil {
		return nil, err
	}
	if data == "" {
		now := time.Now()
		return &models.OnboardingState{
			SessionID: sessionID,
			Step:      models.StepInitial,
			CreatedAt: now,
			UpdatedAt: now,
		}, nil
	}

	var state models.OnboardingState
	if err := state.FromJSON(data); err != nil {
		return nil, fmt.Errorf("failed to parse onboarding state: %w", err)
	}
	return &state, nil
}

// saveState persists the onboarding state and mirrors the step as the
// flow's current state for observability.
func (f *OnboardingFlow) saveState(ctx context.Context, sessionID string, state *models.OnboardingState) error {
	data, err := state.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to serialize onboarding state: %w", err)
	}
	if err := f.stateManager.SetStateData(ctx, sessionID, models.FlowTypeOnboarding, models.DataKeyOnboardingState, data); err != nil {
		return err
	}
	if err := f.stateManager.SetCurrentState(ctx, sessionID, models.FlowTypeOnboarding, models.StateType(state.Step)); err != nil {
		slog.Warn("OnboardingFlow.saveState: failed to mirror current state", "error", err, "sessionID", sessionID)
	}
	return nil
}
