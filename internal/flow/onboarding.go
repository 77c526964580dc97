// Package flow provides the onboarding step transition engine.
//
// The engine is a pure, deterministic state machine over a fixed question
// sequence. Every step except ask_duration answers with canned text; only
// the ask_duration step signals a model call, which keeps the paid call
// count per onboarding at two (one clarifying question, one protocol
// generation).
package flow

import (
	"fmt"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// ModelCallKind identifies why the engine is asking for a model call.
type ModelCallKind string

const (
	// ModelCallClarifying requests a personalized clarifying question.
	ModelCallClarifying ModelCallKind = "clarifying"
	// ModelCallProtocol requests full protocol generation.
	ModelCallProtocol ModelCallKind = "protocol"
)

// TransitionResult is the outcome of applying one user message to the
// onboarding state machine.
type TransitionResult struct {
	Reply          string
	NeedsModelCall bool
	ModelCallKind  ModelCallKind
}

// DefaultEmailMaxRetries caps consecutive failed email extractions before
// the engine gives up on collecting an address and moves on.
const DefaultEmailMaxRetries = 3

// Canned replies for the onboarding dialogue.
const (
	replyAskName = "Thanks for sharing that with me. Before we go further, what's your first name?"

	replyAskDurationFmt = "Nice to meet you, %s! How long has this been going on, and are there any other symptoms you've noticed?"

	replyAskConditions = "That's really helpful context. Do you have any existing health conditions I should know about? If you'd rather not say right now, just reply \"none\" — you can always add this later."

	replyAskMedications = "Got it. Are you currently taking any medications or supplements? Same deal — reply \"none\" if not, and you can add these later."

	replyAskEmail = "Almost done! What's the best email address for you? I'll send your personalized protocol there once it's ready."

	replyEmailRetry = "Hmm, that doesn't look like an email address. Could you double-check it? For example: you@example.com"

	replyEmailGiveUp = "No problem — we can sort out your email later through support. I have everything I need to put your protocol together. Say the word and I'll get started!"

	replyReadyFmt = "Perfect, thanks %s! I have everything I need to put together your personalized natural health protocol. Say the word and I'll get started!"

	replyGeneratePrompt = "I'm ready when you are — just ask me to generate your protocol."

	replyComplete = "Your protocol is ready! Check your email, or view it right here anytime."

	replyRestart = "Sorry, something went wrong with our conversation. Let's start over — what's the main health concern you'd like help with?"
)

// clarifyingFallbackQuestion is used if the model cannot produce a
// clarifying question; the dialogue still advances.
const clarifyingFallbackQuestion = "Is there anything else about your symptoms — timing, triggers, what makes them better or worse — that you think I should know?"

// Engine encodes the fixed onboarding question sequence. The zero value is
// not usable; construct with NewEngine.
type Engine struct {
	emailMaxRetries int // 0 disables the cap and email re-prompts forever
}

// NewEngine creates an onboarding engine with the default email retry cap.
func NewEngine() *Engine {
	return &Engine{emailMaxRetries: DefaultEmailMaxRetries}
}

// NewEngineWithEmailRetries creates an onboarding engine with a custom cap
// on failed email extractions. A cap of 0 re-prompts indefinitely.
func NewEngineWithEmailRetries(maxRetries int) *Engine {
	return &Engine{emailMaxRetries: maxRetries}
}

// Transition applies one incoming user message to the state, mutating it in
// place and returning the reply. The step only ever advances in the fixed
// order; the single exception is ask_email, which self-loops while address
// extraction fails. Empty or malformed messages are treated as valid input
// at every step except ask_email.
func (e *Engine) Transition(state *models.OnboardingState, message string) TransitionResult {
	state.UpdatedAt = time.Now()

	switch state.Step {
	case models.StepInitial:
		state.PrimaryConcern = message
		state.Step = models.StepAskName
		return TransitionResult{Reply: replyAskName}

	case models.StepAskName:
		state.FirstName = ExtractFirstName(message)
		state.Step = models.StepAskDuration
		return TransitionResult{Reply: fmt.Sprintf(replyAskDurationFmt, state.FirstName)}

	case models.StepAskDuration:
		state.Duration = message
		state.Step = models.StepClarifying
		// The one paid model call in this flow: a personalized clarifying
		// question instead of canned text.
		return TransitionResult{NeedsModelCall: true, ModelCallKind: ModelCallClarifying}

	case models.StepClarifying:
		state.Clarification = message
		state.Step = models.StepAskConditions
		return TransitionResult{Reply: replyAskConditions}

	case models.StepAskConditions:
		if IsSkipResponse(message) {
			state.HealthConditions = NoneMentioned
		} else {
			state.HealthConditions = message
		}
		state.Step = models.StepAskMedications
		return TransitionResult{Reply: replyAskMedications}

	case models.StepAskMedications:
		if IsSkipResponse(message) {
			state.Medications = NoneMentioned
		} else {
			state.Medications = message
		}
		state.Step = models.StepAskEmail
		return TransitionResult{Reply: replyAskEmail}

	case models.StepAskEmail:
		email, ok := ExtractEmail(message)
		if !ok {
			state.EmailRetries++
			if e.emailMaxRetries > 0 && state.EmailRetries >= e.emailMaxRetries {
				state.Step = models.StepReady
				return TransitionResult{Reply: replyEmailGiveUp}
			}
			return TransitionResult{Reply: replyEmailRetry}
		}
		state.Email = email
		state.Step = models.StepReady
		return TransitionResult{Reply: fmt.Sprintf(replyReadyFmt, state.FirstName)}

	case models.StepReady:
		// Idempotent: generation is triggered by an explicit external action.
		return TransitionResult{Reply: replyGeneratePrompt}

	case models.StepComplete:
		return TransitionResult{Reply: replyComplete}

	default:
		// Defensive fallback for corrupted state; never reachable in
		// correct operation.
		*state = models.OnboardingState{
			SessionID: state.SessionID,
			Step:      models.StepInitial,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		return TransitionResult{Reply: replyRestart}
	}
}
