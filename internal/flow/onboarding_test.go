package flow

import (
	"testing"
	"time"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

func newTestState() *models.OnboardingState {
	now := time.Now()
	return &models.OnboardingState{
		SessionID: "ses_test",
		Step:      models.StepInitial,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestEngineFullOnboardingScenario(t *testing.T) {
	engine := NewEngine()
	state := newTestState()

	messages := []string{
		"I'm exhausted all the time",
		"Jordan",
		"about two months, also some bloating",
		"mornings are worst, I drink 4 coffees a day",
		"no conditions",
		"no medications",
		"jordan@example.com",
	}

	modelCalls := 0
	for i, msg := range messages {
		result := engine.Transition(state, msg)
		if result.NeedsModelCall {
			modelCalls++
			if i != 2 {
				t.Errorf("model call signaled at transition %d, want transition 2", i)
			}
			if result.ModelCallKind != ModelCallClarifying {
				t.Errorf("model call kind = %q, want %q", result.ModelCallKind, ModelCallClarifying)
			}
		}
	}

	if modelCalls != 1 {
		t.Errorf("model calls = %d, want exactly 1", modelCalls)
	}
	if state.Step != models.StepReady {
		t.Errorf("final step = %q, want %q", state.Step, models.StepReady)
	}
	if state.FirstName != "Jordan" {
		t.Errorf("firstName = %q, want %q", state.FirstName, "Jordan")
	}
	if state.PrimaryConcern != "I'm exhausted all the time" {
		t.Errorf("primaryConcern = %q", state.PrimaryConcern)
	}
	if state.HealthConditions != NoneMentioned {
		t.Errorf("healthConditions = %q, want %q", state.HealthConditions, NoneMentioned)
	}
	if state.Medications != NoneMentioned {
		t.Errorf("medications = %q, want %q", state.Medications, NoneMentioned)
	}
	if state.Email != "jordan@example.com" {
		t.Errorf("email = %q, want %q", state.Email, "jordan@example.com")
	}
}

func TestEngineStepMonotonicity(t *testing.T) {
	engine := NewEngine()

	steps := []models.OnboardingStep{
		models.StepInitial,
		models.StepAskName,
		models.StepAskDuration,
		models.StepClarifying,
		models.StepAskConditions,
		models.StepAskMedications,
		models.StepAskEmail,
		models.StepReady,
		models.StepComplete,
	}
	inputs := []string{"", "hello there", "a while", "some detail", "asthma", "ibuprofen", "not an email", "go", "done"}

	for i, step := range steps {
		state := newTestState()
		state.Step = step
		before := models.StepOrder(step)

		engine.Transition(state, inputs[i])
		after := models.StepOrder(state.Step)

		if after < before {
			t.Errorf("step %q regressed to %q", step, state.Step)
		}
		if step == models.StepAskEmail {
			// Invalid email is the only legal self-loop.
			if after != before {
				t.Errorf("ask_email with invalid input advanced to %q", state.Step)
			}
		} else if step != models.StepReady && step != models.StepComplete && after == before {
			t.Errorf("step %q did not advance", step)
		}
	}
}

func TestEngineEmailSelfLoop(t *testing.T) {
	engine := NewEngineWithEmailRetries(0) // no cap
	state := newTestState()
	state.Step = models.StepAskEmail

	for i := 0; i < 5; i++ {
		result := engine.Transition(state, "still no email")
		if state.Step != models.StepAskEmail {
			t.Fatalf("step = %q after %d invalid attempts, want ask_email", state.Step, i+1)
		}
		if result.NeedsModelCall {
			t.Fatal("email retry must not trigger a model call")
		}
		if result.Reply != replyEmailRetry {
			t.Errorf("reply = %q, want retry reply", result.Reply)
		}
	}

	result := engine.Transition(state, "it's JORDAN@Example.COM sorry")
	if state.Step != models.StepReady {
		t.Errorf("step = %q after valid email, want ready", state.Step)
	}
	if state.Email != "jordan@example.com" {
		t.Errorf("email = %q, want lowercased address", state.Email)
	}
	if result.Reply == "" {
		t.Error("expected a confirmation reply")
	}
}

func TestEngineEmailRetryCap(t *testing.T) {
	engine := NewEngineWithEmailRetries(3)
	state := newTestState()
	state.Step = models.StepAskEmail

	engine.Transition(state, "nope")
	engine.Transition(state, "still nope")
	if state.Step != models.StepAskEmail {
		t.Fatalf("step = %q before cap, want ask_email", state.Step)
	}

	result := engine.Transition(state, "never")
	if state.Step != models.StepReady {
		t.Errorf("step = %q after exhausting retries, want ready", state.Step)
	}
	if state.Email != "" {
		t.Errorf("email = %q, want empty after give-up", state.Email)
	}
	if result.Reply != replyEmailGiveUp {
		t.Errorf("reply = %q, want give-up reply", result.Reply)
	}
}

func TestEngineFieldsAppendOnly(t *testing.T) {
	engine := NewEngine()
	state := newTestState()

	engine.Transition(state, "chronic headaches")
	concern := state.PrimaryConcern
	engine.Transition(state, "Sam")
	if state.PrimaryConcern != concern {
		t.Error("primaryConcern changed after being set")
	}

	// Terminal states never clear collected fields.
	state.Step = models.StepComplete
	engine.Transition(state, "anything")
	if state.PrimaryConcern != concern || state.FirstName != "Sam" {
		t.Error("terminal transition mutated collected fields")
	}
}

func TestEngineVerbatimStorageForNonSkip(t *testing.T) {
	engine := NewEngine()
	state := newTestState()
	state.Step = models.StepAskMedications

	engine.Transition(state, "ibuprofen 200mg")
	if state.Medications != "ibuprofen 200mg" {
		t.Errorf("medications = %q, want verbatim message", state.Medications)
	}
}

func TestEngineUnknownStepResets(t *testing.T) {
	engine := NewEngine()
	state := newTestState()
	state.Step = models.OnboardingStep("corrupted")
	state.FirstName = "Sam"

	result := engine.Transition(state, "hello?")
	if state.Step != models.StepInitial {
		t.Errorf("step = %q after reset, want initial", state.Step)
	}
	if state.FirstName != "" {
		t.Error("reset state kept stale fields")
	}
	if result.Reply != replyRestart {
		t.Errorf("reply = %q, want restart prompt", result.Reply)
	}
}

func TestEngineEmptyMessagesAreValidInput(t *testing.T) {
	engine := NewEngine()
	state := newTestState()

	engine.Transition(state, "")
	if state.Step != models.StepAskName {
		t.Errorf("step = %q, want ask_name", state.Step)
	}
	if state.PrimaryConcern != "" {
		t.Errorf("primaryConcern = %q, want empty string stored", state.PrimaryConcern)
	}
}

func TestEngineReadyIsIdempotent(t *testing.T) {
	engine := NewEngine()
	state := newTestState()
	state.Step = models.StepReady

	for i := 0; i < 3; i++ {
		result := engine.Transition(state, "generate please")
		if state.Step != models.StepReady {
			t.Fatalf("step = %q, ready must not advance on its own", state.Step)
		}
		if result.NeedsModelCall {
			t.Fatal("ready state must not trigger a model call")
		}
	}
}
