package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
	"github.com/joelbyler272/naturescripts-sub000/internal/store"
)

func newTestGenerator(client *MockGenAIClient) (*ProtocolGenerator, *StoreBasedStateManager, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	sm := NewStoreBasedStateManager(st)
	parser := NewProtocolParser(NewAffiliateEnricher(AffiliateConfig{AmazonTag: "natsc-20"}))
	return NewProtocolGenerator(sm, client, parser, st, st), sm, st
}

const generatorModelOutput = `{
	"summary": "Protocol for sleep support",
	"recommendations": [
		{"name": "Magnesium Glycinate", "type": "mineral", "dosage": "200mg", "timing": "evening",
		 "products": [{"name": "Magnesium Glycinate", "brand": "Thorne", "source": "amazon"}]}
	],
	"disclaimer": "Consult your provider."
}`

func TestGeneratePersistsProtocol(t *testing.T) {
	ctx := context.Background()
	client := &MockGenAIClient{Responses: []string{generatorModelOutput}}
	gen, sm, st := newTestGenerator(client)

	// Seed onboarding state so the health context fallback has content.
	state := &models.OnboardingState{
		SessionID:      "ses_g",
		Step:           models.StepReady,
		FirstName:      "Noah",
		PrimaryConcern: "poor sleep",
		Duration:       "three months",
	}
	data, err := state.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}
	if err := sm.SetStateData(ctx, "ses_g", models.FlowTypeOnboarding, models.DataKeyOnboardingState, data); err != nil {
		t.Fatalf("SetStateData error: %v", err)
	}

	protocol, err := gen.Generate(ctx, "ses_g", models.TierFree)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if protocol.SessionID != "ses_g" {
		t.Errorf("session id = %q", protocol.SessionID)
	}
	if protocol.Summary != "Protocol for sleep support" {
		t.Errorf("summary = %q", protocol.Summary)
	}

	// The onboarding context made it into the prompt.
	if client.CallCount() != 1 {
		t.Fatalf("model calls = %d, want 1", client.CallCount())
	}

	saved, err := st.GetProtocols("ses_g")
	if err != nil {
		t.Fatalf("GetProtocols error: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != protocol.ID {
		t.Errorf("saved protocols = %+v", saved)
	}
}

func TestGeneratePrefersStoredHealthContext(t *testing.T) {
	ctx := context.Background()
	client := &MockGenAIClient{Responses: []string{generatorModelOutput}}
	gen, sm, _ := newTestGenerator(client)

	if err := sm.SetStateData(ctx, "ses_hc", models.FlowTypeConsultation, models.DataKeyHealthContext,
		`{"conditions": ["asthma"], "notes": "uses inhaler daily"}`); err != nil {
		t.Fatalf("SetStateData error: %v", err)
	}
	// A conflicting onboarding state must be ignored when an explicit
	// health context exists.
	onboarding := &models.OnboardingState{SessionID: "ses_hc", PrimaryConcern: "anxiety"}
	data, _ := onboarding.ToJSON()
	if err := sm.SetStateData(ctx, "ses_hc", models.FlowTypeOnboarding, models.DataKeyOnboardingState, data); err != nil {
		t.Fatalf("SetStateData error: %v", err)
	}

	hc, err := gen.loadHealthContext(ctx, "ses_hc")
	if err != nil {
		t.Fatalf("loadHealthContext error: %v", err)
	}
	if len(hc.Conditions) != 1 || hc.Conditions[0] != "asthma" {
		t.Errorf("conditions = %v, want the stored context", hc.Conditions)
	}
	if strings.Contains(hc.Notes, "anxiety") {
		t.Errorf("notes = %q, must not fall back to onboarding state", hc.Notes)
	}

	if _, err := gen.Generate(ctx, "ses_hc", models.TierFree); err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if client.CallCount() != 1 {
		t.Fatalf("model calls = %d, want 1", client.CallCount())
	}
}

func TestGenerateParseFailure(t *testing.T) {
	ctx := context.Background()
	client := &MockGenAIClient{Responses: []string{"I'm sorry, I can't produce a protocol right now."}}
	gen, _, st := newTestGenerator(client)

	_, err := gen.Generate(ctx, "ses_pf", models.TierFree)
	if !errors.Is(err, ErrNoJSONFound) {
		t.Fatalf("Generate error = %v, want ErrNoJSONFound", err)
	}
	if !strings.Contains(err.Error(), "failed to parse protocol") {
		t.Errorf("error lacks parse context: %v", err)
	}

	saved, err := st.GetProtocols("ses_pf")
	if err != nil {
		t.Fatalf("GetProtocols error: %v", err)
	}
	if len(saved) != 0 {
		t.Errorf("saved protocols = %d after parse failure, want 0", len(saved))
	}
}

func TestGenerateModelFailure(t *testing.T) {
	ctx := context.Background()
	modelErr := errors.New("model unavailable")
	client := &MockGenAIClient{Err: modelErr}
	gen, _, _ := newTestGenerator(client)

	_, err := gen.Generate(ctx, "ses_mf", models.TierPro)
	if !errors.Is(err, modelErr) {
		t.Fatalf("Generate error = %v, want wrapped model error", err)
	}
}
