package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseTier(t *testing.T) {
	cases := []struct {
		raw  string
		want Tier
	}{
		{"free", TierFree},
		{"pro", TierPro},
		{"PRO", TierPro},
		{" pro ", TierPro},
		{"premium", TierFree},
		{"", TierFree},
	}
	for _, tc := range cases {
		if got := ParseTier(tc.raw); got != tc.want {
			t.Errorf("ParseTier(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestCoerceRecommendationType(t *testing.T) {
	cases := []struct {
		raw  string
		want RecommendationType
	}{
		{"herb", RecommendationTypeHerb},
		{"Vitamin", RecommendationTypeVitamin},
		{" mineral ", RecommendationTypeMineral},
		{"essential_oil", RecommendationTypeEssentialOil},
		{"unicorn_dust", RecommendationTypeOther},
		{"", RecommendationTypeOther},
	}
	for _, tc := range cases {
		if got := CoerceRecommendationType(tc.raw); got != tc.want {
			t.Errorf("CoerceRecommendationType(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestCoerceShiftAction(t *testing.T) {
	cases := []struct {
		raw  string
		want ShiftAction
	}{
		{"add", ShiftActionAdd},
		{"reduce", ShiftActionReduce},
		{"AVOID", ShiftActionAvoid},
		{"obliterate", ShiftActionAdd},
		{"", ShiftActionAdd},
	}
	for _, tc := range cases {
		if got := CoerceShiftAction(tc.raw); got != tc.want {
			t.Errorf("CoerceShiftAction(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestCoerceTrackingFrequency(t *testing.T) {
	if got := CoerceTrackingFrequency("weekly"); got != TrackingFrequencyWeekly {
		t.Errorf("weekly coerced to %q", got)
	}
	for _, raw := range []string{"daily", "hourly", ""} {
		if got := CoerceTrackingFrequency(raw); got != TrackingFrequencyDaily {
			t.Errorf("CoerceTrackingFrequency(%q) = %q, want daily", raw, got)
		}
	}
}

func TestCoerceProductSource(t *testing.T) {
	cases := []struct {
		raw  string
		want ProductSource
	}{
		{"amazon", ProductSourceAmazon},
		{"iHerb", ProductSourceIHerb},
		{"other", ProductSourceOther},
		{"walmart", ProductSourceAmazon},
		{"", ProductSourceAmazon},
	}
	for _, tc := range cases {
		if got := CoerceProductSource(tc.raw); got != tc.want {
			t.Errorf("CoerceProductSource(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestStepOrder(t *testing.T) {
	ordered := []OnboardingStep{
		StepInitial, StepAskName, StepAskDuration, StepClarifying,
		StepAskConditions, StepAskMedications, StepAskEmail, StepReady, StepComplete,
	}
	for i := 1; i < len(ordered); i++ {
		if StepOrder(ordered[i-1]) >= StepOrder(ordered[i]) {
			t.Errorf("StepOrder(%q) = %d not before StepOrder(%q) = %d",
				ordered[i-1], StepOrder(ordered[i-1]), ordered[i], StepOrder(ordered[i]))
		}
	}
	if got := StepOrder("bogus"); got != -1 {
		t.Errorf("StepOrder(bogus) = %d, want -1", got)
	}
}

func TestOnboardingStateJSONRoundTrip(t *testing.T) {
	state := OnboardingState{
		SessionID:        "ses_1",
		Step:             StepAskEmail,
		FirstName:        "Noah",
		PrimaryConcern:   "poor sleep",
		Duration:         "three months",
		HealthConditions: "None mentioned",
		EmailRetries:     2,
	}

	data, err := state.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON error: %v", err)
	}
	var got OnboardingState
	if err := got.FromJSON(data); err != nil {
		t.Fatalf("FromJSON error: %v", err)
	}
	if got.Step != state.Step || got.FirstName != state.FirstName ||
		got.HealthConditions != state.HealthConditions || got.EmailRetries != state.EmailRetries {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, state)
	}
}

// The pro-only protocol sections use a nil-vs-empty distinction on the
// wire: null means the section was not offered (free tier), [] means it
// was offered but came back empty (pro tier).
func TestProtocolSectionMarshaling(t *testing.T) {
	free := Protocol{ID: "p1", Tier: TierFree, Recommendations: []Recommendation{}}
	data, err := json.Marshal(free)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"dietary_shifts":null`) {
		t.Errorf("free protocol JSON = %s, want null dietary_shifts", data)
	}

	pro := Protocol{
		ID:                  "p2",
		Tier:                TierPro,
		Recommendations:     []Recommendation{},
		DietaryShifts:       []DietaryShift{},
		LifestylePractices:  []LifestylePractice{},
		TrackingSuggestions: []TrackingSuggestion{},
	}
	data, err = json.Marshal(pro)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if !strings.Contains(string(data), `"dietary_shifts":[]`) {
		t.Errorf("pro protocol JSON = %s, want empty dietary_shifts array", data)
	}
}

func TestHealthContextIsEmpty(t *testing.T) {
	if !(HealthContext{}).IsEmpty() {
		t.Error("zero context should be empty")
	}
	if !(HealthContext{Notes: "   "}).IsEmpty() {
		t.Error("whitespace-only notes should be empty")
	}
	if (HealthContext{Conditions: []string{"asthma"}}).IsEmpty() {
		t.Error("context with conditions should not be empty")
	}
	if (HealthContext{Notes: "sleeps poorly"}).IsEmpty() {
		t.Error("context with notes should not be empty")
	}
}
