package flow

import (
	"testing"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

func TestMaxExchangesPerTier(t *testing.T) {
	policy := TurnBudgetPolicy{}
	if got := policy.MaxExchanges(models.TierFree); got != FreeTierExchangeBudget {
		t.Errorf("free budget = %d, want %d", got, FreeTierExchangeBudget)
	}
	if got := policy.MaxExchanges(models.TierPro); got != ProTierExchangeBudget {
		t.Errorf("pro budget = %d, want %d", got, ProTierExchangeBudget)
	}
}

func TestBudgetExhausted(t *testing.T) {
	policy := TurnBudgetPolicy{}
	cases := []struct {
		tier  models.Tier
		count int
		want  bool
	}{
		{models.TierFree, 1, false},
		{models.TierFree, 2, true},
		{models.TierFree, 3, true},
		{models.TierPro, 3, false},
		{models.TierPro, 4, true},
	}
	for _, tc := range cases {
		if got := policy.BudgetExhausted(tc.tier, tc.count); got != tc.want {
			t.Errorf("BudgetExhausted(%s, %d) = %v, want %v", tc.tier, tc.count, got, tc.want)
		}
	}
}

func TestContainsReadinessSignal(t *testing.T) {
	ready := []string{
		"Thanks for sharing. I have what I need to help you.",
		"Great — I'm ready to put together your protocol.",
		"I have enough information now.",
		"Let me now create a plan tailored to you.",
		"Let me put together your protocol.",
		"Let me generate something for you.",
		"I HAVE WHAT I NEED!",
	}
	for _, reply := range ready {
		if !ContainsReadinessSignal(reply) {
			t.Errorf("ContainsReadinessSignal(%q) = false, want true", reply)
		}
	}

	notReady := []string{
		"Tell me more about when the symptoms started.",
		"What time of day is it worst?",
		"I need more information before we continue.",
		"Do you take any supplements currently?",
		"", // detection fails open: never ready on silence
	}
	for _, reply := range notReady {
		if ContainsReadinessSignal(reply) {
			t.Errorf("ContainsReadinessSignal(%q) = true, want false", reply)
		}
	}
}
