// Package flow provides the turn budget policy and readiness detection for
// the live consultation chat.
package flow

import (
	"regexp"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// Exchange budgets per tier: the number of user messages after which the
// assistant must declare itself ready to generate. The budget is a soft
// instruction to the model; the signal the client acts on is the phrase
// match below.
const (
	// FreeTierExchangeBudget allows one clarifying exchange after the
	// initial message, so readiness is due by the second assistant turn.
	FreeTierExchangeBudget = 2
	// ProTierExchangeBudget allows adaptive questioning up to the fourth
	// exchange.
	ProTierExchangeBudget = 4
)

// readinessPatterns are the fixed phrases scanned for in every assistant
// reply. If the model's phrasing drifts, detection fails open (never ready);
// the caller must always offer a manual generate action as well. Treat this
// list as a versioned contract against real model output samples.
var readinessPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi\s+have\s+what\s+i\s+need\b`),
	regexp.MustCompile(`(?i)\bready\s+to\s+put\s+together\b`),
	regexp.MustCompile(`(?i)\bi\s+have\s+enough\s+information\b`),
	regexp.MustCompile(`(?i)\blet\s+me\s+(now\s+)?(create|put\s+together|generate)\b`),
}

// TurnBudgetPolicy decides how many user-assistant exchanges are allowed
// before the system must declare itself ready to generate.
type TurnBudgetPolicy struct{}

// MaxExchanges returns the exchange budget for the tier.
func (TurnBudgetPolicy) MaxExchanges(tier models.Tier) int {
	if tier == models.TierPro {
		return ProTierExchangeBudget
	}
	return FreeTierExchangeBudget
}

// BudgetExhausted reports whether the running count of user messages has
// reached the tier's budget, meaning the assistant must wrap up now.
func (p TurnBudgetPolicy) BudgetExhausted(tier models.Tier, userMessageCount int) bool {
	return userMessageCount >= p.MaxExchanges(tier)
}

// ContainsReadinessSignal scans an assistant reply for any of the fixed
// readiness phrases, case-insensitively at word boundaries.
func ContainsReadinessSignal(reply string) bool {
	for _, pat := range readinessPatterns {
		if pat.MatchString(reply) {
			return true
		}
	}
	return false
}
