// Package flow provides prompt assembly for the consultation model calls.
// All builders are deterministic string assembly with no I/O.
package flow

import (
	"fmt"
	"strings"

	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// NoProfileSentinel is emitted in place of the health profile section when
// the accumulated context is entirely empty.
const NoProfileSentinel = "No profile information provided."

// approvedBrands is the allow-list of reputable brand names the model may
// reference in shopping options.
var approvedBrands = []string{
	"NOW Foods",
	"Nature's Way",
	"Gaia Herbs",
	"Garden of Life",
	"Thorne",
	"Pure Encapsulations",
	"Solgar",
	"Jarrow Formulas",
	"Doctor's Best",
	"Life Extension",
}

// BuildClarifyingPrompt produces the system and user prompts for the single
// clarifying-question model call in the onboarding flow.
func BuildClarifyingPrompt(state *models.OnboardingState) (systemPrompt, userPrompt string) {
	systemPrompt = "You are a warm, knowledgeable natural health consultant. " +
		"Based on what the user has shared, ask exactly one short, specific clarifying question " +
		"that would most improve a natural health protocol for them. " +
		"Ask only the question, no preamble and no list."

	var b strings.Builder
	if state.FirstName != "" {
		fmt.Fprintf(&b, "Name: %s\n", state.FirstName)
	}
	fmt.Fprintf(&b, "Primary concern: %s\n", state.PrimaryConcern)
	fmt.Fprintf(&b, "Duration and other symptoms: %s\n", state.Duration)
	userPrompt = b.String()
	return systemPrompt, userPrompt
}

// BuildConsultationSystemPrompt produces the system prompt for the live
// consultation chat. The exchange budget is included as a soft instruction;
// readiness is detected separately from the assistant's own phrasing.
func BuildConsultationSystemPrompt(tier models.Tier) string {
	var b strings.Builder
	b.WriteString("You are a warm, knowledgeable natural health consultant conducting a brief intake conversation. ")
	b.WriteString("Ask one focused question at a time about the user's health concern. ")

	budget := TurnBudgetPolicy{}.MaxExchanges(tier)
	if tier == models.TierPro {
		fmt.Fprintf(&b, "You may ask adaptive follow-up questions, but after at most %d exchanges you must stop asking and say \"I have what I need\" so the protocol can be created. ", budget)
	} else {
		b.WriteString("Ask exactly one clarifying question, then on your next turn say \"I have what I need\" so the protocol can be created. ")
	}

	b.WriteString("Never diagnose, and remind the user to consult a healthcare provider for serious symptoms.")
	return b.String()
}

// WrapUpInstruction is appended as a system message once the exchange
// budget is exhausted.
const WrapUpInstruction = "You have asked enough questions. Do not ask anything further; reply that you have what you need to put together the protocol."

// BuildProtocolPrompt assembles the protocol-generation instruction text
// from the tier, the accumulated health context, and the conversation
// transcript.
func BuildProtocolPrompt(tier models.Tier, healthCtx models.HealthContext, history []ConversationMessage) string {
	var b strings.Builder

	b.WriteString("You are a natural health consultant creating a personalized protocol.\n\n")

	b.WriteString("HEALTH PROFILE:\n")
	if healthCtx.IsEmpty() {
		b.WriteString(NoProfileSentinel + "\n")
	} else {
		if len(healthCtx.Conditions) > 0 {
			fmt.Fprintf(&b, "Conditions: %s\n", strings.Join(healthCtx.Conditions, "; "))
		}
		if len(healthCtx.Medications) > 0 {
			var meds []string
			for _, m := range healthCtx.Medications {
				entry := m.Name
				if m.Dosage != "" {
					entry += " " + m.Dosage
				}
				if m.Frequency != "" {
					entry += " (" + m.Frequency + ")"
				}
				meds = append(meds, entry)
			}
			fmt.Fprintf(&b, "Medications: %s\n", strings.Join(meds, "; "))
		}
		if len(healthCtx.Supplements) > 0 {
			fmt.Fprintf(&b, "Current supplements: %s\n", strings.Join(healthCtx.Supplements, "; "))
		}
		if strings.TrimSpace(healthCtx.Notes) != "" {
			fmt.Fprintf(&b, "Notes: %s\n", healthCtx.Notes)
		}
	}

	if len(history) > 0 {
		b.WriteString("\nCONVERSATION:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
	}

	b.WriteString("\nINSTRUCTIONS:\n")
	if tier == models.TierPro {
		b.WriteString("Create a comprehensive protocol with 2-4 recommendations, plus dietary shifts, lifestyle practices, and tracking suggestions.\n")
	} else {
		b.WriteString("Create a concise protocol with 1-2 recommendations. Do not include dietary, lifestyle, or tracking sections.\n")
	}

	fmt.Fprintf(&b, "For each recommendation include exactly two shopping options: one from Amazon and one from iHerb, naming only these brands: %s.\n", strings.Join(approvedBrands, ", "))

	b.WriteString("\nRespond with a single JSON object using exactly this shape:\n")
	b.WriteString(`{
  "summary": "...",
  "recommendations": [
    {
      "name": "...",
      "type": "herb|vitamin|mineral|supplement|essential_oil|other",
      "dosage": "...",
      "timing": "...",
      "rationale": "...",
      "cautions": "...",
      "products": [
        {"name": "...", "brand": "...", "source": "amazon"},
        {"name": "...", "brand": "...", "source": "iherb"}
      ]
    }
  ],`)
	if tier == models.TierPro {
		b.WriteString(`
  "dietary_shifts": [{"action": "add|reduce|avoid", "item": "...", "rationale": "..."}],
  "lifestyle_practices": [{"practice": "...", "timing": "...", "rationale": "..."}],
  "tracking_suggestions": [{"metric": "...", "frequency": "daily|weekly", "description": "..."}],`)
	}
	b.WriteString(`
  "disclaimer": "..."
}`)

	return b.String()
}
