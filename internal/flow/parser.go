// Package flow provides the tolerant protocol parser.
//
// Model output is unstructured prose with an embedded JSON object that may
// be wrapped in code fences or surrounded by commentary. The parser locates
// the object, parses it, and coerces it field by field into the strict
// Protocol shape, substituting documented defaults for missing or
// wrong-typed fields instead of rejecting the whole response.
package flow

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joelbyler272/naturescripts-sub000/internal/models"
)

// Unrecoverable parse failures. Anything less severe is resolved by default
// substitution and never surfaces as an error.
var (
	// ErrNoJSONFound indicates the model output contained no JSON object.
	ErrNoJSONFound = errors.New("no JSON object found in model output")
	// ErrUnbalancedJSON indicates the braces never closed.
	ErrUnbalancedJSON = errors.New("unbalanced JSON in model output")
	// ErrInvalidJSON indicates the candidate object failed to parse.
	ErrInvalidJSON = errors.New("invalid JSON in model output")
	// ErrNotAnObject indicates the candidate parsed to something other than an object.
	ErrNotAnObject = errors.New("model output JSON is not an object")
)

// DefaultDisclaimer is applied when the model output omits a disclaimer.
const DefaultDisclaimer = "This protocol is for educational purposes only and is not medical advice. " +
	"Always consult a qualified healthcare provider before starting any new supplement, herb, or health practice, " +
	"especially if you are pregnant, nursing, taking medication, or managing a health condition."

// codeFencePattern captures the content of a Markdown code fence,
// optionally tagged json.
var codeFencePattern = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// ProtocolParser extracts and coerces protocols from raw model output. The
// enricher computes product URLs; model-supplied URLs are never trusted.
type ProtocolParser struct {
	enricher *AffiliateEnricher
}

// NewProtocolParser creates a parser that decorates parsed product mentions
// through the given enricher.
func NewProtocolParser(enricher *AffiliateEnricher) *ProtocolParser {
	return &ProtocolParser{enricher: enricher}
}

// Parse extracts a Protocol from raw model output for the given tier.
// The pro-only sections are populated only for pro; for free they are left
// nil even when the model supplies them.
func (p *ProtocolParser) Parse(raw string, tier models.Tier) (*models.Protocol, error) {
	candidate, err := extractJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(candidate), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	obj, ok := decoded.(map[string]interface{})
	if !ok {
		return nil, ErrNotAnObject
	}

	protocol := &models.Protocol{
		ID:         uuid.NewString(),
		Tier:       tier,
		Summary:    stringField(obj, "summary", ""),
		Disclaimer: stringField(obj, "disclaimer", DefaultDisclaimer),
		CreatedAt:  time.Now(),
	}

	protocol.Recommendations = p.coerceRecommendations(obj["recommendations"])

	if tier == models.TierPro {
		protocol.DietaryShifts = coerceDietaryShifts(obj["dietary_shifts"])
		protocol.LifestylePractices = coerceLifestylePractices(obj["lifestyle_practices"])
		protocol.TrackingSuggestions = coerceTrackingSuggestions(obj["tracking_suggestions"])
	}

	return protocol, nil
}

// extractJSONObject strips code fences, then performs a brace-depth counted
// scan from the first '{' to find the candidate JSON object.
func extractJSONObject(raw string) (string, error) {
	text := raw
	if m := codeFencePattern.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	start := strings.Index(text, "{")
	if start < 0 {
		return "", ErrNoJSONFound
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrUnbalancedJSON
}

func (p *ProtocolParser) coerceRecommendations(v interface{}) []models.Recommendation {
	items, ok := v.([]interface{})
	if !ok {
		return []models.Recommendation{}
	}

	recs := []models.Recommendation{}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringField(obj, "name", ""))
		if name == "" {
			// A recommendation without a usable name is garbage, not a
			// recoverable omission.
			continue
		}
		rec := models.Recommendation{
			ID:        uuid.NewString(),
			Name:      name,
			Type:      models.CoerceRecommendationType(stringField(obj, "type", "")),
			Dosage:    stringField(obj, "dosage", ""),
			Timing:    stringField(obj, "timing", ""),
			Rationale: stringField(obj, "rationale", ""),
			Cautions:  stringField(obj, "cautions", ""),
			Products:  p.enricher.Enrich(coerceProductMentions(obj["products"])),
		}
		recs = append(recs, rec)
	}
	return recs
}

func coerceProductMentions(v interface{}) []models.RawProductMention {
	items, ok := v.([]interface{})
	if !ok {
		return nil
	}

	var mentions []models.RawProductMention
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		name := strings.TrimSpace(stringField(obj, "name", ""))
		if name == "" {
			continue
		}
		mentions = append(mentions, models.RawProductMention{
			Name:   name,
			Brand:  stringField(obj, "brand", ""),
			Source: stringField(obj, "source", ""),
		})
	}
	return mentions
}

func coerceDietaryShifts(v interface{}) []models.DietaryShift {
	items, ok := v.([]interface{})
	if !ok {
		return []models.DietaryShift{}
	}

	shifts := []models.DietaryShift{}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		itemName := strings.TrimSpace(stringField(obj, "item", ""))
		if itemName == "" {
			continue
		}
		shifts = append(shifts, models.DietaryShift{
			ID:        uuid.NewString(),
			Action:    models.CoerceShiftAction(stringField(obj, "action", "")),
			Item:      itemName,
			Rationale: stringField(obj, "rationale", ""),
		})
	}
	return shifts
}

func coerceLifestylePractices(v interface{}) []models.LifestylePractice {
	items, ok := v.([]interface{})
	if !ok {
		return []models.LifestylePractice{}
	}

	practices := []models.LifestylePractice{}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		practice := strings.TrimSpace(stringField(obj, "practice", ""))
		if practice == "" {
			continue
		}
		practices = append(practices, models.LifestylePractice{
			ID:        uuid.NewString(),
			Practice:  practice,
			Timing:    stringField(obj, "timing", ""),
			Rationale: stringField(obj, "rationale", ""),
		})
	}
	return practices
}

func coerceTrackingSuggestions(v interface{}) []models.TrackingSuggestion {
	items, ok := v.([]interface{})
	if !ok {
		return []models.TrackingSuggestion{}
	}

	suggestions := []models.TrackingSuggestion{}
	for _, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		metric := strings.TrimSpace(stringField(obj, "metric", ""))
		if metric == "" {
			continue
		}
		suggestions = append(suggestions, models.TrackingSuggestion{
			ID:          uuid.NewString(),
			Metric:      metric,
			Frequency:   models.CoerceTrackingFrequency(stringField(obj, "frequency", "")),
			Description: stringField(obj, "description", ""),
		})
	}
	return suggestions
}

// stringField reads a string field defensively, substituting the default
// when the field is absent or not a string.
func stringField(obj map[string]interface{}, key, def string) string {
	if v, ok := obj[key].(string); ok && v != "" {
		return v
	}
	return def
}
