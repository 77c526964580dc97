// Package models defines the core data structures for NatureScripts.
//
// It includes the protocol schema produced by generation, the closed enums
// used by recommendations and their coercion helpers, and the health context
// collected during consultations. These types are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Tier identifies the subscription level that gates consultation depth and
// protocol sections.
type Tier string

const (
	// TierFree limits the consultation to a single clarifying exchange and a
	// short protocol without dietary, lifestyle, or tracking sections.
	TierFree Tier = "free"
	// TierPro allows an extended consultation and the full protocol.
	TierPro Tier = "pro"
)

// IsValidTier checks if the given tier is supported.
func IsValidTier(t Tier) bool {
	return t == TierFree || t == TierPro
}

// ParseTier normalizes a raw tier string, defaulting to free when the value
// is not recognized.
func ParseTier(raw string) Tier {
	t := Tier(strings.ToLower(strings.TrimSpace(raw)))
	if IsValidTier(t) {
		return t
	}
	return TierFree
}

// RecommendationType classifies a protocol recommendation.
type RecommendationType string

const (
	RecommendationTypeHerb         RecommendationType = "herb"
	RecommendationTypeVitamin      RecommendationType = "vitamin"
	RecommendationTypeMineral      RecommendationType = "mineral"
	RecommendationTypeSupplement   RecommendationType = "supplement"
	RecommendationTypeEssentialOil RecommendationType = "essential_oil"
	RecommendationTypeOther        RecommendationType = "other"
)

// CoerceRecommendationType maps a raw model-supplied value onto the closed
// set, falling back to "other" for anything unrecognized.
func CoerceRecommendationType(raw string) RecommendationType {
	switch RecommendationType(strings.ToLower(strings.TrimSpace(raw))) {
	case RecommendationTypeHerb:
		return RecommendationTypeHerb
	case RecommendationTypeVitamin:
		return RecommendationTypeVitamin
	case RecommendationTypeMineral:
		return RecommendationTypeMineral
	case RecommendationTypeSupplement:
		return RecommendationTypeSupplement
	case RecommendationTypeEssentialOil:
		return RecommendationTypeEssentialOil
	default:
		return RecommendationTypeOther
	}
}

// ShiftAction classifies a dietary shift.
type ShiftAction string

const (
	ShiftActionAdd    ShiftAction = "add"
	ShiftActionReduce ShiftAction = "reduce"
	ShiftActionAvoid  ShiftAction = "avoid"
)

// CoerceShiftAction maps a raw value onto the closed set, falling back to
// "add" for anything unrecognized.
func CoerceShiftAction(raw string) ShiftAction {
	switch ShiftAction(strings.ToLower(strings.TrimSpace(raw))) {
	case ShiftActionReduce:
		return ShiftActionReduce
	case ShiftActionAvoid:
		return ShiftActionAvoid
	default:
		return ShiftActionAdd
	}
}

// TrackingFrequency classifies how often a tracking metric is recorded.
type TrackingFrequency string

const (
	TrackingFrequencyDaily  TrackingFrequency = "daily"
	TrackingFrequencyWeekly TrackingFrequency = "weekly"
)

// CoerceTrackingFrequency maps a raw value onto the closed set, falling back
// to "daily" for anything unrecognized.
func CoerceTrackingFrequency(raw string) TrackingFrequency {
	if TrackingFrequency(strings.ToLower(strings.TrimSpace(raw))) == TrackingFrequencyWeekly {
		return TrackingFrequencyWeekly
	}
	return TrackingFrequencyDaily
}

// ProductSource identifies the storefront a product link points at.
type ProductSource string

const (
	ProductSourceAmazon ProductSource = "amazon"
	ProductSourceIHerb  ProductSource = "iherb"
	ProductSourceOther  ProductSource = "other"
)

// CoerceProductSource maps a raw value onto the closed set, falling back to
// "amazon" for anything unrecognized.
func CoerceProductSource(raw string) ProductSource {
	switch ProductSource(strings.ToLower(strings.TrimSpace(raw))) {
	case ProductSourceIHerb:
		return ProductSourceIHerb
	case ProductSourceOther:
		return ProductSourceOther
	default:
		return ProductSourceAmazon
	}
}

// Error variables for better error handling and testability
var (
	ErrEmptySessionID = errors.New("session id cannot be empty")
	ErrEmptyMessage   = errors.New("message cannot be empty")
	ErrInvalidTier    = errors.New("invalid tier")
)

// RawProductMention is a product reference as the model supplied it, before
// source normalization and URL construction.
type RawProductMention struct {
	Name   string `json:"name"`
	Brand  string `json:"brand"`
	Source string `json:"source"`
}

// ProductLink is a shoppable product reference. The URL is always computed
// locally and never trusted from model output.
type ProductLink struct {
	Name   string        `json:"name"`
	Brand  string        `json:"brand"`
	Source ProductSource `json:"source"`
	URL    string        `json:"url"`
	Price  string        `json:"price,omitempty"`
}

// Recommendation is a single remedy in a protocol.
type Recommendation struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Type      RecommendationType `json:"type"`
	Dosage    string             `json:"dosage"`
	Timing    string             `json:"timing"`
	Rationale string             `json:"rationale"`
	Cautions  string             `json:"cautions,omitempty"`
	Products  []ProductLink      `json:"products"`
}

// DietaryShift is a pro-tier dietary adjustment.
type DietaryShift struct {
	ID        string      `json:"id"`
	Action    ShiftAction `json:"action"`
	Item      string      `json:"item"`
	Rationale string      `json:"rationale"`
}

// LifestylePractice is a pro-tier lifestyle suggestion.
type LifestylePractice struct {
	ID        string `json:"id"`
	Practice  string `json:"practice"`
	Timing    string `json:"timing,omitempty"`
	Rationale string `json:"rationale"`
}

// TrackingSuggestion is a pro-tier metric to record between check-ins.
type TrackingSuggestion struct {
	ID          string            `json:"id"`
	Metric      string            `json:"metric"`
	Frequency   TrackingFrequency `json:"frequency"`
	Description string            `json:"description"`
}

// Protocol is the generated natural-health protocol. The three pro-only
// slices are nil for free-tier protocols (marshaled as null, meaning the
// section was not offered) and non-nil for pro protocols even when empty
// (the section was offered but the model supplied nothing).
type Protocol struct {
	ID                  string               `json:"id"`
	SessionID           string               `json:"session_id,omitempty"`
	Tier                Tier                 `json:"tier"`
	Summary             string               `json:"summary"`
	Recommendations     []Recommendation     `json:"recommendations"`
	DietaryShifts       []DietaryShift       `json:"dietary_shifts"`
	LifestylePractices  []LifestylePractice  `json:"lifestyle_practices"`
	TrackingSuggestions []TrackingSuggestion `json:"tracking_suggestions"`
	Disclaimer          string               `json:"disclaimer"`
	CreatedAt           time.Time            `json:"created_at"`
}

// Medication is one entry in a health context.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
}

// HealthContext is the structured health information accumulated during a
// consultation, used to parameterize protocol generation.
type HealthContext struct {
	Conditions  []string     `json:"conditions,omitempty"`
	Medications []Medication `json:"medications,omitempty"`
	Supplements []string     `json:"supplements,omitempty"`
	Notes       string       `json:"notes,omitempty"`
}

// IsEmpty reports whether the context carries no profile information at all.
func (h HealthContext) IsEmpty() bool {
	return len(h.Conditions) == 0 && len(h.Medications) == 0 && len(h.Supplements) == 0 && strings.TrimSpace(h.Notes) == ""
}
