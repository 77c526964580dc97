// Package flow provides text extraction and intent classification helpers
// for the onboarding dialogue.
//
// Classification is heuristic by design: each category is an explicitly
// enumerated, unit-testable pattern list rather than patterns embedded in
// branching logic, so lists can be extended without touching control flow.
package flow

import (
	"regexp"
	"strings"
	"unicode"
)

// DefaultNameFallback is stored when no first name can be extracted.
const DefaultNameFallback = "Friend"

// NoneMentioned is the literal stored when a skip/none response is detected
// for conditions or medications.
const NoneMentioned = "None mentioned"

// namePrefixPatterns strip common greeting prefixes before the name token.
var namePrefixPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*my\s+name\s*(is|'s)\s+`),
	regexp.MustCompile(`(?i)^\s*i\s*am\s+`),
	regexp.MustCompile(`(?i)^\s*i'?m\s+`),
	regexp.MustCompile(`(?i)^\s*it\s*(is|'s)\s+`),
	regexp.MustCompile(`(?i)^\s*call\s+me\s+`),
	regexp.MustCompile(`(?i)^\s*this\s+is\s+`),
}

// skipPatterns classify a message as a "nothing to report" response.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(no|none|nope|nah|nothing|n/?a|skip)\b`),
	regexp.MustCompile(`(?i)^\s*not\s+(really|that\s+i\s+know\s+of|any)\b`),
	regexp.MustCompile(`(?i)\b(don'?t|do\s+not)\s+(have|take|use)\s+any\b`),
	regexp.MustCompile(`(?i)\bnone\s+(that|at\s+all|really)\b`),
}

// emailPattern matches a syntactically plausible address anywhere in a
// message. This is the single address validator used by the onboarding flow.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractFirstName pulls a first name out of a free-text reply. Greeting
// prefixes are stripped, the first whitespace-delimited token is kept,
// non-letter characters are removed, and the result is capitalized. Returns
// DefaultNameFallback when nothing usable remains.
func ExtractFirstName(message string) string {
	text := strings.TrimSpace(message)
	for _, pat := range namePrefixPatterns {
		if loc := pat.FindStringIndex(text); loc != nil {
			text = text[loc[1]:]
			break
		}
	}

	fields := strings.Fields(text)
	if len(fields) == 0 {
		return DefaultNameFallback
	}

	var letters []rune
	for _, r := range fields[0] {
		if unicode.IsLetter(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) == 0 {
		return DefaultNameFallback
	}

	letters[0] = unicode.ToUpper(letters[0])
	for i := 1; i < len(letters); i++ {
		letters[i] = unicode.ToLower(letters[i])
	}
	return string(letters)
}

// IsSkipResponse reports whether the message declines to supply information
// (conditions, medications) rather than listing any.
func IsSkipResponse(message string) bool {
	for _, pat := range skipPatterns {
		if pat.MatchString(message) {
			return true
		}
	}
	return false
}

// ExtractEmail finds the first email address embedded anywhere in the
// message and returns it lowercased. The second return value reports
// whether an address was found.
func ExtractEmail(message string) (string, bool) {
	match := emailPattern.FindString(message)
	if match == "" {
		return "", false
	}
	return strings.ToLower(match), true
}
