package flow

import "testing"

func TestExtractFirstName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"My name is Alice", "Alice"},
		{"my name's alice", "Alice"},
		{"alice", "Alice"},
		{"I'm Alice", "Alice"},
		{"i am jordan", "Jordan"},
		{"It's Sam.", "Sam"},
		{"call me Bo", "Bo"},
		{"this is maria gonzalez", "Maria"},
		{"JORDAN!", "Jordan"},
		{"", "Friend"},
		{"   ", "Friend"},
		{"1234 !!", "Friend"},
	}
	for _, tc := range cases {
		if got := ExtractFirstName(tc.input); got != tc.want {
			t.Errorf("ExtractFirstName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestIsSkipResponse(t *testing.T) {
	skips := []string{
		"no",
		"None",
		"nope",
		"n/a",
		"N/A",
		"not really",
		"I don't take any",
		"skip",
		"nothing",
		"nah",
		"do not have any",
	}
	for _, msg := range skips {
		if !IsSkipResponse(msg) {
			t.Errorf("IsSkipResponse(%q) = false, want true", msg)
		}
	}

	notSkips := []string{
		"ibuprofen 200mg",
		"Noah prescribed me lisinopril",
		"magnesium and vitamin D",
		"hypothyroidism",
		"I take metformin daily",
	}
	for _, msg := range notSkips {
		if IsSkipResponse(msg) {
			t.Errorf("IsSkipResponse(%q) = true, want false", msg)
		}
	}
}

func TestExtractEmail(t *testing.T) {
	cases := []struct {
		input string
		want  string
		found bool
	}{
		{"jordan@example.com", "jordan@example.com", true},
		{"you can reach me at a.b+c@example.co.uk thanks", "a.b+c@example.co.uk", true},
		{"MY EMAIL IS JORDAN@EXAMPLE.COM", "jordan@example.com", true},
		{"no email here", "", false},
		{"almost@but.not", "almost@but.not", true},
		{"@@@", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, found := ExtractEmail(tc.input)
		if found != tc.found || got != tc.want {
			t.Errorf("ExtractEmail(%q) = (%q, %v), want (%q, %v)", tc.input, got, found, tc.want, tc.found)
		}
	}
}
