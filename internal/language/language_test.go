package language

import (
	"testing"
)

func TestToISO2(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		// 2-letter codes pass through
		{"en", "en"},
		{"EN", "en"},
		{"nl", "nl"},
		// 3-letter codes convert
		{"eng", "en"},
		{"fre", "fr"},
		{"ger", "de"},
		{"nld", "nl"},
		{"dut", "nl"},
		{"afr", "af"},
		// words
		{"Dutch", "nl"},
		{"afrikaans", "af"},
		// outside the table, resolved through BCP 47
		{"cym", "cy"},
		{"cy", "cy"},
		// unknown
		{"", ""},
		{"klingonese", ""},
		{"zz", ""},
	}
	for _, tt := range tests {
		if got := ToISO2(tt.input); got != tt.expected {
			t.Errorf("ToISO2(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"nl", "Dutch"},
		{"af", "Afrikaans"},
		{"de", "German"},
		{"ger", "German"},
		// resolved through x/text
		{"cy", "Welsh"},
		{"is", "Icelandic"},
		{"", "Unknown"},
		{"xx", "XX"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.expected {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLabel(t *testing.T) {
	if got := Label("NL"); got != "Dutch (nl)" {
		t.Fatalf("Label = %q", got)
	}
	if got := Label(" "); got != "Unknown" {
		t.Fatalf("Label(blank) = %q", got)
	}
}

func TestIsEnglish(t *testing.T) {
	for _, code := range []string{"en", "eng", "English"} {
		if !IsEnglish(code) {
			t.Errorf("IsEnglish(%q) = false", code)
		}
	}
	if IsEnglish("nl") {
		t.Error("IsEnglish(nl) = true")
	}
}

func TestNormalizeHint(t *testing.T) {
	if code, ok := NormalizeHint(""); !ok || code != "" {
		t.Fatalf("empty hint = %q, %v", code, ok)
	}
	if code, ok := NormalizeHint("Dutch"); !ok || code != "nl" {
		t.Fatalf("Dutch hint = %q, %v", code, ok)
	}
	if _, ok := NormalizeHint("zz"); ok {
		t.Fatal("expected unknown two-letter hint to be rejected")
	}
	if _, ok := NormalizeHint("klingonese"); ok {
		t.Fatal("expected unresolvable hint to fail")
	}
}
