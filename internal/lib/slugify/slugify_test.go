package slugify

import (
	"regexp"
	"testing"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "Haas", expected: "haas"},
		{name: "spaces", input: "Doosan Machine Tools", expected: "doosan-machine-tools"},
		{name: "ampersand", input: "Brown & Sharpe", expected: "brown-and-sharpe"},
		{name: "ampersand without spaces", input: "A&B", expected: "aandb"},
		{name: "ampersand inside brand", input: "AT&T", expected: "atandt"},
		{name: "ampersand joined words", input: "Black&Decker", expected: "blackanddecker"},
		{name: "ampersand spaced", input: "Smith & Wesson", expected: "smith-and-wesson"},
		{name: "punctuation runs", input: "Mori-Seiki,  Ltd.", expected: "mori-seiki-ltd"},
		{name: "leading and trailing junk", input: "  --Okuma!! ", expected: "okuma"},
		{name: "diacritics", input: "Café Müller", expected: "cafe-muller"},
		{name: "digits", input: "Model 500 XL", expected: "model-500-xl"},
		{name: "empty", input: "", expected: Fallback},
		{name: "whitespace only", input: "   \t ", expected: Fallback},
		{name: "symbols only", input: "!!!", expected: Fallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Make(tt.input); got != tt.expected {
				t.Errorf("Make(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMakeCharacterClass(t *testing.T) {
	valid := regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	inputs := []string{
		"Hurco", "HURCO & co", "--a--b--", "Ø Nordic", "日本", "x_y_z", "ȧb",
		"100%", "İstanbul Makina", "  & ", "über--cool", "tab\tseparated\nlines",
	}
	for _, in := range inputs {
		got := Make(in)
		if got == Fallback {
			continue
		}
		if !valid.MatchString(got) {
			t.Errorf("Make(%q) = %q, not a valid slug", in, got)
		}
	}
}

func TestMemoMatchesMake(t *testing.T) {
	m := NewMemo(2)

	inputs := []string{"Brown & Sharpe", "Haas", "Brown & Sharpe", "Okuma", "Haas", ""}
	for _, in := range inputs {
		if got, want := m.Make(in), Make(in); got != want {
			t.Errorf("Memo.Make(%q) = %q, want %q", in, got, want)
		}
	}
	if m.Len() > 2 {
		t.Fatalf("memo len = %d, want <= 2", m.Len())
	}
}

func TestNilMemo(t *testing.T) {
	var m *Memo
	if got := m.Make("Brown & Sharpe"); got != "brown-and-sharpe" {
		t.Fatalf("nil memo = %q", got)
	}
	if m.Len() != 0 {
		t.Fatalf("nil memo len = %d", m.Len())
	}
}
