package forms

import (
	"errors"
	"strings"
	"testing"
)

func TestFormatSingleRecord(t *testing.T) {
	got := Format([]Record{{Ordinal: 1, Text: "What is 2+2?", Options: []string{"3", "4", "5"}}})
	if want := "1. What is 2+2?\nAnswers: 3, 4, 5\n"; got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatNestedDocument(t *testing.T) {
	records, err := ExtractHTML(strings.NewReader(nestedForm))
	if err != nil {
		t.Fatalf("ExtractHTML returned error: %v", err)
	}
	want := "1. Favourite colour?\nAnswers (multiple choice): Red, Blue\n" +
		"2. Explain your choice\nDescription: Pick wisely\n"
	if got := Format(records); got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatAllSections(t *testing.T) {
	got := Format([]Record{{
		Ordinal:     1,
		Text:        "Q",
		Options:     []string{"a"},
		Choices:     []string{"b", "c"},
		Description: " d ",
	}})
	want := "1. Q\nAnswers: a\nAnswers (multiple choice): b, c\nDescription: d\n"
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatOrdersByOrdinal(t *testing.T) {
	got := Format([]Record{{Ordinal: 2, Text: "second"}, {Ordinal: 1, Text: "first"}})
	if want := "1. first\n2. second\n"; got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestFormatIsDeterministic(t *testing.T) {
	records, err := ExtractHTML(strings.NewReader(flatForm))
	if err != nil {
		t.Fatalf("ExtractHTML returned error: %v", err)
	}
	first := Format(records)
	for i := 0; i < 10; i++ {
		if got := Format(records); got != first {
			t.Fatalf("run %d differs: %q vs %q", i, got, first)
		}
	}
}

func TestPromptErrors(t *testing.T) {
	if _, err := Prompt(nil); !errors.Is(err, ErrNoQuestions) {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	if _, err := Prompt([]Record{{Ordinal: 1}}); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	out, err := Prompt([]Record{{Ordinal: 1, Text: "Q"}})
	if err != nil || out != "1. Q\n" {
		t.Fatalf("unexpected prompt %q, err %v", out, err)
	}
}
