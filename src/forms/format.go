package forms

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
)

// Format renders records as the prompt block sent to the backend:
//
//	1. <text>
//	Answers: a, b
//	Answers (multiple choice): c, d
//	Description: <description>
//
// Lines without content are omitted and records are written in ordinal order.
func Format(records []Record) string {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b Record) int { return cmp.Compare(a.Ordinal, b.Ordinal) })

	var b strings.Builder
	for _, r := range sorted {
		if r.empty() {
			continue
		}
		b.WriteString(strconv.Itoa(r.Ordinal))
		b.WriteString(". ")
		b.WriteString(r.Text)
		b.WriteByte('\n')
		if len(r.Options) > 0 {
			b.WriteString("Answers: ")
			b.WriteString(strings.Join(r.Options, ", "))
			b.WriteByte('\n')
		}
		if len(r.Choices) > 0 {
			b.WriteString("Answers (multiple choice): ")
			b.WriteString(strings.Join(r.Choices, ", "))
			b.WriteByte('\n')
		}
		if d := strings.TrimSpace(r.Description); d != "" {
			b.WriteString("Description: ")
			b.WriteString(d)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Prompt formats records and reports why no prompt could be built.
func Prompt(records []Record) (string, error) {
	if len(records) == 0 {
		return "", ErrNoQuestions
	}
	out := Format(records)
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyPrompt
	}
	return out, nil
}
