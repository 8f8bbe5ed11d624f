package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/dengue-visits/internal/form"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
	"github.com/evcraddock/dengue-visits/internal/visit"
)

func TestFormatColor(t *testing.T) {
	tests := []struct {
		color    questionnaire.StatusColor
		expected string
	}{
		{questionnaire.Red, "● RED"},
		{questionnaire.Yellow, "◐ YELLOW"},
		{questionnaire.Green, "○ GREEN"},
		{"", "-"},
	}

	for _, tt := range tests {
		t.Run(string(tt.color), func(t *testing.T) {
			if got := formatColor(tt.color); got != tt.expected {
				t.Errorf("formatColor(%q) = %q, want %q", tt.color, got, tt.expected)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"short", "hello", 10, "hello"},
		{"exact", "hello", 5, "hello"},
		{"long", "0b7c4c1e-55", 8, "0b7c4c1e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncate(tt.input, tt.max)
			if result != tt.expected {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.input, tt.max, result, tt.expected)
			}
		})
	}
}

func TestOptionHint(t *testing.T) {
	tests := []struct {
		name     string
		option   questionnaire.Option
		expected string
	}{
		{"plain", questionnaire.Option{Name: "Tire"}, ""},
		{"number", questionnaire.Option{OptionType: questionnaire.InputNumber}, " (number)"},
		{"text required", questionnaire.Option{TextArea: true, Required: true}, " (text, required)"},
		{"color", questionnaire.Option{StatusColor: questionnaire.Red}, " (RED)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := optionHint(tt.option); got != tt.expected {
				t.Errorf("optionHint = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPrintQuestion(t *testing.T) {
	q := &questionnaire.Question{ID: 5, Text: "What does the water contain?", TypeField: questionnaire.TypeMultiple}
	opts := []questionnaire.Option{
		{ID: 1, Name: "Larvae", StatusColor: questionnaire.Red},
		{ID: 3, Value: "nothing"},
	}

	var buf bytes.Buffer
	printQuestion(&buf, q, opts)
	out := buf.String()

	for _, want := range []string{"Question 5 (multiple)", "What does the water contain?", "[1] Larvae (RED)", "[3] nothing"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestPrintQuestionSplash(t *testing.T) {
	var buf bytes.Buffer
	printQuestion(&buf, &questionnaire.Question{ID: 1, TypeField: questionnaire.TypeSplash}, nil)
	if !strings.Contains(buf.String(), "No options") {
		t.Errorf("expected splash hint, got:\n%s", buf.String())
	}
}

func TestPrintPreview(t *testing.T) {
	data := visit.Data{
		Host:        []string{"Owner"},
		StatusColor: questionnaire.Red,
		Inspections: []form.Inspection{
			{Index: 0, Location: questionnaire.House, StatusColor: questionnaire.Red, Fields: map[string]any{"a": 1}},
			{Index: 1, StatusColor: questionnaire.Green, Fields: map[string]any{}},
		},
	}

	var buf bytes.Buffer
	printPreview(&buf, data)
	out := buf.String()

	for _, want := range []string{"● RED", "Owner", "Inspections: 2", "#1  house", "#2  -"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer
	if err := printHistory(&buf, nil); err != nil {
		t.Fatalf("print: %v", err)
	}
	if !strings.Contains(buf.String(), "No visits submitted.") {
		t.Errorf("unexpected output: %s", buf.String())
	}

	buf.Reset()
	records := []*visit.Record{{
		ID:          "0b7c4c1e-5555-4444-8888-123456789abc",
		VisitID:     "4-100",
		StatusColor: questionnaire.Yellow,
		PhotoCount:  2,
		SubmittedAt: time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
	}}
	if err := printHistory(&buf, records); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"2026-03-01 10:30", "4-100", "YELLOW", "0b7c4c1e", "Total: 1 visits"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in:\n%s", want, out)
		}
	}
}
