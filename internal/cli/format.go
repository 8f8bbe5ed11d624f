package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/dengue-visits/internal/questionnaire"
	"github.com/evcraddock/dengue-visits/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printQuestion prints a question and its selectable options.
func printQuestion(w io.Writer, q *questionnaire.Question, opts []questionnaire.Option) {
	fmt.Fprintf(w, "Question %d (%s)\n", q.ID, q.TypeField)
	if q.Text != "" {
		fmt.Fprintf(w, "  %s\n", q.Text)
	}
	if q.Description != "" {
		fmt.Fprintf(w, "  %s\n", q.Description)
	}
	if len(opts) == 0 {
		fmt.Fprintln(w, "\n  No options. Run 'dv visit answer' to continue.")
		return
	}

	fmt.Fprintln(w)
	for _, o := range opts {
		fmt.Fprintf(w, "  [%d] %s%s\n", o.ID, optionLabel(o), optionHint(o))
	}
}

func optionLabel(o questionnaire.Option) string {
	if o.Name != "" {
		return o.Name
	}
	if o.Value != "" {
		return o.Value
	}
	return "(input)"
}

func optionHint(o questionnaire.Option) string {
	var hints []string
	switch {
	case o.OptionType == questionnaire.InputNumber:
		hints = append(hints, "number")
	case o.TextArea || o.OptionType == questionnaire.TextArea:
		hints = append(hints, "text")
	}
	if o.Required {
		hints = append(hints, "required")
	}
	if o.StatusColor != "" {
		hints = append(hints, string(o.StatusColor))
	}
	if len(hints) == 0 {
		return ""
	}
	return " (" + strings.Join(hints, ", ") + ")"
}

// printQuestionnaire prints every question with its edges.
func printQuestionnaire(w io.Writer, q *questionnaire.Questionnaire) {
	fmt.Fprintf(w, "Questionnaire %s: %s\n", q.ID, q.Name)
	fmt.Fprintf(w, "  Initial: %d  Final: %d  Questions: %d\n\n", q.InitialQuestionID, q.FinalQuestionID, len(q.Questions))

	for i := range q.Questions {
		question := &q.Questions[i]
		next := ""
		if question.Next != nil {
			next = " -> " + formatNext(*question.Next)
		}
		fmt.Fprintf(w, "%d. [%s] %s%s\n", question.ID, question.TypeField, question.Text, next)
		for _, o := range question.Options {
			edge := ""
			if o.Next != nil {
				edge = " -> " + formatNext(*o.Next)
			}
			fmt.Fprintf(w, "     %d) %s%s%s\n", o.ID, optionLabel(o), optionHint(o), edge)
		}
	}
}

func formatNext(id questionnaire.QuestionID) string {
	if id == questionnaire.Terminate {
		return "end"
	}
	return id.String()
}

// printPreview prints the reduced form of a visit.
func printPreview(w io.Writer, data visit.Data) {
	fmt.Fprintf(w, "Status:      %s\n", formatColor(data.StatusColor))
	fmt.Fprintf(w, "Permission:  %t\n", data.VisitPermission)
	if len(data.Host) > 0 {
		fmt.Fprintf(w, "Host:        %s\n", strings.Join(data.Host, ", "))
	}
	if data.Notes != "" {
		fmt.Fprintf(w, "Notes:       %s\n", data.Notes)
	}
	fmt.Fprintf(w, "Inspections: %d\n", len(data.Inspections))
	for _, insp := range data.Inspections {
		location := string(insp.Location)
		if location == "" {
			location = "-"
		}
		fmt.Fprintf(w, "  #%d  %-8s %s  (%d fields)\n", insp.Index+1, location, formatColor(insp.StatusColor), len(insp.Fields))
	}
}

// printHistory prints submitted visits as a table.
func printHistory(w io.Writer, records []*visit.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "No visits submitted.")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "SUBMITTED\tVISIT\tSTATUS\tPHOTOS\tID"); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	if _, err := fmt.Fprintln(tw, "---------\t-----\t------\t------\t--"); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, r := range records {
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
			r.SubmittedAt.Format("2006-01-02 15:04"), r.VisitID, r.StatusColor, r.PhotoCount, truncate(r.ID, 8)); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := tw.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(w, "\nTotal: %d visits\n", len(records))
	return nil
}

// formatColor marks a status color with a symbol for terminals without color.
func formatColor(c questionnaire.StatusColor) string {
	switch c {
	case questionnaire.Red:
		return "● RED"
	case questionnaire.Yellow:
		return "◐ YELLOW"
	case questionnaire.Green:
		return "○ GREEN"
	default:
		return "-"
	}
}

// truncate shortens a string to maxLen.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
