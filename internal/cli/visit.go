package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/dengue-visits/internal/answer"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
	"github.com/evcraddock/dengue-visits/internal/traversal"
	"github.com/evcraddock/dengue-visits/internal/visit"
)

func newVisitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "visit",
		Short: "Start, answer and finish house visits",
		Long: `Walk a house visit through the inspection questionnaire.

Examples:
  dv visit start 100 --permission
  dv visit options
  dv visit answer 1
  dv visit answer 3=4          # option 3 with its input
  dv visit photo ./tire.jpg
  dv visit finish --offline`,
	}

	cmd.AddCommand(
		newVisitStartCmd(),
		newVisitOptionsCmd(),
		newVisitAnswerCmd(),
		newVisitPhotoCmd(),
		newVisitNotesCmd(),
		newVisitShowCmd(),
		newVisitFinishCmd(),
		newVisitDiscardCmd(),
		newVisitHistoryCmd(),
	)
	return cmd
}

// currentVisit returns the visit in progress or an error telling how to
// start one.
func currentVisit(a *app) (answer.VisitID, error) {
	id, ok := a.manager.Current()
	if !ok {
		return "", errors.New("no visit in progress\n\nRun 'dv visit start <house-id>' to begin")
	}
	return id, nil
}

func newVisitStartCmd() *cobra.Command {
	var (
		permission bool
		host       []string
		team       string
		user       string
		house      visit.NewHouse
		newHouse   bool
	)

	cmd := &cobra.Command{
		Use:   "start <house-id>",
		Short: "Start a visit at a house",
		Long: `Start a visit at a house and show the first question.

Use --new-house with --address and coordinates to register a house that is
not in the list yet; the house id is then its reference code.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			if user == "" {
				user = a.cfg.UserID
			}
			if user == "" {
				return errors.New("no user configured\n\nRun 'dv config set user_id <id>' or set DV_USER_ID")
			}
			if team == "" {
				team = a.cfg.TeamID
			}

			details := visit.Details{
				UserAccountID:   user,
				TeamID:          team,
				VisitPermission: permission,
				Host:            host,
			}
			if newHouse {
				house.ReferenceCode = args[0]
				details.House = &house
			} else {
				details.HouseID = args[0]
			}

			id := answer.NewVisitID(user, args[0])
			if err := a.manager.Initialise(ctx, id, details); err != nil {
				if errors.Is(err, visit.ErrVisitInProgress) {
					return fmt.Errorf("%w\n\nRun 'dv visit finish' or 'dv visit discard' first", err)
				}
				return err
			}

			w := cmd.OutOrStdout()
			q, opts, err := a.manager.Options(id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(w, map[string]any{"visit": id, "question": q, "options": opts})
			}
			fmt.Fprintf(w, "Visit %s started.\n\n", id)
			printQuestion(w, q, opts)
			return nil
		},
	}

	cmd.Flags().BoolVar(&permission, "permission", false, "the residents allowed the inspection")
	cmd.Flags().StringSliceVar(&host, "host", nil, "people who received the visit")
	cmd.Flags().StringVar(&team, "team", "", "team id (default: configured team)")
	cmd.Flags().StringVar(&user, "user", "", "user account id (default: configured user)")
	cmd.Flags().BoolVar(&newHouse, "new-house", false, "register a new house")
	cmd.Flags().StringVar(&house.Address, "address", "", "address of a new house")
	cmd.Flags().Float64Var(&house.Latitude, "lat", 0, "latitude of a new house")
	cmd.Flags().Float64Var(&house.Longitude, "lng", 0, "longitude of a new house")
	cmd.Flags().StringVar(&house.WedgeID, "wedge", "", "wedge id of a new house")
	cmd.Flags().StringVar(&house.HouseBlockID, "block", "", "house block id of a new house")

	return cmd
}

func newVisitOptionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "options",
		Short: "Show the current question and its options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := currentVisit(a)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			q, opts, err := a.manager.Options(id)
			if errors.Is(err, visit.ErrVisitComplete) {
				fmt.Fprintln(w, "Questionnaire complete. Run 'dv visit finish' to submit.")
				return nil
			}
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(w, map[string]any{"question": q, "options": opts})
			}
			printQuestion(w, q, opts)
			return nil
		},
	}
}

// parseSelections reads "id" or "id=input" arguments.
func parseSelections(args []string) ([]traversal.Selection, error) {
	sels := make([]traversal.Selection, 0, len(args))
	for _, arg := range args {
		idPart, text, hasText := strings.Cut(arg, "=")
		id, err := strconv.Atoi(idPart)
		if err != nil {
			return nil, fmt.Errorf("invalid option: %s", arg)
		}
		sel := traversal.Selection{OptionID: id}
		if hasText {
			sel.Text = text
			if text == "true" || text == "false" {
				b := text == "true"
				sel.Bool = &b
			}
		}
		sels = append(sels, sel)
	}
	return sels, nil
}

func newVisitAnswerCmd() *cobra.Command {
	var question int

	cmd := &cobra.Command{
		Use:   "answer [option-id[=input]]...",
		Short: "Answer the current question",
		Long: `Answer the current question with one option, or several for multiple
choice questions. Append =input for options that take a number or text.
Screens without options are passed with no arguments.

Use --question to change the answer of an earlier question in the current
inspection; the visit continues from that question.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sels, err := parseSelections(args)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := currentVisit(a)
			if err != nil {
				return err
			}

			q := questionnaire.QuestionID(question)
			if question == 0 {
				if q, err = a.manager.Position(id); err != nil {
					return err
				}
			}

			res, err := a.manager.Answer(ctx, id, q, sels)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, res)
			}
			if res.NewInspection {
				// numbered from 1, after the inspection just recorded
				fmt.Fprintf(w, "Inspection #%d started.\n", res.Inspection+2)
			}
			if res.CapturePhoto {
				fmt.Fprintln(w, "Take a photo of the container: dv visit photo <file>")
			}
			if res.Done() {
				fmt.Fprintln(w, "Questionnaire complete. Run 'dv visit finish' to submit.")
				return nil
			}

			next, opts, err := a.manager.Options(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(w)
			printQuestion(w, next, opts)
			return nil
		},
	}

	cmd.Flags().IntVar(&question, "question", 0, "question to answer (default: current question)")

	return cmd
}

func newVisitNotesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "notes <text>",
		Short: "Set the visit comment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := currentVisit(a)
			if err != nil {
				return err
			}
			if err := a.manager.SetNotes(ctx, id, strings.Join(args, " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Notes saved.")
			return nil
		},
	}
}

func newVisitShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the visit in progress",
		Long:  "Show progress of the visit in progress and a preview of what would be submitted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := currentVisit(a)
			if err != nil {
				return err
			}

			meta := a.manager.State().Store.Metadata(id)
			preview, err := a.manager.Preview(id)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, map[string]any{"visit": id, "progress": meta, "preview": preview})
			}

			fmt.Fprintf(w, "Visit:       %s\n", id)
			fmt.Fprintf(w, "Question:    %s\n", formatNext(meta.Position))
			fmt.Fprintf(w, "Inspection:  #%d\n", meta.InspectionIdx+1)
			if meta.ActiveCase != "" {
				fmt.Fprintf(w, "Location:    %s\n", meta.ActiveCase)
			}
			fmt.Fprintf(w, "Photos:      %d\n", len(meta.Photos))
			printPreview(w, preview)
			return nil
		},
	}
}

func newVisitFinishCmd() *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "finish",
		Short: "Finish and submit the visit",
		Long: `Finish the visit in progress. The visit is submitted right away, or
queued on the device with --offline; run 'dv sync' to send queued visits.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, true)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := currentVisit(a)
			if err != nil {
				return err
			}

			sub, err := a.manager.Finalise(ctx, id, !offline)
			var subErr *visit.SubmissionError
			if errors.As(err, &subErr) {
				return fmt.Errorf("%w\n\nThe visit was kept. Retry, or run 'dv visit finish --offline' to queue it", err)
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, sub)
			}
			if offline {
				fmt.Fprintf(w, "Visit %s queued (%s). %d visit(s) waiting for sync.\n", id, formatColor(sub.StatusColor), len(a.manager.Pending()))
				return nil
			}
			fmt.Fprintf(w, "Visit %s submitted (%s).\n", id, formatColor(sub.StatusColor))
			return nil
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "queue the visit instead of submitting it")

	return cmd
}

func newVisitDiscardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "discard",
		Short: "Drop the visit in progress without submitting it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			id, err := currentVisit(a)
			if err != nil {
				return err
			}
			if err := a.manager.Discard(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Visit %s discarded.\n", id)
			return nil
		},
	}
}

func newVisitHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List submitted visits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			records, err := a.visits.ListSubmissions(ctx)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, records)
			}
			return printHistory(w, records)
		},
	}
}
