package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

func newQuestionnaireCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "questionnaire",
		Aliases: []string{"q"},
		Short:   "Validate, inspect and fetch questionnaires",
	}

	cmd.AddCommand(
		newQuestionnaireValidateCmd(),
		newQuestionnaireShowCmd(),
		newQuestionnaireFetchCmd(),
	)
	return cmd
}

func newQuestionnaireValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a questionnaire file for broken references",
		Long: `Load a questionnaire file (.yaml, .yml or .json, plain or JSON:API) and
report every integrity problem: dangling next references, unknown initial or
final question, duplicate ids and unknown question types.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := questionnaire.LoadFile(args[0])
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, map[string]any{"valid": true, "id": q.ID, "questions": len(q.Questions)})
			}
			fmt.Fprintf(w, "Questionnaire %s is valid (%d questions).\n", q.ID, len(q.Questions))
			return nil
		},
	}
}

func newQuestionnaireShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [file]",
		Short: "Print the questions and their edges",
		Long:  "Print a questionnaire file, or the questionnaire visits use when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var q *questionnaire.Questionnaire
			if len(args) == 1 {
				var err error
				if q, err = questionnaire.LoadFile(args[0]); err != nil {
					return err
				}
			} else {
				a, err := openApp(cmd.Context(), true)
				if err != nil {
					return err
				}
				defer a.close()
				q = a.manager.Questionnaire()
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, q)
			}
			printQuestionnaire(w, q)
			return nil
		},
	}
}

func newQuestionnaireFetchCmd() *cobra.Command {
	var (
		lang string
		save string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Download the current questionnaire",
		Long: `Download the current questionnaire from the server and cache it for
offline visits. Use --save to also write it to a file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			if lang == "" {
				lang = a.cfg.Language
			}

			q, err := a.client.FetchQuestionnaire(ctx, lang)
			if err != nil {
				return err
			}
			if err := a.questionnaires.Save(ctx, lang, q); err != nil {
				return err
			}
			if save != "" {
				if err := questionnaire.Save(save, q); err != nil {
					return err
				}
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, q)
			}
			fmt.Fprintf(w, "Fetched questionnaire %s (%s, %d questions).\n", q.ID, lang, len(q.Questions))
			if save != "" {
				fmt.Fprintf(w, "Saved to %s\n", save)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "questionnaire language (default: configured language)")
	cmd.Flags().StringVar(&save, "save", "", "also write the questionnaire to this file")

	return cmd
}
