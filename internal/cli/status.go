package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/dengue-visits/internal/client"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connection, queue and visit status",
		Long:  "Tests the connection to the server, and reports the visit in progress, queued visits, and submitted visits by color.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, w io.Writer) error {
	a, err := openApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Fprintf(w, "Server:   %s\n", a.cfg.ServerURL)

	if a.cfg.APIKey == "" {
		fmt.Fprintln(w, "API Key:  not configured")
	} else {
		fmt.Fprintf(w, "API Key:  %s\n", maskKey(a.cfg.APIKey))
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := a.client.Ping(pingCtx)
		var statusErr *client.StatusError
		switch {
		case err == nil:
			fmt.Fprintln(w, "Status:   ✓ connected and authenticated")
		case errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized:
			fmt.Fprintln(w, "Status:   ✗ invalid API key")
		case errors.As(err, &statusErr):
			fmt.Fprintf(w, "Status:   ✗ unexpected response (%d)\n", statusErr.StatusCode)
		default:
			fmt.Fprintf(w, "Status:   ✗ cannot reach server (%v)\n", err)
		}
	}

	user := a.cfg.UserID
	if user == "" {
		user = "not configured"
	}
	fmt.Fprintf(w, "User:     %s\n", user)

	switch q, err := a.loadQuestionnaire(ctx); {
	case err == nil:
		fmt.Fprintf(w, "Questionnaire: %s (%d questions)\n", q.ID, len(q.Questions))
	case errors.Is(err, questionnaire.ErrNotCached):
		fmt.Fprintln(w, "Questionnaire: none, run 'dv questionnaire fetch'")
	default:
		fmt.Fprintf(w, "Questionnaire: ✗ %v\n", err)
	}

	if id, ok := a.manager.Current(); ok {
		fmt.Fprintf(w, "Visit:    %s in progress\n", id)
	} else {
		fmt.Fprintln(w, "Visit:    none in progress")
	}
	fmt.Fprintf(w, "Queued:   %d\n", len(a.manager.Pending()))

	counts, err := a.visits.CountByColor(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Submitted: %s %d  %s %d  %s %d\n",
		formatColor(questionnaire.Red), counts[questionnaire.Red],
		formatColor(questionnaire.Yellow), counts[questionnaire.Yellow],
		formatColor(questionnaire.Green), counts[questionnaire.Green])

	return nil
}
