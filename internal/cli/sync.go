package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Submit visits queued on the device",
		Long:  "Submit queued visits in the order they were finished. Sync stops at the first failure; the rest stay queued.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, false)
			if err != nil {
				return err
			}
			defer a.close()

			sent, err := a.manager.SyncPending(ctx)
			remaining := len(a.manager.Pending())

			w := cmd.OutOrStdout()
			if isJSON() {
				if jerr := printJSON(w, map[string]int{"sent": sent, "remaining": remaining}); jerr != nil {
					return jerr
				}
				return err
			}

			if sent == 0 && remaining == 0 && err == nil {
				fmt.Fprintln(w, "Nothing to sync.")
				return nil
			}
			fmt.Fprintf(w, "Sent %d visit(s), %d remaining.\n", sent, remaining)
			return err
		},
	}
}
