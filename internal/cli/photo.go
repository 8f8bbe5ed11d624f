package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newVisitPhotoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "photo <file>",
		Short: "Attach a photo to the current container",
		Long: `Copy a photo into the photo directory and attach it to the current
inspection. A second photo for the same inspection replaces the first.`,
		Args: cobra.ExactArgs(1),
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

			ref, err := storePhoto(args[0], filepath.Join(a.cfg.PhotoDir, string(id)))
			if err != nil {
				return err
			}
			if err := a.manager.AttachPhoto(ctx, id, ref); err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, map[string]string{"visit": string(id), "photo": ref})
			}
			fmt.Fprintf(w, "Photo attached: %s\n", ref)
			return nil
		},
	}
}

// storePhoto copies src into dir under a fresh name and returns the copy's
// path.
func storePhoto(src, dir string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening photo: %w", err)
	}
	defer func() {
		if cerr := in.Close(); cerr != nil {
			slog.Warn("closing photo", "path", src, "error", cerr)
		}
	}()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating photo directory: %w", err)
	}

	dst := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(src)))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("creating photo: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return "", fmt.Errorf("copying photo: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("writing photo: %w", err)
	}
	return dst, nil
}
