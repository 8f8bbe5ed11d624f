package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the CLI configuration",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSetCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			cfg.APIKey = maskKey(cfg.APIKey)

			w := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(w, cfg)
			}
			fmt.Fprintf(w, "server_url:    %s\n", cfg.ServerURL)
			fmt.Fprintf(w, "api_key:       %s\n", cfg.APIKey)
			fmt.Fprintf(w, "user_id:       %s\n", cfg.UserID)
			fmt.Fprintf(w, "team_id:       %s\n", cfg.TeamID)
			fmt.Fprintf(w, "language:      %s\n", cfg.Language)
			fmt.Fprintf(w, "questionnaire: %s\n", cfg.Questionnaire)
			fmt.Fprintf(w, "photo_dir:     %s\n", cfg.PhotoDir)
			fmt.Fprintf(w, "dev:           %t\n", cfg.Dev)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Store a configuration value",
		Long: `Store a value in ~/.config/dv/config.yaml.

Keys: server_url, api_key, user_id, team_id, language, questionnaire, photo_dir, dev`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := setConfigValue(&cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := saveConfig(cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s updated.\n", args[0])
			return nil
		},
	}
}

func setConfigValue(cfg *CLIConfig, key, value string) error {
	switch key {
	case "server_url":
		cfg.ServerURL = value
	case "api_key":
		cfg.APIKey = value
	case "user_id":
		cfg.UserID = value
	case "team_id":
		cfg.TeamID = value
	case "language":
		cfg.Language = value
	case "questionnaire":
		cfg.Questionnaire = value
	case "photo_dir":
		cfg.PhotoDir = value
	case "dev":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for dev: %s", value)
		}
		cfg.Dev = b
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

// maskKey keeps the first characters of an API key for display.
func maskKey(key string) string {
	if key == "" {
		return ""
	}
	prefix := key
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return prefix + "…"
}
