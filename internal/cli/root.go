// Package cli defines the cobra command tree for dv.
package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/dengue-visits/internal/client"
	"github.com/evcraddock/dengue-visits/internal/db"
	"github.com/evcraddock/dengue-visits/internal/logging"
	"github.com/evcraddock/dengue-visits/internal/questionnaire"
	"github.com/evcraddock/dengue-visits/internal/visit"
)

var (
	flagFormat        string
	flagDB            string
	flagQuestionnaire string
	flagDev           bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "dv",
		Short: "Record dengue vector inspection visits",
		Long: `Record house visits for dengue vector surveillance.

Walk the inspection questionnaire container by container, finish the visit
online or queue it on the device, and sync queued visits once a connection
is back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig()
			if err != nil {
				return err
			}
			logging.Setup(flagDev || cfg.Dev)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.local/share/dv/visits.db)")
	root.PersistentFlags().StringVar(&flagQuestionnaire, "questionnaire", "", "questionnaire file (default: last fetched)")
	root.PersistentFlags().BoolVar(&flagDev, "dev", false, "human-readable debug logging")

	root.AddCommand(
		newQuestionnaireCmd(),
		newVisitCmd(),
		newSyncCmd(),
		newConfigCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)

	return root
}

// app bundles what the visit commands need: config, database, repositories
// and the lifecycle manager.
type app struct {
	cfg            CLIConfig
	db             *sql.DB
	visits         *visit.Repository
	questionnaires *questionnaire.Repository
	client         *client.Client
	manager        *visit.Manager
}

// openApp opens the database and restores the visit state. The
// questionnaire is loaded only when needQuestionnaire is set; queue and
// history commands work without one.
func openApp(ctx context.Context, needQuestionnaire bool) (*app, error) {
	cfg, err := resolveConfig()
	if err != nil {
		return nil, err
	}

	database, err := openDB()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:            cfg,
		db:             database,
		visits:         visit.NewRepository(database),
		questionnaires: questionnaire.NewRepository(database),
		client:         client.New(cfg.ServerURL, cfg.APIKey),
	}

	var def *questionnaire.Questionnaire
	if needQuestionnaire {
		def, err = a.loadQuestionnaire(ctx)
		if err != nil {
			a.close()
			return nil, err
		}
	}

	blob, err := a.visits.Load(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	state, err := visit.DecodeState(blob)
	if err != nil {
		a.close()
		return nil, err
	}

	a.manager = visit.NewManager(def, state,
		visit.WithPersister(a.visits),
		visit.WithHistory(a.visits),
		visit.WithSubmitter(a.client),
	)
	return a, nil
}

// loadQuestionnaire reads the --questionnaire file, the configured file, or
// the last questionnaire fetched for the configured language.
func (a *app) loadQuestionnaire(ctx context.Context) (*questionnaire.Questionnaire, error) {
	path := flagQuestionnaire
	if path == "" {
		path = a.cfg.Questionnaire
	}
	if path != "" {
		return questionnaire.LoadFile(path)
	}

	q, err := a.questionnaires.Latest(ctx, a.cfg.Language)
	if errors.Is(err, questionnaire.ErrNotCached) {
		return nil, fmt.Errorf("%w\n\nRun 'dv questionnaire fetch' or pass --questionnaire", err)
	}
	return q, err
}

func (a *app) close() {
	closeDB(a.db)
}

// openDB opens the SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		slog.Warn("closing database", "error", err)
	}
}
