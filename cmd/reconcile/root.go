package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"invoice-recon/internal/config"
	"invoice-recon/internal/storage"
)

// app: общее состояние команд: конфиг, логгер и открытое хранилище.
type app struct {
	cfgFile string
	dbPath  string
	verbose bool

	cfg    config.Config
	logger zerolog.Logger
	store  *storage.Store
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{}
	root := &cobra.Command{
		Use:   "reconcile",
		Short: "Invoice to POS reconciliation",
		Long: `reconcile matches invoice line items against POS records of the same
period and reports matched pairs, invoice-only and POS-only items.

Examples:
  reconcile import-pos --category coaching --file pos.csv
  reconcile run --category coaching --start 2024-01-01 --end 2024-01-31 --invoice jan.xlsx
  reconcile session 6f1c...`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.open(cmd) },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "YAML config file (default: $CONFIG_FILE)")
	pf.StringVar(&a.dbPath, "db", "", "SQLite database path (default: $DB_PATH)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newRunCmd(a),
		newImportPOSCmd(a),
		newSessionCmd(a),
		newSettingsCmd(a),
	)
	return root, a
}

// runCLI выполняет команду и закрывает хранилище в любом случае:
// при ошибке RunE cobra PersistentPostRunE не вызывает.
func runCLI(root *cobra.Command, a *app) (err error) {
	defer func() {
		if cerr := a.close(); err == nil {
			err = cerr
		}
	}()
	return root.Execute()
}

func (a *app) open(cmd *cobra.Command) error {
	var (
		cfg config.Config
		err error
	)
	if a.cfgFile != "" {
		cfg, err = config.LoadFile(a.cfgFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	// stdout занят результатом: логи только в stderr, без файла
	cfg.LogFile = ""
	a.cfg = cfg
	a.logger = config.SetupLoggerTo(cfg, cmd.ErrOrStderr())

	a.store, err = storage.NewStore(cfg.DBPath, a.logger)
	return err
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}
