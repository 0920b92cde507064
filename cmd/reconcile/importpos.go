package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-recon/internal/fileio"
	"invoice-recon/internal/reconcile/model"
	"invoice-recon/internal/reconcile/service"
)

func newImportPOSCmd(a *app) *cobra.Command {
	var (
		path     string
		category string
		m        = fileio.DefaultPOSMapping()
	)
	cmd := &cobra.Command{
		Use:   "import-pos",
		Short: "Load a POS export into the local POS table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := model.Category(category)
			if !service.SupportedCategory(c) {
				return fmt.Errorf("unsupported category %q", category)
			}
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			maps, err := fileio.ReadAnyMaps(f, path, m.HeaderRow)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			recs, skipped := fileio.ToPOSRecords(maps, m)
			if err := a.store.SavePOSRecords(cmd.Context(), c, recs); err != nil {
				return err
			}
			a.logger.Info().Str("category", category).Int("records", len(recs)).Int("skipped", skipped).Msg("pos imported")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d records (skipped %d)\n", len(recs), skipped)
			return err
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&path, "file", "", "POS export (.csv, .xlsx, .xls)")
	fl.StringVar(&category, "category", "", "reconciliation category the rows belong to")
	fl.IntVar(&m.HeaderRow, "header-row", m.HeaderRow, "header row number (1-based)")
	fl.StringVar(&m.DateKey, "date-col", m.DateKey, "sale date column")
	fl.StringVar(&m.CustomerKey, "customer-col", m.CustomerKey, "customer name column")
	fl.StringVar(&m.TotalKey, "total-col", m.TotalKey, "total amount column")
	fl.StringVar(&m.SKUKey, "sku-col", m.SKUKey, "sku column")
	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}
