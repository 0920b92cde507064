package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"invoice-recon/internal/fileio"
	"invoice-recon/internal/reconcile/model"
	"invoice-recon/internal/reconcile/service"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		invoicePath string
		category    string
		start, end  string
		m           fileio.InvoiceMapping
		tolAmount   float64
		tolPct      float64
		threshold   float64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile an invoice file against stored POS records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			f, err := os.Open(invoicePath)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			m = m.WithDefaults()
			maps, err := fileio.ReadAnyMaps(f, invoicePath, m.HeaderRow)
			if err != nil {
				return fmt.Errorf("read %s: %w", invoicePath, err)
			}
			items, skipped := fileio.ToInvoiceItems(maps, m)
			a.logger.Info().Int("items", len(items)).Int("skipped", skipped).Str("file", invoicePath).Msg("invoice loaded")

			var o model.OptionOverrides
			if cmd.Flags().Changed("tolerance-amount") {
				o.ToleranceAmount = &tolAmount
			}
			if cmd.Flags().Changed("tolerance-percentage") {
				o.TolerancePercentage = &tolPct
			}
			if cmd.Flags().Changed("name-threshold") {
				o.NameSimilarityThreshold = &threshold
			}

			svc := service.New(a.store, a.store, a.cfg.MatchDefaults(), a.logger).WithSettings(a.store)
			res, err := svc.Reconcile(ctx, service.Request{
				Category:     model.Category(category),
				DateRange:    model.DateRange{Start: start, End: end},
				InvoiceItems: items,
				Options:      o,
			})
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&invoicePath, "invoice", "", "invoice file (.xlsx, .xls, .csv)")
	fl.StringVar(&category, "category", "", "coaching | restaurant | retail | product_sales")
	fl.StringVar(&start, "start", "", "period start, YYYY-MM-DD")
	fl.StringVar(&end, "end", "", "period end, YYYY-MM-DD (inclusive)")
	fl.IntVar(&m.HeaderRow, "header-row", 1, "header row number (1-based)")
	fl.StringVar(&m.IDKey, "id-col", "", "invoice item id column")
	fl.StringVar(&m.DateKey, "date-col", "", "date column")
	fl.StringVar(&m.CustomerKey, "customer-col", "", "customer name column")
	fl.StringVar(&m.QtyKey, "qty-col", "", "quantity column")
	fl.StringVar(&m.UnitPriceKey, "unit-price-col", "", "unit price column")
	fl.StringVar(&m.TotalKey, "total-col", "", "total amount column")
	fl.StringVar(&m.SKUKey, "sku-col", "", "sku column")
	fl.StringVar(&m.TypeKey, "type-col", "", "product type column")
	fl.Float64Var(&tolAmount, "tolerance-amount", 0, "absolute amount tolerance")
	fl.Float64Var(&tolPct, "tolerance-percentage", 0, "relative amount tolerance, %")
	fl.Float64Var(&threshold, "name-threshold", 0, "name similarity threshold, 0..1")
	_ = cmd.MarkFlagRequired("invoice")
	_ = cmd.MarkFlagRequired("category")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
