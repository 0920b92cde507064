package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"invoice-recon/internal/reconcile/model"
	"invoice-recon/internal/reconcile/service"
	"invoice-recon/internal/storage"
)

// settings без флагов печатает действующие дефолты, с флагами проверяет и сохраняет их.
func newSettingsCmd(a *app) *cobra.Command {
	var tolAmount, tolPct, threshold float64
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or store default match tolerances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cur, err := a.store.MatchDefaults(ctx, a.cfg.MatchDefaults())
			if err != nil {
				return err
			}

			var o model.OptionOverrides
			changed := map[string]float64{}
			if cmd.Flags().Changed("tolerance-amount") {
				o.ToleranceAmount = &tolAmount
				changed[storage.SettingToleranceAmount] = tolAmount
			}
			if cmd.Flags().Changed("tolerance-percentage") {
				o.TolerancePercentage = &tolPct
				changed[storage.SettingTolerancePercentage] = tolPct
			}
			if cmd.Flags().Changed("name-threshold") {
				o.NameSimilarityThreshold = &threshold
				changed[storage.SettingNameSimilarityThreshold] = threshold
			}
			next, err := service.ResolveOptions(cur, o, "")
			if err != nil {
				return err
			}
			for k, v := range changed {
				if err := a.store.SetSetting(ctx, k, strconv.FormatFloat(v, 'f', -1, 64)); err != nil {
					return err
				}
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "tolerance_amount=%g tolerance_percentage=%g name_similarity_threshold=%g\n",
				next.ToleranceAmount, next.TolerancePercentage, next.NameSimilarityThreshold)
			return err
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&tolAmount, "tolerance-amount", 0, "default absolute amount tolerance")
	fl.Float64Var(&tolPct, "tolerance-percentage", 0, "default relative amount tolerance, %")
	fl.Float64Var(&threshold, "name-threshold", 0, "default name similarity threshold, 0..1")
	return cmd
}
