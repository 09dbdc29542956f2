package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/pricing"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate a single cost from the trained artifacts",
}

var tieredCmd = &cobra.Command{
	Use:   "tiered",
	Short: "Look a domestic move up in the tiered table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		distance, _ := f.GetFloat64("distance")
		volume, _ := f.GetFloat64("volume")
		role, _ := f.GetString("role")
		operation, _ := f.GetString("operation")

		svc, err := openServices(cmd.Context(), conf, zlog)
		if err != nil {
			return err
		}
		defer svc.Close()

		q, err := svc.pricing(conf, zlog).EstimateTieredRate(cmd.Context(), distance, volume, role, operation)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), q)
	},
}

var regressionCmd = &cobra.Command{
	Use:   "regression",
	Short: "Predict a freight cost with a regression model",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		name, _ := f.GetString("strategy")
		strategy, err := pricing.ParseStrategy(name)
		if err != nil {
			return err
		}

		var req estimator.Request
		req.Origin, _ = f.GetString("origin")
		req.Destination, _ = f.GetString("destination")
		req.Equipment, _ = f.GetString("equipment")
		req.TradeLane, _ = f.GetString("trade-lane")
		req.Mode, _ = f.GetString("mode")
		req.TransitDays, _ = f.GetFloat64("transit-days")
		req.Sailings, _ = f.GetFloat64("sailings")

		svc, err := openServices(cmd.Context(), conf, zlog)
		if err != nil {
			return err
		}
		defer svc.Close()

		res := svc.pricing(conf, zlog).EstimateRegressionCost(cmd.Context(), strategy, req)
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Priced() {
			return fmt.Errorf("not priced: %s", res.Error)
		}
		return nil
	},
}

var cachedCmd = &cobra.Command{
	Use:   "cached",
	Short: "Show the observed rate for a route and equipment",
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		origin, _ := f.GetString("origin")
		destination, _ := f.GetString("destination")
		equipment, _ := f.GetString("equipment")

		svc, err := openServices(cmd.Context(), conf, zlog)
		if err != nil {
			return err
		}
		defer svc.Close()

		p, ok, err := svc.pricing(conf, zlog).LookupCachedRate(cmd.Context(), origin, destination, equipment)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no observed rate from %q to %q for %q", origin, destination, equipment)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)
	estimateCmd.AddCommand(tieredCmd, regressionCmd, cachedCmd)

	tieredCmd.Flags().Float64("distance", 0, "distance in km")
	tieredCmd.Flags().Float64("volume", 0, "volume in cubic metres")
	tieredCmd.Flags().String("role", "ORIGIN", "ORIGIN or DESTINATION")
	tieredCmd.Flags().String("operation", "", "operation name, e.g. NL-DOM")
	tieredCmd.MarkFlagRequired("operation")

	regressionCmd.Flags().String("strategy", string(pricing.Linear), "linear or ensemble")
	regressionCmd.Flags().String("trade-lane", "", "trade lane (linear only)")
	regressionCmd.Flags().String("mode", "", "transport mode")
	regressionCmd.Flags().Float64("transit-days", 0, "transit time in days (ensemble only)")
	regressionCmd.Flags().Float64("sailings", 0, "sailings per week (ensemble only)")

	for _, c := range []*cobra.Command{regressionCmd, cachedCmd} {
		c.Flags().String("origin", "", "origin location as written in the rate sheets")
		c.Flags().String("destination", "", "destination location as written in the rate sheets")
		c.Flags().String("equipment", "20ft dry", "equipment type")
		c.MarkFlagRequired("origin")
		c.MarkFlagRequired("destination")
	}
}
