package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/source"
	"github.com/rate-estimator/internal/training"
)

var trainCmd = &cobra.Command{
	Use:   "train FILE...",
	Short: "Train the artifacts of a rate sheet kind from .xlsx or .csv files",
	Long: `Train reads one or more rate sheets sharing a header row and rebuilds the
artifacts for the given kind. general-rates sheets produce the tiered table;
freight-rates sheets produce the rate records and both regression models.
Existing artifacts are only replaced when training succeeds.

A running serve process keeps the models it has already loaded. Send
POST /api/artifacts/<kind>/reload to it, or restart it, to pick up the new
artifacts. Jobs submitted through POST /api/train refresh it directly.`,
	Args: cobra.MinimumNArgs(1),
	RunE: train,
}

func init() {
	rootCmd.AddCommand(trainCmd)

	trainCmd.Flags().StringP("kind", "k", string(artifacts.FreightRates), "rate sheet kind: general-rates or freight-rates")
}

func train(cmd *cobra.Command, paths []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	name, _ := cmd.Flags().GetString("kind")
	kind, err := artifacts.ParseKind(name)
	if err != nil {
		return err
	}

	table, err := source.LoadAll(paths)
	if err != nil {
		return err
	}
	job := training.Job{Kind: kind, Table: table}
	if err := training.Check(job); err != nil {
		return err
	}

	svc, err := openServices(ctx, conf, zlog)
	if err != nil {
		return err
	}
	defer svc.Close()

	zlog.Info("training", zap.String("kind", string(kind)), zap.Strings("files", paths), zap.Int("rows", len(table.Rows)))
	start := time.Now()
	metrics, err := svc.trainer(conf, zlog).Train(ctx, job)
	if err != nil {
		return fmt.Errorf("training %s: %w", kind, err)
	}
	zlog.Info("training complete", zap.Duration("took", time.Since(start)))

	return printJSON(cmd.OutOrStdout(), training.Completion{
		Kind:     kind,
		Success:  true,
		Metrics:  metrics,
		Duration: time.Since(start),
	})
}
