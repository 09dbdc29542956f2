package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/training"
	"github.com/rate-estimator/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the estimation and training API",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "listen port (overrides server.port)")
	serveCmd.Flags().String("host", "", "listen host (overrides server.host)")
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		conf.Server.Port = port
	}
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		conf.Server.Host = host
	}

	svc, err := openServices(ctx, conf, zlog)
	if err != nil {
		return err
	}
	defer svc.Close()

	orch := training.NewOrchestrator(svc.trainer(conf, zlog), training.Config{
		Workers: conf.Training.Workers,
		Queue:   conf.Training.Queue,
		Retain:  conf.Training.Retain,
	}, zlog)

	zlog.Info("starting the estimator", zap.String("version", version), zap.String("artifacts", conf.Artifacts.Backend))
	srv := web.NewServer(conf.Server, svc.pricing(conf, zlog), orch, svc.registry, zlog)
	runErr := srv.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), conf.Server.ShutdownTimeout)
	defer cancel()
	if err := orch.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("training jobs cancelled at shutdown", zap.Error(err))
	}
	return runErr
}
