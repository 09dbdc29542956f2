package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rate-estimator/internal/config"
	"github.com/rate-estimator/internal/logger"
)

const (
	app     = "estimator"
	version = "1.0.0"
)

var (
	// Used for flags.
	cfgFile string

	conf *config.Config
	zlog *zap.Logger

	rootCmd = &cobra.Command{
		Use:               app,
		Short:             "estimator prices moves and freight from tiered tables and trained regression models",
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(*cobra.Command, []string) {
			if zlog != nil {
				zlog.Sync()
			}
		},
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is config.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("log.debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("log.json", rootCmd.PersistentFlags().Lookup("json"))
}

// setup loads .env, the config file and the environment, then builds the
// logger every command uses.
func setup(cmd *cobra.Command, _ []string) error {
	if err := config.LoadEnv(); err != nil {
		log.Printf("loading .env: %v", err)
	}

	c, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	conf = c

	zlog, err = logger.New(conf.Log.JSON, conf.Log.Debug)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	zlog.Debug("config loaded", zap.String("command", cmd.Name()), zap.String("file", viper.ConfigFileUsed()))
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
