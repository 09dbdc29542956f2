package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rate-estimator/internal/artifacts"
	"github.com/rate-estimator/internal/estimator"
	"github.com/rate-estimator/internal/refloc"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check the artifact store, the location database and the trained artifacts",
	RunE:  ping,
}

func init() {
	rootCmd.AddCommand(pingCmd)
}

func ping(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	out := cmd.OutOrStdout()

	svc, err := openServices(ctx, conf, zlog)
	if err != nil {
		fmt.Fprintf(out, "connect:   FAIL %v\n", err)
		return err
	}
	defer svc.Close()
	fmt.Fprintf(out, "store:     ok (%s)\n", conf.Artifacts.Backend)

	var failed bool
	for _, kind := range []refloc.Category{refloc.Domestic, refloc.Freight} {
		locs, err := svc.locations.All(ctx, kind)
		if err != nil {
			failed = true
			fmt.Fprintf(out, "locations: FAIL %s: %v\n", kind, err)
			continue
		}
		fmt.Fprintf(out, "locations: ok %s (%d)\n", kind, len(locs))
	}

	check := func(name string, err error) {
		switch {
		case err == nil:
			fmt.Fprintf(out, "artifact:  ok %s\n", name)
		case errors.Is(err, estimator.ErrNoModel):
			fmt.Fprintf(out, "artifact:  missing %s\n", name)
		default:
			failed = true
			fmt.Fprintf(out, "artifact:  FAIL %s: %v\n", name, err)
		}
	}
	_, err = svc.registry.Tiered.Get(ctx)
	check(artifacts.KeyTiered, err)
	_, err = svc.registry.Records.Get(ctx)
	check(artifacts.KeyRecords, err)
	_, err = svc.registry.Linear.Get(ctx)
	check(artifacts.KeyLinear, err)
	_, err = svc.registry.Ensemble.Get(ctx)
	check(artifacts.KeyEnsemble, err)

	if svc.geocoder == nil {
		fmt.Fprintln(out, "geocoder:  not configured")
	} else {
		fmt.Fprintln(out, "geocoder:  configured")
	}

	if failed {
		return errors.New("ping failed")
	}
	return nil
}
