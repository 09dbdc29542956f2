package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rate-estimator/internal/pricing"
)

var quoteCmd = &cobra.Command{
	Use:   "quote",
	Short: "Price the services of a move between two addresses",
	Long: `Quote prices transport and the origin and destination agents of a move.
The request is read as JSON from --file ("-" for stdin) or built from flags.
With --by-location the move is priced as a whole instead of per service.`,
	RunE: quote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	f := quoteCmd.Flags()
	f.StringP("file", "f", "", "JSON request file, - for stdin")
	f.String("origin", "", "origin address")
	f.String("destination", "", "destination address")
	f.String("volume", "", "shipment volume")
	f.String("unit", "m3", "volume unit")
	f.String("region", pricing.RegionDomestic, "domestic or international")
	f.StringSlice("services", []string{"transport", "origin", "destination"}, "services to price")
	f.Bool("by-location", false, "price the move as a whole")
	f.String("strategy", string(pricing.Linear), "regression strategy for international moves priced by location")
}

func quote(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	byLocation, _ := f.GetBool("by-location")

	var req pricing.QuoteRequest
	if file, _ := f.GetString("file"); file != "" {
		if err := readRequest(cmd, file, &req); err != nil {
			return err
		}
	} else {
		origin, _ := f.GetString("origin")
		destination, _ := f.GetString("destination")
		volume, _ := f.GetString("volume")
		unit, _ := f.GetString("unit")
		region, _ := f.GetString("region")
		services, _ := f.GetStringSlice("services")

		req = pricing.QuoteRequest{
			Origin:      pricing.Address{RawInput: origin},
			Destination: pricing.Address{RawInput: destination},
			Volume:      pricing.Volume{Value: json.Number(strings.TrimSpace(volume)), Unit: unit},
			RegionType:  region,
		}
		for _, s := range services {
			req.Services = append(req.Services, pricing.ServiceKind(strings.TrimSpace(s)))
		}
	}

	svc, err := openServices(cmd.Context(), conf, zlog)
	if err != nil {
		return err
	}
	defer svc.Close()
	p := svc.pricing(conf, zlog)

	if byLocation {
		name, _ := f.GetString("strategy")
		strategy, err := pricing.ParseStrategy(name)
		if err != nil {
			return err
		}
		res := p.EstimateByLocation(cmd.Context(), pricing.LocationRequest{
			Origin:      req.Origin,
			Destination: req.Destination,
			Volume:      req.Volume,
			RegionType:  req.RegionType,
			Strategy:    strategy,
		})
		if err := printJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
		if !res.Priced() {
			return errors.New(res.Error)
		}
		return nil
	}

	res := p.Quote(cmd.Context(), req)
	if err := printJSON(cmd.OutOrStdout(), res); err != nil {
		return err
	}
	if !res.Success {
		return errors.New(res.Error)
	}
	return nil
}

func readRequest(cmd *cobra.Command, file string, v any) error {
	var r io.Reader = cmd.InOrStdin()
	if file != "-" {
		fh, err := os.Open(file)
		if err != nil {
			return err
		}
		defer fh.Close()
		r = fh
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}
