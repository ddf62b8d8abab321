package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rcmsmash/rcmsmash/pkg/rcm"
	"github.com/rcmsmash/rcmsmash/pkg/stub"
)

var stubLength string

var stubCmd = &cobra.Command{
	Use:   "stub [output]",
	Short: "Write out the generated relocation stub",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		cfg, _, err := offlineConfig(p)
		if err != nil {
			return err
		}
		n, err := parseNumber(stubLength)
		if err != nil {
			return fmt.Errorf("invalid length: %w", err)
		}

		params, err := stubParams(cfg, int(n))
		if err != nil {
			return err
		}
		if n == 0 {
			// The stub's own length barely depends on the payload length.
			probe, err := stub.Assemble(params)
			if err != nil {
				return err
			}
			params.PayloadLen = rcm.MaxPayloadLength(len(probe), cfg)
		}
		res, err := stub.Assemble(params)
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[0], res, 0644); err != nil {
			return fmt.Errorf("could not write stub: %w", err)
		}
		slog.Info("Wrote stub", "path", args[0], "length", len(res), "payload_length", params.PayloadLen)
		return nil
	},
}
