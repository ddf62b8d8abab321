package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [payload] [output]",
	Short: "Build an RCM image without sending it",
	Long: `Builds the image that 'run' would send for a payload and checks that the ROM
accepts its size. The image is written to [output], or to the payload's name
with an .rcm extension in the current directory.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		cfg, _, err := offlineConfig(p)
		if err != nil {
			return err
		}
		entry, payload, err := loadPayload(args[0])
		if err != nil {
			return err
		}
		image, err := craft(cfg, payload)
		if err != nil {
			return err
		}

		out := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(entry.Name), ".xz"), ".bin") + ".rcm"
		if len(args) > 1 {
			out = args[1]
		}
		if err := os.WriteFile(out, image, 0644); err != nil {
			return fmt.Errorf("could not write image: %w", err)
		}
		slog.Info("Wrote image", "path", out, "payload", entry.Name, "length", len(image))
		return nil
	},
}
