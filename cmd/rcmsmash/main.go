package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var rootCmd = &cobra.Command{
	Use:   "rcmsmash",
	Short: "rcmsmash launches payloads on Tegra X1 devices in RCM",
	Long: `Sends an arbitrary payload to a Tegra X1 (eg. Nintendo Switch) in recovery
mode (RCM) and runs it by smashing the boot ROM's stack with an oversized
GET_STATUS request.

rcmsmash comes with ABSOLUTELY NO WARRANTY.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verboseLog {
			slog.SetLogLoggerLevel(slog.LevelDebug)
			if err := flag.Set("v", "2"); err != nil {
				return err
			}
		}
		return nil
	},
}

var (
	verboseLog  bool
	profilePath string
	stubPath    string
	stubEntry   string
	stubScratch string
)

func main() {
	flag.Set("logtostderr", "true")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "Enable verbose debug logging")
	rootCmd.PersistentFlags().StringVarP(&profilePath, "profile", "p", "", "Memory map profile (.yaml or .plist) overriding the built-in addresses")
	rootCmd.PersistentFlags().StringVarP(&stubPath, "stub", "s", "", "Relocation stub binary (default: generated)")
	rootCmd.PersistentFlags().StringVar(&stubEntry, "entry", "0", "Address the generated stub reassembles the payload at and jumps to (default: ROM payload address)")
	rootCmd.PersistentFlags().StringVar(&stubScratch, "scratch", "0", "Address the generated stub runs its second stage from (default: 0x40003000)")

	idCmd.Flags().BoolVarP(&idWait, "wait", "w", false, "Wait for a device to enter RCM")
	stubCmd.Flags().StringVarP(&stubLength, "length", "l", "0", "Payload length to generate the stub for (default: largest that fits)")
	runCmd.Flags().BoolVarP(&runNoWait, "no-wait", "n", false, "Fail instead of waiting when no device is in RCM")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(layoutCmd)
	rootCmd.AddCommand(stubCmd)
	rootCmd.AddCommand(idCmd)
	payloadsCmd.AddCommand(payloadsListCmd)
	payloadsCmd.AddCommand(payloadsImportCmd)
	rootCmd.AddCommand(payloadsCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// glog's -v would collide with --verbose as a pflag shorthand, the
	// verbose flag sets it instead.
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		if f.Name == "v" {
			return
		}
		pflag.CommandLine.AddGoFlag(f)
	})
}

func parseNumber(s string) (uint32, error) {
	var err error
	var res uint64
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		res, err = strconv.ParseUint(s[2:], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q", s)
		}
	} else {
		res, err = strconv.ParseUint(s, 10, 32)
		if err != nil {
			res, err = strconv.ParseUint(s, 16, 32)
			if err != nil {
				return 0, fmt.Errorf("invalid number %q", s)
			}
		}
	}
	return uint32(res), nil
}
