package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcmsmash/rcmsmash/pkg/payloads"
)

var payloadsCmd = &cobra.Command{
	Use:   "payloads",
	Short: "Manage the payload store",
	Long:  "Payloads in the store can be passed to 'run' and 'build' by name or index. Files ending in .xz are decompressed when read.",
}

var payloadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List payloads in the store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := payloads.Default()
		entries, err := store.List()
		if err != nil {
			return err
		}
		fmt.Println(titleStyle.Render("Payloads") + mutedStyle.Render(" in "+store.Dir))
		if len(entries) == 0 {
			fmt.Println(mutedStyle.Render("  (none)"))
		}
		for i := range entries {
			fmt.Println(renderEntry(&entries[i]))
		}
		return nil
	},
}

var payloadsImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Copy a payload file into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := payloads.Default().Import(args[0])
		if err != nil {
			return err
		}
		fmt.Println(renderEntry(e))
		return nil
	},
}
