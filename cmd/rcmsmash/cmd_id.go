package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var idWait bool

var idCmd = &cobra.Command{
	Use:   "id",
	Short: "Print the device ID of a device in RCM",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		app, err := openDevice(ctx, p, idWait)
		if err != nil {
			return err
		}
		defer app.Close()

		id, err := app.Driver().DeviceID()
		if err != nil {
			return fmt.Errorf("could not read device ID: %w", err)
		}
		fmt.Printf("%x\n", id)
		return nil
	},
}
