package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/rcmsmash/rcmsmash/pkg/rcm"
)

var runNoWait bool

const progressTemplate = `{{string . "buffer" | blue}} {{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent .}}`

var runCmd = &cobra.Command{
	Use:   "run [payload]",
	Short: "Run a payload on a device in RCM",
	Long: `Builds an image from a payload (a file path, or a name or index from the
payload store), waits for a device in RCM, uploads the image and triggers it.
Without a payload argument, a payload is picked interactively from the store.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		var sel string
		if len(args) > 0 {
			sel = args[0]
		}
		entry, payload, err := loadPayload(sel)
		if err != nil {
			return err
		}
		cfg, kind, err := offlineConfig(p)
		if err != nil {
			return err
		}
		image, err := craft(cfg, payload)
		if err != nil {
			return err
		}
		fmt.Println(renderKV("Payload", fmt.Sprintf("%s (%s)", entry.Name, humanSize(int64(len(payload))))))
		fmt.Println(renderKV("Image", humanSize(int64(len(image)))))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()
		app, err := openDevice(ctx, p, !runNoWait)
		if err != nil {
			return err
		}
		defer app.Close()
		if app.Desc.Kind != kind {
			return fmt.Errorf("image was built for %s, but found %s", kind, app.Desc.Kind)
		}

		bar := pb.New(len(image))
		bar.Set(pb.Bytes, true)
		bar.SetTemplateString(progressTemplate)
		driver := app.Driver(rcm.WithProgress(func(sent, total int) {
			bar.SetCurrent(int64(sent))
		}))

		id, err := driver.DeviceID()
		if err != nil {
			return fmt.Errorf("could not read device ID: %w", err)
		}
		fmt.Println(renderKV("Device ID", fmt.Sprintf("%x", id)))

		bar.Set("buffer", "uploading")
		bar.Start()
		buf, err := driver.Upload(image)
		bar.Set("buffer", fmt.Sprintf("buffer %s", buf))
		bar.Finish()
		if err != nil {
			return fmt.Errorf("upload failed: %w", err)
		}

		outcome, err := driver.Trigger(buf)
		if err != nil {
			return fmt.Errorf("trigger failed (%s): %w", outcome, err)
		}
		switch outcome {
		case rcm.OutcomeSmashed:
			fmt.Println(successStyle.Render("Payload launched."))
		case rcm.OutcomeRejected:
			fmt.Println(warningStyle.Render("The device rejected the trigger request after the copy, the payload most likely runs."))
		default:
			return fmt.Errorf("trigger request completed normally (%s), the payload did not run", outcome)
		}
		return nil
	},
}
