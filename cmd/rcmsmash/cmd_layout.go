package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcmsmash/rcmsmash/pkg/rcm"
)

var layoutCmd = &cobra.Command{
	Use:   "layout [payload-length]",
	Short: "Show the memory map and image layout",
	Long:  "Prints the memory map in use (after applying --profile) and where each part of an image for a payload of the given length ends up.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := loadProfile()
		if err != nil {
			return err
		}
		cfg, kind, err := offlineConfig(p)
		if err != nil {
			return err
		}
		var n uint32
		if len(args) > 0 {
			n, err = parseNumber(args[0])
			if err != nil {
				return err
			}
		}
		s, err := loadStub(cfg, int(n))
		if err != nil {
			return err
		}
		l := rcm.Plan(int(n), len(s), cfg)

		fmt.Println(titleStyle.Render(fmt.Sprintf("%s memory map", kind)))
		fmt.Println(renderKV("Max length", fmt.Sprintf("0x%x", cfg.MaxLength)))
		fmt.Println(renderKV("Payload address", fmt.Sprintf("0x%08x", cfg.PayloadAddr)))
		fmt.Println(renderKV("Stub address", fmt.Sprintf("0x%08x", cfg.StubAddr)))
		fmt.Println(renderKV("User address", fmt.Sprintf("0x%08x", cfg.UserAddr)))
		fmt.Println(renderKV("Stack window", fmt.Sprintf("[0x%08x, 0x%08x)", cfg.StackStart, cfg.StackEnd)))
		fmt.Println(renderKV("Stack top", fmt.Sprintf("0x%08x", cfg.StackTop)))
		fmt.Println(renderKV("DMA buffers", fmt.Sprintf("0x%08x 0x%08x", cfg.DMABuffers[0], cfg.DMABuffers[1])))
		fmt.Println()

		fmt.Println(titleStyle.Render(fmt.Sprintf("Image for 0x%x byte payload", n)))
		fmt.Println(renderKV("Stub", fmt.Sprintf("0x%x (%d bytes, %d free)", l.StubOffset, len(s), cfg.StubCapacity()-len(s))))
		fmt.Println(renderKV("Padding", fmt.Sprintf("0x%x", l.PaddingOffset)))
		fmt.Println(renderKV("Payload", fmt.Sprintf("0x%x (%d bytes in window)", l.PayloadOffset, l.StackOffset-l.PayloadOffset)))
		fmt.Println(renderKV("Flood", fmt.Sprintf("[0x%x, 0x%x) (%d x 0x%08x)", l.StackOffset, l.StackEndOffset, cfg.RepeatCount(), cfg.PayloadAddr)))
		fmt.Println(renderKV("Suffix", fmt.Sprintf("0x%x (%d bytes)", l.SuffixOffset, l.TailOffset-l.SuffixOffset)))
		fmt.Println(renderKV("Tail pad", fmt.Sprintf("0x%x", l.TailOffset)))
		fmt.Println(renderKV("Length", fmt.Sprintf("0x%x", l.Length)))
		fmt.Println(renderKV("Max payload", fmt.Sprintf("%d bytes", rcm.MaxPayloadLength(len(s), cfg))))
		if l.Length > int(cfg.MaxLength) {
			fmt.Println(warningStyle.Render(fmt.Sprintf("Image exceeds max length by %d bytes.", l.Length-int(cfg.MaxLength))))
		}
		return nil
	},
}
