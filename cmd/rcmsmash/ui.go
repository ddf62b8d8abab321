package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rcmsmash/rcmsmash/pkg/payloads"
)

var (
	accentColor  = lipgloss.Color("#76B900")
	successColor = lipgloss.Color("#43BF6D")
	warningColor = lipgloss.Color("#FFA500")
	mutedColor   = lipgloss.Color("#626262")
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	indexStyle   = lipgloss.NewStyle().Foreground(accentColor).Width(4).Align(lipgloss.Right)
	keyStyle     = lipgloss.NewStyle().Foreground(mutedColor).Width(16)
	mutedStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
	promptStyle  = lipgloss.NewStyle().Foreground(warningColor).Bold(true)
)

func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}

func renderEntry(e *payloads.Entry) string {
	name := e.Name
	if e.Compressed() {
		name += mutedStyle.Render(" (xz)")
	}
	return fmt.Sprintf("%s  %s  %s", indexStyle.Render(fmt.Sprintf("%d.", e.Index)), name,
		mutedStyle.Render(fmt.Sprintf("%s, %s", humanSize(e.Size), e.Digest[:12])))
}

func renderKV(k string, v any) string {
	return keyStyle.Render(k) + fmt.Sprint(v)
}

// pickPayload shows the payload store and reads a choice from stdin.
func pickPayload(store *payloads.Store) (*payloads.Entry, error) {
	if !interactive() {
		return nil, fmt.Errorf("no payload given and stdin is not a terminal")
	}
	entries, err := store.List()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no payload given and none in %s, add one with 'rcmsmash payloads import'", store.Dir)
	}

	fmt.Println(titleStyle.Render("Payloads"))
	for i := range entries {
		fmt.Println(renderEntry(&entries[i]))
	}
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print(promptStyle.Render(fmt.Sprintf("Pick a payload [1-%d]: ", len(entries))))
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil, fmt.Errorf("no payload picked")
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		e, err := store.Choose(input)
		if err != nil {
			fmt.Println(mutedStyle.Render(fmt.Sprintf("  %v", err)))
			continue
		}
		return e, nil
	}
}
