package infra

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"

	ClearScreen = "\033[2J\033[H"
)

// StdoutIsTerminal reports whether stdout supports ANSI control sequences.
func StdoutIsTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// PrintBanner displays the startup banner with mode-specific warnings.
func PrintBanner(cfg *Config) {
	mode := "SIMULATED"
	modeDesc := "NO ORDERS LEAVE THIS MACHINE"
	color := ColorCyan
	if cfg.IsLive() {
		mode = "LIVE"
		modeDesc = "REAL ORDERS AGAINST BACKPACK"
		color = ColorRed
	}
	if !StdoutIsTerminal() {
		color = ""
	}
	reset := ColorReset
	if color == "" {
		reset = ""
	}

	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", color, reset)
	fmt.Printf("%s#                                                         #%s\n", color, reset)
	fmt.Printf("%s#            Backpack Volume Trading Terminal             #%s\n", color, reset)
	fmt.Printf("%s#                                                         #%s\n", color, reset)
	fmt.Printf("%s#   MODE:    %-44s #%s\n", color, mode, reset)
	fmt.Printf("%s#   TYPE:    %-44s #%s\n", color, modeDesc, reset)
	fmt.Printf("%s#   VENUE:   %-44s #%s\n", color, cfg.Exchange.BaseURL, reset)
	fmt.Printf("%s#                                                         #%s\n", color, reset)

	if cfg.IsLive() {
		fmt.Printf("%s#   WARNING: YOU ARE TRADING WITH REAL MONEY              #%s\n", color, reset)
	}

	fmt.Printf("%s###########################################################%s\n", color, reset)
	fmt.Println()
}
