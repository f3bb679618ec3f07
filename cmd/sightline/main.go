package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"sightline/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "sightline",
	Short: "Sightline execution tracer and launcher",
	Long:  `Sightline captures interpreter-level execution notifications and streams structured trace events to an observer`,
}

// main wires the subcommands and persistent flags, then executes the root
// command. A command error exits with status 1.
func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// applyColorMode resolves the --color flag into the global color switch.
func applyColorMode(cmd *cobra.Command) {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	default:
		color.NoColor = !isTerminal(os.Stdout)
	}
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
