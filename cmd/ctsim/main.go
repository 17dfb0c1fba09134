// Command ctsim builds a layered cybertwin network from a topology file and runs
// the simulator over it.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ctsim",
	Short: "ctsim builds a layered cybertwin network and simulates its boot.",
	Long: `ctsim reads a topology of core, edge and access layers, builds the ` +
		`network it declares, boots the nodes role by role, starts the ` +
		`applications of a manifest, and writes an animation, a trace and a ` +
		`run archive.`,
	SilenceUsage: true,
}

var logLevel string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"debug, info, warn or error (overrides the configuration file)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

// newLogger gives the text logger the commands log through
func newLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}
