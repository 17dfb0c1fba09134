package main

import (
	"fmt"
	"log/slog"

	ctsim "github.com/myk12/CTSim"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile a topology and report what was built.",
	Long: "`validate --topology net.yaml` reads the topology, prints the " +
		"nodes of every role and the links realized, and lists the problems found.",
	RunE: func(cmd *cobra.Command, args []string) error {
		topoFile, _ := cmd.Flags().GetString("topology")
		if len(topoFile) == 0 {
			return fmt.Errorf("--topology is required")
		}

		level := slog.LevelWarn
		if len(logLevel) > 0 {
			cfg := ctsim.SimConfig{LogLevel: logLevel}
			level = cfg.SlogLevel()
		}

		tr := ctsim.NewTopologyReader(newLogger(level), nil)
		tr.SetFileName(topoFile)
		g, err := tr.Read()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, role := range ctsim.BootOrder() {
			fmt.Fprintf(out, "%-12s %d\n", role.String(), len(g.Partition(role)))
		}
		fmt.Fprintf(out, "%-12s %d\n", "links", len(g.Links))
		for _, link := range g.Links {
			fmt.Fprintf(out, "  %s\n", link.String())
		}

		diags := tr.Diagnostics()
		fmt.Fprintf(out, "%-12s %d\n", "issues", len(diags))
		for _, diag := range diags {
			fmt.Fprintf(out, "  %s\n", diag.Error())
		}
		return nil
	},
}

func init() {
	addValidateFlags(validateCmd)
}

func addValidateFlags(cmd *cobra.Command) {
	cmd.Flags().String("topology", "", "topology description (yaml or json)")
}
