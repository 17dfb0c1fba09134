package main

import (
	"fmt"

	ctsim "github.com/myk12/CTSim"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulator over a topology.",
	Long: "`run --topology net.yaml` takes the run through every phase and " +
		"writes the outputs named by the configuration and the flags.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := buildConfig(cmd)
		if err != nil {
			return err
		}

		logger := newLogger(cfg.SlogLevel())
		sim, err := ctsim.NewSimulator(cfg, logger)
		if err != nil {
			return err
		}

		// a run that stops early still leaves its metrics behind
		atexit.Register(func() {
			if sim.Phase() == ctsim.PhaseTerminated || len(cfg.MetricsFile) == 0 {
				return
			}
			if err := sim.Metrics().WriteToTextfile(cfg.MetricsFile); err != nil {
				logger.Error("cannot write metrics", "file", cfg.MetricsFile, "err", err)
			}
		})

		if err := sim.Run(); err != nil {
			return fmt.Errorf("run stopped in phase %s: %w", sim.Phase(), err)
		}

		logger.Info("done", "nodes", sim.Graph().NumNodes(), "links", len(sim.Graph().Links),
			"apps", len(sim.Apps()), "traces", sim.Trace().Len(), "run", sim.RunID())
		return nil
	},
}

func init() {
	addRunFlags(runCmd)
}

// addRunFlags declares the flags buildConfig reads
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "yaml or json run configuration")
	cmd.Flags().String("topology", "", "topology description (yaml or json)")
	cmd.Flags().String("apps", "", "application manifest (yaml or json)")
	cmd.Flags().String("anim", "", "animation output (.xml, .yaml or .json)")
	cmd.Flags().String("trace", "", "trace output (.yaml or .json)")
	cmd.Flags().String("archive", "", "SQLite run archive")
	cmd.Flags().String("metrics", "", "prometheus textfile output")
	cmd.Flags().Float64("duration", 0, "simulated seconds to run")
}

// buildConfig starts from the defaults or the configuration file, and applies
// every flag given on the command line over it
func buildConfig(cmd *cobra.Command) (*ctsim.SimConfig, error) {
	cfg := ctsim.DefaultSimConfig()

	cfgFile, _ := cmd.Flags().GetString("config")
	if len(cfgFile) > 0 {
		var err error
		cfg, err = ctsim.ReadSimConfig(cfgFile, ctsim.IsYAMLFile(cfgFile), nil)
		if err != nil {
			return nil, err
		}
	}

	overrides := map[string]*string{
		"topology": &cfg.TopologyFile,
		"apps":     &cfg.AppFile,
		"anim":     &cfg.AnimFile,
		"trace":    &cfg.TraceFile,
		"archive":  &cfg.ArchiveFile,
		"metrics":  &cfg.MetricsFile,
	}
	for flag, field := range overrides {
		if cmd.Flags().Changed(flag) {
			*field, _ = cmd.Flags().GetString(flag)
		}
	}
	if cmd.Flags().Changed("duration") {
		cfg.RunDuration, _ = cmd.Flags().GetFloat64("duration")
	}
	if len(logLevel) > 0 {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}
