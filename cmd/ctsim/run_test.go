package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRunFlags gives a fresh command carrying the run flags, parsed from args
func newRunFlags(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "run"}
	addRunFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestBuildConfigFlagsOverrideFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(cfgFile,
		[]byte("name: lab\ntopology: net.yaml\nduration: 3\ntrace: trace.yaml\n"), 0o644))

	cfg, err := buildConfig(newRunFlags(t, "--config", cfgFile, "--topology", "other.yaml", "--duration", "7"))
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Name)
	assert.Equal(t, "other.yaml", cfg.TopologyFile)
	assert.Equal(t, 7.0, cfg.RunDuration)
	assert.Equal(t, "trace.yaml", cfg.TraceFile)
	assert.Equal(t, "cybertwin.xml", cfg.AnimFile)
}

func TestBuildConfigMissingFile(t *testing.T) {
	_, err := buildConfig(newRunFlags(t, "--config", filepath.Join(t.TempDir(), "absent.yaml")))
	assert.Error(t, err)
}
