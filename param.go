package ctsim

// file param.go holds the configuration of a simulation run: the files it reads and
// writes, how long the event loop runs, and the icons the animation draws nodes with

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultResources are the icons added to every animation session, indexed by Role.IconIndex
var defaultResources = []string{
	"icons/core-cloud.png",
	"icons/edge-cloud.png",
	"icons/end-host.png",
	"icons/access-point.png",
	"icons/station.png",
}

// SimConfig holds the parameters of one run
type SimConfig struct {
	Name         string   `json:"name" yaml:"name" validate:"required"`
	TopologyFile string   `json:"topology" yaml:"topology" validate:"required"`
	AppFile      string   `json:"apps,omitempty" yaml:"apps,omitempty"`
	AnimFile     string   `json:"anim,omitempty" yaml:"anim,omitempty"`
	TraceFile    string   `json:"trace,omitempty" yaml:"trace,omitempty"`
	ArchiveFile  string   `json:"archive,omitempty" yaml:"archive,omitempty"`
	MetricsFile  string   `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	RunDuration  float64  `json:"duration" yaml:"duration" validate:"gt=0"`
	Resources    []string `json:"resources" yaml:"resources" validate:"dive,required"`
	LogLevel     string   `json:"loglevel,omitempty" yaml:"loglevel,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultSimConfig is a constructor giving the configuration used when nothing is set
func DefaultSimConfig() *SimConfig {
	cfg := new(SimConfig)
	cfg.Name = "cybertwin"
	cfg.AnimFile = "cybertwin.xml"
	cfg.RunDuration = 10.0
	cfg.Resources = make([]string, len(defaultResources))
	copy(cfg.Resources, defaultResources)
	cfg.LogLevel = "info"
	return cfg
}

// Validate reports the first problem found with the configuration.  Every icon
// index a role can ask for must name a resource.
func (cfg *SimConfig) Validate() error {
	if err := formatValidationError(validate.Struct(cfg)); err != nil {
		return fmt.Errorf("configuration %s: %w", cfg.Name, err)
	}
	for _, role := range bootOrder {
		if role.IconIndex() >= len(cfg.Resources) {
			return fmt.Errorf("configuration %s: role %s draws icon %d, only %d resources given",
				cfg.Name, role, role.IconIndex(), len(cfg.Resources))
		}
	}
	return nil
}

// SlogLevel converts LogLevel for the slog handler; empty or unknown is info
func (cfg *SimConfig) SlogLevel() slog.Level {
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WriteToFile stores the SimConfig struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (cfg *SimConfig) WriteToFile(filename string) error {
	var bytes []byte
	var merr error
	if IsYAMLFile(filename) {
		bytes, merr = yaml.Marshal(*cfg)
	} else {
		bytes, merr = json.MarshalIndent(*cfg, "", "\t")
	}
	if merr != nil {
		return merr
	}
	return os.WriteFile(filename, bytes, 0o644)
}

// ReadSimConfig deserializes a byte slice holding a representation of a SimConfig struct.
// If the input argument of dict (those bytes) is empty, the file whose name is given is read
// to acquire them.  Fields the representation leaves out keep their DefaultSimConfig values.
func ReadSimConfig(filename string, useYAML bool, dict []byte) (*SimConfig, error) {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, &SourceError{Path: filename, Err: err}
		}
	}

	example := DefaultSimConfig()
	if useYAML {
		err = yaml.Unmarshal(dict, example)
	} else {
		err = json.Unmarshal(dict, example)
	}
	if err != nil {
		return nil, &SourceError{Path: filename, Err: err}
	}
	return example, nil
}
