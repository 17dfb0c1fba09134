package ctsim

// file simulator.go drives a run through its fixed sequence of phases: read the
// inputs, compile the topology, open the animation, boot the nodes role by role,
// install and start applications, run the event loop, and write the outputs

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/iti/evt/evtm"
)

// Phase is the base type for an enumerated type of simulator states
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInputReady
	PhaseTopologyCompiled
	PhaseAnimationReady
	PhaseBooted
	PhaseAppsInstalled
	PhaseRunning
	PhaseTerminated
)

var phaseNames = []string{"Uninitialized", "InputReady", "TopologyCompiled", "AnimationReady",
	"Booted", "AppsInstalled", "Running", "Terminated"}

func (phase Phase) String() string {
	if phase < 0 || int(phase) >= len(phaseNames) {
		return fmt.Sprintf("Phase(%d)", int(phase))
	}
	return phaseNames[phase]
}

// Simulator owns the collaborators of one run and the phase it has reached
type Simulator struct {
	cfg     *SimConfig
	root    *slog.Logger
	logger  *slog.Logger
	metrics *Metrics
	phase   Phase

	reader *TopologyReader
	evtMgr *evtm.EventManager
	graph  *Graph
	routes *RoutingTables
	vis    Visualizer
	trace  *TraceManager
	apps   []*App
	runID  string
}

// NewSimulator is a constructor.  A nil configuration selects DefaultSimConfig, a nil
// logger selects slog.Default().  The configuration is validated here.
func NewSimulator(cfg *SimConfig, logger *slog.Logger) (*Simulator, error) {
	if cfg == nil {
		cfg = DefaultSimConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sim := new(Simulator)
	sim.cfg = cfg
	sim.root = logger
	sim.logger = logger.With("component", "Simulator")
	sim.metrics = NewMetrics()
	sim.phase = PhaseUninitialized
	return sim, nil
}

// require checks that op is called in phase want
func (sim *Simulator) require(op string, want Phase) error {
	if sim.phase != want {
		err := &StateError{Op: op, Want: want, Have: sim.phase}
		sim.logger.Error(err.Error())
		return err
	}
	return nil
}

// enter moves to phase next, recording the wall time spent getting there
func (sim *Simulator) enter(next Phase, began time.Time) {
	sim.metrics.phaseDone(next, time.Since(began).Seconds())
	sim.phase = next
	sim.logger.Debug("phase", "phase", next.String())
}

// InputInit binds the topology reader to its inputs and creates the event manager.
// Nothing is parsed.
func (sim *Simulator) InputInit() error {
	if err := sim.require("InputInit", PhaseUninitialized); err != nil {
		return err
	}
	began := time.Now()

	sim.reader = NewTopologyReader(sim.root, sim.metrics)
	sim.reader.SetFileName(sim.cfg.TopologyFile)
	sim.reader.SetAppFile(sim.cfg.AppFile)
	sim.evtMgr = evtm.New()
	sim.trace = CreateTraceManager(sim.cfg.Name, true)

	sim.logger.Info("input initialized", "topology", sim.cfg.TopologyFile, "apps", sim.cfg.AppFile)
	sim.enter(PhaseInputReady, began)
	return nil
}

// DriverCompile reads the topology into the graph and fills in the routing tables.
// A topology that cannot be loaded is returned, and the phase does not advance.
func (sim *Simulator) DriverCompile() error {
	if err := sim.require("DriverCompile", PhaseInputReady); err != nil {
		return err
	}
	began := time.Now()

	graph, err := sim.reader.Read()
	if err != nil {
		return err
	}
	sim.graph = graph

	for _, node := range graph.Nodes {
		sim.trace.AddName(node.ID, node.Name, node.Role.String())
	}

	sim.routes = CreateRoutingTables(graph)
	entries := sim.routes.Populate()
	sim.logger.Info("routing tables populated", "entries", entries)

	sim.enter(PhaseTopologyCompiled, began)
	return nil
}

// SetVisualizer replaces the animation session AnimationInit would create.
// It has effect only before AnimationInit.
func (sim *Simulator) SetVisualizer(vis Visualizer) {
	sim.vis = vis
}

// AnimationInit opens the visualization session, adds the icon resources and
// draws the realized links
func (sim *Simulator) AnimationInit() error {
	if err := sim.require("AnimationInit", PhaseTopologyCompiled); err != nil {
		return err
	}
	began := time.Now()

	if sim.vis == nil {
		sim.vis = NewAnimationInterface(sim.cfg.AnimFile)
	}
	for _, resource := range sim.cfg.Resources {
		sim.vis.AddResource(resource)
	}
	for _, link := range sim.graph.Links {
		sim.vis.RegisterLink(link)
	}

	sim.logger.Info("animation initialized", "file", sim.cfg.AnimFile, "resources", len(sim.cfg.Resources))
	sim.enter(PhaseAnimationReady, began)
	return nil
}

// DriverBoot powers the nodes on, one role partition at a time in boot order, and
// registers each with the visualization session as it comes up
func (sim *Simulator) DriverBoot() error {
	if err := sim.require("DriverBoot", PhaseAnimationReady); err != nil {
		return err
	}
	began := time.Now()
	now := sim.evtMgr.CurrentTime()

	for _, role := range bootOrder {
		partition := sim.graph.Partition(role)
		sim.logger.Info("booting", "role", role.String(), "nodes", len(partition))

		for _, node := range partition {
			role.PowerOn(node, now, sim.trace)
			sim.vis.RegisterNode(node, role.VisualSize(), role.IconIndex())
			sim.metrics.nodePowered(role)
		}
	}

	sim.enter(PhaseBooted, began)
	return nil
}

// DriverInstallApps installs the applications of the manifest and schedules their
// start on every node whose role starts applications.  A manifest that cannot be
// loaded is returned, and the phase does not advance.
func (sim *Simulator) DriverInstallApps() error {
	if err := sim.require("DriverInstallApps", PhaseBooted); err != nil {
		return err
	}
	began := time.Now()

	apps, err := sim.reader.InstallApplications()
	if err != nil {
		return err
	}
	sim.apps = apps

	env := &appEnv{tm: sim.trace, metrics: sim.metrics, logger: sim.root.With("component", "Applications")}
	scheduled := 0
	for _, role := range bootOrder {
		if !role.StartsApps() {
			sim.logger.Debug("role does not start applications", "role", role.String())
			continue
		}
		for _, node := range sim.graph.Partition(role) {
			scheduled += node.StartAllApps(sim.evtMgr, env)
		}
	}

	sim.logger.Info("applications installed", "installed", len(apps), "scheduled", scheduled)
	sim.enter(PhaseAppsInstalled, began)
	return nil
}

// RunSimulator runs the event loop until the configured run duration
func (sim *Simulator) RunSimulator() error {
	if err := sim.require("RunSimulator", PhaseAppsInstalled); err != nil {
		return err
	}
	began := time.Now()

	sim.logger.Info("running", "duration", sim.cfg.RunDuration)
	sim.evtMgr.Run(sim.cfg.RunDuration)
	sim.logger.Info("run complete", "traces", sim.trace.Len())

	sim.enter(PhaseRunning, began)
	return nil
}

// Output flushes the animation and writes the trace, the run archive and the
// metrics, each when configured.  The phase terminates even when some output
// fails; the failures are returned together.
func (sim *Simulator) Output() error {
	if err := sim.require("Output", PhaseRunning); err != nil {
		return err
	}
	began := time.Now()
	errs := make([]error, 0)

	if err := sim.vis.Flush(); err != nil {
		errs = append(errs, err)
	}

	if len(sim.cfg.TraceFile) > 0 {
		if _, err := sim.trace.WriteToFile(sim.cfg.TraceFile, true); err != nil {
			errs = append(errs, fmt.Errorf("trace %s: %w", sim.cfg.TraceFile, err))
		}
	}

	if len(sim.cfg.ArchiveFile) > 0 {
		errs = append(errs, sim.archive())
	}

	sim.enter(PhaseTerminated, began)

	// written last, so the Output phase time is in it
	if len(sim.cfg.MetricsFile) > 0 {
		if err := sim.metrics.WriteToTextfile(sim.cfg.MetricsFile); err != nil {
			errs = append(errs, fmt.Errorf("metrics %s: %w", sim.cfg.MetricsFile, err))
		}
	}

	err := ReportErrs(errs)
	if err != nil {
		sim.logger.Error("output incomplete", "err", err)
	}
	return err
}

// archive saves the run in the configured archive
func (sim *Simulator) archive() error {
	ra, err := OpenRunArchive(sim.cfg.ArchiveFile)
	if err != nil {
		return err
	}
	defer ra.Close()

	run := RunRecord{Name: sim.cfg.Name, Topology: sim.cfg.TopologyFile, Duration: sim.cfg.RunDuration}
	sim.runID, err = ra.Save(run, sim.graph, sim.trace)
	if err != nil {
		return err
	}
	sim.logger.Info("run archived", "archive", sim.cfg.ArchiveFile, "run", sim.runID)
	return nil
}

// Run executes every phase in order, stopping at the first that fails
func (sim *Simulator) Run() error {
	steps := []func() error{sim.InputInit, sim.DriverCompile, sim.AnimationInit, sim.DriverBoot,
		sim.DriverInstallApps, sim.RunSimulator, sim.Output}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

// Phase reports the phase the simulator has reached
func (sim *Simulator) Phase() Phase {
	return sim.phase
}

// Config returns the configuration of the run
func (sim *Simulator) Config() *SimConfig {
	return sim.cfg
}

// Reader returns the topology reader, nil before InputInit
func (sim *Simulator) Reader() *TopologyReader {
	return sim.reader
}

// Graph returns the compiled graph, nil before DriverCompile
func (sim *Simulator) Graph() *Graph {
	return sim.graph
}

// Routes returns the routing tables, nil before DriverCompile
func (sim *Simulator) Routes() *RoutingTables {
	return sim.routes
}

// Animation returns the visualization session, nil before AnimationInit
func (sim *Simulator) Animation() Visualizer {
	return sim.vis
}

// Trace returns the trace manager
func (sim *Simulator) Trace() *TraceManager {
	return sim.trace
}

// Apps returns the installed applications
func (sim *Simulator) Apps() []*App {
	return sim.apps
}

// Metrics returns the collectors of the run
func (sim *Simulator) Metrics() *Metrics {
	return sim.metrics
}

// EventManager returns the event manager, nil before InputInit
func (sim *Simulator) EventManager() *evtm.EventManager {
	return sim.evtMgr
}

// RunID is the id the run was archived under, empty if it was not
func (sim *Simulator) RunID() string {
	return sim.runID
}
