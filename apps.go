package ctsim

// file apps.go holds the application manifest, the installation of applications on
// graph nodes, and the event handlers that start, tick and stop them during a run

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/iti/evt/evtm"
	"github.com/iti/evt/vrtime"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// AppKind is the base type for an enumerated type of application behaviors
type AppKind int

const (
	ServiceApp AppKind = iota // starts once, runs until stopped
	PeriodicApp               // starts, then acts every Interval seconds
)

// AppKindFromStr returns the AppKind for a manifest 'kind' string; empty selects ServiceApp
func AppKindFromStr(kind string) AppKind {
	switch kind {
	case "periodic":
		return PeriodicApp
	default:
		return ServiceApp
	}
}

func (kind AppKind) String() string {
	if kind == PeriodicApp {
		return "periodic"
	}
	return "service"
}

// AppDesc is one entry of the application manifest
type AppDesc struct {
	Name      string   `json:"name" yaml:"name" validate:"required"`
	Kind      string   `json:"kind,omitempty" yaml:"kind,omitempty" validate:"omitempty,oneof=service periodic"`
	InstallOn []string `json:"install_on" yaml:"install_on" validate:"required,min=1,dive,required"`
	Start     float64  `json:"start" yaml:"start" validate:"gte=0"`
	Stop      float64  `json:"stop,omitempty" yaml:"stop,omitempty" validate:"gte=0"`
	Interval  float64  `json:"interval,omitempty" yaml:"interval,omitempty" validate:"gte=0"`
	Jitter    float64  `json:"jitter,omitempty" yaml:"jitter,omitempty" validate:"gte=0"`
}

// AppManifest is the document naming the applications to install
type AppManifest struct {
	Applications []AppDesc `json:"applications" yaml:"applications"`
}

// check reports what, if anything, makes the description unusable
func (ad *AppDesc) check() error {
	if err := formatValidationError(validate.Struct(ad)); err != nil {
		return err
	}
	if AppKindFromStr(ad.Kind) == PeriodicApp && !(ad.Interval > 0.0) {
		return fmt.Errorf("periodic application needs a positive interval")
	}
	if ad.Stop > 0.0 && ad.Stop <= ad.Start {
		return fmt.Errorf("stop %g is not after start %g", ad.Stop, ad.Start)
	}
	return nil
}

// ReadAppManifest deserializes a slice of bytes into an AppManifest.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.
func ReadAppManifest(filename string, useYAML bool, dict []byte) (*AppManifest, error) {
	var err error
	if len(dict) == 0 {
		dict, err = os.ReadFile(filename)
		if err != nil {
			return nil, &SourceError{Path: filename, Err: err}
		}
	}

	example := AppManifest{}
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, &SourceError{Path: filename, Err: err}
	}
	return &example, nil
}

// App is one application installed on one graph node
type App struct {
	Name     string
	Kind     AppKind
	Node     *SimNode
	Start    float64
	Stop     float64
	Interval float64
	Jitter   float64

	Started   bool
	StartedAt float64
	Stopped   bool
	Ticks     int

	env *appEnv
}

// appEnv is what the event handlers of a running application report to
type appEnv struct {
	tm      *TraceManager
	metrics *Metrics
	logger  *slog.Logger
}

// createApp is a constructor
func createApp(ad *AppDesc, node *SimNode) *App {
	return &App{Name: ad.Name, Kind: AppKindFromStr(ad.Kind), Node: node, Start: ad.Start,
		Stop: ad.Stop, Interval: ad.Interval, Jitter: ad.Jitter}
}

// InstallApplications reads the application manifest and installs each application on
// every node of every entity it names.  An empty manifest file name installs nothing.
// Only a failure to load the manifest is returned; bad entries and unknown entity names
// are logged and skipped.
func (tr *TopologyReader) InstallApplications() ([]*App, error) {
	installed := make([]*App, 0)
	if len(tr.appFile) == 0 {
		tr.logger.Info("no application manifest given")
		return installed, nil
	}

	manifest, err := ReadAppManifest(tr.appFile, IsYAMLFile(tr.appFile), nil)
	if err != nil {
		tr.logger.Error("cannot load application manifest", "file", tr.appFile, "err", err)
		return nil, err
	}
	return tr.installManifest(manifest), nil
}

// installManifest does the work of InstallApplications for an already loaded manifest
func (tr *TopologyReader) installManifest(manifest *AppManifest) []*App {
	installed := make([]*App, 0)

	for idx := range manifest.Applications {
		ad := &manifest.Applications[idx]
		if err := ad.check(); err != nil {
			tr.note(&SchemaError{Entity: ad.Name, Reason: "application: " + err.Error()})
			continue
		}

		for pos, entity := range ad.InstallOn {
			// an entity named twice gets the application once
			if slices.Contains(ad.InstallOn[:pos], entity) {
				continue
			}
			ni, present := tr.registry.Lookup(entity)
			if !present {
				tr.note(&ReferenceError{Source: ad.Name, Target: entity, What: "application"})
				continue
			}
			for _, node := range ni.Nodes {
				app := createApp(ad, node)
				node.Apps = append(node.Apps, app)
				installed = append(installed, app)
			}
		}
		tr.logger.Debug("application installed", "app", ad.Name, "kind", AppKindFromStr(ad.Kind).String(),
			"entities", len(ad.InstallOn))
	}
	return installed
}

// StartAllApps schedules the start (and stop) of every application installed on the node.
// It returns the number of applications scheduled.  Nothing is started on a node
// that has not been powered on.
func (node *SimNode) StartAllApps(evtMgr *evtm.EventManager, env *appEnv) int {
	if len(node.Apps) == 0 {
		return 0
	}
	if !node.Powered {
		env.logger.Warn("node not powered, applications not started", "node", node.Name, "apps", len(node.Apps))
		return 0
	}

	now := evtMgr.CurrentSeconds()
	started := 0
	for _, app := range node.Apps {
		app.env = env

		// spread the start over [Start, Start+Jitter) using the node's own stream
		jitter := 0.0
		if app.Jitter > 0.0 {
			jitter = app.Jitter * node.DevRng().RandU01()
		}

		startAt := app.Start + jitter
		if startAt < now {
			startAt = now
		}
		evtMgr.Schedule(app, nil, appStart, vrtime.SecondsToTime(startAt-now))

		if app.Stop > 0.0 {
			stopAt := app.Stop
			if stopAt < now {
				stopAt = now
			}
			evtMgr.Schedule(app, nil, appStop, vrtime.SecondsToTime(stopAt-now))
		}
		started += 1
	}
	return started
}

// appStart is the event handler that marks an application as running
func appStart(evtMgr *evtm.EventManager, context any, data any) any {
	app := context.(*App)
	if app.Stopped || app.Started {
		return nil
	}

	app.Started = true
	app.StartedAt = evtMgr.CurrentSeconds()
	AddNodeTrace(app.env.tm, evtMgr.CurrentTime(), app.Node, "app-start", app.Name)
	app.env.metrics.appStarted(app.Node.Role)
	app.env.metrics.appEvent()

	if app.Kind == PeriodicApp {
		evtMgr.Schedule(app, nil, appTick, vrtime.SecondsToTime(app.Interval))
	}
	return nil
}

// appTick is the recurring event handler of a periodic application
func appTick(evtMgr *evtm.EventManager, context any, data any) any {
	app := context.(*App)
	if app.Stopped {
		return nil
	}

	app.Ticks += 1
	AddNodeTrace(app.env.tm, evtMgr.CurrentTime(), app.Node, "app-tick", app.Name)
	app.env.metrics.appEvent()

	evtMgr.Schedule(app, nil, appTick, vrtime.SecondsToTime(app.Interval))
	return nil
}

// appStop is the event handler that ends an application
func appStop(evtMgr *evtm.EventManager, context any, data any) any {
	app := context.(*App)
	if app.Stopped {
		return nil
	}

	app.Stopped = true
	AddNodeTrace(app.env.tm, evtMgr.CurrentTime(), app.Node, "app-stop", app.Name)
	app.env.metrics.appEvent()
	return nil
}
