package ctsim

// file trace.go gathers a record of what happened to each node during a run:
// power-on, and the start, ticks and stop of the applications installed on it

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"github.com/iti/evt/vrtime"
	"gopkg.in/yaml.v3"
)

// TraceInst is one stored trace record
type TraceInst struct {
	TraceTime string `json:"tracetime" yaml:"tracetime"`
	TraceType string `json:"tracetype" yaml:"tracetype"`
	TraceStr  string `json:"tracestr" yaml:"tracestr"`
}

// NameType is a an entry in a dictionary created for a trace
// that maps node id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// TraceManager gathers information about a simulation model and an execution of that model
type TraceManager struct {
	// experiment uses trace
	InUse bool `json:"inuse" yaml:"inuse"`

	// name of experiment
	ExpName string `json:"expname" yaml:"expname"`

	// text name associated with each node id
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// all trace records for this experiment, by node id
	Traces map[int][]TraceInst `json:"traces" yaml:"traces"`
}

// CreateTraceManager is a constructor.  It saves the name of the experiment
// and a flag indicating whether the trace manager is active.  By testing this
// flag we can inhibit the activity of gathering a trace when we don't want it,
// while embedding calls to its methods everywhere we need them when it is
func CreateTraceManager(expName string, active bool) *TraceManager {
	tm := new(TraceManager)
	tm.InUse = active
	tm.ExpName = expName
	tm.NameByID = make(map[int]NameType)
	tm.Traces = make(map[int][]TraceInst)
	return tm
}

// Active tells the caller whether the Trace Manager is actively being used
func (tm *TraceManager) Active() bool {
	return tm.InUse
}

// AddTrace stores a trace record under the id of the node it concerns
func (tm *TraceManager) AddTrace(vrt vrtime.Time, nodeID int, trace TraceInst) {
	if !tm.InUse {
		return
	}
	tm.Traces[nodeID] = append(tm.Traces[nodeID], trace)
}

// AddName is used to add an element to the id -> (name,type) dictionary for the trace file
func (tm *TraceManager) AddName(id int, name string, objDesc string) {
	if tm.InUse {
		_, present := tm.NameByID[id]
		if present {
			panic("duplicated id in AddName")
		}
		tm.NameByID[id] = NameType{Name: name, Type: objDesc}
	}
}

// Len is the number of trace records held
func (tm *TraceManager) Len() int {
	total := 0
	for _, traces := range tm.Traces {
		total += len(traces)
	}
	return total
}

// Ordered returns every trace record, sorted by time.  Records with the same time
// keep node-id order.
func (tm *TraceManager) Ordered() []TraceInst {
	ids := make([]int, 0, len(tm.Traces))
	for id := range tm.Traces {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	all := make([]TraceInst, 0, tm.Len())
	for _, id := range ids {
		all = append(all, tm.Traces[id]...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		v1, _ := strconv.ParseFloat(all[i].TraceTime, 64)
		v2, _ := strconv.ParseFloat(all[j].TraceTime, 64)
		return v1 < v2
	})
	return all
}

// WriteToFile stores the Traces struct to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
// With globalOrder set, all records are merged into one time-ordered list under key 0.
func (tm *TraceManager) WriteToFile(filename string, globalOrder bool) (bool, error) {
	if !tm.InUse {
		return false, nil
	}

	out := tm
	if globalOrder {
		ntm := CreateTraceManager(tm.ExpName, tm.InUse)
		for key, value := range tm.NameByID {
			ntm.NameByID[key] = value
		}
		ntm.Traces[0] = tm.Ordered()
		out = ntm
	}

	var bytes []byte
	var merr error
	if IsYAMLFile(filename) {
		bytes, merr = yaml.Marshal(*out)
	} else {
		bytes, merr = json.MarshalIndent(*out, "", "\t")
	}
	if merr != nil {
		return false, merr
	}

	if err := os.WriteFile(filename, bytes, 0o644); err != nil {
		return false, err
	}
	return true, nil
}

// NodeTrace saves information about something that happened on a node
type NodeTrace struct {
	Time     float64 `yaml:"time"`
	Ticks    int64   `yaml:"ticks"`
	Priority int64   `yaml:"priority"`
	NodeID   int     `yaml:"nodeid"`
	Node     string  `yaml:"node"`
	Op       string  `yaml:"op"` // "power-on", "app-start", "app-tick", "app-stop"
	Detail   string  `yaml:"detail,omitempty"`
}

// Serialize gives the yaml form stored in a TraceInst
func (ntr *NodeTrace) Serialize() string {
	bytes, merr := yaml.Marshal(*ntr)
	if merr != nil {
		panic(merr)
	}
	return string(bytes[:])
}

// AddNodeTrace creates a record of the trace using its calling arguments, and stores it
func AddNodeTrace(tm *TraceManager, vrt vrtime.Time, node *SimNode, op, detail string) {
	if !tm.Active() {
		return
	}
	ntr := new(NodeTrace)
	ntr.Time = vrt.Seconds()
	ntr.Ticks = vrt.Ticks()
	ntr.Priority = vrt.Pri()
	ntr.NodeID = node.ID
	ntr.Node = node.Name
	ntr.Op = op
	ntr.Detail = detail

	traceTime := strconv.FormatFloat(ntr.Time, 'f', -1, 64)
	trcInst := TraceInst{TraceTime: traceTime, TraceType: op, TraceStr: ntr.Serialize()}
	tm.AddTrace(vrt, node.ID, trcInst)
}
