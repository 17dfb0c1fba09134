package ctsim

// file desc-topo.go holds the serializable description of a layered
// cybertwin network: the layers, the entities declared in each layer, and the
// connections each entity declares.  The description is what the yaml (or json)
// topology file decodes into; the TopologyReader turns it into a Graph.

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// validate is the validator used for topology, manifest and configuration checks
var validate = validator.New()

// EntityKind is the base type for an enumerated type of declared entities
type EntityKind int

const (
	HostServerKind EntityKind = iota
	EndClusterKind
	AccessPointKind
	StationClusterKind
	UnknownKind
)

// EntityKindFromStr returns the EntityKind corresponding to the 'type' field of an entity
func EntityKindFromStr(kind string) EntityKind {
	switch kind {
	case "host_server":
		return HostServerKind
	case "end_cluster":
		return EndClusterKind
	case "access_point":
		return AccessPointKind
	case "station_cluster":
		return StationClusterKind
	default:
		return UnknownKind
	}
}

// EntityKindToStr returns the 'type' string corresponding to an EntityKind
func EntityKindToStr(kind EntityKind) string {
	switch kind {
	case HostServerKind:
		return "host_server"
	case EndClusterKind:
		return "end_cluster"
	case AccessPointKind:
		return "access_point"
	case StationClusterKind:
		return "station_cluster"
	}

	return "unknown"
}

func (kind EntityKind) String() string {
	return EntityKindToStr(kind)
}

// IsCluster is true for kinds that expand into num_nodes graph nodes
// and whose connections name gateways rather than link targets
func (kind EntityKind) IsCluster() bool {
	return kind == EndClusterKind || kind == StationClusterKind
}

// ConnectionDesc is one entry of an entity's 'connections' list.  Singleton
// entities (host_server, access_point) fill in Target; cluster entities fill in Name,
// the gateway they reach.
type ConnectionDesc struct {
	Target   string `json:"target,omitempty" yaml:"target,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	DataRate string `json:"data_rate" yaml:"data_rate"`
	Delay    string `json:"delay" yaml:"delay"`
}

// NodeDesc describes one declared entity of a layer
type NodeDesc struct {
	Name        string           `json:"name" yaml:"name"`
	Type        string           `json:"type" yaml:"type"`
	NumNodes    int              `json:"num_nodes,omitempty" yaml:"num_nodes,omitempty"`
	Connections []ConnectionDesc `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// LayerDesc holds the entities declared in one layer
type LayerDesc struct {
	Nodes []NodeDesc `json:"nodes" yaml:"nodes"`
}

// NetworkDesc is the body of the top-level 'cybertwin_network' key
type NetworkDesc struct {
	CoreLayer   *LayerDesc `json:"core_layer,omitempty" yaml:"core_layer,omitempty"`
	EdgeLayer   *LayerDesc `json:"edge_layer,omitempty" yaml:"edge_layer,omitempty"`
	AccessLayer *LayerDesc `json:"access_layer,omitempty" yaml:"access_layer,omitempty"`
}

// TopoDesc gives the highest level structure of the topology,
// is ultimately the encompassing dictionary in the serialization
type TopoDesc struct {
	Network *NetworkDesc `json:"cybertwin_network" yaml:"cybertwin_network"`
}

// the rule structs carry the validation tags for the different shapes
// a NodeDesc or ConnectionDesc must have, depending on the entity type
type entityRule struct {
	Name string `validate:"required"`
	Type string `validate:"required"`
}

type clusterRule struct {
	NumNodes int `validate:"gte=1"`
}

type linkRule struct {
	Target   string `validate:"required"`
	DataRate string `validate:"required"`
	Delay    string `validate:"required"`
}

type gatewayRule struct {
	Name     string `validate:"required"`
	DataRate string `validate:"required"`
	Delay    string `validate:"required"`
}

// checkEntity reports whether the entity carries a name and a type
func (nd *NodeDesc) checkEntity() error {
	return formatValidationError(validate.Struct(entityRule{Name: nd.Name, Type: nd.Type}))
}

// checkCluster reports whether a cluster entity asks for at least one node
func (nd *NodeDesc) checkCluster() error {
	return formatValidationError(validate.Struct(clusterRule{NumNodes: nd.NumNodes}))
}

// checkLink reports whether a connection has the shape of a declared link
func (cd *ConnectionDesc) checkLink() error {
	return formatValidationError(validate.Struct(linkRule{Target: cd.Target, DataRate: cd.DataRate, Delay: cd.Delay}))
}

// checkGateway reports whether a connection has the shape of a gateway reference
func (cd *ConnectionDesc) checkGateway() error {
	return formatValidationError(validate.Struct(gatewayRule{Name: cd.Name, DataRate: cd.DataRate, Delay: cd.Delay}))
}

// formatValidationError turns validator output into a short readable message
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}

// CreateTopoDesc is a constructor.  The three layers are created empty.
func CreateTopoDesc() *TopoDesc {
	td := new(TopoDesc)
	td.Network = &NetworkDesc{
		CoreLayer:   &LayerDesc{Nodes: []NodeDesc{}},
		EdgeLayer:   &LayerDesc{Nodes: []NodeDesc{}},
		AccessLayer: &LayerDesc{Nodes: []NodeDesc{}},
	}
	return td
}

// LayerOf returns the description of the named layer, nil if the layer was not given
func (td *TopoDesc) LayerOf(layer Layer) *LayerDesc {
	if td.Network == nil {
		return nil
	}
	switch layer {
	case LayerCore:
		return td.Network.CoreLayer
	case LayerEdge:
		return td.Network.EdgeLayer
	case LayerEnd:
		return td.Network.AccessLayer
	}
	return nil
}

// AddNode appends an entity description to the named layer, creating the layer if needed
func (td *TopoDesc) AddNode(layer Layer, nd *NodeDesc) {
	if td.Network == nil {
		td.Network = new(NetworkDesc)
	}
	ld := td.LayerOf(layer)
	if ld == nil {
		ld = &LayerDesc{Nodes: []NodeDesc{}}
		switch layer {
		case LayerCore:
			td.Network.CoreLayer = ld
		case LayerEdge:
			td.Network.EdgeLayer = ld
		case LayerEnd:
			td.Network.AccessLayer = ld
		}
	}
	ld.Nodes = append(ld.Nodes, *nd)
}

// CreateHostServer is a constructor for a host_server entity
func CreateHostServer(name string) *NodeDesc {
	return &NodeDesc{Name: name, Type: EntityKindToStr(HostServerKind), Connections: []ConnectionDesc{}}
}

// CreateAccessPoint is a constructor for an access_point entity
func CreateAccessPoint(name string) *NodeDesc {
	return &NodeDesc{Name: name, Type: EntityKindToStr(AccessPointKind), Connections: []ConnectionDesc{}}
}

// CreateEndCluster is a constructor for an end_cluster entity of numNodes nodes
func CreateEndCluster(name string, numNodes int) *NodeDesc {
	return &NodeDesc{Name: name, Type: EntityKindToStr(EndClusterKind), NumNodes: numNodes, Connections: []ConnectionDesc{}}
}

// CreateStationCluster is a constructor for a station_cluster entity of numNodes nodes
func CreateStationCluster(name string, numNodes int) *NodeDesc {
	return &NodeDesc{Name: name, Type: EntityKindToStr(StationClusterKind), NumNodes: numNodes, Connections: []ConnectionDesc{}}
}

// ConnectTo declares a link from the entity to the named target
func (nd *NodeDesc) ConnectTo(target, dataRate, delay string) *NodeDesc {
	nd.Connections = append(nd.Connections, ConnectionDesc{Target: target, DataRate: dataRate, Delay: delay})
	return nd
}

// AddGateway declares a gateway reference of a cluster entity
func (nd *NodeDesc) AddGateway(name, dataRate, delay string) *NodeDesc {
	nd.Connections = append(nd.Connections, ConnectionDesc{Name: name, DataRate: dataRate, Delay: delay})
	return nd
}

// IsYAMLFile reports whether the extension of the file name, in any case, selects yaml serialization
func IsYAMLFile(filename string) bool {
	switch strings.ToLower(path.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// WriteToFile serializes the TopoDesc and writes to the file whose name is given as an input argument.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (td *TopoDesc) WriteToFile(filename string) error {
	var bytes []byte
	var merr error

	if IsYAMLFile(filename) {
		bytes, merr = yaml.Marshal(*td)
	} else {
		bytes, merr = json.MarshalIndent(*td, "", "\t")
	}
	if merr != nil {
		return merr
	}

	return os.WriteFile(filename, bytes, 0o644)
}

// ReadTopoDesc deserializes a slice of bytes into a TopoDesc.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.  A SourceError is returned
// if any part of the process fails.
func ReadTopoDesc(topoFileName string, useYAML bool, dict []byte) (*TopoDesc, error) {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, serr := os.Stat(topoFileName)
		if serr != nil {
			return nil, &SourceError{Path: topoFileName, Err: serr}
		}
		if fileInfo.IsDir() {
			return nil, &SourceError{Path: topoFileName, Err: fmt.Errorf("is a directory")}
		}
		dict, err = os.ReadFile(topoFileName)
		if err != nil {
			return nil, &SourceError{Path: topoFileName, Err: err}
		}
	}

	example := TopoDesc{}
	if useYAML {
		err = yaml.Unmarshal(dict, &example)
	} else {
		err = json.Unmarshal(dict, &example)
	}
	if err != nil {
		return nil, &SourceError{Path: topoFileName, Err: err}
	}

	// the document must name the network and at least one of its layers
	if example.Network == nil {
		return nil, &SourceError{Path: topoFileName, Err: errors.New("no cybertwin_network section")}
	}
	nd := example.Network
	if nd.CoreLayer == nil && nd.EdgeLayer == nil && nd.AccessLayer == nil {
		return nil, &SourceError{Path: topoFileName, Err: errors.New("cybertwin_network declares no layer")}
	}

	return &example, nil
}
