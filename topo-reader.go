package ctsim

// file topo-reader.go turns a TopoDesc into a Graph.  Each layer is parsed into a list
// of NodeEntry values and a shared name registry; then the links declared by the core
// layer are realized, one link per unordered pair of entity names.

import (
	"errors"
	"fmt"
	"log/slog"
)

// linkKey is one ordering of the pair of entity names a realized link joins
type linkKey struct {
	src, dst string
}

// TopologyReader reads a layered topology description and builds the Graph it declares
type TopologyReader struct {
	fileName string
	appFile  string
	dict     []byte
	useYAML  bool

	logger  *slog.Logger
	metrics *Metrics

	registry *Registry
	coreList []NodeEntry
	edgeList []NodeEntry
	endList  []NodeEntry
	links    map[linkKey]*P2PLink
	graph    *Graph
	diags    []error
}

// NewTopologyReader is a constructor.  A nil logger selects slog.Default(), nil
// metrics selects a private Metrics set.
func NewTopologyReader(logger *slog.Logger, metrics *Metrics) *TopologyReader {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	tr := &TopologyReader{logger: logger.With("component", "TopologyReader"), metrics: metrics}
	tr.reset()
	return tr
}

// reset discards everything built by an earlier Read
func (tr *TopologyReader) reset() {
	tr.registry = CreateRegistry()
	tr.coreList = make([]NodeEntry, 0)
	tr.edgeList = make([]NodeEntry, 0)
	tr.endList = make([]NodeEntry, 0)
	tr.links = make(map[linkKey]*P2PLink)
	tr.graph = createGraph()
	tr.diags = make([]error, 0)
}

// SetFileName names the topology file Read will load
func (tr *TopologyReader) SetFileName(fileName string) {
	tr.fileName = fileName
	tr.useYAML = IsYAMLFile(fileName)
}

// FileName returns the topology file name
func (tr *TopologyReader) FileName() string {
	return tr.fileName
}

// SetAppFile names the application manifest InstallApplications will load
func (tr *TopologyReader) SetAppFile(appFile string) {
	tr.appFile = appFile
}

// AppFile returns the application manifest file name
func (tr *TopologyReader) AppFile() string {
	return tr.appFile
}

// SetBytes supplies the topology document directly; Read then ignores the file name
func (tr *TopologyReader) SetBytes(dict []byte, useYAML bool) {
	tr.dict = dict
	tr.useYAML = useYAML
}

// Read loads the topology, parses the core, edge and access layers in that order,
// realizes the core-cloud links, and returns the graph.  Only a failure to load
// the source is returned as an error; problems with single entities or links are
// logged, recorded in Diagnostics, and skipped.
func (tr *TopologyReader) Read() (*Graph, error) {
	tr.reset()

	td, err := ReadTopoDesc(tr.fileName, tr.useYAML, tr.dict)
	if err != nil {
		tr.logger.Error("cannot load topology", "file", tr.fileName, "err", err)
		return nil, err
	}

	for _, layer := range layerOrder {
		tr.ParseLayer(td.LayerOf(layer), layer)
	}

	tr.BuildLinks()

	tr.logger.Info("topology read", "nodes", tr.graph.NumNodes(), "links", len(tr.graph.Links),
		"entities", tr.registry.Len(), "issues", len(tr.diags))
	return tr.graph, nil
}

// ParseLayer parses every entity of one layer.  Each entity, valid or not, takes
// exactly one slot in the layer's list.
func (tr *TopologyReader) ParseLayer(ld *LayerDesc, layer Layer) {
	tr.logger.Debug("parsing layer", "layer", layer.String())

	if ld == nil || len(ld.Nodes) == 0 {
		tr.logger.Warn(fmt.Sprintf("no nodes found in %s layer", layer))
		return
	}

	for idx := range ld.Nodes {
		entry := tr.parseNode(&ld.Nodes[idx], layer)

		switch layer {
		case LayerCore:
			tr.coreList = append(tr.coreList, entry)
		case LayerEdge:
			tr.edgeList = append(tr.edgeList, entry)
		case LayerEnd:
			tr.endList = append(tr.endList, entry)
		}

		status := "valid"
		if !entry.Valid() {
			status = "invalid"
		}
		tr.metrics.entityParsed(layer, status)
	}
}

// parseNode checks one entity description and, when it is acceptable, registers it
// and creates the graph nodes it owns
func (tr *TopologyReader) parseNode(nd *NodeDesc, layer Layer) NodeEntry {
	if err := nd.checkEntity(); err != nil {
		return tr.reject(nd.Name, &SchemaError{Entity: nd.Name, Reason: err.Error()})
	}

	kind := EntityKindFromStr(nd.Type)
	if kind == UnknownKind {
		return tr.reject(nd.Name, &SchemaError{Entity: nd.Name, Reason: fmt.Sprintf("unknown node type %q", nd.Type)})
	}

	if kind.IsCluster() {
		if err := nd.checkCluster(); err != nil {
			return tr.reject(nd.Name, &SchemaError{Entity: nd.Name, Reason: err.Error()})
		}
	}

	ni := &NodeInfo{Name: nd.Name, Kind: kind, Layer: layer, Role: roleFor(kind, layer),
		Links: []Link{}, Gateways: []Gateway{}, Nodes: []*SimNode{}}

	// the names of the graph nodes this entity would create must all be free
	memberNames := []string{nd.Name}
	if kind.IsCluster() {
		ni.NumNodes = nd.NumNodes
		memberNames = make([]string, nd.NumNodes)
		for idx := 0; idx < nd.NumNodes; idx++ {
			memberNames[idx] = ClusterMemberName(nd.Name, idx)
		}
	}
	for _, memberName := range memberNames {
		if tr.graph.NodeByName(memberName) != nil {
			return tr.reject(nd.Name, &DuplicateNameError{Name: memberName, Layer: layer})
		}
	}

	if err := tr.registry.Insert(ni); err != nil {
		return tr.reject(nd.Name, err)
	}

	tr.logger.Debug("entity", "name", nd.Name, "type", kind.String(), "layer", layer.String(), "role", ni.Role.String())

	for _, memberName := range memberNames {
		node := tr.graph.addNode(memberName, nd.Name, ni.Role, layer)
		ni.Nodes = append(ni.Nodes, node)
		if kind.IsCluster() {
			tr.graph.EndNodes = append(tr.graph.EndNodes, node)
		}
	}

	for _, conn := range nd.Connections {
		if kind.IsCluster() {
			if err := conn.checkGateway(); err != nil {
				tr.note(&SchemaError{Entity: nd.Name, Reason: "gateway: " + err.Error()})
				continue
			}
			ni.Gateways = append(ni.Gateways, Gateway{Name: conn.Name, DataRate: conn.DataRate, Delay: conn.Delay})
			continue
		}

		if err := conn.checkLink(); err != nil {
			tr.note(&SchemaError{Entity: nd.Name, Reason: "connection: " + err.Error()})
			continue
		}
		ni.Links = append(ni.Links, Link{Target: conn.Target, DataRate: conn.DataRate, Delay: conn.Delay})
	}

	return validEntry(ni)
}

// reject records why an entity was turned away and returns its placeholder entry
func (tr *TopologyReader) reject(name string, reason error) NodeEntry {
	tr.note(reason)
	return invalidEntry(name, reason)
}

// note logs a non-fatal problem and keeps it for Diagnostics
func (tr *TopologyReader) note(err error) {
	tr.diags = append(tr.diags, err)

	var dupLink *DuplicateLinkError
	if errors.As(err, &dupLink) {
		tr.logger.Debug(err.Error())
		return
	}
	tr.logger.Error(err.Error())
}

// linkExists checks both orderings of the pair
func (tr *TopologyReader) linkExists(a, b string) bool {
	if _, present := tr.links[linkKey{src: a, dst: b}]; present {
		return true
	}
	_, present := tr.links[linkKey{src: b, dst: a}]
	return present
}

// BuildLinks realizes the links declared by the valid entities of the core layer.
// Links of other layers, and gateways of clusters, are not realized.
func (tr *TopologyReader) BuildLinks() {
	tr.logger.Info("creating core cloud")

	for _, entry := range tr.coreList {
		if !entry.Valid() {
			continue
		}
		ni := entry.Info

		for _, link := range ni.Links {
			target, present := tr.registry.Lookup(link.Target)
			if !present {
				tr.note(&ReferenceError{Source: ni.Name, Target: link.Target, What: "link"})
				tr.metrics.linkDropped("reference")
				continue
			}

			if target == ni {
				tr.note(&SchemaError{Entity: ni.Name, Reason: "link to itself"})
				tr.metrics.linkDropped("schema")
				continue
			}

			if tr.linkExists(ni.Name, target.Name) {
				tr.note(&DuplicateLinkError{A: ni.Name, B: target.Name})
				tr.metrics.linkDropped("duplicate")
				continue
			}

			dataRate, err := ParseDataRate(link.DataRate)
			if err != nil {
				tr.note(&SchemaError{Entity: ni.Name, Reason: err.Error()})
				tr.metrics.linkDropped("schema")
				continue
			}
			delay, err := ParseDelay(link.Delay)
			if err != nil {
				tr.note(&SchemaError{Entity: ni.Name, Reason: err.Error()})
				tr.metrics.linkDropped("schema")
				continue
			}

			p2p := tr.graph.addLink(ni.Node(), target.Node(), dataRate, delay, link.DataRate, link.Delay)
			tr.links[linkKey{src: ni.Name, dst: target.Name}] = p2p
			tr.links[linkKey{src: target.Name, dst: ni.Name}] = p2p
			tr.metrics.linkRealized()

			tr.logger.Info("creating link", "link", p2p.String())
		}
	}
}

// CoreEntries returns the entries of the core layer list
func (tr *TopologyReader) CoreEntries() []NodeEntry {
	return tr.coreList
}

// EdgeEntries returns the entries of the edge layer list
func (tr *TopologyReader) EdgeEntries() []NodeEntry {
	return tr.edgeList
}

// EndEntries returns the entries of the access (end) layer list
func (tr *TopologyReader) EndEntries() []NodeEntry {
	return tr.endList
}

// Lookup returns the NodeInfo registered under name
func (tr *TopologyReader) Lookup(name string) (*NodeInfo, bool) {
	return tr.registry.Lookup(name)
}

// Registry returns the name index built by the last Read
func (tr *TopologyReader) Registry() *Registry {
	return tr.registry
}

// Graph returns the graph built by the last Read
func (tr *TopologyReader) Graph() *Graph {
	return tr.graph
}

// LinkBetween returns the realized link joining two entities, in either order
func (tr *TopologyReader) LinkBetween(a, b string) (*P2PLink, bool) {
	if link, present := tr.links[linkKey{src: a, dst: b}]; present {
		return link, true
	}
	link, present := tr.links[linkKey{src: b, dst: a}]
	return link, present
}

// Diagnostics returns the non-fatal problems met by the last Read, in order
func (tr *TopologyReader) Diagnostics() []error {
	return tr.diags
}

// Partitions returns the nodes of the graph grouped by role, in boot order
func (tr *TopologyReader) Partitions() map[Role][]*SimNode {
	parts := make(map[Role][]*SimNode)
	for _, role := range bootOrder {
		parts[role] = tr.graph.Partition(role)
	}
	return parts
}
