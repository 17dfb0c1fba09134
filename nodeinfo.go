package ctsim

// file nodeinfo.go holds the per-entity record built while parsing a layer,
// the entry type stored in the layer lists, and the name registry shared by
// all layers

// Link is a declared, directed link intent of a singleton entity
type Link struct {
	Target   string
	DataRate string
	Delay    string
}

// Gateway is a declared uplink reference of a cluster entity
type Gateway struct {
	Name     string
	DataRate string
	Delay    string
}

// NodeInfo describes one valid declared entity and the graph nodes it owns
type NodeInfo struct {
	Name     string
	Kind     EntityKind
	Layer    Layer
	Role     Role
	Links    []Link
	Gateways []Gateway
	NumNodes int
	Nodes    []*SimNode // one node for a singleton kind, NumNodes for a cluster kind
}

// Node returns the node a singleton entity owns, or the first member of a cluster
func (ni *NodeInfo) Node() *SimNode {
	if len(ni.Nodes) == 0 {
		return nil
	}
	return ni.Nodes[0]
}

// NodeEntry is one slot of a layer list.  Exactly one of Info and Reason is set:
// a valid entity carries its NodeInfo, an entity rejected while parsing carries
// the reason it was rejected.
type NodeEntry struct {
	Name   string // declared name, possibly empty for rejected entries
	Info   *NodeInfo
	Reason error
}

// Valid reports whether the entry holds a NodeInfo
func (ne NodeEntry) Valid() bool {
	return ne.Info != nil
}

// validEntry and invalidEntry build the two variants
func validEntry(ni *NodeInfo) NodeEntry {
	return NodeEntry{Name: ni.Name, Info: ni}
}

func invalidEntry(name string, reason error) NodeEntry {
	return NodeEntry{Name: name, Reason: reason}
}

// Registry is the flat name -> NodeInfo index shared by the core, edge and end layers.
// A name is registered once; later offers of the same name are rejected.
type Registry struct {
	byName map[string]*NodeInfo
	order  []string
}

// CreateRegistry is a constructor
func CreateRegistry() *Registry {
	reg := new(Registry)
	reg.byName = make(map[string]*NodeInfo)
	reg.order = make([]string, 0)
	return reg
}

// Insert registers the NodeInfo under its name, or returns a DuplicateNameError
// leaving the earlier registration in place
func (reg *Registry) Insert(ni *NodeInfo) error {
	if _, present := reg.byName[ni.Name]; present {
		return &DuplicateNameError{Name: ni.Name, Layer: ni.Layer}
	}
	reg.byName[ni.Name] = ni
	reg.order = append(reg.order, ni.Name)
	return nil
}

// Contains reports whether the name is registered
func (reg *Registry) Contains(name string) bool {
	_, present := reg.byName[name]
	return present
}

// Lookup returns the NodeInfo registered under name
func (reg *Registry) Lookup(name string) (*NodeInfo, bool) {
	ni, present := reg.byName[name]
	return ni, present
}

// Names returns the registered names in registration order
func (reg *Registry) Names() []string {
	names := make([]string, len(reg.order))
	copy(names, reg.order)
	return names
}

// Len is the number of registered names
func (reg *Registry) Len() int {
	return len(reg.order)
}
