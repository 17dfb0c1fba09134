package ctsim

// file net.go holds the structs that make up the graph the TopologyReader builds:
// the graph nodes, the point-to-point links between them, and the roles that
// decide in which order the simulator powers nodes on and how they are drawn

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/iti/evt/vrtime"
	"github.com/iti/rngstream"
)

// Layer is the base type for an enumerated type of topology tiers
type Layer int

const (
	LayerCore Layer = iota
	LayerEdge
	LayerEnd
)

// layerOrder is the order in which layers are parsed
var layerOrder = []Layer{LayerCore, LayerEdge, LayerEnd}

func (layer Layer) String() string {
	switch layer {
	case LayerCore:
		return "Core"
	case LayerEdge:
		return "Edge"
	case LayerEnd:
		return "End"
	}
	return "Unknown"
}

// Role is the base type for an enumerated type of node functions.  The role of a
// node fixes its power-on order, its size and icon in the animation, and whether
// applications are started on it.
type Role int

const (
	RoleCoreCloud Role = iota
	RoleEdgeCloud
	RoleEndHost
	RoleAccessPoint
	RoleStation
)

// roleBehavior is the per-role part of the boot and install phases
type roleBehavior struct {
	name       string
	visualSize float64
	iconIdx    int
	startsApps bool
	daemon     string // what power-on brings up on the node
}

var roleTable = map[Role]roleBehavior{
	RoleCoreCloud:   {name: "CoreCloud", visualSize: 10, iconIdx: 0, startsApps: true, daemon: "cybertwin-manager"},
	RoleEdgeCloud:   {name: "EdgeCloud", visualSize: 8, iconIdx: 1, startsApps: true, daemon: "cybertwin-controller"},
	RoleEndHost:     {name: "EndHost", visualSize: 5, iconIdx: 2, startsApps: true, daemon: "endhost-daemon"},
	RoleAccessPoint: {name: "AccessPoint", visualSize: 6, iconIdx: 3, startsApps: false, daemon: "ap-beacon"},
	RoleStation:     {name: "Station", visualSize: 4, iconIdx: 4, startsApps: false, daemon: "sta-association"},
}

// bootOrder lists the roles in the order their partitions are powered on
var bootOrder = []Role{RoleCoreCloud, RoleEdgeCloud, RoleEndHost, RoleAccessPoint, RoleStation}

// BootOrder returns the roles in power-on order
func BootOrder() []Role {
	order := make([]Role, len(bootOrder))
	copy(order, bootOrder)
	return order
}

func (role Role) behavior() roleBehavior {
	rb, present := roleTable[role]
	if !present {
		panic(fmt.Errorf("role %d has no behavior", int(role)))
	}
	return rb
}

func (role Role) String() string {
	return role.behavior().name
}

// VisualSize is the width and height of the node in the animation
func (role Role) VisualSize() float64 {
	return role.behavior().visualSize
}

// IconIndex is the index of the animation resource drawn for the node
func (role Role) IconIndex() int {
	return role.behavior().iconIdx
}

// StartsApps tells whether installed applications are started on nodes of this role
func (role Role) StartsApps() bool {
	return role.behavior().startsApps
}

// PowerOn brings the node up at virtual time now.  A node already powered is left alone.
func (role Role) PowerOn(node *SimNode, now vrtime.Time, tm *TraceManager) {
	if node.Powered {
		return
	}
	rb := role.behavior()
	node.Powered = true
	node.PoweredAt = now.Seconds()
	node.Daemon = rb.daemon

	if tm != nil {
		AddNodeTrace(tm, now, node, "power-on", rb.daemon)
	}
}

// roleFor derives the role of the nodes an entity owns from its kind and its layer
func roleFor(kind EntityKind, layer Layer) Role {
	switch kind {
	case EndClusterKind:
		return RoleEndHost
	case AccessPointKind:
		return RoleAccessPoint
	case StationClusterKind:
		return RoleStation
	}

	switch layer {
	case LayerCore:
		return RoleCoreCloud
	case LayerEdge:
		return RoleEdgeCloud
	default:
		return RoleEndHost
	}
}

// SimNode is one node of the graph
type SimNode struct {
	ID        int    // dense identifier, in order of creation
	Name      string // entity name, or entity[i] for a cluster member
	Entity    string // name of the declaring entity
	Role      Role
	Layer     Layer
	Powered   bool
	PoweredAt float64
	Daemon    string
	Apps      []*App
	Links     []*P2PLink
	Routes    map[string]string // destination name -> next hop name
	Rngstrm   *rngstream.RngStream
}

// DevRng returns the random number stream owned by the node
func (node *SimNode) DevRng() *rngstream.RngStream {
	if node.Rngstrm == nil {
		node.Rngstrm = rngstream.New(node.Name)
	}
	return node.Rngstrm
}

// Neighbors returns the nodes directly linked to this one, in link order
func (node *SimNode) Neighbors() []*SimNode {
	nbrs := make([]*SimNode, 0, len(node.Links))
	for _, link := range node.Links {
		nbrs = append(nbrs, link.Peer(node))
	}
	return nbrs
}

// P2PLink is a realized point-to-point connection between two graph nodes
type P2PLink struct {
	ID       int
	A, B     *SimNode
	DataRate float64 // bits per second
	Delay    float64 // seconds
	RateStr  string  // data rate as declared
	DelayStr string  // delay as declared
}

// Peer returns the end of the link opposite to node
func (link *P2PLink) Peer(node *SimNode) *SimNode {
	if link.A == node {
		return link.B
	}
	return link.A
}

func (link *P2PLink) String() string {
	return fmt.Sprintf("%s <-> %s (%s, %s)", link.A.Name, link.B.Name, FormatDataRate(link.DataRate), link.DelayStr)
}

// Graph holds every node created from the topology and every realized link
type Graph struct {
	Nodes    []*SimNode // all nodes, in order of creation
	Links    []*P2PLink // realized links, in order of creation
	EndNodes []*SimNode // every node created by a cluster entity

	byRole map[Role][]*SimNode
	byName map[string]*SimNode
}

// createGraph is a constructor
func createGraph() *Graph {
	g := new(Graph)
	g.Nodes = make([]*SimNode, 0)
	g.Links = make([]*P2PLink, 0)
	g.EndNodes = make([]*SimNode, 0)
	g.byRole = make(map[Role][]*SimNode)
	g.byName = make(map[string]*SimNode)
	return g
}

// addNode creates a node and files it in its role partition
func (g *Graph) addNode(name, entity string, role Role, layer Layer) *SimNode {
	if _, present := g.byName[name]; present {
		panic(fmt.Errorf("graph node name %s over-used", name))
	}

	node := &SimNode{ID: len(g.Nodes), Name: name, Entity: entity, Role: role, Layer: layer,
		Apps: []*App{}, Links: []*P2PLink{}, Routes: make(map[string]string)}

	g.Nodes = append(g.Nodes, node)
	g.byRole[role] = append(g.byRole[role], node)
	g.byName[name] = node
	return node
}

// addLink realizes a link between two nodes
func (g *Graph) addLink(a, b *SimNode, dataRate, delay float64, rateStr, delayStr string) *P2PLink {
	link := &P2PLink{ID: len(g.Links), A: a, B: b, DataRate: dataRate, Delay: delay,
		RateStr: rateStr, DelayStr: delayStr}
	g.Links = append(g.Links, link)
	a.Links = append(a.Links, link)
	b.Links = append(b.Links, link)
	return link
}

// Partition returns the nodes of one role, in the order they were created
func (g *Graph) Partition(role Role) []*SimNode {
	return g.byRole[role]
}

// NodeByName returns the named node, nil if there is none
func (g *Graph) NodeByName(name string) *SimNode {
	return g.byName[name]
}

// NumNodes is the number of graph nodes
func (g *Graph) NumNodes() int {
	return len(g.Nodes)
}

// ClusterMemberName names the idx-th node of a cluster entity
func ClusterMemberName(entity string, idx int) string {
	return fmt.Sprintf("%s[%d]", entity, idx)
}

// rateUnits maps every data rate unit to bits per second.  Decimal prefixes may be
// written k or K; binary prefixes are Ki, Mi and Gi.  There is no milli-bit.
var rateUnits = map[string]float64{}

// delayUnits maps every delay unit to seconds
var delayUnits = map[string]float64{
	"s":   1.0,
	"ms":  1e-3,
	"us":  1e-6,
	"ns":  1e-9,
	"ps":  1e-12,
	"fs":  1e-15,
	"min": 60.0,
	"h":   3600.0,
	"d":   86400.0,
	"y":   365.0 * 86400.0,
}

func init() {
	prefixes := map[string]float64{
		"":   1,
		"k":  humanize.KByte,
		"K":  humanize.KByte,
		"M":  humanize.MByte,
		"G":  humanize.GByte,
		"Ki": humanize.KiByte,
		"Mi": humanize.MiByte,
		"Gi": humanize.GiByte,
	}
	bases := map[string]float64{"bps": 1, "b/s": 1, "Bps": 8, "B/s": 8}
	for prefix, scale := range prefixes {
		for base, bits := range bases {
			rateUnits[prefix+base] = scale * bits
		}
	}
}

// splitQuantity separates the leading number of an attribute from its unit
func splitQuantity(attr string) (float64, string, error) {
	attr = strings.TrimSpace(attr)
	cut := strings.IndexFunc(attr, func(r rune) bool {
		return !strings.ContainsRune("-0123456789.", r)
	})
	if cut < 0 {
		cut = len(attr)
	}

	// a bare number carries no prefix, so ParseSI only does the arithmetic
	value, rest, err := humanize.ParseSI(attr[:cut])
	if err != nil || len(rest) > 0 {
		return 0, "", fmt.Errorf("no number in %q", attr)
	}
	return value, strings.TrimSpace(attr[cut:]), nil
}

// ParseDataRate converts a data rate such as "10Gbps", "100 Mbps", "1GB/s" or "1Mib/s"
// to bits per second
func ParseDataRate(rate string) (float64, error) {
	value, unit, err := splitQuantity(rate)
	if err != nil {
		return 0, fmt.Errorf("data rate %q: %w", rate, err)
	}

	scale, present := rateUnits[unit]
	if !present {
		return 0, fmt.Errorf("data rate %q: unknown unit %q", rate, unit)
	}
	value *= scale

	if !(value > 0.0) {
		return 0, fmt.Errorf("data rate %q must be positive", rate)
	}
	return value, nil
}

// ParseDelay converts a delay such as "2ms", "500us", "1min" or "2" to seconds.
// A number without a unit is in seconds.
func ParseDelay(delay string) (float64, error) {
	value, unit, err := splitQuantity(delay)
	if err != nil {
		return 0, fmt.Errorf("delay %q: %w", delay, err)
	}

	scale := 1.0
	if len(unit) > 0 {
		var present bool
		if scale, present = delayUnits[unit]; !present {
			return 0, fmt.Errorf("delay %q: unknown unit %q", delay, unit)
		}
	}
	value *= scale

	if value < 0.0 {
		return 0, fmt.Errorf("delay %q must not be negative", delay)
	}
	return value, nil
}

// FormatDataRate gives a readable form of a rate in bits per second
func FormatDataRate(bps float64) string {
	return humanize.SIWithDigits(bps, 2, "bps")
}
