package ctsim

// file anim.go holds the visualization session the simulator registers nodes and links
// with while it boots.  The session is written out once, at the end of the run, as
// NetAnim-style XML or as yaml or json, selected by the extension of the file name.

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Visualizer is what the simulator needs from a visualization session
type Visualizer interface {
	AddResource(path string) int
	RegisterNode(node *SimNode, size float64, icon int)
	RegisterLink(link *P2PLink)
	Flush() error
}

// canvas geometry of the tiered layout
const (
	animWidth   = 100.0
	animRowStep = 20.0
)

// AnimResource is an image the animation draws nodes with
type AnimResource struct {
	ID   int    `xml:"id,attr" json:"id" yaml:"id"`
	Path string `xml:"p,attr" json:"path" yaml:"path"`
}

// AnimNode is the drawing of one graph node
type AnimNode struct {
	ID   int     `xml:"id,attr" json:"id" yaml:"id"`
	Name string  `xml:"descr,attr" json:"name" yaml:"name"`
	Role string  `xml:"role,attr" json:"role" yaml:"role"`
	X    float64 `xml:"locX,attr" json:"x" yaml:"x"`
	Y    float64 `xml:"locY,attr" json:"y" yaml:"y"`
	Size float64 `xml:"w,attr" json:"size" yaml:"size"`
	Icon int     `xml:"rid,attr" json:"icon" yaml:"icon"`
}

// AnimLink is the drawing of one realized link
type AnimLink struct {
	From     int    `xml:"fromId,attr" json:"from" yaml:"from"`
	To       int    `xml:"toId,attr" json:"to" yaml:"to"`
	DataRate string `xml:"dataRate,attr" json:"datarate" yaml:"datarate"`
	Delay    string `xml:"delay,attr" json:"delay" yaml:"delay"`
}

// AnimDoc is the serializable form of a session
type AnimDoc struct {
	XMLName   xml.Name       `xml:"anim" json:"-" yaml:"-"`
	Version   string         `xml:"ver,attr" json:"version" yaml:"version"`
	Resources []AnimResource `xml:"resource" json:"resources" yaml:"resources"`
	Nodes     []AnimNode     `xml:"node" json:"nodes" yaml:"nodes"`
	Links     []AnimLink     `xml:"link" json:"links" yaml:"links"`
}

// AnimationInterface gathers the resources, nodes and links of one visualization session
type AnimationInterface struct {
	fileName  string
	resources []AnimResource
	nodes     []AnimNode
	nodeIdx   map[int]int // graph node id -> index in nodes
	rows      map[Role][]int
	links     []AnimLink
}

// NewAnimationInterface is a constructor.  An empty file name gives a session that
// is never written.
func NewAnimationInterface(fileName string) *AnimationInterface {
	ai := new(AnimationInterface)
	ai.fileName = fileName
	ai.resources = make([]AnimResource, 0)
	ai.nodes = make([]AnimNode, 0)
	ai.nodeIdx = make(map[int]int)
	ai.rows = make(map[Role][]int)
	ai.links = make([]AnimLink, 0)
	return ai
}

// FileName returns the name of the file Flush writes
func (ai *AnimationInterface) FileName() string {
	return ai.fileName
}

// AddResource adds an image and returns the index nodes refer to it by
func (ai *AnimationInterface) AddResource(path string) int {
	id := len(ai.resources)
	ai.resources = append(ai.resources, AnimResource{ID: id, Path: path})
	return id
}

// RegisterNode sets the size and the icon the node is drawn with.  Registering
// a node again replaces its size and icon, and keeps its place in the layout.
func (ai *AnimationInterface) RegisterNode(node *SimNode, size float64, icon int) {
	if idx, present := ai.nodeIdx[node.ID]; present {
		ai.nodes[idx].Size = size
		ai.nodes[idx].Icon = icon
		return
	}

	ai.nodeIdx[node.ID] = len(ai.nodes)
	ai.rows[node.Role] = append(ai.rows[node.Role], len(ai.nodes))
	ai.nodes = append(ai.nodes, AnimNode{ID: node.ID, Name: node.Name, Role: node.Role.String(),
		Size: size, Icon: icon})
}

// RegisterLink adds a realized link to the drawing
func (ai *AnimationInterface) RegisterLink(link *P2PLink) {
	ai.links = append(ai.links, AnimLink{From: link.A.ID, To: link.B.ID,
		DataRate: FormatDataRate(link.DataRate), Delay: link.DelayStr})
}

// NumNodes is the number of nodes registered
func (ai *AnimationInterface) NumNodes() int {
	return len(ai.nodes)
}

// layout places the nodes: one row per role in boot order, the nodes of a row
// spread evenly across the canvas in registration order
func (ai *AnimationInterface) layout() {
	for rowIdx, role := range bootOrder {
		row := ai.rows[role]
		step := animWidth / float64(len(row)+1)
		for pos, idx := range row {
			ai.nodes[idx].X = step * float64(pos+1)
			ai.nodes[idx].Y = animRowStep * float64(rowIdx+1)
		}
	}
}

// Doc lays the session out and returns its serializable form
func (ai *AnimationInterface) Doc() *AnimDoc {
	ai.layout()
	doc := &AnimDoc{Version: "ctsim-1"}
	doc.Resources = append([]AnimResource{}, ai.resources...)
	doc.Nodes = append([]AnimNode{}, ai.nodes...)
	doc.Links = append([]AnimLink{}, ai.links...)
	return doc
}

// Flush writes the session to its file
func (ai *AnimationInterface) Flush() error {
	if len(ai.fileName) == 0 {
		return nil
	}

	doc := ai.Doc()
	var bytes []byte
	var merr error

	switch animFormat(ai.fileName) {
	case "yaml":
		bytes, merr = yaml.Marshal(*doc)
	case "json":
		bytes, merr = json.MarshalIndent(*doc, "", "\t")
	default:
		bytes, merr = xml.MarshalIndent(*doc, "", "  ")
		if merr == nil {
			bytes = append([]byte(xml.Header), bytes...)
		}
	}
	if merr != nil {
		return fmt.Errorf("animation %s: %w", ai.fileName, merr)
	}

	if err := os.WriteFile(ai.fileName, bytes, 0o644); err != nil {
		return fmt.Errorf("animation %s: %w", ai.fileName, err)
	}
	return nil
}

// animFormat picks the serialization from the extension; anything unknown is xml
func animFormat(fileName string) string {
	if IsYAMLFile(fileName) {
		return "yaml"
	}
	if strings.EqualFold(path.Ext(fileName), ".json") {
		return "json"
	}
	return "xml"
}

// ReadAnimDoc reads back a file written by Flush
func ReadAnimDoc(fileName string) (*AnimDoc, error) {
	bytes, err := os.ReadFile(fileName)
	if err != nil {
		return nil, &SourceError{Path: fileName, Err: err}
	}

	doc := AnimDoc{}
	switch animFormat(fileName) {
	case "yaml":
		err = yaml.Unmarshal(bytes, &doc)
	case "json":
		err = json.Unmarshal(bytes, &doc)
	default:
		err = xml.Unmarshal(bytes, &doc)
	}
	if err != nil {
		return nil, &SourceError{Path: fileName, Err: err}
	}
	return &doc, nil
}
