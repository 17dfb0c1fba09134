package ctsim

// routes.go fills in the routing tables of the graph nodes: for every node, the
// next hop towards every other node it can reach over realized links

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// The approach is to convert the Graph into the data structures used by the gonum
// graph package, which has built-in path discovery.  An edge is weighted by the delay
// of its link, so a shortest path is the one of least propagation delay.
//   DijkstraFrom computes a tree of shortest paths rooted at one node; the trees are
// cached by source id, and the next hop from src to dst is the second node of the
// path the tree gives for dst.

// minLinkWeight keeps zero-delay links from making every path equally short
const minLinkWeight = 1e-9

// RoutingTables computes and holds shortest-delay routes over a Graph
type RoutingTables struct {
	g         *Graph
	connGraph *simple.WeightedUndirectedGraph
	cachedSP  map[int64]path.Shortest
}

// CreateRoutingTables is a constructor, building the gonum representation of the graph
func CreateRoutingTables(g *Graph) *RoutingTables {
	rt := new(RoutingTables)
	rt.g = g
	rt.cachedSP = make(map[int64]path.Shortest)
	rt.connGraph = simple.NewWeightedUndirectedGraph(0, math.Inf(1))

	for _, node := range g.Nodes {
		rt.connGraph.AddNode(simple.Node(node.ID))
	}

	// BuildLinks realizes at most one link per node pair, so every link is a new edge
	for _, link := range g.Links {
		weight := math.Max(link.Delay, minLinkWeight)
		rt.connGraph.SetWeightedEdge(simple.WeightedEdge{F: simple.Node(link.A.ID), T: simple.Node(link.B.ID), W: weight})
	}
	return rt
}

// getSPTree returns the shortest path tree rooted in from.  If the tree is found in the cache
// it is returned, if not it is computed, saved, and returned.
func (rt *RoutingTables) getSPTree(from int64) path.Shortest {
	spTree, present := rt.cachedSP[from]
	if present {
		return spTree
	}
	spTree = path.DijkstraFrom(simple.Node(from), rt.connGraph)
	rt.cachedSP[from] = spTree
	return spTree
}

// pathBetween returns the graph nodes on the least-delay path from src to dst, and its delay.
// The path is empty if dst cannot be reached.
func (rt *RoutingTables) pathBetween(src, dst *SimNode) ([]graph.Node, float64) {
	spTree := rt.getSPTree(int64(src.ID))
	return spTree.To(int64(dst.ID))
}

// Populate writes, into the Routes map of every node, the next hop towards every
// reachable node.  It returns the number of table entries written.
func (rt *RoutingTables) Populate() int {
	entries := 0
	for _, src := range rt.g.Nodes {
		src.Routes = make(map[string]string)
		if len(src.Links) == 0 {
			continue
		}
		for _, dst := range rt.g.Nodes {
			if dst == src {
				continue
			}
			nodeSeq, _ := rt.pathBetween(src, dst)
			if len(nodeSeq) < 2 {
				continue
			}
			nxtHop := rt.g.Nodes[nodeSeq[1].ID()]
			src.Routes[dst.Name] = nxtHop.Name
			entries += 1
		}
	}
	return entries
}

// Route returns the names of the nodes on the least-delay path from src to dst, inclusive,
// together with the path delay.  A nil path means dst is unreachable.
func (rt *RoutingTables) Route(src, dst string) ([]string, float64) {
	srcNode := rt.g.NodeByName(src)
	dstNode := rt.g.NodeByName(dst)
	if srcNode == nil || dstNode == nil {
		return nil, math.Inf(1)
	}
	if srcNode == dstNode {
		return []string{src}, 0.0
	}

	nodeSeq, weight := rt.pathBetween(srcNode, dstNode)
	if len(nodeSeq) == 0 {
		return nil, math.Inf(1)
	}

	names := make([]string, 0, len(nodeSeq))
	for _, gn := range nodeSeq {
		names = append(names, rt.g.Nodes[gn.ID()].Name)
	}
	return names, weight
}
