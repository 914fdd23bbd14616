// Package graph defines the declarative agent DAG: nodes bound to roles and
// model bindings, edges carrying outputs forward, and the node whose output
// becomes the final candidate.
package graph

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/JaimeStill/moltblock/internal/agents"
)

// Node is one agent invocation. Binding selects a model binding by key and
// defaults to the role name.
type Node struct {
	ID      string      `json:"id" yaml:"id"`
	Role    agents.Role `json:"role" yaml:"role"`
	Binding string      `json:"binding,omitempty" yaml:"binding,omitempty"`
}

// BindingKey returns the binding key the node resolves its gateway by.
func (n Node) BindingKey() string {
	if n.Binding != "" {
		return n.Binding
	}
	return string(n.Role)
}

// Edge carries From's output into To.
type Edge struct {
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}

// Definition is the serialized form of a graph.
type Definition struct {
	Nodes     []Node `json:"nodes" yaml:"nodes"`
	Edges     []Edge `json:"edges" yaml:"edges"`
	FinalNode string `json:"final_node,omitempty" yaml:"final_node,omitempty"`
}

// Graph is a validated, immutable agent DAG. Adjacency and the layered
// topological order are computed once at construction.
type Graph struct {
	def    Definition
	index  map[string]int
	out    [][]int
	in     [][]int
	layers [][]int
}

// New validates def and builds the graph.
func New(def Definition) (*Graph, error) {
	g := &Graph{
		def: Definition{
			Nodes:     slices.Clone(def.Nodes),
			Edges:     slices.Clone(def.Edges),
			FinalNode: def.FinalNode,
		},
		index: make(map[string]int, len(def.Nodes)),
	}

	if len(g.def.Nodes) == 0 {
		return nil, fmt.Errorf("%w: no nodes", ErrInvalidGraph)
	}

	for i, n := range g.def.Nodes {
		id := strings.TrimSpace(n.ID)
		if id == "" {
			return nil, fmt.Errorf("%w: node %d has no id", ErrInvalidGraph, i)
		}
		if _, err := agents.ParseRole(string(n.Role)); err != nil {
			return nil, fmt.Errorf("%w: node %s: %w", ErrInvalidGraph, id, err)
		}
		if _, dup := g.index[id]; dup {
			return nil, fmt.Errorf("%w: duplicate node id %q", ErrInvalidGraph, id)
		}
		g.index[id] = i
	}

	g.out = make([][]int, len(g.def.Nodes))
	g.in = make([][]int, len(g.def.Nodes))
	for _, e := range g.def.Edges {
		from, ok := g.index[e.From]
		if !ok {
			return nil, fmt.Errorf("%w: edge from unknown node %q", ErrInvalidGraph, e.From)
		}
		to, ok := g.index[e.To]
		if !ok {
			return nil, fmt.Errorf("%w: edge to unknown node %q", ErrInvalidGraph, e.To)
		}
		g.out[from] = append(g.out[from], to)
		g.in[to] = append(g.in[to], from)
	}

	if g.def.FinalNode != "" {
		if _, ok := g.index[g.def.FinalNode]; !ok {
			return nil, fmt.Errorf("%w: final node %q does not exist", ErrInvalidGraph, g.def.FinalNode)
		}
	}

	layers, err := g.kahn()
	if err != nil {
		return nil, err
	}
	g.layers = layers
	return g, nil
}

// Validate reports whether def describes a valid DAG.
func (def Definition) Validate() error {
	_, err := New(def)
	return err
}

// kahn sweeps in-degree zero nodes in waves. Each wave is one layer whose
// nodes depend only on earlier layers. Within a layer nodes keep declaration
// order.
func (g *Graph) kahn() ([][]int, error) {
	indeg := make([]int, len(g.def.Nodes))
	for i := range g.in {
		indeg[i] = len(g.in[i])
	}

	var ready []int
	for i, d := range indeg {
		if d == 0 {
			ready = append(ready, i)
		}
	}

	var (
		layers  [][]int
		emitted int
	)
	for len(ready) > 0 {
		layers = append(layers, ready)
		emitted += len(ready)

		var next []int
		for _, n := range ready {
			for _, m := range g.out[n] {
				indeg[m]--
				if indeg[m] == 0 {
					next = append(next, m)
				}
			}
		}
		slices.Sort(next)
		ready = next
	}

	if emitted < len(g.def.Nodes) {
		var stuck []string
		for i, d := range indeg {
			if d > 0 {
				stuck = append(stuck, g.def.Nodes[i].ID)
			}
		}
		return nil, fmt.Errorf("%w: unresolved nodes %s", ErrCyclicGraph, strings.Join(stuck, ", "))
	}
	return layers, nil
}

// Definition returns a copy of the graph's serialized form.
func (g *Graph) Definition() Definition {
	return Definition{
		Nodes:     slices.Clone(g.def.Nodes),
		Edges:     slices.Clone(g.def.Edges),
		FinalNode: g.def.FinalNode,
	}
}

// Nodes returns the nodes in declaration order.
func (g *Graph) Nodes() []Node {
	return slices.Clone(g.def.Nodes)
}

// Node returns the node with id.
func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.def.Nodes[i], true
}

// Predecessors returns the nodes with an edge into id, in edge order.
func (g *Graph) Predecessors(id string) []Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes(g.in[i])
}

// Successors returns the nodes id has an edge to, in edge order.
func (g *Graph) Successors(id string) []Node {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.nodes(g.out[i])
}

// Layers returns the topological layers. Every node's predecessors appear
// in an earlier layer.
func (g *Graph) Layers() [][]Node {
	out := make([][]Node, len(g.layers))
	for i, l := range g.layers {
		out[i] = g.nodes(l)
	}
	return out
}

// TopologicalOrder returns all nodes such that every edge points forward.
func (g *Graph) TopologicalOrder() []Node {
	order := make([]Node, 0, len(g.def.Nodes))
	for _, l := range g.layers {
		order = append(order, g.nodes(l)...)
	}
	return order
}

// FinalNodeID resolves the node whose output is verified: the explicit final
// node, else the unique node without outgoing edges.
func (g *Graph) FinalNodeID() (string, error) {
	if g.def.FinalNode != "" {
		return g.def.FinalNode, nil
	}

	var sinks []string
	for i, n := range g.def.Nodes {
		if len(g.out[i]) == 0 {
			sinks = append(sinks, n.ID)
		}
	}
	if len(sinks) != 1 {
		return "", fmt.Errorf("%w: %d candidate sink nodes and no final_node", ErrUnresolvedFinalNode, len(sinks))
	}
	return sinks[0], nil
}

// BindingKeys returns the distinct binding keys used by non-verifier nodes.
func (g *Graph) BindingKeys() []string {
	var keys []string
	for _, n := range g.def.Nodes {
		if n.Role == agents.RoleVerifier {
			continue
		}
		if k := n.BindingKey(); !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

// Hash returns the first 16 hex characters of the SHA-256 of the graph's
// canonical JSON encoding.
func (g *Graph) Hash() string {
	data, err := json.Marshal(g.def)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:16]
}

func (g *Graph) nodes(idx []int) []Node {
	out := make([]Node, len(idx))
	for i, n := range idx {
		out[i] = g.def.Nodes[n]
	}
	return out
}
