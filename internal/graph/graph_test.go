package graph_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/JaimeStill/moltblock/internal/agents"
	"github.com/JaimeStill/moltblock/internal/graph"
)

func node(id string, role agents.Role) graph.Node {
	return graph.Node{ID: id, Role: role, Binding: string(role)}
}

func ids(nodes []graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name string
		def  graph.Definition
		want error
	}{
		{"empty", graph.Definition{}, graph.ErrInvalidGraph},
		{"blank id", graph.Definition{Nodes: []graph.Node{node("", agents.RoleGenerator)}}, graph.ErrInvalidGraph},
		{"duplicate id", graph.Definition{Nodes: []graph.Node{node("a", agents.RoleGenerator), node("a", agents.RoleCritic)}}, graph.ErrInvalidGraph},
		{"unknown role", graph.Definition{Nodes: []graph.Node{{ID: "a", Role: "poet"}}}, agents.ErrUnknownRole},
		{"edge to unknown", graph.Definition{
			Nodes: []graph.Node{node("a", agents.RoleGenerator)},
			Edges: []graph.Edge{{From: "a", To: "b"}},
		}, graph.ErrInvalidGraph},
		{"missing final", graph.Definition{
			Nodes:     []graph.Node{node("a", agents.RoleGenerator)},
			FinalNode: "z",
		}, graph.ErrInvalidGraph},
		{"cycle", graph.Definition{
			Nodes: []graph.Node{node("a", agents.RoleGenerator), node("b", agents.RoleCritic), node("c", agents.RoleJudge)},
			Edges: []graph.Edge{{From: "a", To: "b"}, {From: "b", To: "c"}, {From: "c", To: "b"}},
		}, graph.ErrCyclicGraph},
		{"self loop", graph.Definition{
			Nodes: []graph.Node{node("a", agents.RoleGenerator)},
			Edges: []graph.Edge{{From: "a", To: "a"}},
		}, graph.ErrCyclicGraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := graph.New(tt.def)
			if !errors.Is(err, tt.want) {
				t.Errorf("New() err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTopologicalOrderRespectsEdges(t *testing.T) {
	def := graph.Definition{
		Nodes: []graph.Node{
			node("judge", agents.RoleJudge),
			node("critic_b", agents.RoleCritic),
			node("gen", agents.RoleGenerator),
			node("critic_a", agents.RoleCritic),
			node("router", agents.RoleRouter),
		},
		Edges: []graph.Edge{
			{From: "router", To: "gen"},
			{From: "gen", To: "critic_a"},
			{From: "gen", To: "critic_b"},
			{From: "critic_a", To: "judge"},
			{From: "critic_b", To: "judge"},
			{From: "gen", To: "judge"},
		},
	}

	g, err := graph.New(def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	order := ids(g.TopologicalOrder())
	if len(order) != len(def.Nodes) {
		t.Fatalf("order = %v", order)
	}
	for _, e := range def.Edges {
		if slices.Index(order, e.From) >= slices.Index(order, e.To) {
			t.Errorf("edge %s -> %s violated in %v", e.From, e.To, order)
		}
	}

	layers := g.Layers()
	if len(layers) != 4 {
		t.Fatalf("layers = %d, want 4", len(layers))
	}
	if got := ids(layers[2]); !slices.Equal(got, []string{"critic_b", "critic_a"}) {
		t.Errorf("layer 2 = %v", got)
	}
}

func TestFinalNodeID(t *testing.T) {
	gen := node("gen", agents.RoleGenerator)
	a := node("a", agents.RoleCritic)
	b := node("b", agents.RoleCritic)

	tests := []struct {
		name    string
		def     graph.Definition
		want    string
		wantErr error
	}{
		{"explicit wins", graph.Definition{Nodes: []graph.Node{gen, a}, Edges: []graph.Edge{{From: "gen", To: "a"}}, FinalNode: "gen"}, "gen", nil},
		{"unique sink", graph.Definition{Nodes: []graph.Node{gen, a}, Edges: []graph.Edge{{From: "gen", To: "a"}}}, "a", nil},
		{"two sinks", graph.Definition{Nodes: []graph.Node{gen, a, b}, Edges: []graph.Edge{{From: "gen", To: "a"}, {From: "gen", To: "b"}}}, "", graph.ErrUnresolvedFinalNode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := graph.New(tt.def)
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			got, err := g.FinalNodeID()
			if !errors.Is(err, tt.wantErr) || got != tt.want {
				t.Errorf("FinalNodeID() = %q, %v; want %q, %v", got, err, tt.want, tt.wantErr)
			}
		})
	}
}

func TestCodeEntity(t *testing.T) {
	g := graph.CodeEntity()

	final, err := g.FinalNodeID()
	if err != nil || final != "judge" {
		t.Errorf("FinalNodeID() = %q, %v", final, err)
	}
	if got := ids(g.Predecessors("judge")); !slices.Equal(got, []string{"generator", "critic"}) {
		t.Errorf("judge predecessors = %v", got)
	}
	if got := ids(g.Successors("generator")); !slices.Equal(got, []string{"critic", "judge"}) {
		t.Errorf("generator successors = %v", got)
	}
	if got := g.BindingKeys(); !slices.Equal(got, []string{"generator", "critic", "judge"}) {
		t.Errorf("BindingKeys() = %v", got)
	}
}

func TestBundledCodeEntityGraph(t *testing.T) {
	g, err := graph.Load(filepath.Join("..", "..", "graphs", "code-entity.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if g.Hash() != graph.CodeEntity().Hash() {
		t.Errorf("bundled graph hash %s differs from CodeEntity %s", g.Hash(), graph.CodeEntity().Hash())
	}
}

func TestHashStable(t *testing.T) {
	a := graph.CodeEntity()
	b := graph.CodeEntity()

	if len(a.Hash()) != 16 {
		t.Errorf("hash length = %d", len(a.Hash()))
	}
	if a.Hash() != b.Hash() {
		t.Error("equal graphs should hash equally")
	}

	def := a.Definition()
	def.FinalNode = ""
	c, err := graph.New(def)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Hash() == a.Hash() {
		t.Error("different graphs should hash differently")
	}
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	files := map[string]string{
		"graph.json": `{
  "nodes": [
    {"id": "gen", "role": "generator", "binding": "local"},
    {"id": "judge", "role": "judge", "binding": "remote"}
  ],
  "edges": [{"from": "gen", "to": "judge"}]
}`,
		"graph.yaml": `nodes:
  - id: gen
    role: generator
    binding: local
  - id: judge
    role: judge
    binding: remote
edges:
  - from: gen
    to: judge
`,
	}

	var hashes []string
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		g, err := graph.Load(path)
		if err != nil {
			t.Fatalf("Load(%s): %v", name, err)
		}
		final, err := g.FinalNodeID()
		if err != nil || final != "judge" {
			t.Errorf("%s final = %q, %v", name, final, err)
		}
		hashes = append(hashes, g.Hash())
	}

	if hashes[0] != hashes[1] {
		t.Error("JSON and YAML encodings of one graph should hash equally")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := graph.Parse([]byte(`{"nodes":[{"id":"a","role":"generator"}],"extra":1}`), graph.FormatJSON)
	if !errors.Is(err, graph.ErrInvalidGraph) {
		t.Errorf("err = %v, want ErrInvalidGraph", err)
	}
}
