package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JaimeStill/moltblock/internal/agents"
)

// Format is a graph file encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor returns the format implied by a file extension.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Load reads and validates a graph file. Files ending in .yaml or .yml are
// decoded as YAML; everything else as JSON.
func Load(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	return Parse(data, FormatFor(path))
}

// Parse decodes and validates a graph definition.
func Parse(data []byte, format Format) (*Graph, error) {
	var def Definition
	switch format {
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidGraph, err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&def); err != nil {
			return nil, fmt.Errorf("%w: decode json: %w", ErrInvalidGraph, err)
		}
	}
	return New(def)
}

// CodeEntity returns the fixed generator → critic → judge pipeline as a graph.
// The judge reads both the draft and the critique.
func CodeEntity() *Graph {
	g, err := New(Definition{
		Nodes: []Node{
			{ID: "generator", Role: agents.RoleGenerator, Binding: "generator"},
			{ID: "critic", Role: agents.RoleCritic, Binding: "critic"},
			{ID: "judge", Role: agents.RoleJudge, Binding: "judge"},
		},
		Edges: []Edge{
			{From: "generator", To: "critic"},
			{From: "generator", To: "judge"},
			{From: "critic", To: "judge"},
		},
		FinalNode: "judge",
	})
	if err != nil {
		panic(err)
	}
	return g
}
