// Package tree precomputes branching stories and plays them back with fuzzy
// choice matching and a live-generation fallback for unexpected input.
package tree

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// StartNodeID is the id of every tree's root.
const StartNodeID = "start"

var ErrUnknownGenre = errors.New("unknown tree genre")

// Choice is an outgoing edge. LeadsTo may name a node that was queued but
// never built.
type Choice struct {
	Text    string `json:"text"`
	LeadsTo string `json:"leads_to"`
	Type    string `json:"type"`
}

type Node struct {
	NodeID   string   `json:"node_id"`
	Text     string   `json:"text"`
	Choices  []Choice `json:"choices"`
	IsEnding bool     `json:"is_ending,omitempty"`
	Depth    int      `json:"depth"`
}

// Tree is read-only once built. Players keep their own cursor.
type Tree struct {
	Genre      string           `json:"genre"`
	Title      string           `json:"title"`
	Nodes      map[string]*Node `json:"nodes"`
	Characters []string         `json:"characters"`
	Locations  []string         `json:"locations"`
	StartNode  string           `json:"start_node"`
}

func newTree(genreName string) *Tree {
	return &Tree{
		Genre:      genreName,
		Nodes:      make(map[string]*Node),
		Characters: []string{},
		Locations:  []string{},
		StartNode:  StartNodeID,
	}
}

func (t *Tree) Node(id string) (*Node, bool) {
	n, ok := t.Nodes[id]
	return n, ok
}

// Endings counts the terminal nodes.
func (t *Tree) Endings() int {
	n := 0
	for _, node := range t.Nodes {
		if node.IsEnding {
			n++
		}
	}
	return n
}

// Dangling lists choice targets that were never materialized.
func (t *Tree) Dangling() []string {
	var out []string
	for _, node := range t.Nodes {
		for _, c := range node.Choices {
			if _, ok := t.Nodes[c.LeadsTo]; !ok {
				out = append(out, c.LeadsTo)
			}
		}
	}
	return out
}

// Save writes the tree as indented JSON.
func (t *Tree) Save(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return nil
}

// Load reads a tree written by Save. A tree without its start node is an error.
func Load(r io.Reader) (*Tree, error) {
	var t Tree
	if err := json.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	if t.StartNode == "" {
		t.StartNode = StartNodeID
	}
	if _, ok := t.Nodes[t.StartNode]; !ok {
		return nil, fmt.Errorf("tree has no start node %q", t.StartNode)
	}
	return &t, nil
}
