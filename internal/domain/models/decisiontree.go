// internal/domain/models/decisiontree.go
package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// NodeType distinguishes the two kinds of decision tree node.
type NodeType string

const (
	NodeDecision NodeType = "decision"
	NodeAction   NodeType = "action"
)

// Command defaults applied by (Command).WithDefaults.
const (
	DefaultCommandTimeoutSeconds = 300
)

// Command is one shell command listed in an action node.
type Command struct {
	Command           string `bson:"command" json:"command"`
	Description       string `bson:"description" json:"description"`
	TimeoutSeconds    int    `bson:"timeout_seconds" json:"timeout_seconds"`
	ExpectedExitCodes []int  `bson:"expected_exit_codes" json:"expected_exit_codes"`
}

// WithDefaults sets a 300 second timeout and expected exit codes [0] when unset.
func (c Command) WithDefaults() Command {
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = DefaultCommandTimeoutSeconds
	}
	if len(c.ExpectedExitCodes) == 0 {
		c.ExpectedExitCodes = []int{0}
	}
	return c
}

// DecisionOption is one answer to a decision node's question.
type DecisionOption struct {
	Description string `bson:"description" json:"description"`
	NextNodeID  string `bson:"next_node_id" json:"next_node_id"`
}

// Node is a decision tree node. Decision nodes use Question and Options;
// action nodes use Title, Commands and an optional NextNodeID.
type Node struct {
	ID          string   `bson:"id" json:"id"`
	Type        NodeType `bson:"type" json:"type"`
	Description string   `bson:"description" json:"description"`

	// decision
	Question string           `bson:"question,omitempty" json:"question,omitempty"`
	Options  []DecisionOption `bson:"options,omitempty" json:"options,omitempty"`

	// action
	Title      string    `bson:"title,omitempty" json:"title,omitempty"`
	Commands   []Command `bson:"commands,omitempty" json:"commands,omitempty"`
	NextNodeID string    `bson:"next_node_id,omitempty" json:"next_node_id,omitempty"`
}

// DecisionTree is the graph of decisions and actions stored with a runbook.
type DecisionTree struct {
	RootNodeID string          `bson:"root_node_id" json:"root_node_id"`
	Nodes      map[string]Node `bson:"nodes" json:"nodes"`
}

// ErrEmptyTree is returned by Validate for a tree with no nodes.
var ErrEmptyTree = errors.New("decision tree has no nodes")

// Validate checks the tree's structure: the root exists, every node's ID
// matches its key, node types are known, decision nodes have a question and
// at least one option, and every next_node_id points at an existing node.
// All problems are reported together, in key order.
func (t DecisionTree) Validate() error {
	if len(t.Nodes) == 0 {
		return ErrEmptyTree
	}

	var problems []string
	if _, ok := t.Nodes[t.RootNodeID]; !ok {
		problems = append(problems, fmt.Sprintf("root node %q not found", t.RootNodeID))
	}

	keys := make([]string, 0, len(t.Nodes))
	for k := range t.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ref := func(from, to string) {
		if _, ok := t.Nodes[to]; !ok {
			problems = append(problems, fmt.Sprintf("node %q: next node %q not found", from, to))
		}
	}

	for _, k := range keys {
		n := t.Nodes[k]
		if n.ID != k {
			problems = append(problems, fmt.Sprintf("node %q: id %q does not match key", k, n.ID))
		}
		switch n.Type {
		case NodeDecision:
			if strings.TrimSpace(n.Question) == "" {
				problems = append(problems, fmt.Sprintf("node %q: decision requires a question", k))
			}
			if len(n.Options) == 0 {
				problems = append(problems, fmt.Sprintf("node %q: decision requires at least one option", k))
			}
			for _, o := range n.Options {
				ref(k, o.NextNodeID)
			}
		case NodeAction:
			if strings.TrimSpace(n.Title) == "" {
				problems = append(problems, fmt.Sprintf("node %q: action requires a title", k))
			}
			if n.NextNodeID != "" {
				ref(k, n.NextNodeID)
			}
		default:
			problems = append(problems, fmt.Sprintf("node %q: unknown type %q", k, n.Type))
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// WithDefaults returns a copy of the tree with command defaults applied.
func (t DecisionTree) WithDefaults() DecisionTree {
	out := DecisionTree{RootNodeID: t.RootNodeID, Nodes: make(map[string]Node, len(t.Nodes))}
	for k, n := range t.Nodes {
		if len(n.Commands) > 0 {
			cmds := make([]Command, len(n.Commands))
			for i, c := range n.Commands {
				cmds[i] = c.WithDefaults()
			}
			n.Commands = cmds
		}
		out.Nodes[k] = n
	}
	return out
}
