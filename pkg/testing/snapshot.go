package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-drift/weft/pkg/core"
	"github.com/go-drift/weft/pkg/dom"
)

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the component tree and the host tree with the
// directives attached to each node.
type Snapshot struct {
	Components []*ComponentNode `json:"components"`
	Document   *HostNode        `json:"document"`
}

// ComponentNode represents a component in the serialized tree. Handles and
// node identities are omitted so snapshots are stable across runs.
type ComponentNode struct {
	Name     string           `json:"name"`
	Slots    int              `json:"slots"`
	Renders  int              `json:"renders"`
	Host     string           `json:"host,omitempty"`
	Children []*ComponentNode `json:"children,omitempty"`
}

// HostNode represents a host node in the serialized tree.
type HostNode struct {
	Tag        string            `json:"tag"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Directives []string          `json:"directives,omitempty"`
	Children   []*HostNode       `json:"children,omitempty"`
}

// CaptureSnapshot captures the current component and host trees.
func (t *Tester) CaptureSnapshot() *Snapshot {
	snap := &Snapshot{}
	for _, root := range t.rt.Roots() {
		snap.Components = append(snap.Components, t.captureComponent(root))
	}
	snap.Document = t.captureHost(t.rt.Document().Root())
	return snap
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When WEFT_UPDATE_SNAPSHOTS=1
// is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv("WEFT_UPDATE_SNAPSHOTS") == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: WEFT_UPDATE_SNAPSHOTS=1 go test -run %s", path, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: WEFT_UPDATE_SNAPSHOTS=1 go test -run %s", path, diff, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between this snapshot and other. Returns
// empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return unifiedDiff(string(b), string(a))
}

func (t *Tester) captureComponent(c *core.Component) *ComponentNode {
	node := &ComponentNode{
		Name:    c.Name(),
		Slots:   t.rt.Registry().SlotCount(c.Handle()),
		Renders: c.RenderCount(),
	}
	if h := c.Host(); h != nil {
		node.Host = h.Tag()
	}
	for _, child := range c.Children() {
		node.Children = append(node.Children, t.captureComponent(child))
	}
	return node
}

func (t *Tester) captureHost(n *dom.Node) *HostNode {
	node := &HostNode{Tag: n.Tag()}
	if attrs := n.Attributes(); len(attrs) > 0 {
		node.Attrs = make(map[string]string, len(attrs))
		for _, a := range attrs {
			node.Attrs[a.Name] = a.Value
		}
	}
	for _, inst := range t.rt.Directives().Instances(n) {
		node.Directives = append(node.Directives, fmt.Sprintf("%s:%s", inst.Definition().Name(), inst.State()))
	}
	for _, child := range n.Children() {
		node.Children = append(node.Children, t.captureHost(child))
	}
	return node
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unifiedDiff produces a simple line-oriented diff.
func unifiedDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	maxLen := len(expectedLines)
	if len(actualLines) > maxLen {
		maxLen = len(actualLines)
	}

	for i := 0; i < maxLen; i++ {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e != a {
			if i < len(expectedLines) {
				fmt.Fprintf(&buf, "-%s\n", e)
			}
			if i < len(actualLines) {
				fmt.Fprintf(&buf, "+%s\n", a)
			}
		}
	}

	return buf.String()
}
