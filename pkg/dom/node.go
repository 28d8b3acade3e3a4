// Package dom models the host view tree the runtime observes.
//
// A Document owns a root Node. Nodes carry a tag name, ordered attributes
// and children. Every mutation of a connected subtree is queued as a
// MutationRecord to each Observer of the document; Document.Flush delivers
// the queued records to each observer as one ordered batch, the way a host
// platform reports mutations at the end of a turn.
//
// The tree is NOT thread-safe. It must only be mutated from the UI thread.
package dom

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/rs/xid"
)

var (
	// ErrHierarchy is returned when an insertion would make a node its own ancestor.
	ErrHierarchy = errors.New("dom: node cannot be inserted under itself")
	// ErrNotChild is returned when the reference node is not a child of the parent.
	ErrNotChild = errors.New("dom: node is not a child of this parent")
	// ErrWrongDocument is returned when nodes from different documents are combined.
	ErrWrongDocument = errors.New("dom: node belongs to another document")
	// ErrRootNode is returned when the document root would be moved.
	ErrRootNode = errors.New("dom: the document root cannot be moved")
)

// Attr is a single attribute.
type Attr struct {
	Name  string
	Value string
}

// Node is an element of the view tree.
type Node struct {
	id       xid.ID
	tag      string
	attrs    []Attr
	parent   *Node
	children []*Node
	doc      *Document
}

// ID returns the node's globally unique identity.
func (n *Node) ID() xid.ID {
	return n.id
}

// Tag returns the tag name as it was created.
func (n *Node) Tag() string {
	return n.tag
}

// Document returns the owning document.
func (n *Node) Document() *Document {
	return n.doc
}

// Parent returns the parent node, or nil for the root and detached nodes.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// ChildCount returns the number of children.
func (n *Node) ChildCount() int {
	return len(n.children)
}

// IsConnected reports whether the node is attached to its document's root.
func (n *Node) IsConnected() bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == n.doc.root {
			return true
		}
	}
	return false
}

// Contains reports whether other is n or one of its descendants.
func (n *Node) Contains(other *Node) bool {
	for cur := other; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
	}
	return false
}

// Walk visits n and its descendants in pre-order. Returning false from
// visit skips the node's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if !visit(n) {
		return
	}
	for _, child := range slices.Clone(n.children) {
		child.Walk(visit)
	}
}

// Attribute returns the value of name and whether it is present.
func (n *Node) Attribute(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasAttribute reports whether name is present.
func (n *Node) HasAttribute(name string) bool {
	_, ok := n.Attribute(name)
	return ok
}

// Attributes returns a copy of the attributes in insertion order.
func (n *Node) Attributes() []Attr {
	return slices.Clone(n.attrs)
}

// SetAttribute sets name to value, queuing an attribute record.
func (n *Node) SetAttribute(name, value string) {
	old, had := n.Attribute(name)
	if had {
		for i := range n.attrs {
			if n.attrs[i].Name == name {
				n.attrs[i].Value = value
				break
			}
		}
	} else {
		n.attrs = append(n.attrs, Attr{Name: name, Value: value})
	}
	n.doc.queue(MutationRecord{
		Type:          Attributes,
		Target:        n,
		AttributeName: name,
		OldValue:      old,
		HadOldValue:   had,
	})
}

// RemoveAttribute removes name and reports whether it was present.
func (n *Node) RemoveAttribute(name string) bool {
	for i, a := range n.attrs {
		if a.Name == name {
			n.attrs = slices.Delete(n.attrs, i, i+1)
			n.doc.queue(MutationRecord{
				Type:          Attributes,
				Target:        n,
				AttributeName: name,
				OldValue:      a.Value,
				HadOldValue:   true,
			})
			return true
		}
	}
	return false
}

// Classes returns the class list parsed from the class attribute.
func (n *Node) Classes() []string {
	v, _ := n.Attribute("class")
	return strings.Fields(v)
}

// HasClass reports class membership.
func (n *Node) HasClass(class string) bool {
	return slices.Contains(n.Classes(), class)
}

// AddClass adds class to the class attribute if missing.
func (n *Node) AddClass(class string) {
	classes := n.Classes()
	if slices.Contains(classes, class) {
		return
	}
	n.SetAttribute("class", strings.Join(append(classes, class), " "))
}

// RemoveClass removes class from the class attribute if present.
func (n *Node) RemoveClass(class string) {
	classes := n.Classes()
	i := slices.Index(classes, class)
	if i < 0 {
		return
	}
	n.SetAttribute("class", strings.Join(slices.Delete(classes, i, i+1), " "))
}

// AppendChild moves child to the end of n's children.
func (n *Node) AppendChild(child *Node) error {
	return n.InsertBefore(child, nil)
}

// InsertBefore inserts child before ref, or at the end when ref is nil.
// A child that already has a parent is removed from it first.
func (n *Node) InsertBefore(child, ref *Node) error {
	if child.doc != n.doc {
		return ErrWrongDocument
	}
	if child == n.doc.root {
		return ErrRootNode
	}
	if child.Contains(n) {
		return ErrHierarchy
	}
	if ref != nil && ref.parent != n {
		return ErrNotChild
	}
	if ref == child {
		return nil
	}
	if child.parent != nil {
		if err := child.parent.RemoveChild(child); err != nil {
			return err
		}
	}

	idx := len(n.children)
	if ref != nil {
		idx = slices.Index(n.children, ref)
	}
	n.children = slices.Insert(n.children, idx, child)
	child.parent = n
	n.doc.queue(MutationRecord{
		Type:   ChildList,
		Target: n,
		Added:  []*Node{child},
	})
	return nil
}

// RemoveChild detaches child from n.
func (n *Node) RemoveChild(child *Node) error {
	idx := slices.Index(n.children, child)
	if idx < 0 {
		return ErrNotChild
	}
	// Queue before detaching so connectivity of the target is still known.
	n.doc.queue(MutationRecord{
		Type:    ChildList,
		Target:  n,
		Removed: []*Node{child},
	})
	n.children = slices.Delete(n.children, idx, idx+1)
	child.parent = nil
	return nil
}

// Remove detaches n from its parent. It is a no-op for detached nodes.
func (n *Node) Remove() {
	if n.parent != nil {
		_ = n.parent.RemoveChild(n)
	}
}

func (n *Node) String() string {
	var sb strings.Builder
	sb.WriteString("<")
	sb.WriteString(n.tag)
	for _, a := range n.attrs {
		fmt.Fprintf(&sb, " %s=%q", a.Name, a.Value)
	}
	sb.WriteString(">")
	return sb.String()
}
