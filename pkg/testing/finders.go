package testing

import (
	"fmt"

	"github.com/go-drift/weft/pkg/core"
	"github.com/go-drift/weft/pkg/directive"
)

// Finder locates components in the component tree.
type Finder interface {
	// Evaluate returns all matching components under root (depth-first pre-order).
	Evaluate(root *core.Component) []*core.Component
	// Description returns a human-readable description for error messages.
	Description() string
}

// FinderResult wraps finder results with convenient accessors.
type FinderResult struct {
	components []*core.Component
	finder     Finder
}

// First returns the first match. Panics if no matches.
func (r FinderResult) First() *core.Component {
	if len(r.components) == 0 {
		panic(fmt.Sprintf("Finder found no components: %s", r.description()))
	}
	return r.components[0]
}

// FirstOrNil returns the first match, or nil if none.
func (r FinderResult) FirstOrNil() *core.Component {
	if len(r.components) == 0 {
		return nil
	}
	return r.components[0]
}

// At returns the match at index. Panics if out of range.
func (r FinderResult) At(index int) *core.Component {
	if index < 0 || index >= len(r.components) {
		panic(fmt.Sprintf("Finder index %d out of range (found %d): %s", index, len(r.components), r.description()))
	}
	return r.components[index]
}

// All returns all matches in traversal order.
func (r FinderResult) All() []*core.Component {
	return r.components
}

// Count returns the number of matches.
func (r FinderResult) Count() int {
	return len(r.components)
}

// Exists returns true if at least one match was found.
func (r FinderResult) Exists() bool {
	return len(r.components) > 0
}

func (r FinderResult) description() string {
	if r.finder == nil {
		return "unknown"
	}
	return r.finder.Description()
}

// predicateFinder matches components satisfying a predicate.
type predicateFinder struct {
	fn   func(*core.Component) bool
	desc string
}

func (f *predicateFinder) Evaluate(root *core.Component) []*core.Component {
	return collectMatches(root, f.fn)
}

func (f *predicateFinder) Description() string {
	return f.desc
}

// ByName returns a finder that matches components mounted with name.
func ByName(name string) Finder {
	return &predicateFinder{
		fn:   func(c *core.Component) bool { return c.Name() == name },
		desc: fmt.Sprintf("ByName(%q)", name),
	}
}

// ByHost returns a finder that matches components whose host node
// satisfies selector. It panics on an invalid selector.
func ByHost(selector string) Finder {
	sel := directive.MustParseSelector(selector)
	return &predicateFinder{
		fn: func(c *core.Component) bool {
			return c.Host() != nil && sel.Matches(c.Host())
		},
		desc: fmt.Sprintf("ByHost(%s)", sel),
	}
}

// ByPredicate returns a finder that matches components satisfying fn.
func ByPredicate(fn func(*core.Component) bool) Finder {
	return &predicateFinder{fn: fn, desc: "ByPredicate(...)"}
}

// descendantFinder finds components matching 'matching' that are
// descendants of components matching 'of'.
type descendantFinder struct {
	of       Finder
	matching Finder
}

func (f *descendantFinder) Evaluate(root *core.Component) []*core.Component {
	var results []*core.Component
	seen := make(map[*core.Component]bool)
	for _, ancestor := range f.of.Evaluate(root) {
		for _, child := range ancestor.Children() {
			for _, match := range f.matching.Evaluate(child) {
				if !seen[match] {
					seen[match] = true
					results = append(results, match)
				}
			}
		}
	}
	return results
}

func (f *descendantFinder) Description() string {
	return fmt.Sprintf("Descendant(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Descendant returns a finder that matches components satisfying 'matching'
// that are descendants of components matching 'of'.
func Descendant(of, matching Finder) Finder {
	return &descendantFinder{of: of, matching: matching}
}

// ancestorFinder finds components matching 'matching' that are ancestors
// of components matching 'of'.
type ancestorFinder struct {
	of       Finder
	matching Finder
}

func (f *ancestorFinder) Evaluate(root *core.Component) []*core.Component {
	descendants := f.of.Evaluate(root)
	if len(descendants) == 0 {
		return nil
	}
	var results []*core.Component
	seen := make(map[*core.Component]bool)
	for _, candidate := range f.matching.Evaluate(root) {
		for _, desc := range descendants {
			if !seen[candidate] && isAncestorOf(candidate, desc) {
				seen[candidate] = true
				results = append(results, candidate)
			}
		}
	}
	return results
}

func (f *ancestorFinder) Description() string {
	return fmt.Sprintf("Ancestor(of: %s, matching: %s)", f.of.Description(), f.matching.Description())
}

// Ancestor returns a finder that matches components satisfying 'matching'
// that are ancestors of components matching 'of'.
func Ancestor(of, matching Finder) Finder {
	return &ancestorFinder{of: of, matching: matching}
}

// isAncestorOf returns true if descendant is strictly below ancestor.
func isAncestorOf(ancestor, descendant *core.Component) bool {
	for p := descendant.Parent(); p != nil; p = p.Parent() {
		if p == ancestor {
			return true
		}
	}
	return false
}

// collectMatches performs depth-first pre-order traversal, collecting
// components that satisfy the predicate.
func collectMatches(root *core.Component, predicate func(*core.Component) bool) []*core.Component {
	var results []*core.Component
	walkTree(root, func(c *core.Component) {
		if predicate(c) {
			results = append(results, c)
		}
	})
	return results
}

func walkTree(root *core.Component, visit func(*core.Component)) {
	visit(root)
	for _, child := range root.Children() {
		walkTree(child, visit)
	}
}
