package directive

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/go-drift/weft/pkg/dom"
)

// SelectorKind identifies the supported selector forms.
type SelectorKind int

const (
	// ByAttribute matches attribute presence: [name].
	ByAttribute SelectorKind = iota
	// ByClass matches class membership: .name.
	ByClass
	// ByTag matches the tag name case-insensitively: name.
	ByTag
)

func (k SelectorKind) String() string {
	switch k {
	case ByAttribute:
		return "attribute"
	case ByClass:
		return "class"
	default:
		return "tag"
	}
}

// Selector is a single simple selector. Compound selectors and combinators
// are not supported.
type Selector struct {
	kind  SelectorKind
	value string
	raw   string
}

// ParseSelector parses "[attr]", ".class" or a bare tag name.
func ParseSelector(s string) (Selector, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Selector{}, fmt.Errorf("empty selector")
	}

	var sel Selector
	switch {
	case strings.HasPrefix(raw, "["):
		if !strings.HasSuffix(raw, "]") {
			return Selector{}, fmt.Errorf("selector %q: unterminated attribute selector", s)
		}
		sel = Selector{kind: ByAttribute, value: raw[1 : len(raw)-1]}
	case strings.HasPrefix(raw, "."):
		sel = Selector{kind: ByClass, value: raw[1:]}
	default:
		sel = Selector{kind: ByTag, value: foldTag(raw)}
	}
	if sel.value == "" {
		return Selector{}, fmt.Errorf("selector %q: missing name", s)
	}
	if strings.ContainsAny(sel.value, " \t\n>+~,:#*.[]=\"'") {
		return Selector{}, fmt.Errorf("selector %q: only [attr], .class and tag selectors are supported", s)
	}
	sel.raw = raw
	return sel, nil
}

// MustParseSelector is like ParseSelector but panics on error.
func MustParseSelector(s string) Selector {
	sel, err := ParseSelector(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// Kind returns the selector form.
func (s Selector) Kind() SelectorKind {
	return s.kind
}

// Name returns the attribute, class or folded tag name.
func (s Selector) Name() string {
	return s.value
}

func (s Selector) String() string {
	return s.raw
}

// Matches reports whether n satisfies the selector.
func (s Selector) Matches(n *dom.Node) bool {
	if n == nil || s.value == "" {
		return false
	}
	switch s.kind {
	case ByAttribute:
		return n.HasAttribute(s.value)
	case ByClass:
		return n.HasClass(s.value)
	default:
		return foldTag(n.Tag()) == s.value
	}
}

// foldTag case-folds tag names for comparison.
func foldTag(tag string) string {
	return cases.Fold().String(tag)
}
