// Package directive attaches behavior objects to tree nodes that match a
// selector, driven by the host's batched mutation records.
//
// # Definitions
//
// A Definition pairs a selector with a constructor and the attribute names
// it observes:
//
//	tooltip, _ := directive.NewDefinition("tooltip", "[tooltip]",
//	    func(el *dom.Node) any { return &Tooltip{el: el} },
//	    "tooltip")
//	engine.Define(tooltip)
//
// # Lifecycle
//
// Behavior objects implement any subset of Initializer, Connector,
// Disconnector, AttributeObserver and Destroyer. Missing capabilities are
// no-ops. Each instance moves through
//
//	unattached -> initializing -> connected -> disconnected
//
// and disconnected is terminal. Callbacks are awaited one instance at a
// time; an error or panic in one callback is reported and never prevents the
// callbacks of other instances from running.
package directive

import (
	"context"
	"fmt"
	"slices"

	"github.com/go-drift/weft/pkg/dom"
)

// Initializer is implemented by behaviors that run setup once per instance.
type Initializer interface {
	OnInit(ctx context.Context) error
}

// Connector is implemented by behaviors notified when their element is live.
type Connector interface {
	OnConnected(ctx context.Context) error
}

// Disconnector is implemented by behaviors notified when their element is
// removed from the tree.
type Disconnector interface {
	OnDisconnected(ctx context.Context) error
}

// AttributeObserver is implemented by behaviors that react to changes of
// their definition's observed attributes.
type AttributeObserver interface {
	OnAttributeChanged(ctx context.Context, change AttributeChange) error
}

// Destroyer is implemented by behaviors that release resources at engine shutdown.
type Destroyer interface {
	OnDestroy(ctx context.Context) error
}

// Lifecycle is the full capability set. Embed Base to implement a subset.
type Lifecycle interface {
	Initializer
	Connector
	Disconnector
	AttributeObserver
	Destroyer
}

// Base provides no-op implementations of every lifecycle method.
type Base struct{}

func (Base) OnInit(context.Context) error                              { return nil }
func (Base) OnConnected(context.Context) error                         { return nil }
func (Base) OnDisconnected(context.Context) error                      { return nil }
func (Base) OnAttributeChanged(context.Context, AttributeChange) error { return nil }
func (Base) OnDestroy(context.Context) error                           { return nil }

// AttributeChange describes one observed attribute transition.
type AttributeChange struct {
	Name     string
	OldValue string
	NewValue string
	// HadOld and HasNew distinguish an empty value from an absent attribute.
	HadOld bool
	HasNew bool
}

// Constructor builds the behavior object for a matched element.
type Constructor func(el *dom.Node) any

// Definition is an immutable (selector, observed attributes) pair plus the
// constructor of its behavior objects.
type Definition struct {
	name     string
	selector Selector
	observed []string
	ctor     Constructor
}

// NewDefinition validates selector and builds a Definition.
func NewDefinition(name, selector string, ctor Constructor, observed ...string) (*Definition, error) {
	if ctor == nil {
		return nil, fmt.Errorf("directive %q: nil constructor", name)
	}
	sel, err := ParseSelector(selector)
	if err != nil {
		return nil, fmt.Errorf("directive %q: %w", name, err)
	}
	if name == "" {
		name = sel.String()
	}
	return &Definition{
		name:     name,
		selector: sel,
		observed: slices.Clone(observed),
		ctor:     ctor,
	}, nil
}

// MustDefinition is like NewDefinition but panics on error.
func MustDefinition(name, selector string, ctor Constructor, observed ...string) *Definition {
	def, err := NewDefinition(name, selector, ctor, observed...)
	if err != nil {
		panic(err)
	}
	return def
}

// Name returns the definition's name.
func (d *Definition) Name() string {
	return d.name
}

// Selector returns the parsed selector.
func (d *Definition) Selector() Selector {
	return d.selector
}

// ObservedAttributes returns a copy of the observed attribute names.
func (d *Definition) ObservedAttributes() []string {
	return slices.Clone(d.observed)
}

// Observes reports whether name is an observed attribute.
func (d *Definition) Observes(name string) bool {
	return slices.Contains(d.observed, name)
}

// State is a directive instance's lifecycle position.
type State int

const (
	Unattached State = iota
	Initializing
	Connected
	Disconnected
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Initializing:
		return "initializing"
	case Connected:
		return "connected"
	case Disconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Instance is the (definition, element, behavior) triple.
type Instance struct {
	def       *Definition
	el        *dom.Node
	behavior  any
	state     State
	destroyed bool
}

// Definition returns the definition the instance was created from.
func (i *Instance) Definition() *Definition {
	return i.def
}

// Element returns the instrumented node.
func (i *Instance) Element() *dom.Node {
	return i.el
}

// Behavior returns the behavior object.
func (i *Instance) Behavior() any {
	return i.behavior
}

// State returns the lifecycle state.
func (i *Instance) State() State {
	return i.state
}

// Destroyed reports whether OnDestroy has been dispatched.
func (i *Instance) Destroyed() bool {
	return i.destroyed
}
