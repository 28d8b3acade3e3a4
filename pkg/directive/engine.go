package directive

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/go-drift/weft/pkg/dom"
	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Engine tracks directive instances for one document.
//
// Start performs a full scan and begins observing the document; every batch
// the document flushes is processed in arrival order. Stop ends observation
// and destroys every tracked instance exactly once.
type Engine struct {
	doc       *dom.Document
	defs      []*Definition
	instances map[*dom.Node][]*Instance
	created   []*Instance
	observer  *dom.Observer
	ctx       context.Context
	handler   wefterrors.ErrorHandler
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithErrorHandler routes callback faults to h instead of the global handler.
func WithErrorHandler(h wefterrors.ErrorHandler) Option {
	return func(e *Engine) {
		e.handler = h
	}
}

// WithLogger enables debug logging of lifecycle transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine for doc. It does nothing until Start.
func NewEngine(doc *dom.Document, opts ...Option) *Engine {
	e := &Engine{
		doc:       doc,
		instances: make(map[*dom.Node][]*Instance),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Define registers a definition. Definitions added while the engine is
// running are applied to the current tree immediately.
func (e *Engine) Define(def *Definition) error {
	if def == nil {
		return wefterrors.Usagef("directive.Define", "nil definition")
	}
	if slices.Contains(e.defs, def) {
		return wefterrors.Usagef("directive.Define", "directive %q already defined", def.name)
	}
	e.defs = append(e.defs, def)
	if e.Running() {
		e.scan(e.ctx, e.doc.Root(), []*Definition{def})
	}
	return nil
}

// Definitions returns the registered definitions in definition order.
func (e *Engine) Definitions() []*Definition {
	return slices.Clone(e.defs)
}

// Running reports whether the engine is observing its document.
func (e *Engine) Running() bool {
	return e.observer != nil
}

// Start scans the whole tree and begins observing mutations. ctx is passed
// to every lifecycle callback until Stop.
func (e *Engine) Start(ctx context.Context) error {
	if e.Running() {
		return wefterrors.Usagef("directive.Start", "engine already started")
	}
	e.ctx = ctx
	e.observer = e.doc.Observe(dom.ObserveOptions{Attributes: true}, func(records []dom.MutationRecord) {
		e.Process(e.ctx, records)
	})
	e.scan(ctx, e.doc.Root(), e.defs)
	return nil
}

// Stop ends observation, invokes OnDestroy once on every tracked instance in
// creation order and clears all state. Stop on a stopped engine is a no-op.
func (e *Engine) Stop(ctx context.Context) {
	if e.observer != nil {
		e.observer.Disconnect()
		e.observer = nil
	}
	created := e.created
	e.created = nil
	e.instances = make(map[*dom.Node][]*Instance)
	for _, inst := range created {
		if inst.destroyed {
			continue
		}
		inst.destroyed = true
		if d, ok := inst.behavior.(Destroyer); ok {
			e.call(inst, "OnDestroy", func() error { return d.OnDestroy(ctx) })
		}
	}
	e.ctx = nil
}

// Process handles one batch of mutation records strictly in order.
// It is called by the document observer while the engine runs and may be
// called directly by hosts that collect records themselves.
func (e *Engine) Process(ctx context.Context, records []dom.MutationRecord) {
	for _, rec := range records {
		switch rec.Type {
		case dom.ChildList:
			for _, n := range rec.Added {
				e.scan(ctx, n, e.defs)
			}
			for _, n := range rec.Removed {
				e.disconnectSubtree(ctx, n)
			}
		case dom.Attributes:
			e.attributeChanged(ctx, rec)
		}
	}
}

// Instances returns the instances attached to el in definition order.
func (e *Engine) Instances(el *dom.Node) []*Instance {
	return slices.Clone(e.instances[el])
}

// Instance returns the instance of def on el, or nil.
func (e *Engine) Instance(def *Definition, el *dom.Node) *Instance {
	for _, inst := range e.instances[el] {
		if inst.def == def {
			return inst
		}
	}
	return nil
}

// Len returns the number of tracked instances.
func (e *Engine) Len() int {
	return len(e.created)
}

// scan visits root and its descendants and attaches every definition in
// defs that matches and is not attached yet.
func (e *Engine) scan(ctx context.Context, root *dom.Node, defs []*Definition) {
	if len(defs) == 0 {
		return
	}
	root.Walk(func(n *dom.Node) bool {
		for _, def := range defs {
			if def.selector.Matches(n) && e.Instance(def, n) == nil {
				e.attach(ctx, def, n)
			}
		}
		return true
	})
}

func (e *Engine) attach(ctx context.Context, def *Definition, el *dom.Node) {
	inst := &Instance{def: def, el: el, state: Unattached}

	err := wefterrors.Guard(e.handler, "directive.New("+def.name+")", func() error {
		inst.behavior = def.ctor(el)
		return nil
	})
	if err != nil {
		return
	}
	if inst.behavior == nil {
		e.report(inst, "New", fmt.Errorf("constructor returned nil"))
		return
	}

	e.instances[el] = append(e.instances[el], inst)
	e.created = append(e.created, inst)

	e.transition(inst, Initializing)
	if in, ok := inst.behavior.(Initializer); ok {
		e.call(inst, "OnInit", func() error { return in.OnInit(ctx) })
	}
	// OnInit may have detached the element or stopped the engine.
	if inst.state != Initializing || inst.destroyed || !el.IsConnected() {
		return
	}
	e.transition(inst, Connected)
	if c, ok := inst.behavior.(Connector); ok {
		e.call(inst, "OnConnected", func() error { return c.OnConnected(ctx) })
	}
}

func (e *Engine) disconnectSubtree(ctx context.Context, root *dom.Node) {
	root.Walk(func(n *dom.Node) bool {
		for _, inst := range e.instances[n] {
			if inst.state != Initializing && inst.state != Connected {
				continue
			}
			e.transition(inst, Disconnected)
			if d, ok := inst.behavior.(Disconnector); ok {
				e.call(inst, "OnDisconnected", func() error { return d.OnDisconnected(ctx) })
			}
		}
		return true
	})
}

func (e *Engine) attributeChanged(ctx context.Context, rec dom.MutationRecord) {
	el := rec.Target
	newValue, hasNew := el.Attribute(rec.AttributeName)
	change := AttributeChange{
		Name:     rec.AttributeName,
		OldValue: rec.OldValue,
		NewValue: newValue,
		HadOld:   rec.HadOldValue,
		HasNew:   hasNew,
	}
	for _, inst := range e.Instances(el) {
		if inst.state == Disconnected || !inst.def.Observes(rec.AttributeName) {
			continue
		}
		if o, ok := inst.behavior.(AttributeObserver); ok {
			e.call(inst, "OnAttributeChanged", func() error { return o.OnAttributeChanged(ctx, change) })
		}
	}

	// An element may start matching a selector after an attribute or class change.
	if el.IsConnected() {
		for _, def := range e.defs {
			if def.selector.Matches(el) && e.Instance(def, el) == nil {
				e.attach(ctx, def, el)
			}
		}
	}
}

func (e *Engine) transition(inst *Instance, to State) {
	e.logger.Debug("directive transition",
		slog.String("directive", inst.def.name),
		slog.String("element", inst.el.ID().String()),
		slog.String("from", inst.state.String()),
		slog.String("to", to.String()))
	inst.state = to
}

// call invokes one lifecycle callback, reporting errors and panics.
func (e *Engine) call(inst *Instance, method string, fn func() error) {
	op := "directive." + method + "(" + inst.def.name + ")"
	err := wefterrors.Guard(e.handler, op, fn)
	if err == nil {
		return
	}
	if _, isPanic := err.(*wefterrors.PanicError); isPanic {
		return
	}
	e.report(inst, method, err)
}

func (e *Engine) report(inst *Instance, method string, err error) {
	wefterrors.ReportTo(e.handler, &wefterrors.RuntimeError{
		Op:        "directive." + method,
		Kind:      wefterrors.KindCallback,
		Token:     inst.def.name,
		Component: inst.el.String(),
		Err:       err,
	})
}
