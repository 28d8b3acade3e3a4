package scenario

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/go-drift/weft/pkg/core"
	"github.com/go-drift/weft/pkg/di"
	"github.com/go-drift/weft/pkg/directive"
	"github.com/go-drift/weft/pkg/dom"
	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Options configures a replay.
type Options struct {
	// Logger receives runtime debug logs and forwarded errors when set.
	Logger *slog.Logger
	// Verbose includes stack traces in forwarded errors.
	Verbose bool
	// StrictHookOrder is passed to the runtime.
	StrictHookOrder bool
	// Module labels the result.
	Module string
}

type runner struct {
	sc      *Scenario
	rt      *core.Runtime
	trace   *Trace
	nodes   map[string]*dom.Node
	comps   map[string]*core.Component
	setters map[string]func(any)
}

// Run replays sc through a fresh runtime and returns the collected trace.
// Faults raised by callbacks are part of the trace; only malformed steps
// abort the replay.
func Run(ctx context.Context, sc *Scenario, opts Options) (*Result, error) {
	tr := &Trace{}
	handler := &traceHandler{trace: tr}
	rtOpts := []core.Option{
		core.WithErrorHandler(handler),
		core.WithStrictHookOrder(opts.StrictHookOrder),
		core.WithContainer(di.New(di.WithErrorHandler(handler))),
	}
	if opts.Logger != nil {
		handler.next = wefterrors.NewLogHandler(opts.Logger, opts.Verbose)
		rtOpts = append(rtOpts, core.WithLogger(opts.Logger))
	}

	r := &runner{
		sc:      sc,
		rt:      core.New(rtOpts...),
		trace:   tr,
		nodes:   make(map[string]*dom.Node),
		comps:   make(map[string]*core.Component),
		setters: make(map[string]func(any)),
	}
	if err := r.registerServices(); err != nil {
		return nil, err
	}
	if err := r.defineDirectives(); err != nil {
		return nil, err
	}
	root := r.rt.Document().Root()
	for _, spec := range sc.Tree {
		if err := root.AppendChild(r.build(spec)); err != nil {
			return nil, err
		}
	}

	// Start fails only with boot errors such as failing singleton
	// factories; the engine is running either way.
	if err := r.rt.Start(ctx); err != nil {
		tr.add("error", "di.AutoRegister", wefterrors.KindCallback.String(), err.Error())
	}
	tr.add("runtime", "", "started", "")
	for _, spec := range sc.Components {
		if err := r.mount(nil, spec); err != nil {
			r.rt.Shutdown(ctx)
			return nil, err
		}
	}
	r.flush()

	for i, st := range sc.Steps {
		if err := r.apply(st); err != nil {
			r.rt.Shutdown(ctx)
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}
	r.flush()
	r.rt.Shutdown(ctx)
	tr.add("runtime", "", "stopped", "")

	return &Result{RunID: uuid.NewString(), Scenario: sc.Name, Module: opts.Module, Entries: tr.Entries(), Errors: tr.errors}, nil
}

func (r *runner) registerServices() error {
	c := r.rt.Container()
	for _, svc := range r.sc.Services {
		if svc.Value != nil {
			if err := c.RegisterValue(svc.Token, svc.Value); err != nil {
				return err
			}
			continue
		}
		scope := di.Singleton
		if svc.Scope != "" {
			s, err := di.ParseScope(svc.Scope)
			if err != nil {
				return fmt.Errorf("service %q: %w", svc.Token, err)
			}
			scope = s
		}
		if err := c.RegisterFactoryScoped(svc.Token, scope, r.factory(svc), svc.Deps...); err != nil {
			return err
		}
	}
	return nil
}

// factory builds a service whose value spells out its dependencies, so the
// trace shows what each construction received.
func (r *runner) factory(svc ServiceSpec) di.Factory {
	return func(deps ...any) (any, error) {
		parts := make([]string, len(deps))
		for i, d := range deps {
			if d == nil {
				parts[i] = "<nil>"
				continue
			}
			parts[i] = fmt.Sprint(d)
		}
		value := svc.Token + "(" + strings.Join(parts, ",") + ")"
		r.trace.add("service", svc.Token, "construct", value)
		if svc.Fail {
			return nil, fmt.Errorf("construct %s failed", svc.Token)
		}
		return value, nil
	}
}

func (r *runner) defineDirectives() error {
	engine := r.rt.Directives()
	for _, spec := range r.sc.Directives {
		fail := make(map[string]bool, len(spec.Fail))
		for _, ev := range spec.Fail {
			fail[ev] = true
		}
		name := spec.Name
		def, err := directive.NewDefinition(name, spec.Selector, func(el *dom.Node) any {
			return &behavior{name: name, el: el, fail: fail, trace: r.trace}
		}, spec.Observe...)
		if err != nil {
			return err
		}
		if err := engine.Define(def); err != nil {
			return err
		}
	}
	return nil
}

// build creates a detached node tree and indexes nodes carrying an id.
func (r *runner) build(spec NodeSpec) *dom.Node {
	n := r.rt.Document().CreateElement(spec.Tag)
	if spec.ID != "" {
		n.SetAttribute("id", spec.ID)
		r.nodes[spec.ID] = n
	}
	if spec.Class != "" {
		n.SetAttribute("class", spec.Class)
	}
	for _, name := range slices.Sorted(maps.Keys(spec.Attrs)) {
		n.SetAttribute(name, spec.Attrs[name])
	}
	for _, child := range spec.Children {
		_ = n.AppendChild(r.build(child))
	}
	return n
}

func (r *runner) mount(parent *core.Component, spec ComponentSpec) error {
	var opts []core.MountOption
	if spec.Host != nil {
		opts = append(opts, core.WithHost(r.build(*spec.Host)))
	}
	c, err := r.rt.Mount(parent, spec.Name, r.render(spec), opts...)
	if err != nil {
		return fmt.Errorf("mount %q: %w", spec.Name, err)
	}
	r.comps[spec.Name] = c
	for _, child := range spec.Children {
		if err := r.mount(c, child); err != nil {
			return err
		}
	}
	return nil
}

type resolved struct {
	token string
	value any
	ok    bool
}

func (r *runner) render(spec ComponentSpec) core.RenderFunc {
	name := spec.Name
	return func(s *core.Session) {
		state, setState := core.UseState[any](s, spec.State)
		r.setters[name] = setState

		services := make([]resolved, 0, len(spec.Services))
		for _, token := range spec.Services {
			v, ok := core.UseService[any](s, token)
			services = append(services, resolved{token: token, value: v, ok: ok})
		}

		ch := core.UseEvents(s)
		core.UseEffect(s, func() func() {
			for _, svc := range services {
				if svc.ok {
					r.trace.add("component", name, "service", fmt.Sprintf("%s=%v", svc.token, svc.value))
				} else {
					r.trace.add("component", name, "service", svc.token+" missing")
				}
			}
			subs := make([]func(), 0, len(spec.Listen))
			for _, topic := range spec.Listen {
				sub := ch.On(topic, func(payload any) {
					r.trace.add("component", name, "received", fmt.Sprintf("%s payload=%v", topic, payload))
				})
				subs = append(subs, sub.Cancel)
			}
			return func() {
				for _, cancel := range subs {
					cancel()
				}
			}
		}, []any{})

		core.UseEffect(s, func() func() {
			r.trace.add("component", name, "effect", fmt.Sprintf("state=%v", state))
			return func() {
				r.trace.add("component", name, "cleanup", fmt.Sprintf("state=%v", state))
			}
		}, []any{state})

		r.trace.add("component", name, "render", fmt.Sprintf("state=%v", state))
	}
}

func (r *runner) apply(st Step) error {
	switch {
	case st.Append != nil:
		parent := r.rt.Document().Root()
		if st.Append.Parent != "" {
			p, err := r.node(st.Append.Parent)
			if err != nil {
				return err
			}
			parent = p
		}
		return parent.AppendChild(r.build(st.Append.Node))
	case st.Remove != "":
		n, err := r.node(st.Remove)
		if err != nil {
			return err
		}
		n.Remove()
	case st.SetAttr != nil:
		n, err := r.node(st.SetAttr.Node)
		if err != nil {
			return err
		}
		n.SetAttribute(st.SetAttr.Name, st.SetAttr.Value)
	case st.RemoveAttr != nil:
		n, err := r.node(st.RemoveAttr.Node)
		if err != nil {
			return err
		}
		n.RemoveAttribute(st.RemoveAttr.Name)
	case st.AddClass != nil:
		n, err := r.node(st.AddClass.Node)
		if err != nil {
			return err
		}
		n.AddClass(st.AddClass.Class)
	case st.RemoveClass != nil:
		n, err := r.node(st.RemoveClass.Node)
		if err != nil {
			return err
		}
		n.RemoveClass(st.RemoveClass.Class)
	case st.SetState != nil:
		set, ok := r.setters[st.SetState.Component]
		if !ok {
			return fmt.Errorf("unknown component %q", st.SetState.Component)
		}
		set(st.SetState.Value)
	case st.Emit != nil:
		c, err := r.component(st.Emit.Component)
		if err != nil {
			return err
		}
		r.trace.add("event", c.Name(), "emit", st.Emit.Topic)
		c.Events().Emit(st.Emit.Topic, st.Emit.Payload)
	case st.Unmount != "":
		c, err := r.component(st.Unmount)
		if err != nil {
			return err
		}
		r.forget(c)
		c.Unmount()
	case st.Flush:
		r.flush()
	}
	return nil
}

func (r *runner) flush() {
	if err := r.rt.Flush(); err != nil {
		r.trace.add("error", "core.Flush", wefterrors.KindUnknown.String(), err.Error())
	}
}

func (r *runner) node(id string) (*dom.Node, error) {
	n, ok := r.nodes[id]
	if !ok {
		return nil, fmt.Errorf("unknown node %q", id)
	}
	return n, nil
}

func (r *runner) component(name string) (*core.Component, error) {
	c, ok := r.comps[name]
	if !ok || !c.Mounted() {
		return nil, fmt.Errorf("unknown component %q", name)
	}
	return c, nil
}

// forget drops c and its descendants from the lookup tables.
func (r *runner) forget(c *core.Component) {
	for _, child := range c.Children() {
		r.forget(child)
	}
	delete(r.comps, c.Name())
	delete(r.setters, c.Name())
}

// behavior is the directive attached by scenario definitions. It traces
// every callback and fails the ones listed in its definition.
type behavior struct {
	directive.Base
	name  string
	el    *dom.Node
	fail  map[string]bool
	trace *Trace
}

func (b *behavior) subject() string {
	if id, ok := b.el.Attribute("id"); ok {
		return b.name + "@" + id
	}
	return b.name + "@" + b.el.Tag()
}

func (b *behavior) record(event, detail string) error {
	b.trace.add("directive", b.subject(), event, detail)
	if b.fail[event] {
		return fmt.Errorf("%s failed", event)
	}
	return nil
}

func (b *behavior) OnInit(context.Context) error {
	return b.record("init", "")
}

func (b *behavior) OnConnected(context.Context) error {
	return b.record("connected", "")
}

func (b *behavior) OnDisconnected(context.Context) error {
	return b.record("disconnected", "")
}

func (b *behavior) OnAttributeChanged(_ context.Context, change directive.AttributeChange) error {
	return b.record("attribute", fmt.Sprintf("%s %s -> %s",
		change.Name, attrValue(change.OldValue, change.HadOld), attrValue(change.NewValue, change.HasNew)))
}

func (b *behavior) OnDestroy(context.Context) error {
	return b.record("destroy", "")
}

func attrValue(v string, present bool) string {
	if !present {
		return "<none>"
	}
	return fmt.Sprintf("%q", v)
}
