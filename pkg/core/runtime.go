package core

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"time"

	"github.com/go-drift/weft/pkg/di"
	"github.com/go-drift/weft/pkg/directive"
	"github.com/go-drift/weft/pkg/dom"
	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// maxFlushRounds bounds Runtime.Flush when rebuilds and mutation batches
// keep producing each other.
const maxFlushRounds = 32

// Config holds the runtime settings applied by Options.
type Config struct {
	// Logger receives debug lifecycle logs. Defaults to a discarding logger.
	Logger *slog.Logger
	// ErrorHandler receives reported errors. When nil and Logger is set, a
	// LogHandler on Logger is used; otherwise the global handler.
	ErrorHandler wefterrors.ErrorHandler
	// StrictHookOrder turns hook order violations into usage errors. When
	// false they are reported and the offending slot is reset.
	StrictHookOrder bool
	// Container is the dependency resolver. Defaults to a new container.
	Container *di.Container
	// Document is the host tree. Defaults to a new document rooted at "root".
	Document *dom.Document
}

// Option configures a Runtime.
type Option func(*Config)

// WithLogger sets the runtime logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithErrorHandler routes the runtime's errors to h.
func WithErrorHandler(h wefterrors.ErrorHandler) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithStrictHookOrder enables or disables fail-fast hook order checks.
func WithStrictHookOrder(strict bool) Option {
	return func(c *Config) {
		c.StrictHookOrder = strict
	}
}

// WithContainer uses an existing dependency container.
func WithContainer(container *di.Container) Option {
	return func(c *Config) {
		c.Container = container
	}
}

// WithDocument uses an existing host document.
func WithDocument(doc *dom.Document) Option {
	return func(c *Config) {
		c.Document = doc
	}
}

// Runtime is the explicit context object that owns every registry of one
// component tree: the identity arena, the build owner, the dependency
// container, the host document and its directive engine. Independent
// runtimes share no state.
//
// Runtime is NOT thread-safe. It must only be used from the UI thread.
type Runtime struct {
	cfg       Config
	logger    *slog.Logger
	handler   wefterrors.ErrorHandler
	registry  *Registry
	owner     *BuildOwner
	container *di.Container
	doc       *dom.Document
	engine    *directive.Engine
	roots     []*Component
}

// New creates a runtime. Hook order checks are strict by default.
func New(opts ...Option) *Runtime {
	cfg := Config{StrictHookOrder: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	rt := &Runtime{
		cfg:      cfg,
		logger:   cfg.Logger,
		handler:  cfg.ErrorHandler,
		registry: NewRegistry(),
	}
	if rt.logger == nil {
		rt.logger = slog.New(slog.DiscardHandler)
	} else if rt.handler == nil {
		rt.handler = wefterrors.NewLogHandler(rt.logger, false)
	}

	rt.container = cfg.Container
	if rt.container == nil {
		rt.container = di.New(di.WithErrorHandler(rt.handler))
	}
	rt.doc = cfg.Document
	if rt.doc == nil {
		rt.doc = dom.NewDocument("root")
	}
	rt.engine = directive.NewEngine(rt.doc,
		directive.WithErrorHandler(rt.handler),
		directive.WithLogger(rt.logger))
	rt.owner = newBuildOwner(rt)
	return rt
}

// Config returns the applied configuration.
func (rt *Runtime) Config() Config {
	return rt.cfg
}

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger {
	return rt.logger
}

// ErrorHandler returns the runtime's handler, or nil when errors go to the
// global handler.
func (rt *Runtime) ErrorHandler() wefterrors.ErrorHandler {
	return rt.handler
}

// Registry returns the identity arena.
func (rt *Runtime) Registry() *Registry {
	return rt.registry
}

// BuildOwner returns the rebuild scheduler.
func (rt *Runtime) BuildOwner() *BuildOwner {
	return rt.owner
}

// Container returns the dependency resolver.
func (rt *Runtime) Container() *di.Container {
	return rt.container
}

// Document returns the host document.
func (rt *Runtime) Document() *dom.Document {
	return rt.doc
}

// Directives returns the directive engine observing the document.
func (rt *Runtime) Directives() *directive.Engine {
	return rt.engine
}

// Roots returns the mounted root components.
func (rt *Runtime) Roots() []*Component {
	return slices.Clone(rt.roots)
}

// Start boots the runtime: it runs the container's two-phase AutoRegister
// and starts the directive engine. Errors from AutoRegister are returned
// after the engine has started.
func (rt *Runtime) Start(ctx context.Context) error {
	regErr := rt.container.AutoRegister()
	if err := rt.engine.Start(ctx); err != nil {
		return errors.Join(regErr, err)
	}
	rt.logger.Debug("runtime started", slog.Int("definitions", len(rt.engine.Definitions())))
	return regErr
}

// Shutdown unmounts every root, delivers the resulting mutation records
// and stops the directive engine.
func (rt *Runtime) Shutdown(ctx context.Context) {
	for i := len(rt.roots) - 1; i >= 0; i-- {
		rt.Unmount(rt.roots[i])
	}
	rt.doc.Flush()
	rt.engine.Stop(ctx)
	rt.logger.Debug("runtime stopped")
}

// Mount creates a component under parent (nil for a root) and renders it
// once. If the first render fails the component is unmounted again and the
// error is returned.
func (rt *Runtime) Mount(parent *Component, name string, render RenderFunc, opts ...MountOption) (*Component, error) {
	if render == nil {
		return nil, rt.reportUsage(wefterrors.Usagef("core.Mount", "nil render function for %q", name))
	}
	if parent != nil && (parent.rt != rt || !parent.mounted) {
		return nil, rt.reportUsage(wefterrors.Usagef("core.Mount", "parent %s is not mounted in this runtime", parent))
	}

	c := &Component{rt: rt, name: name, render: render, parent: parent}
	for _, opt := range opts {
		opt(c)
	}
	if c.host != nil && c.host.Document() != rt.doc {
		return nil, rt.reportUsage(wefterrors.Usagef("core.Mount", "host node of %q belongs to another document", name))
	}

	c.handle = rt.registry.acquire(c)
	c.mounted = true
	if parent != nil {
		c.depth = parent.depth + 1
		parent.children = append(parent.children, c)
	} else {
		rt.roots = append(rt.roots, c)
	}
	if c.host != nil && c.host.Parent() == nil {
		if err := c.hostParent().AppendChild(c.host); err != nil {
			rt.Unmount(c)
			return nil, err
		}
	}
	rt.logger.Debug("component mounted",
		slog.String("component", name),
		slog.String("handle", c.handle.String()),
		slog.Int("depth", c.depth))

	if err := rt.Render(c); err != nil {
		rt.Unmount(c)
		return nil, err
	}
	return c, nil
}

// Render runs one render pass of c. Usage errors raised by hooks and panics
// of the render function are reported and returned; a failed pass is not
// committed and schedules no effects.
func (rt *Runtime) Render(c *Component) error {
	if c == nil || c.rt != rt || !c.mounted {
		return rt.reportUsage(wefterrors.Usagef("core.Render", "component is not mounted in this runtime"))
	}
	if c.rendering {
		return rt.reportUsage(&wefterrors.UsageError{Op: "core.Render", Component: c.name, Message: "render re-entered"})
	}

	c.dirty = false
	s := newSession(rt, c)
	c.rendering = true
	err := rt.runRender(c, s)
	c.rendering = false
	if err != nil {
		s.abort()
		return err
	}
	if err := s.end(); err != nil {
		return rt.reportUsage(err.(*wefterrors.UsageError))
	}
	c.renders++
	return nil
}

func (rt *Runtime) runRender(c *Component, s *Session) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if uerr, ok := r.(*wefterrors.UsageError); ok {
			err = rt.reportUsage(uerr)
			return
		}
		perr := &wefterrors.PanicError{
			Op:         "core.Render(" + c.name + ")",
			Value:      r,
			StackTrace: wefterrors.CaptureStack(),
			Timestamp:  time.Now(),
		}
		wefterrors.ReportPanicTo(rt.handler, perr)
		err = perr
	}()
	c.render(s)
	return nil
}

// Unmount removes c and its subtree. Children unmount first. For each
// component, pending effect cleanups run in slot order, then OnDispose
// disposers in reverse order; then its event listeners are cleared, its
// host node is removed from the document and its handle is released.
// Unmounting an unmounted component is a no-op.
func (rt *Runtime) Unmount(c *Component) {
	if c == nil || !c.mounted {
		return
	}
	for _, child := range slices.Clone(c.children) {
		rt.Unmount(child)
	}
	c.mounted = false
	c.dirty = false

	if e, ok := rt.registry.lookup(c.handle); ok {
		for _, sl := range e.slots {
			if sl.kind != slotEffect || sl.cleanup == nil {
				continue
			}
			cleanup := sl.cleanup
			sl.cleanup = nil
			rt.guard("core.UseEffect.cleanup("+c.name+")", func() error {
				cleanup()
				return nil
			})
		}
	}
	c.runDisposers()
	if c.events != nil {
		c.events.RemoveAllListeners()
	}
	if c.host != nil {
		c.host.Remove()
	}
	rt.registry.release(c.handle)

	if c.parent != nil {
		if i := slices.Index(c.parent.children, c); i >= 0 {
			c.parent.children = slices.Delete(c.parent.children, i, i+1)
		}
	} else if i := slices.Index(rt.roots, c); i >= 0 {
		rt.roots = slices.Delete(rt.roots, i, i+1)
	}
	rt.logger.Debug("component unmounted",
		slog.String("component", c.name),
		slog.String("handle", c.handle.String()))
}

// FlushBuild rebuilds every dirty component. See BuildOwner.FlushBuild.
func (rt *Runtime) FlushBuild() error {
	return rt.owner.FlushBuild()
}

// Flush rebuilds dirty components and delivers pending mutation records
// until both settle.
func (rt *Runtime) Flush() error {
	var errs []error
	for round := 0; round < maxFlushRounds; round++ {
		if !rt.owner.NeedsWork() && !rt.doc.Pending() {
			break
		}
		if err := rt.owner.FlushBuild(); err != nil {
			errs = append(errs, err)
		}
		rt.doc.Flush()
	}
	return errors.Join(errs...)
}

// reportUsage reports a usage error and returns it.
func (rt *Runtime) reportUsage(err *wefterrors.UsageError) error {
	wefterrors.ReportTo(rt.handler, &wefterrors.RuntimeError{
		Op:        err.Op,
		Kind:      wefterrors.KindUsage,
		Component: err.Component,
		Err:       err,
	})
	return err
}

// guard runs a user callback, reporting panics and errors without
// propagating them.
func (rt *Runtime) guard(op string, fn func() error) {
	err := wefterrors.Guard(rt.handler, op, fn)
	if err == nil {
		return
	}
	var perr *wefterrors.PanicError
	if errors.As(err, &perr) {
		return
	}
	wefterrors.ReportTo(rt.handler, &wefterrors.RuntimeError{
		Op:   op,
		Kind: wefterrors.KindCallback,
		Err:  err,
	})
}
