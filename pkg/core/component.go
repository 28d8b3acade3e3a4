package core

import (
	"slices"
	"sync"

	"github.com/go-drift/weft/pkg/dom"
	"github.com/go-drift/weft/pkg/events"
)

// RenderFunc renders one component. It calls hooks on s in the same order
// on every pass; its output is owned by the host and not interpreted here.
type RenderFunc func(s *Session)

// Component is a mounted node of the component tree.
//
// Component is NOT thread-safe. It must only be used from the UI thread.
type Component struct {
	rt       *Runtime
	handle   Handle
	name     string
	render   RenderFunc
	parent   *Component
	children []*Component
	depth    int
	host     *dom.Node
	events   *events.Channel

	mounted   bool
	dirty     bool
	rendering bool
	renders   int

	disposers []func()
	disposed  bool
	mu        sync.Mutex
}

// MountOption configures a component at mount time.
type MountOption func(*Component)

// WithHost binds a host node to the component. A detached node is appended
// under the nearest ancestor's host node, or the document root. The node is
// removed from the document when the component unmounts.
func WithHost(node *dom.Node) MountOption {
	return func(c *Component) {
		c.host = node
	}
}

// Handle returns the component's arena handle.
func (c *Component) Handle() Handle {
	return c.handle
}

// Name returns the component name given at mount.
func (c *Component) Name() string {
	return c.name
}

// Runtime returns the owning runtime.
func (c *Component) Runtime() *Runtime {
	return c.rt
}

// Parent returns the parent component, or nil for a root.
func (c *Component) Parent() *Component {
	return c.parent
}

// Children returns a copy of the mounted children in mount order.
func (c *Component) Children() []*Component {
	return slices.Clone(c.children)
}

// Depth returns the distance from the root (roots have depth 0).
func (c *Component) Depth() int {
	return c.depth
}

// Host returns the bound host node, or nil.
func (c *Component) Host() *dom.Node {
	return c.host
}

// Mounted reports whether the component is still part of the tree.
func (c *Component) Mounted() bool {
	return c.mounted
}

// Dirty reports whether the component is scheduled for rebuild.
func (c *Component) Dirty() bool {
	return c.dirty
}

// RenderCount returns the number of completed render passes.
func (c *Component) RenderCount() int {
	return c.renders
}

// Events returns the component's event channel, creating it on first use.
// All listeners are removed when the component unmounts.
func (c *Component) Events() *events.Channel {
	if c.events == nil {
		c.events = events.NewChannel(c.name, c.rt.handler)
	}
	return c.events
}

// MarkNeedsBuild schedules the component for rebuild on the next
// FlushBuild. It is a no-op for unmounted or already dirty components.
func (c *Component) MarkNeedsBuild() {
	if !c.mounted || c.dirty {
		return
	}
	c.dirty = true
	c.rt.owner.ScheduleBuild(c)
}

// Unmount removes the component and its subtree. See Runtime.Unmount.
func (c *Component) Unmount() {
	c.rt.Unmount(c)
}

// OnDispose registers a cleanup function to be called when the component
// unmounts. Disposers run in reverse registration order after effect
// cleanups. Returns an unregister function.
func (c *Component) OnDispose(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}

	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		cleanup()
		return func() {}
	}
	index := len(c.disposers)
	c.disposers = append(c.disposers, cleanup)
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if index < len(c.disposers) {
			c.disposers[index] = nil
		}
	}
}

// runDisposers executes all registered disposers in reverse order.
func (c *Component) runDisposers() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	disposers := c.disposers
	c.disposers = nil
	c.mu.Unlock()

	for i := len(disposers) - 1; i >= 0; i-- {
		if fn := disposers[i]; fn != nil {
			c.rt.guard("core.OnDispose("+c.name+")", func() error {
				fn()
				return nil
			})
		}
	}
}

// hostParent returns the node a detached host is appended to.
func (c *Component) hostParent() *dom.Node {
	for p := c.parent; p != nil; p = p.parent {
		if p.host != nil {
			return p.host
		}
	}
	return c.rt.doc.Root()
}

func (c *Component) String() string {
	return c.name + "@" + c.handle.String()
}
