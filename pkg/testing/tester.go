package testing

import (
	"context"
	"errors"
	"testing"

	"github.com/go-drift/weft/pkg/core"
	"github.com/go-drift/weft/pkg/directive"
	"github.com/go-drift/weft/pkg/dom"
)

// DefaultSettlePasses is the default pass limit of PumpAndSettle.
const DefaultSettlePasses = 50

// ErrSettleTimeout is returned when PumpAndSettle exceeds its pass limit.
var ErrSettleTimeout = errors.New("PumpAndSettle exhausted its passes: runtime did not settle")

// Tester drives an isolated runtime for component tests. Errors reported by
// the runtime are captured by a RecordingHandler instead of being logged.
type Tester struct {
	rt      *core.Runtime
	handler *RecordingHandler
	ctx     context.Context
}

// NewTester creates a tester with its own runtime. opts are applied after
// the recording error handler, so they may replace it.
// Call Cleanup() when done, or use NewTesterWithT() instead.
func NewTester(opts ...core.Option) *Tester {
	h := &RecordingHandler{}
	rt := core.New(append([]core.Option{core.WithErrorHandler(h)}, opts...)...)
	return &Tester{rt: rt, handler: h, ctx: context.Background()}
}

// NewTesterWithT creates a tester that auto-cleans up via t.Cleanup().
// This is the recommended constructor for tests.
func NewTesterWithT(t *testing.T, opts ...core.Option) *Tester {
	tester := NewTester(opts...)
	t.Cleanup(tester.Cleanup)
	return tester
}

// Cleanup unmounts every component and stops the directive engine.
func (t *Tester) Cleanup() {
	t.rt.Shutdown(t.ctx)
}

// Runtime returns the runtime under test.
func (t *Tester) Runtime() *core.Runtime {
	return t.rt
}

// Handler returns the handler recording the runtime's errors.
func (t *Tester) Handler() *RecordingHandler {
	return t.handler
}

// Document returns the runtime's host document.
func (t *Tester) Document() *dom.Document {
	return t.rt.Document()
}

// Define registers a directive on the runtime's engine.
func (t *Tester) Define(name, selector string, ctor directive.Constructor, observed ...string) error {
	def, err := directive.NewDefinition(name, selector, ctor, observed...)
	if err != nil {
		return err
	}
	return t.rt.Directives().Define(def)
}

// Start boots the runtime (AutoRegister plus directive engine).
func (t *Tester) Start() error {
	return t.rt.Start(t.ctx)
}

// Mount mounts a root component and pumps.
func (t *Tester) Mount(name string, render core.RenderFunc, opts ...core.MountOption) (*core.Component, error) {
	return t.MountChild(nil, name, render, opts...)
}

// MountChild mounts a component under parent and pumps.
func (t *Tester) MountChild(parent *core.Component, name string, render core.RenderFunc, opts ...core.MountOption) (*core.Component, error) {
	c, err := t.rt.Mount(parent, name, render, opts...)
	if err != nil {
		return nil, err
	}
	return c, t.Pump()
}

// Unmount unmounts c and pumps so the directive engine sees the removal.
func (t *Tester) Unmount(c *core.Component) error {
	c.Unmount()
	return t.Pump()
}

// Pump rebuilds dirty components and delivers pending mutation records.
func (t *Tester) Pump() error {
	return t.rt.Flush()
}

// PumpAndSettle pumps until no rebuild or mutation record is pending.
// Returns ErrSettleTimeout if the runtime is still busy after maxPasses
// pumps; maxPasses <= 0 uses DefaultSettlePasses.
func (t *Tester) PumpAndSettle(maxPasses int) error {
	if maxPasses <= 0 {
		maxPasses = DefaultSettlePasses
	}
	for range maxPasses {
		if err := t.Pump(); err != nil {
			return err
		}
		if !t.needsWork() {
			return nil
		}
	}
	return ErrSettleTimeout
}

func (t *Tester) needsWork() bool {
	return t.rt.BuildOwner().NeedsWork() || t.rt.Document().Pending()
}

// Find evaluates a finder against every mounted root.
func (t *Tester) Find(finder Finder) FinderResult {
	var found []*core.Component
	for _, root := range t.rt.Roots() {
		found = append(found, finder.Evaluate(root)...)
	}
	return FinderResult{components: found, finder: finder}
}

// Query returns the connected host nodes matching selector in document
// order. It panics on an invalid selector.
func (t *Tester) Query(selector string) []*dom.Node {
	sel := directive.MustParseSelector(selector)
	var nodes []*dom.Node
	t.rt.Document().Root().Walk(func(n *dom.Node) bool {
		if sel.Matches(n) {
			nodes = append(nodes, n)
		}
		return true
	})
	return nodes
}

// Directives returns the directive instances attached to n.
func (t *Tester) Directives(n *dom.Node) []*directive.Instance {
	return t.rt.Directives().Instances(n)
}
