// Package core provides the component runtime: component identity, render
// sessions, hook primitives and rebuild scheduling.
//
// # Runtime
//
// A Runtime is the explicit context object of one component tree. It owns
// the identity arena (Registry), the BuildOwner, the dependency container,
// the host document and the directive engine observing it. Runtimes share
// no state, so tests can create as many as they like:
//
//	rt := core.New(core.WithLogger(logger))
//	root, err := rt.Mount(nil, "app", app)
//
// # Components and Handles
//
// Mount allocates a Handle for the component in the runtime's arena. The
// handle indexes the component's slot list, the ordered persistent state of
// its hooks. Unmount releases the handle; a released handle is stale and
// any hook called through it fails with a usage error.
//
// # Hooks
//
// Each render pass receives a Session. Hooks take the session as their
// first argument and address slots by call order:
//
//	func counter(s *core.Session) {
//	    count, setCount := core.UseState(s, 0)
//	    label := core.UseMemo(s, func() string {
//	        return fmt.Sprintf("clicked %d times", count)
//	    }, []any{count})
//	    core.UseEffect(s, func() func() {
//	        fmt.Println(label)
//	        return nil
//	    }, []any{label})
//	    _ = setCount
//	}
//
// Hooks must not be called from effects or callbacks; the session is
// closed by then.
//
// Hooks must be called in the same order on every pass. Calling a
// different hook at an index, or a different number of hooks, is a usage
// error. With WithStrictHookOrder(false) violations are reported instead
// and the affected slots are reset.
//
// Dependencies are compared element-wise with Same. A nil dependency slice
// recomputes on every render.
//
// # Effects and Teardown
//
// Effects scheduled during a pass run after the pass ends, in slot order.
// When a component unmounts its children unmount first; then its pending
// effect cleanups run in slot order, OnDispose disposers run in reverse
// registration order, its event listeners are removed and its host node is
// detached from the document.
//
// # Rebuilds
//
// State setters compare the new value with Same and, on change, call
// MarkNeedsBuild, which schedules the component on the BuildOwner. Runtime
// FlushBuild rebuilds dirty components parents first.
package core
