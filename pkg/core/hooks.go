package core

import (
	"slices"

	"github.com/go-drift/weft/pkg/di"
	"github.com/go-drift/weft/pkg/events"
)

// UseState returns the component's persistent value for this call site and
// a setter. The setter is stable across renders. Setting a value that is
// Same as the current one does nothing; otherwise the value is stored and
// the component is marked for rebuild. Setters of an unmounted component
// are no-ops.
//
// Example:
//
//	func counter(s *core.Session) {
//	    count, setCount := core.UseState(s, 0)
//	    core.UseEffect(s, func() func() {
//	        fmt.Println("count is", count)
//	        return nil
//	    }, []any{count})
//	    _ = setCount
//	}
func UseState[T any](s *Session, initial T) (T, func(T)) {
	sl, fresh := s.next(slotState)
	if fresh {
		sl.value = initial
		rt, c, h := s.rt, s.comp, s.handle
		sl.setter = func(v T) {
			if !rt.registry.Valid(h) || Same(sl.value, v) {
				return
			}
			sl.value = v
			c.MarkNeedsBuild()
		}
	}
	setter, ok := sl.setter.(func(T))
	if !ok {
		panic(s.usage("core.UseState", "hook %d changed its value type to %T", s.cursor-1, initial))
	}
	return as[T](sl.value), setter
}

// UseReducer is UseState with updates computed by reducer. The returned
// dispatch function is stable across renders.
func UseReducer[S, A any](s *Session, reducer func(S, A) S, initial S) (S, func(A)) {
	sl, fresh := s.next(slotReducer)
	if fresh {
		sl.value = initial
		rt, c, h := s.rt, s.comp, s.handle
		sl.setter = func(action A) {
			if !rt.registry.Valid(h) {
				return
			}
			next := reducer(as[S](sl.value), action)
			if Same(sl.value, next) {
				return
			}
			sl.value = next
			c.MarkNeedsBuild()
		}
	}
	dispatch, ok := sl.setter.(func(A))
	if !ok {
		panic(s.usage("core.UseReducer", "hook %d changed its action type", s.cursor-1))
	}
	return as[S](sl.value), dispatch
}

// UseMemo returns the value computed by factory, recomputing it when deps
// changed since the previous render. nil deps recompute on every render.
func UseMemo[T any](s *Session, factory func() T, deps []any) T {
	sl, fresh := s.next(slotMemo)
	if fresh || depsChanged(sl.deps, deps) {
		sl.value = factory()
		sl.deps = slices.Clone(deps)
	}
	return as[T](sl.value)
}

// UseCallback returns fn as it was when deps last changed, giving callers a
// stable function identity across renders.
func UseCallback[F any](s *Session, fn F, deps []any) F {
	sl, fresh := s.next(slotCallback)
	if fresh || depsChanged(sl.deps, deps) {
		sl.value = fn
		sl.deps = slices.Clone(deps)
	}
	return as[F](sl.value)
}

// Ref is a mutable box that persists across renders without triggering
// rebuilds.
type Ref[T any] struct {
	Current T
}

// UseRef returns the component's persistent box for this call site.
func UseRef[T any](s *Session, initial T) *Ref[T] {
	sl, fresh := s.next(slotRef)
	if fresh {
		sl.value = &Ref[T]{Current: initial}
	}
	ref, ok := sl.value.(*Ref[T])
	if !ok {
		panic(s.usage("core.UseRef", "hook %d changed its value type to %T", s.cursor-1, initial))
	}
	return ref
}

// UseEffect schedules fn to run after the render pass when deps changed
// since the last committed render (nil deps run it after every render).
// A pass that fails commits nothing, so its deps are not remembered. Before
// fn runs again the cleanup it returned last time is called. Pending cleanups
// run once more when the component unmounts, in slot order.
func UseEffect(s *Session, fn func() func(), deps []any) {
	sl, _ := s.next(slotEffect)
	if sl.committed && !depsChanged(sl.deps, deps) {
		return
	}
	if fn == nil {
		fn = func() func() { return nil }
	}
	s.effects = append(s.effects, pendingEffect{
		index: s.cursor - 1,
		slot:  sl,
		deps:  slices.Clone(deps),
		fn:    fn,
	})
}

// UseService resolves token from the runtime's container once per mount
// and returns the instance asserted to T. It reports false when the
// container has no provider for token or the instance is not a T.
func UseService[T any](s *Session, token string) (T, bool) {
	sl, fresh := s.next(slotService)
	if fresh {
		v, ok := di.Get[T](s.rt.container, token)
		if ok {
			sl.value = v
		}
	}
	v, ok := sl.value.(T)
	return v, ok
}

// UseEvents returns the component's event channel. Listeners registered on
// it are removed when the component unmounts.
func UseEvents(s *Session) *events.Channel {
	sl, fresh := s.next(slotEvents)
	if fresh {
		sl.value = s.comp.Events()
	}
	return sl.value.(*events.Channel)
}

// as asserts v to T, returning the zero value for a nil interface.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}
