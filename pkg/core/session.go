package core

import (
	"fmt"
	"slices"

	wefterrors "github.com/go-drift/weft/pkg/errors"
)

type slotKind uint8

const (
	slotState slotKind = iota + 1
	slotReducer
	slotMemo
	slotCallback
	slotRef
	slotEffect
	slotService
	slotEvents
)

func (k slotKind) String() string {
	switch k {
	case slotState:
		return "UseState"
	case slotReducer:
		return "UseReducer"
	case slotMemo:
		return "UseMemo"
	case slotCallback:
		return "UseCallback"
	case slotRef:
		return "UseRef"
	case slotEffect:
		return "UseEffect"
	case slotService:
		return "UseService"
	case slotEvents:
		return "UseEvents"
	default:
		return fmt.Sprintf("slotKind(%d)", int(k))
	}
}

// slot is one persistent hook cell.
type slot struct {
	kind  slotKind
	value any
	// setter is the stable update function of state and reducer slots.
	setter any
	deps   []any
	// committed is set once an effect slot has run in a committed pass;
	// deps then holds that pass's dependencies.
	committed bool
	// cleanup is the pending cleanup of an effect slot.
	cleanup func()
}

type pendingEffect struct {
	index int
	slot  *slot
	deps  []any
	fn    func() func()
}

// Session is the render-session token of one render pass. The runtime
// opens a session for a component, passes it to the render function and
// closes it when the function returns. Hooks take the session as their
// first argument and fail with a usage error once it is closed.
type Session struct {
	rt      *Runtime
	comp    *Component
	handle  Handle
	cursor  int
	effects []pendingEffect
	closed  bool
}

func newSession(rt *Runtime, c *Component) *Session {
	return &Session{rt: rt, comp: c, handle: c.handle}
}

// Component returns the component being rendered.
func (s *Session) Component() *Component {
	return s.comp
}

// Runtime returns the runtime that opened the session.
func (s *Session) Runtime() *Runtime {
	return s.rt
}

// Active reports whether hooks may still be called.
func (s *Session) Active() bool {
	return s != nil && !s.closed
}

// HookCount returns the number of hooks called so far in this pass.
func (s *Session) HookCount() int {
	return s.cursor
}

func (s *Session) usage(op, format string, args ...any) *wefterrors.UsageError {
	err := wefterrors.Usagef(op, format, args...)
	if s != nil && s.comp != nil {
		err.Component = s.comp.name
	}
	return err
}

// next advances the cursor and returns the slot for the current call. The
// bool result is true when the slot was just created or reset.
func (s *Session) next(kind slotKind) (*slot, bool) {
	op := "core." + kind.String()
	if s == nil || s.rt == nil {
		panic(wefterrors.Usagef(op, "hook called without a render session"))
	}
	if s.closed {
		panic(s.usage(op, "hook called after the render pass ended"))
	}
	e, ok := s.rt.registry.lookup(s.handle)
	if !ok {
		panic(s.usage(op, "hook called for unmounted component handle %s", s.handle))
	}

	idx := s.cursor
	s.cursor++

	if idx < len(e.slots) {
		sl := e.slots[idx]
		if sl.kind == kind {
			return sl, false
		}
		s.violation(s.usage(op, "hook %d was %s in the previous render", idx, sl.kind))
		s.discard(sl)
		// Closures from earlier passes keep the detached cell.
		sl = &slot{kind: kind}
		e.slots[idx] = sl
		return sl, true
	}

	if e.hooks >= 0 && idx >= e.hooks {
		s.violation(s.usage(op, "render called more hooks than the previous render (%d)", e.hooks))
	}
	sl := &slot{kind: kind}
	e.slots = append(e.slots, sl)
	return sl, true
}

// violation panics with err in strict mode and reports it otherwise.
func (s *Session) violation(err *wefterrors.UsageError) {
	if s.rt.cfg.StrictHookOrder {
		panic(err)
	}
	s.rt.reportUsage(err)
}

// discard runs the cleanup of a slot being replaced.
func (s *Session) discard(sl *slot) {
	if sl.kind == slotEffect && sl.cleanup != nil {
		cleanup := sl.cleanup
		sl.cleanup = nil
		s.rt.guard("core.UseEffect.cleanup("+s.comp.name+")", func() error {
			cleanup()
			return nil
		})
	}
}

// end closes the session, checks the hook count against the previous pass
// and flushes the scheduled effects in slot order.
func (s *Session) end() error {
	s.closed = true
	e, ok := s.rt.registry.lookup(s.handle)
	if !ok {
		// Unmounted during its own render.
		return nil
	}
	if e.hooks >= 0 && s.cursor != e.hooks {
		err := s.usage("core.Render", "render called %d hooks, previous render called %d", s.cursor, e.hooks)
		if s.rt.cfg.StrictHookOrder {
			s.effects = nil
			return err
		}
		s.rt.reportUsage(err)
	}
	if s.cursor < len(e.slots) {
		for _, sl := range e.slots[s.cursor:] {
			s.discard(sl)
		}
		e.slots = slices.Clip(e.slots[:s.cursor])
	}
	e.hooks = s.cursor
	s.flushEffects()
	return nil
}

// abort closes the session without committing the pass.
func (s *Session) abort() {
	s.closed = true
	s.effects = nil
}

func (s *Session) flushEffects() {
	effects := s.effects
	s.effects = nil
	for _, eff := range effects {
		if !s.rt.registry.Valid(s.handle) {
			return
		}
		s.discard(eff.slot)
		fn := eff.fn
		sl := eff.slot
		sl.deps = eff.deps
		sl.committed = true
		s.rt.guard(fmt.Sprintf("core.UseEffect(%s#%d)", s.comp.name, eff.index), func() error {
			sl.cleanup = fn()
			return nil
		})
	}
}
