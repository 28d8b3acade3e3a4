package core

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// maxBuildPasses bounds FlushBuild when renders keep scheduling rebuilds.
const maxBuildPasses = 100

// BuildOwner tracks dirty components that need rebuilding.
type BuildOwner struct {
	rt       *Runtime
	dirty    []*Component
	dirtySet map[*Component]bool
	mu       sync.Mutex

	// OnNeedsBuild is called when a new component is scheduled for rebuild,
	// signalling the host that FlushBuild should run.
	OnNeedsBuild func()
}

func newBuildOwner(rt *Runtime) *BuildOwner {
	return &BuildOwner{rt: rt}
}

// ScheduleBuild marks a component as needing rebuild.
func (b *BuildOwner) ScheduleBuild(c *Component) {
	added := func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.dirtySet[c] {
			return false
		}
		if b.dirtySet == nil {
			b.dirtySet = make(map[*Component]bool)
		}
		b.dirtySet[c] = true
		b.dirty = append(b.dirty, c)
		return true
	}()

	if added && b.OnNeedsBuild != nil {
		b.OnNeedsBuild()
	}
}

// NeedsWork returns true if there are dirty components.
func (b *BuildOwner) NeedsWork() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dirty) > 0
}

// FlushBuild rebuilds all dirty components in depth order, parents before
// children. Components scheduled by those renders are rebuilt in further
// passes. Render errors are joined and returned.
func (b *BuildOwner) FlushBuild() error {
	var errs []error
	for pass := 0; ; pass++ {
		b.mu.Lock()
		if len(b.dirty) == 0 {
			b.mu.Unlock()
			return errors.Join(errs...)
		}
		if pass == maxBuildPasses {
			n := len(b.dirty)
			b.mu.Unlock()
			return errors.Join(append(errs, fmt.Errorf("core: rebuild did not settle after %d passes (%d components dirty)", pass, n))...)
		}

		slices.SortStableFunc(b.dirty, func(a, b *Component) int {
			return a.depth - b.depth
		})

		dirty := b.dirty
		b.dirty = nil
		clear(b.dirtySet)
		b.mu.Unlock()

		for _, c := range dirty {
			if !c.mounted || !c.dirty {
				continue
			}
			if err := b.rt.Render(c); err != nil {
				errs = append(errs, err)
			}
		}
	}
}
