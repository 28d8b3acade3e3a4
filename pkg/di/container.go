// Package di provides the token-addressed dependency resolver.
//
// A Container maps string tokens to providers. A provider is exactly one of
// a constructible type, a literal value, or a factory with a list of
// dependency tokens. Singletons are materialized lazily on first resolution
// and cached; transient providers build a new instance per resolution.
//
//	c := di.New()
//	c.RegisterValue("config", Config{Level: "info"})
//	c.RegisterFactory("logger", func(deps ...any) (any, error) {
//	    return NewLogger(deps[0].(Config)), nil
//	}, "config")
//	logger, _ := di.Get[*Logger](c, "logger")
//
// Resolving a token without a provider is not an error: a warning is
// reported and an empty result is returned. Callers must check.
package di

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	wefterrors "github.com/go-drift/weft/pkg/errors"
)

// Scope is the lifetime policy of a resolved dependency.
type Scope int

const (
	// Singleton instances are built once and cached.
	Singleton Scope = iota
	// Transient instances are built on every resolution and never cached.
	Transient
	// Request is accepted for compatibility and behaves as Singleton.
	Request
)

func (s Scope) String() string {
	switch s {
	case Singleton:
		return "singleton"
	case Transient:
		return "transient"
	case Request:
		return "request"
	default:
		return fmt.Sprintf("Scope(%d)", int(s))
	}
}

// cached reports whether instances of this scope go into the singleton cache.
func (s Scope) cached() bool {
	return s != Transient
}

// ParseScope converts a scope name into a Scope.
func ParseScope(name string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "singleton":
		return Singleton, nil
	case "transient":
		return Transient, nil
	case "request":
		return Request, nil
	}
	return Singleton, fmt.Errorf("unknown scope %q", name)
}

// Factory builds an instance from its resolved dependencies, passed in the
// order the dependency tokens were registered.
type Factory func(deps ...any) (any, error)

// Registrar is implemented by services that need an initialization step
// after every singleton has been wired. See Container.AutoRegister.
type Registrar interface {
	Register() error
}

// ErrNoProvider is reported (not returned) when a token has no provider.
var ErrNoProvider = errors.New("no provider registered")

// CycleError is returned when factory dependencies form a cycle.
type CycleError struct {
	// Path lists the tokens on the resolution stack, ending with the token
	// that closed the cycle.
	Path []string
}

func (e *CycleError) Error() string {
	return "di: dependency cycle: " + strings.Join(e.Path, " -> ")
}

type providerKind int

const (
	kindType providerKind = iota
	kindValue
	kindFactory
)

type provider struct {
	token   string
	kind    providerKind
	scope   Scope
	ctor    func() any
	value   any
	factory Factory
	deps    []string
}

// Container is the provider registry and singleton instance cache.
// It is owned by one runtime; there is no package-level container.
type Container struct {
	providers  map[string]*provider
	order      []string
	instances  map[string]any
	registered map[string]bool
	handler    wefterrors.ErrorHandler
	mu         sync.Mutex
}

// Option configures a Container.
type Option func(*Container)

// WithErrorHandler routes resolution warnings to h instead of the global handler.
func WithErrorHandler(h wefterrors.ErrorHandler) Option {
	return func(c *Container) {
		c.handler = h
	}
}

// New creates an empty container.
func New(opts ...Option) *Container {
	c := &Container{
		providers:  make(map[string]*provider),
		instances:  make(map[string]any),
		registered: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a constructible-type provider. ctor is called with no
// arguments; field injection is a separate step (see Inject).
func (c *Container) Register(token string, ctor func() any, scope Scope) error {
	if ctor == nil {
		return wefterrors.Usagef("di.Register", "nil constructor for token %q", token)
	}
	return c.add(&provider{token: token, kind: kindType, scope: scope, ctor: ctor}, "di.Register")
}

// RegisterType adds a provider that builds a fresh *T.
func RegisterType[T any](c *Container, token string, scope Scope) error {
	return c.Register(token, func() any { return new(T) }, scope)
}

// RegisterValue adds a literal value provider. The value is placed in the
// singleton cache immediately.
func (c *Container) RegisterValue(token string, value any) error {
	if err := c.add(&provider{token: token, kind: kindValue, scope: Singleton, value: value}, "di.RegisterValue"); err != nil {
		return err
	}
	c.mu.Lock()
	c.instances[token] = value
	c.mu.Unlock()
	return nil
}

// RegisterFactory adds a singleton factory provider with dependency tokens.
func (c *Container) RegisterFactory(token string, factory Factory, deps ...string) error {
	return c.RegisterFactoryScoped(token, Singleton, factory, deps...)
}

// RegisterFactoryScoped adds a factory provider with an explicit scope.
func (c *Container) RegisterFactoryScoped(token string, scope Scope, factory Factory, deps ...string) error {
	if factory == nil {
		return wefterrors.Usagef("di.RegisterFactory", "nil factory for token %q", token)
	}
	for _, dep := range deps {
		if dep == "" {
			return wefterrors.Usagef("di.RegisterFactory", "empty dependency token for %q", token)
		}
	}
	return c.add(&provider{
		token:   token,
		kind:    kindFactory,
		scope:   scope,
		factory: factory,
		deps:    slices.Clone(deps),
	}, "di.RegisterFactory")
}

// add stores p, replacing any previous provider (and cached instance) for
// the same token.
func (c *Container) add(p *provider, op string) error {
	if p.token == "" {
		return wefterrors.Usagef(op, "empty token")
	}
	if p.scope < Singleton || p.scope > Request {
		return wefterrors.Usagef(op, "invalid scope %s for token %q", p.scope, p.token)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.providers[p.token]; !exists {
		c.order = append(c.order, p.token)
	}
	c.providers[p.token] = p
	delete(c.instances, p.token)
	delete(c.registered, p.token)
	return nil
}

// Has reports whether token has a provider.
func (c *Container) Has(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.providers[token]
	return ok
}

// Tokens returns all registered tokens in registration order.
func (c *Container) Tokens() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.order)
}

// ScopeOf returns the scope of token's provider.
func (c *Container) ScopeOf(token string) (Scope, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.providers[token]
	if !ok {
		return Singleton, false
	}
	return p.scope, true
}

// Cached reports whether token has a materialized singleton instance.
func (c *Container) Cached(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.instances[token]
	return ok
}

// Resolve returns the instance for token.
//
// A missing provider yields (nil, nil) after a warning is reported. A cyclic
// factory chain yields a *CycleError. Factory errors are returned wrapped.
func (c *Container) Resolve(token string) (any, error) {
	return c.resolve(token, nil)
}

func (c *Container) resolve(token string, path []string) (any, error) {
	if slices.Contains(path, token) {
		cycle := append(slices.Clone(path), token)
		err := &CycleError{Path: cycle}
		wefterrors.ReportTo(c.handler, &wefterrors.RuntimeError{
			Op:    "di.Resolve",
			Kind:  wefterrors.KindCycle,
			Token: token,
			Err:   err,
		})
		return nil, err
	}

	c.mu.Lock()
	if inst, ok := c.instances[token]; ok {
		c.mu.Unlock()
		return inst, nil
	}
	p, ok := c.providers[token]
	c.mu.Unlock()

	if !ok {
		wefterrors.ReportTo(c.handler, &wefterrors.RuntimeError{
			Op:    "di.Resolve",
			Kind:  wefterrors.KindResolve,
			Token: token,
			Err:   ErrNoProvider,
		})
		return nil, nil
	}

	inst, err := c.build(p, append(path, token))
	if err != nil {
		return nil, err
	}
	if !p.scope.cached() {
		return inst, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.instances[token]; ok {
		return existing, nil
	}
	c.instances[token] = inst
	return inst, nil
}

func (c *Container) build(p *provider, path []string) (any, error) {
	switch p.kind {
	case kindValue:
		return p.value, nil
	case kindType:
		var inst any
		err := wefterrors.Guard(c.handler, "di.Resolve("+p.token+")", func() error {
			inst = p.ctor()
			return nil
		})
		return inst, err
	case kindFactory:
		args := make([]any, len(p.deps))
		for i, dep := range p.deps {
			val, err := c.resolve(dep, path)
			if err != nil {
				return nil, err
			}
			args[i] = val
		}
		var inst any
		err := wefterrors.Guard(c.handler, "di.Resolve("+p.token+")", func() error {
			var ferr error
			inst, ferr = p.factory(args...)
			return ferr
		})
		if err != nil {
			return nil, fmt.Errorf("di: factory for %q: %w", p.token, err)
		}
		return inst, nil
	}
	return nil, wefterrors.Usagef("di.Resolve", "provider for %q has no kind", p.token)
}

// Get resolves token and asserts the instance to T. It returns false when
// the token has no provider, resolution failed, or the type does not match.
func Get[T any](c *Container, token string) (T, bool) {
	var zero T
	inst, err := c.Resolve(token)
	if err != nil || inst == nil {
		return zero, false
	}
	v, ok := inst.(T)
	if !ok {
		wefterrors.ReportTo(c.handler, &wefterrors.RuntimeError{
			Op:    "di.Get",
			Kind:  wefterrors.KindResolve,
			Token: token,
			Err:   fmt.Errorf("instance of type %T is not %T", inst, zero),
		})
		return zero, false
	}
	return v, true
}

// AutoRegister performs the two-phase boot: it first resolves every
// singleton token that has no cached instance and injects tagged fields,
// then calls Register on every cached instance implementing Registrar.
// Register is called at most once per token over the container's life.
// All errors are joined; missing providers remain warnings.
func (c *Container) AutoRegister() error {
	var errs []error

	tokens := c.Tokens()
	for _, token := range tokens {
		scope, ok := c.ScopeOf(token)
		if !ok || !scope.cached() || c.Cached(token) {
			continue
		}
		if _, err := c.Resolve(token); err != nil {
			errs = append(errs, err)
		}
	}

	for _, token := range tokens {
		inst, ok := c.cachedInstance(token)
		if !ok || !hasInjectTags(inst) {
			continue
		}
		if err := c.Inject(inst); err != nil {
			errs = append(errs, fmt.Errorf("di: inject %q: %w", token, err))
		}
	}

	for _, token := range tokens {
		inst, ok := c.cachedInstance(token)
		if !ok {
			continue
		}
		r, isRegistrar := inst.(Registrar)
		if !isRegistrar || !c.markRegistered(token) {
			continue
		}
		err := wefterrors.Guard(c.handler, "di.AutoRegister("+token+")", r.Register)
		if err != nil {
			errs = append(errs, fmt.Errorf("di: register %q: %w", token, err))
		}
	}

	return errors.Join(errs...)
}

func (c *Container) cachedInstance(token string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	inst, ok := c.instances[token]
	return inst, ok && inst != nil
}

// markRegistered returns true the first time it is called for token.
func (c *Container) markRegistered(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.registered[token] {
		return false
	}
	c.registered[token] = true
	return true
}
