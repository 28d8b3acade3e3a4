// Package scenario loads YAML scenarios and replays them through a runtime,
// collecting every lifecycle transition as a trace.
//
// A scenario declares services, directives, an initial host tree and a
// component tree, followed by steps that mutate the tree or component
// state. Mutations are batched until a flush step or the end of the
// scenario, exactly as a host delivers them at the end of a turn.
package scenario

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario is the parsed form of a scenario file.
type Scenario struct {
	Name       string          `yaml:"name"`
	Services   []ServiceSpec   `yaml:"services,omitempty"`
	Directives []DirectiveSpec `yaml:"directives,omitempty"`
	Tree       []NodeSpec      `yaml:"tree,omitempty"`
	Components []ComponentSpec `yaml:"components,omitempty"`
	Steps      []Step          `yaml:"steps,omitempty"`
	// Expect, when set, lists the trace lines the replay must produce.
	Expect []string `yaml:"expect,omitempty"`
}

// ServiceSpec registers one provider. A service with a Value is a literal
// value provider; otherwise it is a factory over Deps.
type ServiceSpec struct {
	Token string   `yaml:"token"`
	Scope string   `yaml:"scope,omitempty"`
	Value any      `yaml:"value,omitempty"`
	Deps  []string `yaml:"deps,omitempty"`
	Fail  bool     `yaml:"fail,omitempty"`
}

// DirectiveSpec defines a tracing behavior for every node matching Selector.
type DirectiveSpec struct {
	Name     string   `yaml:"name"`
	Selector string   `yaml:"selector"`
	Observe  []string `yaml:"observe,omitempty"`
	// Fail lists lifecycle events (init, connected, disconnected,
	// attribute, destroy) whose callback returns an error.
	Fail []string `yaml:"fail,omitempty"`
}

// NodeSpec describes a host node. ID is stored as the "id" attribute and is
// how steps refer to the node.
type NodeSpec struct {
	Tag      string            `yaml:"tag"`
	ID       string            `yaml:"id,omitempty"`
	Attrs    map[string]string `yaml:"attrs,omitempty"`
	Class    string            `yaml:"class,omitempty"`
	Children []NodeSpec        `yaml:"children,omitempty"`
}

// ComponentSpec describes a component with one state slot, optional
// service lookups and event subscriptions.
type ComponentSpec struct {
	Name     string          `yaml:"name"`
	Host     *NodeSpec       `yaml:"host,omitempty"`
	State    any             `yaml:"state,omitempty"`
	Services []string        `yaml:"services,omitempty"`
	Listen   []string        `yaml:"listen,omitempty"`
	Children []ComponentSpec `yaml:"children,omitempty"`
}

// Step is one scenario action. Exactly one field must be set.
type Step struct {
	Append      *AppendStep `yaml:"append,omitempty"`
	Remove      string      `yaml:"remove,omitempty"`
	SetAttr     *AttrStep   `yaml:"set_attr,omitempty"`
	RemoveAttr  *AttrStep   `yaml:"remove_attr,omitempty"`
	AddClass    *ClassStep  `yaml:"add_class,omitempty"`
	RemoveClass *ClassStep  `yaml:"remove_class,omitempty"`
	SetState    *StateStep  `yaml:"set_state,omitempty"`
	Emit        *EmitStep   `yaml:"emit,omitempty"`
	Unmount     string      `yaml:"unmount,omitempty"`
	Flush       bool        `yaml:"flush,omitempty"`
}

// AppendStep appends Node under the node with id Parent, or the root.
type AppendStep struct {
	Parent string   `yaml:"parent,omitempty"`
	Node   NodeSpec `yaml:"node"`
}

// AttrStep sets or removes an attribute.
type AttrStep struct {
	Node  string `yaml:"node"`
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// ClassStep adds or removes a class.
type ClassStep struct {
	Node  string `yaml:"node"`
	Class string `yaml:"class"`
}

// StateStep calls a component's state setter.
type StateStep struct {
	Component string `yaml:"component"`
	Value     any    `yaml:"value"`
}

// EmitStep emits an event on a component's channel.
type EmitStep struct {
	Component string `yaml:"component"`
	Topic     string `yaml:"topic"`
	Payload   any    `yaml:"payload,omitempty"`
}

// Load reads and validates the scenario at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario document.
func Parse(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks names and step shapes before anything is executed.
func (sc *Scenario) Validate() error {
	var errs []error
	for i, svc := range sc.Services {
		if svc.Token == "" {
			errs = append(errs, fmt.Errorf("services[%d]: token is required", i))
		}
	}
	for i, d := range sc.Directives {
		if d.Selector == "" {
			errs = append(errs, fmt.Errorf("directives[%d]: selector is required", i))
		}
		for _, ev := range d.Fail {
			if !validEvents[ev] {
				errs = append(errs, fmt.Errorf("directives[%d]: unknown fail event %q", i, ev))
			}
		}
	}
	seen := make(map[string]bool)
	var walk func(path string, specs []ComponentSpec)
	walk = func(path string, specs []ComponentSpec) {
		for i, c := range specs {
			at := fmt.Sprintf("%s[%d]", path, i)
			if c.Name == "" {
				errs = append(errs, fmt.Errorf("%s: name is required", at))
			} else if seen[c.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate component %q", at, c.Name))
			}
			seen[c.Name] = true
			walk(at+".children", c.Children)
		}
	}
	walk("components", sc.Components)
	for i, st := range sc.Steps {
		if n := st.actions(); n != 1 {
			errs = append(errs, fmt.Errorf("steps[%d]: expected exactly one action, got %d", i, n))
		}
	}
	return errors.Join(errs...)
}

var validEvents = map[string]bool{
	"init":         true,
	"connected":    true,
	"disconnected": true,
	"attribute":    true,
	"destroy":      true,
}

func (st Step) actions() int {
	n := 0
	for _, set := range []bool{
		st.Append != nil,
		st.Remove != "",
		st.SetAttr != nil,
		st.RemoveAttr != nil,
		st.AddClass != nil,
		st.RemoveClass != nil,
		st.SetState != nil,
		st.Emit != nil,
		st.Unmount != "",
		st.Flush,
	} {
		if set {
			n++
		}
	}
	return n
}
