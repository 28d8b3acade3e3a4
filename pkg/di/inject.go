package di

import (
	"fmt"
	"reflect"
	"strings"
)

// InjectTag is the struct tag consulted by Inject.
const InjectTag = "inject"

// Inject fills the exported fields of the struct pointed to by target that
// carry an `inject:"token"` tag. A tag option `optional` leaves the field
// untouched when the token resolves to nothing:
//
//	type Panel struct {
//	    Log   *Logger `inject:"logger"`
//	    Cache *Cache  `inject:"cache,optional"`
//	}
func (c *Container) Inject(target any) error {
	v := reflect.ValueOf(target)
	if !v.IsValid() || v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("inject target must be a non-nil pointer, got %T", target)
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return fmt.Errorf("inject target must point to a struct, got %T", target)
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag, ok := field.Tag.Lookup(InjectTag)
		if !ok {
			continue
		}
		token, optional := parseInjectTag(tag)
		if token == "" {
			return fmt.Errorf("field %s: empty inject token", field.Name)
		}
		if !field.IsExported() {
			return fmt.Errorf("field %s: inject requires an exported field", field.Name)
		}

		inst, err := c.Resolve(token)
		if err != nil {
			return fmt.Errorf("field %s: %w", field.Name, err)
		}
		if inst == nil {
			if optional {
				continue
			}
			return fmt.Errorf("field %s: %w for token %q", field.Name, ErrNoProvider, token)
		}

		val := reflect.ValueOf(inst)
		fv := v.Field(i)
		if !val.Type().AssignableTo(fv.Type()) {
			return fmt.Errorf("field %s: %T is not assignable to %s", field.Name, inst, fv.Type())
		}
		fv.Set(val)
	}
	return nil
}

func parseInjectTag(tag string) (token string, optional bool) {
	parts := strings.Split(tag, ",")
	token = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		if strings.TrimSpace(opt) == "optional" {
			optional = true
		}
	}
	return token, optional
}

// hasInjectTags reports whether inst is a struct pointer with at least one
// inject tag.
func hasInjectTags(inst any) bool {
	t := reflect.TypeOf(inst)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return false
	}
	if reflect.ValueOf(inst).IsNil() {
		return false
	}
	st := t.Elem()
	for i := 0; i < st.NumField(); i++ {
		if _, ok := st.Field(i).Tag.Lookup(InjectTag); ok {
			return true
		}
	}
	return false
}
