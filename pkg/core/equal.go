package core

import (
	"math"
	"reflect"
	"unsafe"
)

// Same reports whether a and b are the same value for the purpose of
// dependency comparison and state updates.
//
// Comparable values use ==, except that NaN is the same as NaN. Maps,
// slices, funcs, channels and pointers compare by identity. Values that are
// not comparable (such as structs holding a slice) are never the same.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Func:
		return funcIdentity(a) == funcIdentity(b)
	case reflect.Slice:
		return va.Len() == vb.Len() && va.Pointer() == vb.Pointer()
	case reflect.Map, reflect.Chan, reflect.Pointer, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Float32, reflect.Float64:
		fa, fb := va.Float(), vb.Float()
		return fa == fb || (math.IsNaN(fa) && math.IsNaN(fb))
	}
	if !va.Comparable() || !vb.Comparable() {
		return false
	}
	return a == b
}

// funcIdentity returns the closure pointer held in the data word of an
// interface containing a func. Two closures built from the same literal
// share a code pointer but not a closure pointer.
func funcIdentity(v any) unsafe.Pointer {
	return (*[2]unsafe.Pointer)(unsafe.Pointer(&v))[1]
}

// depsChanged reports whether a memoized value must be recomputed. nil
// deps always recompute.
func depsChanged(prev, next []any) bool {
	if next == nil {
		return true
	}
	if len(prev) != len(next) {
		return true
	}
	for i := range next {
		if !Same(prev[i], next[i]) {
			return true
		}
	}
	return false
}
