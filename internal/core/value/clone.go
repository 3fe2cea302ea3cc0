// Package value holds the plain-data helpers shared by the event bus and the
// state store: deep cloning, structural equality, the tagged vector types that
// travel over the JSON wire, and a bounded ring buffer.
package value

import "reflect"

// Cloner is implemented by opaque values that know how to copy themselves.
// Clone must return an independent copy; mutations of either side must not
// be visible through the other.
type Cloner interface {
	Clone() any
}

// Clone returns a deep copy of v. Nested map[string]any and []any containers
// are copied recursively, Cloner values are asked to copy themselves, and
// other maps, slices, arrays and pointers are copied element by element.
// Pointers keep their pointer type: a *Vector3 clones to a fresh *Vector3.
// Structs are copied by value; their fields are not walked.
func Clone(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		return CloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Clone(e)
		}
		return out
	case Cloner:
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer && rv.Type().Elem().Implements(clonerType) {
			return cloneReflect(rv).Interface()
		}
		return t.Clone()
	}
	return cloneReflect(reflect.ValueOf(v)).Interface()
}

var clonerType = reflect.TypeOf((*Cloner)(nil)).Elem()

func cloneReflect(rv reflect.Value) reflect.Value {
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeMapWithSize(rv.Type(), rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out.SetMapIndex(iter.Key(), cloneElem(iter.Value(), rv.Type().Elem()))
		}
		return out
	case reflect.Slice:
		if rv.IsNil() {
			return rv
		}
		out := reflect.MakeSlice(rv.Type(), rv.Len(), rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out
	case reflect.Array:
		out := reflect.New(rv.Type()).Elem()
		for i := 0; i < rv.Len(); i++ {
			out.Index(i).Set(cloneElem(rv.Index(i), rv.Type().Elem()))
		}
		return out
	case reflect.Pointer:
		if rv.IsNil() {
			return rv
		}
		out := reflect.New(rv.Type().Elem())
		out.Elem().Set(cloneElem(rv.Elem(), rv.Type().Elem()))
		return out
	}
	return rv
}

// cloneElem clones one element and returns it as a value assignable to a
// slot of type typ.
func cloneElem(rv reflect.Value, typ reflect.Type) reflect.Value {
	if rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Zero(typ)
		}
		rv = rv.Elem()
	}
	if !rv.CanInterface() {
		return rv
	}
	c := Clone(rv.Interface())
	if c == nil {
		return reflect.Zero(typ)
	}
	cv := reflect.ValueOf(c)
	if !cv.Type().AssignableTo(typ) {
		return rv
	}
	return cv
}

// CloneMap deep-copies a tree. A nil map clones to an empty map.
func CloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, e := range m {
		out[k] = Clone(e)
	}
	return out
}

// Equal reports whether a and b hold the same data. Containers compare by
// content, so two separately built maps with identical leaves are equal.
func Equal(a, b any) bool {
	switch ta := a.(type) {
	case map[string]any:
		tb, ok := b.(map[string]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for k, va := range ta {
			vb, exists := tb[k]
			if !exists || !Equal(va, vb) {
				return false
			}
		}
		return true
	case []any:
		tb, ok := b.([]any)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	}
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			return an == bn
		}
	}
	return reflect.DeepEqual(a, b)
}

// IsContainer reports whether v is a state-tree node.
func IsContainer(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// toFloat normalizes numeric kinds so that an int written from Go and the
// float64 produced by a JSON or Lua round trip compare equal.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
