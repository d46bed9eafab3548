package shader

import "reflect"

// ParamsType is a reflection-backed descriptor for a shader parameter
// block. Two threads agree on the binary layout of a parameter block by
// exchanging its ParamsType rather than sharing Go types directly.
type ParamsType struct {
	rt reflect.Type
}

// TypeOf returns the descriptor for the dynamic type of v. Pointer
// types are dereferenced, so TypeOf(&params) and TypeOf(params)
// describe the same block.
func TypeOf(v any) ParamsType {
	rt := reflect.TypeOf(v)
	for rt != nil && rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	return ParamsType{rt: rt}
}

// Valid reports whether the descriptor describes a type.
func (t ParamsType) Valid() bool { return t.rt != nil }

// Size returns the byte size of the parameter block.
func (t ParamsType) Size() int {
	if t.rt == nil {
		return 0
	}
	return int(t.rt.Size())
}

// Name returns the type's name, or the empty string for unnamed types.
func (t ParamsType) Name() string {
	if t.rt == nil {
		return ""
	}
	return t.rt.Name()
}

// Equal reports whether two descriptors describe the same type.
func (t ParamsType) Equal(other ParamsType) bool { return t.rt == other.rt }
