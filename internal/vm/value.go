package vm

import "fmt"

// ValueType tags the active member of a Value.
type ValueType uint8

const (
	ValNil ValueType = iota
	ValBool
	ValNumber
	ValObj
)

// Kind identifies which heap arena a Handle indexes into.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
	KindNative
)

// Handle is a stable small-integer reference to a heap object: an
// arena slot index plus the generation counter that slot held when
// this handle was minted. A stale handle (slot reused by the GC sweep
// after this object died) fails the generation check in arena.get
// rather than aliasing the wrong object.
type Handle struct {
	Kind  Kind
	Index uint32
	Gen   uint32
}

// Value is lumen's tagged-union runtime value. Heap-backed variants
// (String, Function, Closure, Class, Instance, BoundMethod, Native)
// carry a Handle rather than a Go pointer, so the collector can move
// or reclaim the backing storage without invalidating values already
// sitting on the stack or in a closure's captured slots.
type Value struct {
	Type   ValueType
	Bool   bool
	Num    float64
	Handle Handle
}

func NilVal() Value               { return Value{Type: ValNil} }
func BoolVal(b bool) Value        { return Value{Type: ValBool, Bool: b} }
func NumberVal(n float64) Value   { return Value{Type: ValNumber, Num: n} }
func ObjVal(h Handle) Value       { return Value{Type: ValObj, Handle: h} }

func (v Value) IsNil() bool    { return v.Type == ValNil }
func (v Value) IsBool() bool   { return v.Type == ValBool }
func (v Value) IsNumber() bool { return v.Type == ValNumber }
func (v Value) IsObj() bool    { return v.Type == ValObj }
func (v Value) IsKind(k Kind) bool {
	return v.Type == ValObj && v.Handle.Kind == k
}

// IsFalsey implements lumen's truthiness rule: nil and false are
// falsey, everything else (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	return v.Type == ValNil || (v.Type == ValBool && !v.Bool)
}

// Equals implements value equality: Nil equals Nil, Bool/Number
// compare by value, heap objects compare by handle identity except
// strings, which compare by interned handle (and therefore also by
// identity, since all equal strings share one interned handle).
func (v Value) Equals(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case ValNil:
		return true
	case ValBool:
		return v.Bool == o.Bool
	case ValNumber:
		return v.Num == o.Num
	case ValObj:
		return v.Handle == o.Handle
	}
	return false
}

// String renders v the way `print` does (and `str()` returns).
func (v Value) String(h *Heap) string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		if v.Bool {
			return "true"
		}
		return "false"
	case ValNumber:
		return formatNumber(v.Num)
	case ValObj:
		return h.Inspect(v.Handle)
	}
	return "<invalid value>"
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return fmt.Sprintf("%d", int64(n))
	}
	return fmt.Sprintf("%g", n)
}

// TypeName returns lumen's runtime type name for v, the value the
// `type()` native returns.
func (v Value) TypeName(h *Heap) string {
	switch v.Type {
	case ValNil:
		return "nil"
	case ValBool:
		return "bool"
	case ValNumber:
		return "number"
	case ValObj:
		switch v.Handle.Kind {
		case KindString:
			return "string"
		case KindFunction, KindClosure, KindNative:
			return "function"
		case KindClass:
			return "class"
		case KindInstance:
			return "instance"
		case KindBoundMethod:
			return "bound method"
		}
	}
	return "unknown"
}
