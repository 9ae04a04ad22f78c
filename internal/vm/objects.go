package vm

// StringObj is the payload of a KindString handle. Strings are
// interned: two equal string contents always resolve to the same
// handle (see Heap.InternString), so string equality is handle
// equality.
type StringObj struct {
	Chars string
	Hash  uint32
}

// FunctionObj is a compiled function body: its arity, the name it was
// declared with (empty for the implicit top-level script function),
// how many upvalues its closures capture, and its Chunk.
type FunctionObj struct {
	Name         string
	Arity        int
	UpvalueCount int
	Chunk        *Chunk
}

// ClosureObj pairs a FunctionObj with the upvalues captured where the
// function expression was evaluated.
type ClosureObj struct {
	Function Handle
	Upvalues []Handle // each a KindUpvalue handle
}

// UpvalueObj is open while Location >= 0 (a live index into the VM's
// value stack) and closed once the compiler's enclosing scope exits
// and the value is copied into Closed; Next chains it into the VM's
// open-upvalue list, sorted by descending stack slot.
type UpvalueObj struct {
	Location int
	Closed   Value
	Next     Handle
	HasNext  bool
}

// ClassObj is a class's runtime representation: its name and its
// method table (name -> KindClosure handle). Inherited methods are
// copied into the subclass's table at OP_INHERIT time, so method
// lookup never walks a superclass chain at call time.
type ClassObj struct {
	Name    string
	Methods map[string]Handle
}

// InstanceObj is one object of a ClassObj, holding its own field
// table distinct from its class's method table.
type InstanceObj struct {
	Class  Handle
	Fields map[string]Value
}

// BoundMethodObj pairs a receiver instance with one of its class's
// closures, produced by property access on a method name (`obj.m`)
// and invoked by OP_CALL like any other callable.
type BoundMethodObj struct {
	Receiver Value
	Method   Handle // KindClosure
}

// NativeFn is the signature every native (built-in) function
// implements: it receives the running VM (for heap access) and its
// evaluated arguments, and returns a Value or a runtime error.
type NativeFn func(vm *VM, args []Value) (Value, error)

// NativeObj is a native function's runtime representation.
type NativeObj struct {
	Name  string
	Arity int // -1 means variadic / not arity-checked
	Fn    NativeFn
}
