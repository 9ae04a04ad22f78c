package vm

import "time"

// registerBuiltins installs lumen's small, fixed native-function
// surface into the globals table at VM construction: clock, the
// getattr/setattr/hasattr/delattr reflective field accessors, and the
// type()/str() introspection helpers.
func (vm *VM) registerBuiltins() {
	vm.defineNative("clock", 0, nativeClock)
	vm.defineNative("getattr", 2, nativeGetattr)
	vm.defineNative("setattr", 3, nativeSetattr)
	vm.defineNative("hasattr", 2, nativeHasattr)
	vm.defineNative("delattr", 2, nativeDelattr)
	vm.defineNative("type", 1, nativeType)
	vm.defineNative("str", 1, nativeStr)
}

func (vm *VM) defineNative(name string, arity int, fn NativeFn) {
	handle := vm.heap.NewNative(&NativeObj{Name: name, Arity: arity, Fn: fn})
	vm.globals[name] = ObjVal(handle)
	vm.constGlobals[name] = true
}

func nativeClock(vm *VM, args []Value) (Value, error) {
	return NumberVal(float64(time.Now().UnixNano()) / 1e9), nil
}

func attrName(vm *VM, args []Value, idx int) (string, error) {
	if !args[idx].IsKind(KindString) {
		return "", newRuntimeError("Expected a string attribute name.")
	}
	s, _ := vm.heap.String(args[idx].Handle)
	return s.Chars, nil
}

func nativeGetattr(vm *VM, args []Value) (Value, error) {
	if !args[0].IsKind(KindInstance) {
		return NilVal(), newRuntimeError("getattr() expects an instance.")
	}
	name, err := attrName(vm, args, 1)
	if err != nil {
		return NilVal(), err
	}
	inst, _ := vm.heap.Instance(args[0].Handle)
	if v, ok := inst.Fields[name]; ok {
		return v, nil
	}
	if methodHandle, ok := vm.bindMethod(inst.Class, name); ok {
		return ObjVal(vm.heap.NewBoundMethod(&BoundMethodObj{Receiver: args[0], Method: methodHandle})), nil
	}
	return NilVal(), nil
}

func nativeSetattr(vm *VM, args []Value) (Value, error) {
	if !args[0].IsKind(KindInstance) {
		return NilVal(), newRuntimeError("setattr() expects an instance.")
	}
	name, err := attrName(vm, args, 1)
	if err != nil {
		return NilVal(), err
	}
	inst, _ := vm.heap.Instance(args[0].Handle)
	inst.Fields[name] = args[2]
	return args[2], nil
}

func nativeHasattr(vm *VM, args []Value) (Value, error) {
	if !args[0].IsKind(KindInstance) {
		return BoolVal(false), nil
	}
	name, err := attrName(vm, args, 1)
	if err != nil {
		return NilVal(), err
	}
	inst, _ := vm.heap.Instance(args[0].Handle)
	if _, ok := inst.Fields[name]; ok {
		return BoolVal(true), nil
	}
	_, ok := vm.bindMethod(inst.Class, name)
	return BoolVal(ok), nil
}

func nativeDelattr(vm *VM, args []Value) (Value, error) {
	if !args[0].IsKind(KindInstance) {
		return NilVal(), newRuntimeError("delattr() expects an instance.")
	}
	name, err := attrName(vm, args, 1)
	if err != nil {
		return NilVal(), err
	}
	inst, _ := vm.heap.Instance(args[0].Handle)
	delete(inst.Fields, name)
	return NilVal(), nil
}

func nativeType(vm *VM, args []Value) (Value, error) {
	return ObjVal(vm.heap.InternString(args[0].TypeName(vm.heap))), nil
}

func nativeStr(vm *VM, args []Value) (Value, error) {
	return ObjVal(vm.heap.InternString(args[0].String(vm.heap))), nil
}
